package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bryan-buckman/hearth/internal/model"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func makeListings(n int) []model.Listing {
	out := make([]model.Listing, n)
	for i := range out {
		out[i] = model.Listing{
			ID:        fmt.Sprintf("listing-%02x", i),
			Title:     fmt.Sprintf("Listing %d", i),
			Prices:    []model.Price{{Type: "Studio", Amount: float64(500 + i*100)}},
			CreatedAt: base.Add(-time.Duration(i) * time.Hour),
		}
	}
	return out
}

// shape renders a feed as ids, e.g. "listing-00 listing-01 ... ad-0".
func shape(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		if it.IsPromo() {
			out[i] = it.Promo.ID
		} else {
			out[i] = it.Listing.ID
		}
	}
	return out
}

func TestComposeFeedSlotCount(t *testing.T) {
	for _, n := range []int{0, 1, 3, 4, 5, 7, 8, 9, 12, 41, 100} {
		t.Run(fmt.Sprintf("%d listings", n), func(t *testing.T) {
			items := ComposeFeed(makeListings(n))

			promos := 0
			organic := 0
			for i, it := range items {
				if !it.IsPromo() {
					organic++
					continue
				}
				promos++
				if organic%PromoEvery != 0 {
					t.Errorf("promo at index %d follows %d listings", i, organic)
				}
				if i == 0 || items[i-1].IsPromo() {
					t.Errorf("promo at index %d is not preceded by a listing", i)
				}
			}
			if diff := cmp.Diff(n/PromoEvery, promos); diff != "" {
				t.Errorf("promo count mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(n, organic); diff != "" {
				t.Errorf("listing count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComposeFeedEmpty(t *testing.T) {
	if got := ComposeFeed(nil); len(got) != 0 {
		t.Errorf("expected empty feed, got %d items", len(got))
	}
}

func TestComposeFeedOrder(t *testing.T) {
	items := ComposeFeed(makeListings(9))
	want := []string{
		"listing-00", "listing-01", "listing-02", "listing-03", "ad-0",
		"listing-04", "listing-05", "listing-06", "listing-07", "ad-1",
		"listing-08",
	}
	if diff := cmp.Diff(want, shape(items)); diff != "" {
		t.Errorf("feed shape mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeFeedCyclesPool(t *testing.T) {
	n := PromoEvery * (PoolSize + 3)
	items := ComposeFeed(makeListings(n))

	k := 0
	for _, it := range items {
		if !it.IsPromo() {
			continue
		}
		p := it.Promo
		if diff := cmp.Diff(k%PoolSize, p.Slot); diff != "" {
			t.Errorf("promo %d slot mismatch (-want +got):\n%s", k, diff)
		}
		tpl := Templates[p.Slot%len(Templates)]
		if diff := cmp.Diff(tpl.Emoji+" "+tpl.Title, p.Title); diff != "" {
			t.Errorf("promo %d title mismatch (-want +got):\n%s", k, diff)
		}
		if diff := cmp.Diff(tpl.Content, p.Content); diff != "" {
			t.Errorf("promo %d content mismatch (-want +got):\n%s", k, diff)
		}
		if diff := cmp.Diff(200+(p.Slot*50)%300, p.Height); diff != "" {
			t.Errorf("promo %d height mismatch (-want +got):\n%s", k, diff)
		}
		if diff := cmp.Diff(fmt.Sprintf("ad-%d", k), p.ID); diff != "" {
			t.Errorf("promo %d id mismatch (-want +got):\n%s", k, diff)
		}
		k++
	}
	if k != PoolSize+3 {
		t.Fatalf("expected %d promos, got %d", PoolSize+3, k)
	}
}

func TestComposeFeedDoesNotShareSlots(t *testing.T) {
	items := ComposeFeed(makeListings(8))
	items[4].Promo.Title = "changed"

	again := ComposeFeed(makeListings(8))
	if again[4].Promo.Title == "changed" {
		t.Error("ComposeFeed must not hand out pointers into the slot pool")
	}
}

func TestListings(t *testing.T) {
	listings := makeListings(6)
	got := Listings(ComposeFeed(listings))
	if diff := cmp.Diff(listings, got); diff != "" {
		t.Errorf("Listings mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveVariant(t *testing.T) {
	tests := []struct {
		name string
		id   string
		size int
		want int
	}{
		{name: "hex suffix", id: "abc-0f", size: 5, want: 15 % 5},
		{name: "uppercase hex suffix", id: "abc-FF", size: 7, want: 255 % 7},
		{name: "uuid", id: "3f2504e0-4f89-11d3-9a0c-0305e82c3301", size: 5, want: 0x01 % 5},
		{name: "exact two chars", id: "1a", size: 4, want: 0x1a % 4},
		{name: "palette of one", id: "abc-99", size: 1, want: 0},
		{name: "zero palette", id: "abc-99", size: 0, want: 0},
		{name: "negative palette", id: "abc-99", size: -3, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, DeriveVariant(tt.id, tt.size)); diff != "" {
				t.Errorf("DeriveVariant(%q, %d) mismatch (-want +got):\n%s", tt.id, tt.size, diff)
			}
		})
	}
}

func TestDeriveVariantFallbackIsStableAndInRange(t *testing.T) {
	ids := []string{"", "x", "7", "listing-zz", "ад", "ab+", "0x", "-1"}
	for _, id := range ids {
		for _, size := range []int{1, 2, 5, 7, 13} {
			first := DeriveVariant(id, size)
			if first < 0 || first >= size {
				t.Errorf("DeriveVariant(%q, %d) = %d, out of range", id, size, first)
			}
			for range 3 {
				if got := DeriveVariant(id, size); got != first {
					t.Errorf("DeriveVariant(%q, %d) not stable: %d then %d", id, size, first, got)
				}
			}
		}
	}
}

func TestStyleFor(t *testing.T) {
	id := "3f2504e0-4f89-11d3-9a0c-0305e82c33a7" // 0xa7 = 167
	want := Style{
		Color:  Colors[167%len(Colors)],
		Font:   Fonts[167%len(Fonts)],
		Border: Borders[167%len(Borders)],
		Card:   CardStyles[167%len(CardStyles)],
	}
	if diff := cmp.Diff(want, StyleFor(id)); diff != "" {
		t.Errorf("StyleFor mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(StyleFor(id), StyleFor(id)); diff != "" {
		t.Errorf("StyleFor not stable (-first +second):\n%s", diff)
	}
}
