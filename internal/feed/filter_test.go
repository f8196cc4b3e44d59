package feed

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bryan-buckman/hearth/internal/model"
)

func listing(id, title string, age time.Duration, amounts ...float64) model.Listing {
	l := model.Listing{ID: id, Title: title, CreatedAt: base.Add(-age)}
	for _, a := range amounts {
		l.Prices = append(l.Prices, model.Price{Type: "Studio", Amount: a})
	}
	return l
}

func TestParsePriceRange(t *testing.T) {
	tests := []struct {
		in     string
		want   PriceRange
		wantOK bool
	}{
		{in: "0-1000", want: PriceRange{Min: 0, Max: 1000}, wantOK: true},
		{in: "1000-5000", want: PriceRange{Min: 1000, Max: 5000}, wantOK: true},
		{in: " 1000 - 5000 ", want: PriceRange{Min: 1000, Max: 5000}, wantOK: true},
		{in: "5000+", want: PriceRange{Min: 5000, Max: math.Inf(1)}, wantOK: true},
		{in: "99.5-100.5", want: PriceRange{Min: 99.5, Max: 100.5}, wantOK: true},
		{in: "all"},
		{in: ""},
		{in: "cheap"},
		{in: "100-"},
		{in: "-100"},
		{in: "+"},
		{in: "a-b"},
		{in: "NaN-100"},
		{in: "0-Inf"},
		{in: "1-2-3"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePriceRange(tt.in)
			if diff := cmp.Diff(tt.wantOK, ok); diff != "" {
				t.Fatalf("ParsePriceRange(%q) ok mismatch (-want +got):\n%s", tt.in, diff)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePriceRange(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParseSortBy(t *testing.T) {
	for in, want := range map[string]SortBy{
		"recent":     SortRecent,
		"price_low":  SortPriceLow,
		"price_high": SortPriceHigh,
		"":           SortRecent,
		"oldest":     SortRecent,
	} {
		if got := ParseSortBy(in); got != want {
			t.Errorf("ParseSortBy(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilterAndSortPriceBoundaries(t *testing.T) {
	l1000 := listing("a1", "Studio A", 0, 1000)
	l999 := listing("a2", "Studio B", time.Hour, 999)
	items := []Item{ListingItem(&l1000), ListingItem(&l999)}

	got := FilterAndSort(items, "", "1000-5000", SortRecent)
	if diff := cmp.Diff([]string{"a1"}, shape(got)); diff != "" {
		t.Errorf("price filter mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterAndSort(t *testing.T) {
	listings := []model.Listing{
		listing("l0", "Sunny loft", 0, 1200),
		listing("l1", "Garden flat", 1*time.Hour, 800, 5200),
		listing("l2", "LOFT by the river", 2*time.Hour),
		listing("l3", "Basement room", 3*time.Hour, 450),
		listing("l4", "Penthouse", 4*time.Hour, 9000),
		listing("l5", "City loft", 5*time.Hour, 800),
	}
	feed := ComposeFeed(listings) // l0 l1 l2 l3 ad-0 l4 l5

	tests := []struct {
		name       string
		query      string
		priceRange string
		sortBy     SortBy
		want       []string
	}{
		{
			name:       "no filters, recent",
			priceRange: "all",
			sortBy:     SortRecent,
			want:       []string{"l0", "l1", "l2", "l3", "ad-0", "l4", "l5"},
		},
		{
			name:       "no filters, price low keeps slot in place",
			priceRange: "all",
			sortBy:     SortPriceLow,
			want:       []string{"l3", "l1", "l5", "l0", "ad-0", "l4", "l2"},
		},
		{
			name:       "no filters, price high keeps slot in place",
			priceRange: "all",
			sortBy:     SortPriceHigh,
			want:       []string{"l4", "l0", "l1", "l5", "ad-0", "l3", "l2"},
		},
		{
			name:       "empty price range means all",
			priceRange: "",
			sortBy:     SortRecent,
			want:       []string{"l0", "l1", "l2", "l3", "ad-0", "l4", "l5"},
		},
		{
			name:       "case insensitive search",
			query:      "LoFt",
			priceRange: "all",
			sortBy:     SortRecent,
			want:       []string{"l0", "l2", "ad-0", "l5"},
		},
		{
			name:       "any price tier may match",
			priceRange: "5000+",
			sortBy:     SortRecent,
			want:       []string{"l1", "ad-0", "l4"},
		},
		{
			name:       "empty prices never pass a price filter",
			query:      "loft",
			priceRange: "0-1000000",
			sortBy:     SortRecent,
			want:       []string{"l0", "ad-0", "l5"},
		},
		{
			name:       "malformed range matches no listing but keeps slots",
			priceRange: "cheap",
			sortBy:     SortRecent,
			want:       []string{"ad-0"},
		},
		{
			name:       "no search match keeps slots",
			query:      "castle",
			priceRange: "all",
			sortBy:     SortPriceLow,
			want:       []string{"ad-0"},
		},
		{
			name:       "unknown sort falls back to recent",
			priceRange: "0-1000",
			sortBy:     SortBy("bogus"),
			want:       []string{"l1", "l3", "ad-0", "l5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterAndSort(feed, tt.query, tt.priceRange, tt.sortBy)
			if diff := cmp.Diff(tt.want, shape(got)); diff != "" {
				t.Errorf("FilterAndSort mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterAndSortStableTies(t *testing.T) {
	a := listing("a", "A", 0, 500)
	b := listing("b", "B", time.Hour, 500)
	c := listing("c", "C", 2*time.Hour, 500)
	items := []Item{ListingItem(&a), ListingItem(&b), ListingItem(&c)}

	for _, sortBy := range []SortBy{SortPriceLow, SortPriceHigh} {
		got := FilterAndSort(items, "", "all", sortBy)
		if diff := cmp.Diff([]string{"a", "b", "c"}, shape(got)); diff != "" {
			t.Errorf("%s tie order mismatch (-want +got):\n%s", sortBy, diff)
		}
	}
}

func TestFilterAndSortPreservesSlotPositions(t *testing.T) {
	feed := ComposeFeed(makeListings(23))
	var slotIdx []int
	for i, it := range feed {
		if it.IsPromo() {
			slotIdx = append(slotIdx, i)
		}
	}

	for _, sortBy := range []SortBy{SortRecent, SortPriceLow, SortPriceHigh} {
		got := FilterAndSort(feed, "", "all", sortBy)
		if len(got) != len(feed) {
			t.Fatalf("%s: expected %d items, got %d", sortBy, len(feed), len(got))
		}
		var gotIdx []int
		for i, it := range got {
			if it.IsPromo() {
				gotIdx = append(gotIdx, i)
			}
		}
		if diff := cmp.Diff(slotIdx, gotIdx); diff != "" {
			t.Errorf("%s slot positions mismatch (-want +got):\n%s", sortBy, diff)
		}
	}
}

func TestFilterAndSortDoesNotMutateInput(t *testing.T) {
	feed := ComposeFeed(makeListings(8))
	before := shape(feed)
	_ = FilterAndSort(feed, "", "all", SortPriceHigh)
	if diff := cmp.Diff(before, shape(feed)); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}

func TestQueryApply(t *testing.T) {
	feed := ComposeFeed(makeListings(5))
	q := Query{Search: "listing 4", PriceRange: "all", SortBy: SortRecent}
	if diff := cmp.Diff([]string{"ad-0", "listing-04"}, shape(q.Apply(feed))); diff != "" {
		t.Errorf("Query.Apply mismatch (-want +got):\n%s", diff)
	}
}
