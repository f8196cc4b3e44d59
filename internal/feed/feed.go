// Package feed merges listings with promotional slots, filters and sorts the
// merged feed, and runs the reveal/reward state machine that gates contacts.
//
// Everything here is pure: callers own the state and the clock.
package feed

import (
	"fmt"

	"github.com/bryan-buckman/hearth/internal/model"
)

// PromoEvery is the number of organic listings between two promotional slots.
const PromoEvery = 4

// Kind discriminates the entries of a composed feed.
type Kind string

// Feed entry kinds.
const (
	KindListing Kind = "listing"
	KindPromo   Kind = "promo"
)

// Promo is a synthetic promotional slot. It is never persisted.
type Promo struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Height   int    `json:"height"`
	Template int    `json:"template"` // index into Templates
	Slot     int    `json:"slot"`     // index into the slot pool
}

// Item is one entry of the merged feed: exactly one of Listing or Promo is set.
type Item struct {
	Kind    Kind
	Listing *model.Listing
	Promo   *Promo
}

// IsPromo reports whether the item is a promotional slot.
func (it Item) IsPromo() bool { return it.Kind == KindPromo }

// ListingItem wraps a listing as a feed item.
func ListingItem(l *model.Listing) Item {
	return Item{Kind: KindListing, Listing: l}
}

// ComposeFeed interleaves promotional slots after every PromoEvery-th listing.
// listings must already be ordered newest first; that order is preserved.
func ComposeFeed(listings []model.Listing) []Item {
	if len(listings) == 0 {
		return nil
	}

	items := make([]Item, 0, len(listings)+len(listings)/PromoEvery)
	inserted := 0
	for i := range listings {
		items = append(items, ListingItem(&listings[i]))
		if (i+1)%PromoEvery != 0 {
			continue
		}
		slot := slotPool[inserted%len(slotPool)]
		slot.ID = fmt.Sprintf("ad-%d", inserted)
		items = append(items, Item{Kind: KindPromo, Promo: &slot})
		inserted++
	}
	return items
}

// Listings returns the listings of items in order, skipping promotional slots.
func Listings(items []Item) []model.Listing {
	var out []model.Listing
	for _, it := range items {
		if it.Kind == KindListing {
			out = append(out, *it.Listing)
		}
	}
	return out
}
