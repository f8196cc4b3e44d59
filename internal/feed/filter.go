package feed

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/bryan-buckman/hearth/internal/model"
)

// SortBy selects the ordering of listings in a filtered feed.
type SortBy string

// Supported orderings.
const (
	SortRecent    SortBy = "recent"
	SortPriceLow  SortBy = "price_low"
	SortPriceHigh SortBy = "price_high"
)

// ParseSortBy maps a query value onto a SortBy, defaulting to SortRecent.
func ParseSortBy(s string) SortBy {
	switch SortBy(s) {
	case SortPriceLow, SortPriceHigh:
		return SortBy(s)
	default:
		return SortRecent
	}
}

// PriceRangeAll is the price range that admits every listing.
const PriceRangeAll = "all"

// PriceRange is an inclusive amount interval. Max is +Inf for "<min>+".
type PriceRange struct {
	Min, Max float64
}

// Contains reports whether amount lies within the range.
func (r PriceRange) Contains(amount float64) bool {
	return amount >= r.Min && amount <= r.Max
}

// ParsePriceRange parses "<min>-<max>" or "<min>+". It does not accept "all".
func ParsePriceRange(s string) (PriceRange, bool) {
	s = strings.TrimSpace(s)
	if lo, ok := strings.CutSuffix(s, "+"); ok {
		min, err := parseAmount(lo)
		if err != nil {
			return PriceRange{}, false
		}
		return PriceRange{Min: min, Max: math.Inf(1)}, true
	}
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return PriceRange{}, false
	}
	min, err := parseAmount(lo)
	if err != nil {
		return PriceRange{}, false
	}
	max, err := parseAmount(hi)
	if err != nil {
		return PriceRange{}, false
	}
	return PriceRange{Min: min, Max: max}, true
}

func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

// Query is the set of user-chosen filters applied to a feed.
type Query struct {
	Search     string
	PriceRange string
	SortBy     SortBy
}

type matcher struct {
	search   string
	all      bool
	rng      PriceRange
	rngValid bool
}

func newMatcher(query, priceRange string) matcher {
	m := matcher{search: strings.ToLower(query)}
	if strings.EqualFold(strings.TrimSpace(priceRange), PriceRangeAll) || priceRange == "" {
		m.all = true
		return m
	}
	m.rng, m.rngValid = ParsePriceRange(priceRange)
	return m
}

func (m matcher) match(l *model.Listing) bool {
	if !strings.Contains(strings.ToLower(l.Title), m.search) {
		return false
	}
	if m.all {
		return true
	}
	if !m.rngValid {
		return false
	}
	for _, p := range l.Prices {
		if m.rng.Contains(p.Amount) {
			return true
		}
	}
	return false
}

// FilterAndSort keeps the listings matching query and priceRange and orders them by sortBy.
//
// Promotional slots always pass and never move: the output keeps every slot at
// its position among the surviving items and permutes only the listing
// positions. Ties keep their prior relative order. A malformed priceRange
// matches no listing.
func FilterAndSort(items []Item, query, priceRange string, sortBy SortBy) []Item {
	m := newMatcher(query, priceRange)

	out := make([]Item, 0, len(items))
	var listings []Item
	for _, it := range items {
		if it.IsPromo() {
			out = append(out, it)
			continue
		}
		if it.Listing == nil || !m.match(it.Listing) {
			continue
		}
		out = append(out, it)
		listings = append(listings, it)
	}

	slices.SortStableFunc(listings, comparator(sortBy))

	next := 0
	for i := range out {
		if out[i].IsPromo() {
			continue
		}
		out[i] = listings[next]
		next++
	}
	return out
}

// Apply is FilterAndSort driven by a Query.
func (q Query) Apply(items []Item) []Item {
	return FilterAndSort(items, q.Search, q.PriceRange, q.SortBy)
}

func comparator(sortBy SortBy) func(a, b Item) int {
	switch sortBy {
	case SortPriceLow:
		return func(a, b Item) int { return comparePrice(a.Listing, b.Listing, false) }
	case SortPriceHigh:
		return func(a, b Item) int { return comparePrice(a.Listing, b.Listing, true) }
	default:
		return func(a, b Item) int { return b.Listing.CreatedAt.Compare(a.Listing.CreatedAt) }
	}
}

// comparePrice orders by the first price tier. Listings without prices go last
// in both directions.
func comparePrice(a, b *model.Listing, desc bool) int {
	pa, okA := a.FirstPrice()
	pb, okB := b.FirstPrice()
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	if desc {
		pa, pb = pb, pa
	}
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	}
	return 0
}
