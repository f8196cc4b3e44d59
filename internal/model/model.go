// Package model defines shared data structures.
package model

import "time"

// Location is the postal address of a listing.
type Location struct {
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
}

// Price is one rent tier of a listing, e.g. Studio at 850.
type Price struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

// Contact holds the private details of whoever manages a listing.
// It must not leave the server unless the viewer has revealed it.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Listing represents a property posted to the marketplace.
type Listing struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id,omitempty"`
	OwnerEmail string    `json:"owner_email,omitempty"` // joined from users, read-only
	Title      string    `json:"title"`
	Location   Location  `json:"location"`
	Prices     []Price   `json:"prices"`
	Contact    Contact   `json:"contact"`
	Features   []string  `json:"features"`
	Deposit    *float64  `json:"deposit,omitempty"` // nullable
	CardType   string    `json:"card_type"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// FirstPrice returns the amount of the first price tier and whether there is one.
func (l Listing) FirstPrice() (float64, bool) {
	if len(l.Prices) == 0 {
		return 0, false
	}
	return l.Prices[0].Amount, true
}

// User represents a signed-in account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Card types a listing can be published with.
const (
	CardStandard = "standard"
	CardPremium  = "premium"
	CardFeatured = "featured"
)

// CardTypes lists the accepted card types in display order.
var CardTypes = []string{CardStandard, CardPremium, CardFeatured}

// PriceTypes lists the price tiers offered by the listing form.
var PriceTypes = []string{"Studio", "1-bedroom", "2-bedroom", "Shared"}
