package server

import (
	"slices"
	"time"

	"github.com/bryan-buckman/hearth/internal/feed"
	"github.com/bryan-buckman/hearth/internal/model"
)

// publicListing is the wire and template shape of a listing. Contact is nil
// unless the viewer revealed it or owns the listing.
type publicListing struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Location  model.Location `json:"location"`
	Prices    []model.Price  `json:"prices"`
	Features  []string       `json:"features"`
	Deposit   *float64       `json:"deposit,omitempty"`
	CardType  string         `json:"card_type"`
	Verified  bool           `json:"verified"`
	CreatedAt time.Time      `json:"created_at"`
	Contact   *model.Contact `json:"contact,omitempty"`
}

func newPublicListing(l *model.Listing, showContact bool) publicListing {
	p := publicListing{
		ID:        l.ID,
		Title:     l.Title,
		Location:  l.Location,
		Prices:    l.Prices,
		Features:  l.Features,
		Deposit:   l.Deposit,
		CardType:  l.CardType,
		Verified:  l.Verified,
		CreatedAt: l.CreatedAt,
	}
	if p.Prices == nil {
		p.Prices = []model.Price{}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if showContact {
		c := l.Contact
		p.Contact = &c
	}
	return p
}

type styleView struct {
	Color         string `json:"color"`
	Font          string `json:"font"`
	Border        string `json:"border"`
	Card          string `json:"card"`
	FeatureMarker string `json:"feature_marker"`
}

func newStyleView(id string) styleView {
	s := feed.StyleFor(id)
	return styleView{
		Color:         s.Color,
		Font:          s.Font,
		Border:        s.Border,
		Card:          s.Card.Name,
		FeatureMarker: s.Card.FeatureMarker,
	}
}

type promoView struct {
	feed.Promo
	Emoji  string `json:"emoji"`
	Accent string `json:"accent"`
	Font   string `json:"font"`
}

// itemView is one rendered entry of the feed.
type itemView struct {
	Kind      feed.Kind      `json:"kind"`
	Listing   *publicListing `json:"listing,omitempty"`
	Style     *styleView     `json:"style,omitempty"`
	Revealed  bool           `json:"revealed,omitempty"`
	Verifying bool           `json:"verifying,omitempty"`
	Promo     *promoView     `json:"promo,omitempty"`
}

// stateView is the reward state shown in the status bar.
type stateView struct {
	RemainingAttempts int      `json:"remaining_attempts"`
	CooldownSeconds   int      `json:"cooldown_seconds"`
	Revealed          []string `json:"revealed"`
}

func newStateView(s feed.RevealState, now time.Time) stateView {
	revealed := make([]string, 0, len(s.Revealed))
	for id := range s.Revealed {
		revealed = append(revealed, id)
	}
	slices.Sort(revealed)
	return stateView{
		RemainingAttempts: s.RemainingAttempts,
		CooldownSeconds:   s.CooldownSeconds(now),
		Revealed:          revealed,
	}
}

// buildItems renders items for a viewer with reveal state s. viewerID owns
// listings whose contacts are always shown to them.
func buildItems(items []feed.Item, s feed.RevealState, viewerID string, now time.Time) []itemView {
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		if it.IsPromo() {
			t := feed.Templates[it.Promo.Template%len(feed.Templates)]
			out = append(out, itemView{
				Kind: feed.KindPromo,
				Promo: &promoView{
					Promo:  *it.Promo,
					Emoji:  t.Emoji,
					Accent: t.Accent,
					Font:   t.Font,
				},
			})
			continue
		}

		l := it.Listing
		revealed := s.IsRevealed(l.ID, now)
		owned := viewerID != "" && l.OwnerID == viewerID
		_, pending := s.Pending[l.ID]
		pl := newPublicListing(l, revealed || owned)
		style := newStyleView(l.ID)
		out = append(out, itemView{
			Kind:      feed.KindListing,
			Listing:   &pl,
			Style:     &style,
			Revealed:  revealed || owned,
			Verifying: pending && !revealed,
		})
	}
	return out
}
