package server

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bryan-buckman/hearth/internal/database"
	"github.com/bryan-buckman/hearth/internal/feed"
	"github.com/bryan-buckman/hearth/internal/model"
	"github.com/bryan-buckman/hearth/internal/session"
	"github.com/bryan-buckman/hearth/internal/syndication"
)

type option struct {
	Value, Label string
}

var priceOptions = []option{
	{feed.PriceRangeAll, "Any price"},
	{"0-1000", "Under €1,000"},
	{"1000-5000", "€1,000 – €5,000"},
	{"5000+", "€5,000+"},
}

var sortOptions = []option{
	{string(feed.SortRecent), "Most recent"},
	{string(feed.SortPriceLow), "Price: low to high"},
	{string(feed.SortPriceHigh), "Price: high to low"},
}

// viewer is what every page knows about the visitor.
type viewer struct {
	User  *model.User
	State stateView
}

func (s *Server) loadViewer(r *http.Request) (viewer, session.Session, error) {
	sess, err := s.sessions.Current(r.Context())
	if err != nil {
		return viewer{}, session.Session{}, err
	}
	u, err := s.identity.CurrentUser(r)
	if err != nil {
		return viewer{}, session.Session{}, err
	}
	return viewer{User: u, State: newStateView(sess.Reveal, s.sessions.Now())}, sess, nil
}

func (v viewer) userID() string {
	if v.User == nil {
		return ""
	}
	return v.User.ID
}

func feedQuery(r *http.Request) (feed.Query, string) {
	price := r.URL.Query().Get("price")
	if price == "" {
		price = feed.PriceRangeAll
	}
	return feed.Query{
		Search:     r.URL.Query().Get("q"),
		PriceRange: price,
		SortBy:     feed.ParseSortBy(r.URL.Query().Get("sort")),
	}, price
}

func (s *Server) pageError(w http.ResponseWriter, err error) {
	s.logger.Error("page error", zap.Error(err))
	http.Error(w, "Something went wrong", http.StatusInternalServerError)
}

// --- Page Handlers ---

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	v, sess, err := s.loadViewer(r)
	if err != nil {
		s.pageError(w, err)
		return
	}
	listings, err := s.store.ListListings(r.Context())
	if err != nil {
		s.pageError(w, err)
		return
	}

	q, price := feedQuery(r)
	items := q.Apply(feed.ComposeFeed(listings))
	data := map[string]any{
		"Title":        "Find your next home",
		"Viewer":       v,
		"Items":        buildItems(items, sess.Reveal, v.userID(), s.sessions.Now()),
		"Search":       q.Search,
		"Price":        price,
		"Sort":         string(q.SortBy),
		"PriceOptions": priceOptions,
		"SortOptions":  sortOptions,
		"Total":        len(listings),
	}
	if r.Header.Get("X-Partial") == "feed" {
		s.render(w, http.StatusOK, "feed_items", data)
		return
	}
	s.render(w, http.StatusOK, "home.html", data)
}

func (s *Server) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	v, _, err := s.loadViewer(r)
	if err != nil {
		s.pageError(w, err)
		return
	}
	s.render(w, http.StatusOK, "auth.html", map[string]any{
		"Title":  "Sign in",
		"Viewer": v,
		"Next":   safeNext(r.URL.Query().Get("next")),
		"Email":  "",
		"Error":  "",
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	next := safeNext(r.PostFormValue("next"))

	if !model.ValidEmail(email) {
		v, _, err := s.loadViewer(r)
		if err != nil {
			s.pageError(w, err)
			return
		}
		s.render(w, http.StatusUnprocessableEntity, "auth.html", map[string]any{
			"Title":  "Sign in",
			"Viewer": v,
			"Next":   next,
			"Email":  email,
			"Error":  "Invalid email",
		})
		return
	}

	u, err := s.store.GetOrCreateUser(r.Context(), email, s.cfg.IsAdminEmail(email))
	if err != nil {
		s.pageError(w, err)
		return
	}
	if err := s.sessions.SetUser(r.Context(), u.ID); err != nil {
		s.pageError(w, err)
		return
	}
	s.logger.Info("user signed in", zap.String("user_id", u.ID), zap.Bool("admin", u.IsAdmin))
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.ClearUser(r.Context()); err != nil {
		s.pageError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// requireUserPage redirects anonymous visitors to the sign-in page.
func (s *Server) requireUserPage(w http.ResponseWriter, r *http.Request) (viewer, bool) {
	v, _, err := s.loadViewer(r)
	if err != nil {
		s.pageError(w, err)
		return viewer{}, false
	}
	if v.User == nil {
		http.Redirect(w, r, "/auth?next="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
		return viewer{}, false
	}
	return v, true
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	v, ok := s.requireUserPage(w, r)
	if !ok {
		return
	}
	s.renderProfile(w, r, v, http.StatusOK, model.Listing{}, nil)
}

func (s *Server) renderProfile(w http.ResponseWriter, r *http.Request, v viewer, status int, form model.Listing, verr *model.ValidationError) {
	mine, err := s.store.ListListingsByOwner(r.Context(), v.User.ID)
	if err != nil {
		s.pageError(w, err)
		return
	}
	errs := map[string]string{}
	if verr != nil {
		for _, f := range verr.Fields {
			if strings.HasPrefix(f.Field, "prices[") {
				errs["prices"] = f.Message
				continue
			}
			errs[f.Field] = f.Message
		}
	}
	if len(form.Prices) == 0 {
		form.Prices = []model.Price{{Type: model.PriceTypes[0]}}
	}
	s.render(w, status, "profile.html", map[string]any{
		"Title":    "Your listings",
		"Viewer":   v,
		"Listings": mine,
		"Form":     form,
		"Features": strings.Join(form.Features, ", "),
		"Errors":   errs,
		"Created":  r.URL.Query().Get("created"),
	})
}

func (s *Server) handleProfileCreateListing(w http.ResponseWriter, r *http.Request) {
	v, ok := s.requireUserPage(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	l := listingFromForm(r.PostForm)
	l.OwnerID = v.User.ID
	l.OwnerEmail = v.User.Email
	if err := s.store.CreateListing(r.Context(), &l); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			s.renderProfile(w, r, v, http.StatusUnprocessableEntity, l, verr)
			return
		}
		s.pageError(w, err)
		return
	}
	s.listingCreated(r, l)
	http.Redirect(w, r, "/profile?created="+url.QueryEscape(l.ID), http.StatusSeeOther)
}

// listingFromForm reads the listing form. Unparseable amounts become 0 and an
// unparseable deposit NaN so that validation reports them.
func listingFromForm(form url.Values) model.Listing {
	l := model.Listing{
		Title: form.Get("title"),
		Location: model.Location{
			Address:    form.Get("address"),
			PostalCode: form.Get("postal_code"),
		},
		Contact: model.Contact{
			Name:  form.Get("contact_name"),
			Phone: form.Get("contact_phone"),
			Email: form.Get("contact_email"),
		},
		CardType: form.Get("card_type"),
		Features: strings.FieldsFunc(form.Get("features"), func(r rune) bool {
			return r == ',' || r == '\n'
		}),
	}

	types, amounts := form["price_type"], form["price_amount"]
	for i, raw := range amounts {
		raw = strings.TrimSpace(raw)
		typ := ""
		if i < len(types) {
			typ = types[i]
		}
		if raw == "" && i > 0 {
			continue
		}
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			amount = 0
		}
		l.Prices = append(l.Prices, model.Price{Type: typ, Amount: amount})
	}

	if raw := strings.TrimSpace(form.Get("deposit")); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			d = math.NaN()
		}
		l.Deposit = &d
	}
	return l
}

// listingCreated runs the side effects of a new listing. Notification
// failures are logged only.
func (s *Server) listingCreated(r *http.Request, l model.Listing) {
	s.logger.Info("listing created",
		zap.String("listing_id", l.ID),
		zap.String("owner_id", l.OwnerID),
		zap.String("card_type", l.CardType))
	if err := s.notifier.ListingSubmitted(r.Context(), l); err != nil {
		s.logger.Warn("notify listing submitted", zap.String("listing_id", l.ID), zap.Error(err))
	}
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	v, ok := s.requireUserPage(w, r)
	if !ok {
		return
	}
	if !v.User.IsAdmin {
		s.render(w, http.StatusForbidden, "error.html", map[string]any{
			"Title":   "Forbidden",
			"Viewer":  v,
			"Message": "Only administrators can verify listings.",
		})
		return
	}
	listings, err := s.store.ListListings(r.Context())
	if err != nil {
		s.pageError(w, err)
		return
	}
	pending := 0
	for _, l := range listings {
		if !l.Verified {
			pending++
		}
	}
	s.render(w, http.StatusOK, "admin.html", map[string]any{
		"Title":    "Moderation",
		"Viewer":   v,
		"Listings": listings,
		"Pending":  pending,
	})
}

func (s *Server) handleAdminVerifyForm(w http.ResponseWriter, r *http.Request) {
	v, ok := s.requireUserPage(w, r)
	if !ok {
		return
	}
	if !v.User.IsAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	verified := r.PostFormValue("verified") != "false"
	if err := s.store.SetListingVerified(r.Context(), id, verified); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.pageError(w, err)
		return
	}
	s.logger.Info("listing verification changed",
		zap.String("listing_id", id), zap.Bool("verified", verified), zap.String("admin_id", v.User.ID))
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	listings, err := s.store.ListListings(r.Context())
	if err != nil {
		s.pageError(w, err)
		return
	}
	data, err := syndication.Export("Hearth", s.cfg.BaseURL, listings, time.Now())
	if err != nil {
		s.pageError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write(data)
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/profile"
	}
	return next
}
