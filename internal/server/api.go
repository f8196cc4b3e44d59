package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bryan-buckman/hearth/internal/database"
	"github.com/bryan-buckman/hearth/internal/feed"
	"github.com/bryan-buckman/hearth/internal/model"
)

// httpError is an error with a fixed status and code.
type httpError struct {
	Status  int
	Code    string
	Message string
}

func (e *httpError) Error() string { return e.Message }

var (
	errUnauthorized = &httpError{http.StatusUnauthorized, "unauthorized", "Sign in required"}
	errForbidden    = &httpError{http.StatusForbidden, "forbidden", "Administrator access required"}
	errBadBody      = &httpError{http.StatusBadRequest, "bad_request", "Malformed request body"}
	errUnknownPromo = &httpError{http.StatusNotFound, "not_found", "Unknown promotional slot"}
)

type errorBody struct {
	Error   string             `json:"error"`
	Message string             `json:"message"`
	Fields  []model.FieldError `json:"fields,omitempty"`
	Retry   int                `json:"retry_after,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and JSON body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		herr *httpError
		cerr *feed.CooldownError
		verr *model.ValidationError
	)
	switch {
	case errors.As(err, &herr):
		writeJSON(w, herr.Status, errorBody{Error: herr.Code, Message: herr.Message})
	case errors.As(err, &cerr):
		w.Header().Set("Retry-After", strconv.Itoa(cerr.Seconds()))
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Error:   "cooldown_active",
			Message: fmt.Sprintf("Please wait %ds before the next promotion", cerr.Seconds()),
			Retry:   cerr.Seconds(),
		})
	case errors.Is(err, feed.ErrNoAttemptsRemaining):
		writeJSON(w, http.StatusForbidden, errorBody{
			Error:   "no_attempts_remaining",
			Message: "Interact with a promotion to earn a reveal",
		})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "validation_failed",
			Message: "Please fix the highlighted fields",
			Fields:  verr.Fields,
		})
	case errors.Is(err, database.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "Listing not found"})
	default:
		s.logger.Error("api error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "Something went wrong"})
	}
}

// --- API Handlers ---

func (s *Server) handleAPIFeed(w http.ResponseWriter, r *http.Request) {
	v, sess, err := s.loadViewer(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	listings, err := s.store.ListListings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	q, _ := feedQuery(r)
	items := q.Apply(feed.ComposeFeed(listings))
	writeJSON(w, http.StatusOK, map[string]any{
		"items": buildItems(items, sess.Reveal, v.userID(), s.sessions.Now()),
		"state": v.State,
	})
}

func (s *Server) handleAPIListings(w http.ResponseWriter, r *http.Request) {
	v, sess, err := s.loadViewer(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	listings, err := s.store.ListListings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := s.sessions.Now()
	out := make([]publicListing, 0, len(listings))
	for i := range listings {
		l := &listings[i]
		show := sess.Reveal.IsRevealed(l.ID, now) || (v.User != nil && l.OwnerID == v.User.ID)
		out = append(out, newPublicListing(l, show))
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": out})
}

type createListingRequest struct {
	Title    string         `json:"title"`
	Location model.Location `json:"location"`
	Prices   []model.Price  `json:"prices"`
	Contact  model.Contact  `json:"contact"`
	Features []string       `json:"features"`
	Deposit  *float64       `json:"deposit"`
	CardType string         `json:"card_type"`
}

func (s *Server) handleAPICreateListing(w http.ResponseWriter, r *http.Request) {
	u, err := s.identity.CurrentUser(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if u == nil {
		s.writeError(w, errUnauthorized)
		return
	}

	var req createListingRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, errBadBody)
		return
	}

	l := model.Listing{
		OwnerID:    u.ID,
		OwnerEmail: u.Email,
		Title:      req.Title,
		Location:   req.Location,
		Prices:     req.Prices,
		Contact:    req.Contact,
		Features:   req.Features,
		Deposit:    req.Deposit,
		CardType:   req.CardType,
	}
	if err := s.store.CreateListing(r.Context(), &l); err != nil {
		s.writeError(w, err)
		return
	}
	s.listingCreated(r, l)
	writeJSON(w, http.StatusCreated, newPublicListing(&l, true))
}

func (s *Server) handleAPIReveal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, err := s.store.GetListing(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, done, err := s.sessions.Reveal(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	select {
	case <-done:
	case <-r.Context().Done():
		// The attempt stays reserved; the next request for this listing
		// returns the contact without charging again.
		return
	}

	sess, err := s.sessions.Current(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	contact := l.Contact
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  res.Status,
		"contact": &contact,
		"state":   newStateView(sess.Reveal, s.sessions.Now()),
	})
}

// parsePromoID accepts ids of the form "ad-<n>".
func parsePromoID(id string) bool {
	n, ok := strings.CutPrefix(id, "ad-")
	if !ok {
		return false
	}
	v, err := strconv.Atoi(n)
	return err == nil && v >= 0 && strconv.Itoa(v) == n
}

func (s *Server) handleAPIPromoInteract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !parsePromoID(id) {
		s.writeError(w, errUnknownPromo)
		return
	}
	state, err := s.sessions.EarnAttempt(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Debug("promo interaction", zap.String("promo_id", id), zap.Int("remaining_attempts", state.RemainingAttempts))
	writeJSON(w, http.StatusOK, map[string]any{"state": newStateView(state, s.sessions.Now())})
}

func (s *Server) handleAPIRevealState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Current(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(sess.Reveal, s.sessions.Now()))
}

// handleCooldownStream sends the remaining cooldown as server-sent events,
// once per second until it reaches 0.
func (s *Server) handleCooldownStream(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Current(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	err = feed.Countdown(r.Context(), sess.Reveal.CooldownUntil, time.Second, s.sessions.Now, func(sec int) {
		fmt.Fprintf(w, "event: cooldown\ndata: %d\n\n", sec)
		flusher.Flush()
	})
	if err != nil && !errors.Is(err, r.Context().Err()) {
		s.logger.Warn("cooldown stream", zap.Error(err))
	}
}

func (s *Server) handleAPIAdminVerify(w http.ResponseWriter, r *http.Request) {
	u, err := s.identity.CurrentUser(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if u == nil {
		s.writeError(w, errUnauthorized)
		return
	}
	if !u.IsAdmin {
		s.writeError(w, errForbidden)
		return
	}

	req := struct {
		Verified *bool `json:"verified"`
	}{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, errBadBody)
			return
		}
	}
	verified := req.Verified == nil || *req.Verified

	id := chi.URLParam(r, "id")
	if err := s.store.SetListingVerified(r.Context(), id, verified); err != nil {
		s.writeError(w, err)
		return
	}
	l, err := s.store.GetListing(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("listing verification changed",
		zap.String("listing_id", id), zap.Bool("verified", verified), zap.String("admin_id", u.ID))
	writeJSON(w, http.StatusOK, newPublicListing(l, true))
}
