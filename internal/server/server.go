// Package server provides the HTTP server and handlers.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bryan-buckman/hearth/internal/config"
	"github.com/bryan-buckman/hearth/internal/database"
	"github.com/bryan-buckman/hearth/internal/identity"
	"github.com/bryan-buckman/hearth/internal/logging"
	"github.com/bryan-buckman/hearth/internal/model"
	"github.com/bryan-buckman/hearth/internal/notify"
	"github.com/bryan-buckman/hearth/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Deps are the collaborators of a Server.
type Deps struct {
	Store    database.Store
	Sessions *session.Manager
	Identity identity.Provider // defaults to a session-backed provider
	Notifier notify.Notifier   // defaults to notify.Nop
	Logger   *zap.Logger
	Config   *config.Config
}

// Server is the main HTTP server.
type Server struct {
	store     database.Store
	sessions  *session.Manager
	identity  identity.Provider
	notifier  notify.Notifier
	logger    *zap.Logger
	cfg       *config.Config
	router    chi.Router
	templates *template.Template
}

// New creates a new server.
func New(deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Sessions == nil {
		return nil, errors.New("server: store and sessions are required")
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"timeAgo":     timeAgo,
		"formatPrice": formatPrice,
		"priceTypes":  func() []string { return model.PriceTypes },
		"cardTypes":   func() []string { return model.CardTypes },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		store:     deps.Store,
		sessions:  deps.Sessions,
		identity:  deps.Identity,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		cfg:       deps.Config,
		templates: tmpl,
	}
	if s.identity == nil {
		s.identity = identity.NewSessionProvider(deps.Sessions, deps.Store)
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Serve static files.
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	r.Get("/feed.xml", s.handleRSS)

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)

		// Pages.
		r.Get("/", s.handleHome)
		r.Get("/auth", s.handleAuthPage)
		r.Post("/auth", s.handleSignIn)
		r.Post("/auth/logout", s.handleSignOut)
		r.Get("/profile", s.handleProfile)
		r.Post("/profile/listings", s.handleProfileCreateListing)
		r.Get("/admin", s.handleAdmin)
		r.Post("/admin/listings/{id}/verify", s.handleAdminVerifyForm)

		// API.
		r.Route("/api", func(r chi.Router) {
			r.Get("/feed", s.handleAPIFeed)
			r.Get("/listings", s.handleAPIListings)
			r.Post("/listings", s.handleAPICreateListing)
			r.Post("/listings/{id}/reveal", s.handleAPIReveal)
			r.Post("/promos/{id}/interact", s.handleAPIPromoInteract)
			r.Get("/reveal-state", s.handleAPIRevealState)
			r.Get("/cooldown/stream", s.handleCooldownStream)
			r.Post("/admin/listings/{id}/verify", s.handleAPIAdminVerify)
		})
	})

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", addr), zap.String("database", s.store.DatabaseType()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("server stopping")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// --- Helpers ---

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template error", zap.String("template", name), zap.Error(err))
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func formatPrice(amount float64) string {
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("€%d", int64(amount))
	}
	return fmt.Sprintf("€%.2f", amount)
}
