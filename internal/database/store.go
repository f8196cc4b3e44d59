// Package database provides storage backends for listings and users.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryan-buckman/hearth/internal/model"
)

// ErrNotFound is returned when a listing or user does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// Listing operations. Lists are ordered newest first.
	ListListings(ctx context.Context) ([]model.Listing, error)
	ListListingsByOwner(ctx context.Context, ownerID string) ([]model.Listing, error)
	GetListing(ctx context.Context, id string) (*model.Listing, error)
	CreateListing(ctx context.Context, l *model.Listing) error
	SetListingVerified(ctx context.Context, id string, verified bool) error

	// User operations
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetOrCreateUser(ctx context.Context, email string, isAdmin bool) (*model.User, error)
}

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the backend named by driver. dsn is a file path for SQLite
// and a connection URL for PostgreSQL.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite:
		return New(dsn)
	case DriverPostgres:
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// prepareListing normalizes and validates l and fills its generated fields.
func prepareListing(l *model.Listing, now time.Time) error {
	l.Normalize()
	if err := l.Validate(); err != nil {
		return err
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.CreatedAt = l.CreatedAt.UTC()
	if l.Features == nil {
		l.Features = []string{}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// listingJSON holds the structured columns of a listing row.
type listingJSON struct {
	location, prices, contact, features []byte
}

func encodeListingJSON(l *model.Listing) (listingJSON, error) {
	var out listingJSON
	var err error
	if out.location, err = json.Marshal(l.Location); err != nil {
		return out, fmt.Errorf("encode location: %w", err)
	}
	prices := l.Prices
	if prices == nil {
		prices = []model.Price{}
	}
	if out.prices, err = json.Marshal(prices); err != nil {
		return out, fmt.Errorf("encode prices: %w", err)
	}
	if out.contact, err = json.Marshal(l.Contact); err != nil {
		return out, fmt.Errorf("encode contact: %w", err)
	}
	if out.features, err = json.Marshal(l.Features); err != nil {
		return out, fmt.Errorf("encode features: %w", err)
	}
	return out, nil
}

func (j listingJSON) decodeInto(l *model.Listing) error {
	if err := json.Unmarshal(j.location, &l.Location); err != nil {
		return fmt.Errorf("decode location: %w", err)
	}
	if err := json.Unmarshal(j.prices, &l.Prices); err != nil {
		return fmt.Errorf("decode prices: %w", err)
	}
	if err := json.Unmarshal(j.contact, &l.Contact); err != nil {
		return fmt.Errorf("decode contact: %w", err)
	}
	if err := json.Unmarshal(j.features, &l.Features); err != nil {
		return fmt.Errorf("decode features: %w", err)
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type scannable interface {
	Scan(dest ...any) error
}
