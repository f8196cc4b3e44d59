package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/bryan-buckman/hearth/internal/model"
	"github.com/bryan-buckman/hearth/migrations"
)

// timeLayout is fixed width so that TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path and applies
// pending migrations. Use ":memory:" for a throwaway database.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and avoids
	// SQLITE_BUSY under concurrent writers.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := migrations.Run(conn, migrations.DialectSQLite); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{conn: conn, now: time.Now}, nil
}

// Conn exposes the underlying connection for migration commands.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return "SQLite"
}

// --- Listing Methods ---

const sqliteListingColumns = `
	l.id, l.owner_id, COALESCE(u.email, ''), l.title, l.location, l.prices,
	l.contact, l.features, l.deposit, l.card_type, l.verified, l.created_at
	FROM listings l LEFT JOIN users u ON u.id = l.owner_id`

// ListListings returns every listing, newest first.
func (db *DB) ListListings(ctx context.Context) ([]model.Listing, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT"+sqliteListingColumns+" ORDER BY l.created_at DESC, l.seq DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return db.scanListings(rows)
}

// ListListingsByOwner returns the listings posted by ownerID, newest first.
func (db *DB) ListListingsByOwner(ctx context.Context, ownerID string) ([]model.Listing, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT"+sqliteListingColumns+" WHERE l.owner_id = ? ORDER BY l.created_at DESC, l.seq DESC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return db.scanListings(rows)
}

// GetListing returns a single listing or ErrNotFound.
func (db *DB) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT"+sqliteListingColumns+" WHERE l.id = ?", id)
	l, err := scanSQLiteListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// CreateListing validates l, assigns its ID and creation time, and stores it.
func (db *DB) CreateListing(ctx context.Context, l *model.Listing) error {
	if err := prepareListing(l, db.now()); err != nil {
		return err
	}
	cols, err := encodeListingJSON(l)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO listings (id, owner_id, title, location, prices, contact, features, deposit, card_type, verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, nullableString(l.OwnerID), l.Title,
		string(cols.location), string(cols.prices), string(cols.contact), string(cols.features),
		l.Deposit, l.CardType, l.Verified, l.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// SetListingVerified sets or clears the verified badge of a listing.
func (db *DB) SetListingVerified(ctx context.Context, id string, verified bool) error {
	res, err := db.conn.ExecContext(ctx, "UPDATE listings SET verified = ? WHERE id = ?", verified, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) scanListings(rows *sql.Rows) ([]model.Listing, error) {
	var listings []model.Listing
	for rows.Next() {
		l, err := scanSQLiteListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func scanSQLiteListing(s scannable) (*model.Listing, error) {
	var (
		l         model.Listing
		ownerID   sql.NullString
		deposit   sql.NullFloat64
		createdAt string
		location  string
		prices    string
		contact   string
		features  string
	)
	if err := s.Scan(&l.ID, &ownerID, &l.OwnerEmail, &l.Title, &location, &prices,
		&contact, &features, &deposit, &l.CardType, &l.Verified, &createdAt); err != nil {
		return nil, err
	}
	l.OwnerID = ownerID.String
	if deposit.Valid {
		d := deposit.Float64
		l.Deposit = &d
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	l.CreatedAt = t
	cols := listingJSON{
		location: []byte(location),
		prices:   []byte(prices),
		contact:  []byte(contact),
		features: []byte(features),
	}
	if err := cols.decodeInto(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// --- User Methods ---

// GetUser returns a user by ID or ErrNotFound.
func (db *DB) GetUser(ctx context.Context, id string) (*model.User, error) {
	var (
		u         model.User
		createdAt string
	)
	err := db.conn.QueryRowContext(ctx,
		"SELECT id, email, is_admin, created_at FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Email, &u.IsAdmin, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &u, nil
}

// GetOrCreateUser finds a user by email, creating one if needed. An existing
// user is promoted when isAdmin is set but never demoted.
func (db *DB) GetOrCreateUser(ctx context.Context, email string, isAdmin bool) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.New("email is required")
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (id, email, is_admin, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET is_admin = users.is_admin OR excluded.is_admin`,
		uuid.NewString(), email, isAdmin, db.now().UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	var (
		u         model.User
		createdAt string
	)
	err = db.conn.QueryRowContext(ctx,
		"SELECT id, email, is_admin, created_at FROM users WHERE email = ?", email).
		Scan(&u.ID, &u.Email, &u.IsAdmin, &createdAt)
	if err != nil {
		return nil, err
	}
	if u.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &u, nil
}
