package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"claimgate/internal/listing/models"
	id "claimgate/pkg/domain"
	"claimgate/pkg/platform/sentinel"
)

// PostgresStore persists listings in PostgreSQL. Pure I/O; claim rules live
// in the service. The claim transition is a single conditional UPDATE so the
// database, not application code, arbitrates concurrent claims.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const listingColumns = `id, name, slug, contact_email, phone, website, plan,
	comped, suppressed, is_claimed, claimed_by, claimed_at, created_at, updated_at`

func (s *PostgresStore) Save(ctx context.Context, l *models.Listing) error {
	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			contact_email = EXCLUDED.contact_email,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			plan = EXCLUDED.plan,
			comped = EXCLUDED.comped,
			suppressed = EXCLUDED.suppressed,
			updated_at = EXCLUDED.updated_at
	`
	var claimedBy any
	if l.ClaimedBy != nil {
		claimedBy = uuid.UUID(*l.ClaimedBy).String()
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(l.ID).String(), l.Name, l.Slug, l.ContactEmail, l.Phone, l.Website,
		l.Plan, l.Comped, l.Suppressed, l.IsClaimed, claimedBy, l.ClaimedAt,
		l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save listing: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, listingID id.ListingID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	l, err := scanListing(s.db.QueryRowContext(ctx, query, uuid.UUID(listingID).String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find listing: %w", err)
	}
	return l, nil
}

// ClaimIfUnclaimed is the atomic claim transition. A single conditional
// UPDATE with is_claimed = FALSE in the predicate means two concurrent
// finalize calls produce exactly one winner; the loser sees zero rows and is
// classified as already-claimed (or not-found if the listing never existed).
func (s *PostgresStore) ClaimIfUnclaimed(ctx context.Context, listingID id.ListingID, claimant id.VendorID, now time.Time) (*models.Listing, error) {
	query := `
		UPDATE listings
		SET is_claimed = TRUE, claimed_by = $2, claimed_at = $3, updated_at = $3
		WHERE id = $1 AND is_claimed = FALSE
		RETURNING ` + listingColumns
	l, err := scanListing(s.db.QueryRowContext(ctx, query,
		uuid.UUID(listingID).String(), uuid.UUID(claimant).String(), now))
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim listing: %w", err)
	}

	// Zero rows: disambiguate missing vs already claimed for error
	// classification only; the write above stays the single atomic step.
	var claimed bool
	err = s.db.QueryRowContext(ctx,
		`SELECT is_claimed FROM listings WHERE id = $1`,
		uuid.UUID(listingID).String()).Scan(&claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("claim listing recheck: %w", err)
	}
	return nil, sentinel.ErrConflict
}

func (s *PostgresStore) Suppress(ctx context.Context, listingID id.ListingID, now time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE listings SET suppressed = TRUE, updated_at = $2 WHERE id = $1`,
		uuid.UUID(listingID).String(), now)
	if err != nil {
		return fmt.Errorf("suppress listing: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("suppress listing rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListUnclaimed(ctx context.Context) ([]*models.Listing, error) {
	query := `SELECT ` + listingColumns + `
		FROM listings
		WHERE is_claimed = FALSE AND suppressed = FALSE
		ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list unclaimed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unclaimed listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unclaimed listings: %w", err)
	}
	return out, nil
}

type listingRow interface {
	Scan(dest ...any) error
}

func scanListing(row listingRow) (*models.Listing, error) {
	var (
		l         models.Listing
		rawID     string
		claimedBy sql.NullString
		claimedAt sql.NullTime
	)
	if err := row.Scan(&rawID, &l.Name, &l.Slug, &l.ContactEmail, &l.Phone,
		&l.Website, &l.Plan, &l.Comped, &l.Suppressed, &l.IsClaimed,
		&claimedBy, &claimedAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}

	listingID, err := id.ParseListingID(rawID)
	if err != nil {
		return nil, err
	}
	l.ID = listingID

	if claimedBy.Valid {
		vendorID, err := id.ParseVendorID(claimedBy.String)
		if err != nil {
			return nil, err
		}
		l.ClaimedBy = &vendorID
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		l.ClaimedAt = &t
	}
	return &l, nil
}
