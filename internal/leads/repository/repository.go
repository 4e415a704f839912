package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lead does not exist.
var ErrNotFound = errors.New("lead not found")

// Lead is the canonical contact record.
type Lead struct {
	ID             uuid.UUID
	Source         string
	Phone          string
	Name           *string
	Email          *string
	Location       *string
	Status         string
	Notes          *string
	PartnerID      *uuid.UUID
	SightingID     *uuid.UUID
	ContactedAt    *time.Time
	ScheduledAt    *time.Time
	WonAt          *time.Time
	Day3SMSSentAt  *time.Time
	Day7SMSSentAt  *time.Time
	Day14SMSSentAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateParams carries the fields for a new lead.
type CreateParams struct {
	Source     string
	Phone      string
	Name       *string
	Email      *string
	Location   *string
	Notes      *string
	PartnerID  *uuid.UUID
	SightingID *uuid.UUID
}

// UpdateParams is a whitelist partial update; nil fields are untouched.
type UpdateParams struct {
	ID       uuid.UUID
	Status   *string
	Notes    *string
	Name     *string
	Email    *string
	Location *string
}

// ListParams filters the admin lead listing.
type ListParams struct {
	Source   string
	Status   string
	Page     int
	PageSize int
}

// Repository provides database operations for leads.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, source, phone, name, email, location, status, notes,
	partner_id, sighting_id, contacted_at, scheduled_at, won_at,
	day3_sms_sent_at, day7_sms_sent_at, day14_sms_sent_at, created_at, updated_at`

// createDedupQuery inserts a lead only when no lead with the same
// (phone, source) was created within the last 24 hours; otherwise it
// returns the existing row. One statement, so a retried webhook cannot
// slip a duplicate between a separate check and insert.
const createDedupQuery = `
	WITH existing AS (
		SELECT ` + leadColumns + `
		FROM leads
		WHERE phone = $2 AND source = $3 AND created_at > now() - interval '24 hours'
		ORDER BY created_at DESC
		LIMIT 1
	), inserted AS (
		INSERT INTO leads (id, phone, source, name, email, location, notes, partner_id, sighting_id)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (SELECT 1 FROM existing)
		RETURNING ` + leadColumns + `
	)
	SELECT *, false AS duplicate FROM inserted
	UNION ALL
	SELECT *, true FROM existing
	LIMIT 1
`

// CreateDedup inserts the lead unless the 24-hour (phone, source) window
// already holds one; the second return reports whether the result is the
// pre-existing row.
func (r *Repository) CreateDedup(ctx context.Context, params CreateParams) (Lead, bool, error) {
	var lead Lead
	var duplicate bool
	row := r.pool.QueryRow(ctx, createDedupQuery,
		uuid.New(), params.Phone, params.Source,
		params.Name, params.Email, params.Location, params.Notes,
		params.PartnerID, params.SightingID,
	)
	if err := scanLead(row, &lead, &duplicate); err != nil {
		return Lead{}, false, fmt.Errorf("create lead: %w", err)
	}
	return lead, duplicate, nil
}

// GetByID fetches one lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	var lead Lead
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	if err := scanLead(row, &lead, nil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	return lead, nil
}

// LatestIDByPhone returns the most recently created lead for a phone
// number, or uuid.Nil when none exists. Used for best-effort conversation
// linkage.
func (r *Repository) LatestIDByPhone(ctx context.Context, phone string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM leads WHERE phone = $1 ORDER BY created_at DESC LIMIT 1
	`, phone).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, nil
	}
	return id, err
}

// updateQuery stamps contacted_at/scheduled_at/won_at exactly once: a
// status that moves away and back never resets an existing stamp.
const updateQuery = `
	UPDATE leads SET
		status = COALESCE($2, status),
		notes = COALESCE($3, notes),
		name = COALESCE($4, name),
		email = COALESCE($5, email),
		location = COALESCE($6, location),
		contacted_at = CASE WHEN $2 = 'contacted' THEN COALESCE(contacted_at, now()) ELSE contacted_at END,
		scheduled_at = CASE WHEN $2 = 'scheduled' THEN COALESCE(scheduled_at, now()) ELSE scheduled_at END,
		won_at = CASE WHEN $2 = 'won' THEN COALESCE(won_at, now()) ELSE won_at END,
		updated_at = now()
	WHERE id = $1
	RETURNING ` + leadColumns

// Update applies a whitelist partial update and returns the fresh row.
func (r *Repository) Update(ctx context.Context, params UpdateParams) (Lead, error) {
	var lead Lead
	row := r.pool.QueryRow(ctx, updateQuery,
		params.ID, params.Status, params.Notes, params.Name, params.Email, params.Location,
	)
	if err := scanLead(row, &lead, nil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, fmt.Errorf("update lead: %w", err)
	}
	return lead, nil
}

// Delete removes a lead unconditionally.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a filtered page of leads, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	where := ` WHERE ($1 = '' OR source = $1) AND ($2 = '' OR status = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM leads`+where, params.Source, params.Status).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads`+where+`
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, params.Source, params.Status, params.PageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var lead Lead
		if err := scanLead(rows, &lead, nil); err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	return leads, total, rows.Err()
}

func scanLead(row pgx.Row, lead *Lead, duplicate *bool) error {
	dest := []interface{}{
		&lead.ID, &lead.Source, &lead.Phone, &lead.Name, &lead.Email, &lead.Location,
		&lead.Status, &lead.Notes, &lead.PartnerID, &lead.SightingID,
		&lead.ContactedAt, &lead.ScheduledAt, &lead.WonAt,
		&lead.Day3SMSSentAt, &lead.Day7SMSSentAt, &lead.Day14SMSSentAt,
		&lead.CreatedAt, &lead.UpdatedAt,
	}
	if duplicate != nil {
		dest = append(dest, duplicate)
	}
	return row.Scan(dest...)
}
