package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Station types tracked per partner.
const (
	StationSasquatch = "sasquatch"
	StationReview    = "review"
)

// Partner is the slice of the partner row the monitor needs.
type Partner struct {
	ID                 uuid.UUID
	Name               string
	Phone              string
	TotalTaps          int
	LastSasquatchTapAt *time.Time
	LastReviewTapAt    *time.Time
	GoogleReviewURL    *string
}

// Repository provides database operations for station inactivity scans
// and alert cooldown claims.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new station health repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// PartnersWithPhone returns every partner the monitor can actually reach.
func (r *Repository) PartnersWithPhone(ctx context.Context) ([]Partner, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, phone, total_taps, last_sasquatch_tap_at, last_review_tap_at, google_review_url
		FROM partners
		WHERE phone IS NOT NULL AND phone <> ''
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partners []Partner
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.TotalTaps, &p.LastSasquatchTapAt, &p.LastReviewTapAt, &p.GoogleReviewURL); err != nil {
			return nil, err
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

// claimAlertQuery inserts the alert row only when the cooldown window for
// this (partner, station) has no recent alert. Writing the row before the
// send closes the duplicate-send race between overlapping runs.
const claimAlertQuery = `
	INSERT INTO station_health_alerts (partner_id, station_type, alert_type)
	SELECT $1, $2, $3
	WHERE NOT EXISTS (
		SELECT 1 FROM station_health_alerts
		WHERE partner_id = $1 AND station_type = $2
		  AND sent_at > now() - interval '7 days'
	)`

// ClaimAlert records the alert and reports whether this run owns it.
func (r *Repository) ClaimAlert(ctx context.Context, partnerID uuid.UUID, stationType, alertType string) (bool, error) {
	tag, err := r.pool.Exec(ctx, claimAlertQuery, partnerID, stationType, alertType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
