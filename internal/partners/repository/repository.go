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

var (
	ErrPartnerNotFound  = errors.New("partner not found")
	ErrReferralNotFound = errors.New("referral not found")
	// ErrStaleTransition means the referral's stored status no longer
	// matches the previous status the caller supplied; the conditional
	// update matched zero rows and nothing was credited or debited.
	ErrStaleTransition = errors.New("referral status has changed since it was read")
)

type Partner struct {
	ID                 uuid.UUID
	Name               string
	Phone              *string
	CreditBalanceCents int64
	TotalTaps          int
	TotalConversions   int
	LastSasquatchTapAt *time.Time
	LastReviewTapAt    *time.Time
	GoogleReviewURL    *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Referral struct {
	ID                uuid.UUID
	PartnerID         uuid.UUID
	ClientName        string
	ClientPhone       string
	Status            string
	CreditAmountCents int64
	ConvertedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LedgerDirection is the net effect of a status transition on the
// partner's balance.
type LedgerDirection int

const (
	LedgerNone   LedgerDirection = 0
	LedgerCredit LedgerDirection = 1
	LedgerDebit  LedgerDirection = -1
)

// Repository provides database operations for partners and referrals.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new partners repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const partnerColumns = `id, name, phone, credit_balance_cents, total_taps, total_conversions,
	last_sasquatch_tap_at, last_review_tap_at, google_review_url, created_at, updated_at`

func (r *Repository) CreatePartner(ctx context.Context, partner Partner) (Partner, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO partners (id, name, phone, google_review_url)
		VALUES ($1, $2, $3, $4)
		RETURNING `+partnerColumns, partner.ID, partner.Name, partner.Phone, partner.GoogleReviewURL,
	).Scan(partnerDest(&partner)...)
	if err != nil {
		return Partner{}, fmt.Errorf("create partner: %w", err)
	}
	return partner, nil
}

func (r *Repository) GetPartner(ctx context.Context, id uuid.UUID) (Partner, error) {
	var partner Partner
	err := r.pool.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = $1`, id).
		Scan(partnerDest(&partner)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Partner{}, ErrPartnerNotFound
	}
	return partner, err
}

func (r *Repository) ListPartners(ctx context.Context) ([]Partner, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+partnerColumns+` FROM partners ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partners []Partner
	for rows.Next() {
		var partner Partner
		if err := rows.Scan(partnerDest(&partner)...); err != nil {
			return nil, err
		}
		partners = append(partners, partner)
	}
	return partners, rows.Err()
}

func (r *Repository) UpdatePartner(ctx context.Context, id uuid.UUID, name, phone, reviewURL *string) (Partner, error) {
	var partner Partner
	err := r.pool.QueryRow(ctx, `
		UPDATE partners SET
			name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			google_review_url = COALESCE($4, google_review_url),
			updated_at = now()
		WHERE id = $1
		RETURNING `+partnerColumns, id, name, phone, reviewURL,
	).Scan(partnerDest(&partner)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Partner{}, ErrPartnerNotFound
	}
	return partner, err
}

const referralColumns = `id, partner_id, client_name, client_phone, status, credit_amount_cents,
	converted_at, created_at, updated_at`

func (r *Repository) CreateReferral(ctx context.Context, ref Referral) (Referral, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO referrals (id, partner_id, client_name, client_phone, credit_amount_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+referralColumns,
		ref.ID, ref.PartnerID, ref.ClientName, ref.ClientPhone, ref.CreditAmountCents,
	).Scan(referralDest(&ref)...)
	if err != nil {
		return Referral{}, fmt.Errorf("create referral: %w", err)
	}
	return ref, nil
}

func (r *Repository) GetReferral(ctx context.Context, id uuid.UUID) (Referral, error) {
	var ref Referral
	err := r.pool.QueryRow(ctx, `SELECT `+referralColumns+` FROM referrals WHERE id = $1`, id).
		Scan(referralDest(&ref)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Referral{}, ErrReferralNotFound
	}
	return ref, err
}

func (r *Repository) ListReferralsByPartner(ctx context.Context, partnerID uuid.UUID) ([]Referral, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+referralColumns+` FROM referrals WHERE partner_id = $1 ORDER BY created_at DESC
	`, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []Referral
	for rows.Next() {
		var ref Referral
		if err := rows.Scan(referralDest(&ref)...); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// transitionReferralQuery flips the status only when the stored status
// still equals the previous status the caller supplied.
const transitionReferralQuery = `
	UPDATE referrals SET
		status = $3,
		converted_at = CASE WHEN $3 = 'converted' THEN COALESCE(converted_at, now()) ELSE converted_at END,
		updated_at = now()
	WHERE id = $1 AND status = $2
	RETURNING ` + referralColumns

const creditPartnerQuery = `
	UPDATE partners SET
		credit_balance_cents = credit_balance_cents + $2,
		total_conversions = total_conversions + 1,
		updated_at = now()
	WHERE id = $1
	RETURNING ` + partnerColumns

const debitPartnerQuery = `
	UPDATE partners SET
		credit_balance_cents = GREATEST(0, credit_balance_cents - $2),
		updated_at = now()
	WHERE id = $1
	RETURNING ` + partnerColumns

// TransitionReferral flips the referral's status and applies the matching
// ledger mutation in one transaction. The status flip is conditional on
// prevStatus, so a replayed call finds zero rows and returns
// ErrStaleTransition with no balance change.
func (r *Repository) TransitionReferral(ctx context.Context, id uuid.UUID, prevStatus, newStatus string, direction LedgerDirection) (Referral, Partner, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Referral{}, Partner{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ref Referral
	err = tx.QueryRow(ctx, transitionReferralQuery, id, prevStatus, newStatus).
		Scan(referralDest(&ref)...)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish "gone" from "already moved".
		if _, getErr := r.GetReferral(ctx, id); errors.Is(getErr, ErrReferralNotFound) {
			return Referral{}, Partner{}, ErrReferralNotFound
		}
		return Referral{}, Partner{}, ErrStaleTransition
	}
	if err != nil {
		return Referral{}, Partner{}, fmt.Errorf("transition referral: %w", err)
	}

	var partner Partner
	switch direction {
	case LedgerCredit:
		err = tx.QueryRow(ctx, creditPartnerQuery, ref.PartnerID, ref.CreditAmountCents).
			Scan(partnerDest(&partner)...)
	case LedgerDebit:
		err = tx.QueryRow(ctx, debitPartnerQuery, ref.PartnerID, ref.CreditAmountCents).
			Scan(partnerDest(&partner)...)
	default:
		err = tx.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = $1`, ref.PartnerID).
			Scan(partnerDest(&partner)...)
	}
	if err != nil {
		return Referral{}, Partner{}, fmt.Errorf("apply ledger mutation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Referral{}, Partner{}, err
	}
	return ref, partner, nil
}

func partnerDest(p *Partner) []interface{} {
	return []interface{}{
		&p.ID, &p.Name, &p.Phone, &p.CreditBalanceCents, &p.TotalTaps, &p.TotalConversions,
		&p.LastSasquatchTapAt, &p.LastReviewTapAt, &p.GoogleReviewURL, &p.CreatedAt, &p.UpdatedAt,
	}
}

func referralDest(ref *Referral) []interface{} {
	return []interface{}{
		&ref.ID, &ref.PartnerID, &ref.ClientName, &ref.ClientPhone, &ref.Status,
		&ref.CreditAmountCents, &ref.ConvertedAt, &ref.CreatedAt, &ref.UpdatedAt,
	}
}
