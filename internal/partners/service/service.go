package service

import (
	"context"
	"errors"

	"sasquatch_backend/internal/events"
	"sasquatch_backend/internal/partners/repository"
	"sasquatch_backend/internal/partners/transport"
	"sasquatch_backend/platform/apperr"
	"sasquatch_backend/platform/phone"

	"github.com/google/uuid"
)

// defaultCreditCents is the referral payout when none is specified.
const defaultCreditCents = 2500

// PartnersRepository is the persistence surface the service needs.
type PartnersRepository interface {
	CreatePartner(ctx context.Context, partner repository.Partner) (repository.Partner, error)
	GetPartner(ctx context.Context, id uuid.UUID) (repository.Partner, error)
	ListPartners(ctx context.Context) ([]repository.Partner, error)
	UpdatePartner(ctx context.Context, id uuid.UUID, name, phone, reviewURL *string) (repository.Partner, error)
	CreateReferral(ctx context.Context, ref repository.Referral) (repository.Referral, error)
	GetReferral(ctx context.Context, id uuid.UUID) (repository.Referral, error)
	ListReferralsByPartner(ctx context.Context, partnerID uuid.UUID) ([]repository.Referral, error)
	TransitionReferral(ctx context.Context, id uuid.UUID, prevStatus, newStatus string, direction repository.LedgerDirection) (repository.Referral, repository.Partner, error)
}

// Service provides business logic for partners, referrals, and the
// credit ledger.
type Service struct {
	repo PartnersRepository
	bus  events.Bus
}

// New creates a new partners service.
func New(repo PartnersRepository, bus events.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

// creditDirection derives the single ledger mutation for a status
// transition: credit on the net move into 'converted', debit on the net
// move out of it, nothing otherwise.
func creditDirection(prev, next transport.ReferralStatus) repository.LedgerDirection {
	switch {
	case next == transport.ReferralConverted && prev != transport.ReferralConverted:
		return repository.LedgerCredit
	case next != transport.ReferralConverted && prev == transport.ReferralConverted:
		return repository.LedgerDebit
	default:
		return repository.LedgerNone
	}
}

func (s *Service) CreatePartner(ctx context.Context, req transport.CreatePartnerRequest) (transport.PartnerResponse, error) {
	partner := repository.Partner{
		ID:   uuid.New(),
		Name: req.Name,
	}
	if req.Phone != "" {
		normalized := phone.Normalize(req.Phone)
		partner.Phone = &normalized
	}
	if req.GoogleReviewURL != "" {
		partner.GoogleReviewURL = &req.GoogleReviewURL
	}

	created, err := s.repo.CreatePartner(ctx, partner)
	if err != nil {
		return transport.PartnerResponse{}, apperr.Wrap(apperr.KindInternal, "failed to create partner", err)
	}
	return toPartnerResponse(created), nil
}

func (s *Service) GetPartner(ctx context.Context, id uuid.UUID) (transport.PartnerResponse, error) {
	partner, err := s.repo.GetPartner(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPartnerNotFound) {
			return transport.PartnerResponse{}, apperr.NotFound("partner not found")
		}
		return transport.PartnerResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load partner", err)
	}
	return toPartnerResponse(partner), nil
}

func (s *Service) ListPartners(ctx context.Context) ([]transport.PartnerResponse, error) {
	partners, err := s.repo.ListPartners(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list partners", err)
	}
	out := make([]transport.PartnerResponse, 0, len(partners))
	for _, p := range partners {
		out = append(out, toPartnerResponse(p))
	}
	return out, nil
}

func (s *Service) UpdatePartner(ctx context.Context, id uuid.UUID, req transport.UpdatePartnerRequest) (transport.PartnerResponse, error) {
	var phonePtr *string
	if req.Phone != nil {
		normalized := phone.Normalize(*req.Phone)
		phonePtr = &normalized
	}

	partner, err := s.repo.UpdatePartner(ctx, id, req.Name, phonePtr, req.GoogleReviewURL)
	if err != nil {
		if errors.Is(err, repository.ErrPartnerNotFound) {
			return transport.PartnerResponse{}, apperr.NotFound("partner not found")
		}
		return transport.PartnerResponse{}, apperr.Wrap(apperr.KindInternal, "failed to update partner", err)
	}
	return toPartnerResponse(partner), nil
}

// CreateReferral records a referral submitted by a partner or an admin.
func (s *Service) CreateReferral(ctx context.Context, partnerID uuid.UUID, req transport.CreateReferralRequest) (transport.ReferralResponse, error) {
	if _, err := s.repo.GetPartner(ctx, partnerID); err != nil {
		if errors.Is(err, repository.ErrPartnerNotFound) {
			return transport.ReferralResponse{}, apperr.NotFound("partner not found")
		}
		return transport.ReferralResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load partner", err)
	}

	credit := req.CreditAmountCents
	if credit == 0 {
		credit = defaultCreditCents
	}

	ref, err := s.repo.CreateReferral(ctx, repository.Referral{
		ID:                uuid.New(),
		PartnerID:         partnerID,
		ClientName:        req.ClientName,
		ClientPhone:       phone.Normalize(req.ClientPhone),
		CreditAmountCents: credit,
	})
	if err != nil {
		return transport.ReferralResponse{}, apperr.Wrap(apperr.KindInternal, "failed to create referral", err)
	}
	return toReferralResponse(ref), nil
}

func (s *Service) ListReferrals(ctx context.Context, partnerID uuid.UUID) ([]transport.ReferralResponse, error) {
	refs, err := s.repo.ListReferralsByPartner(ctx, partnerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list referrals", err)
	}
	out := make([]transport.ReferralResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, toReferralResponse(ref))
	}
	return out, nil
}

// UpdateReferralStatus flips a referral's status and applies the derived
// ledger mutation atomically. The into-converted path notifies the partner
// after the commit; a notification failure never unwinds the credit.
func (s *Service) UpdateReferralStatus(ctx context.Context, id uuid.UUID, req transport.UpdateReferralStatusRequest) (transport.ReferralResponse, error) {
	direction := creditDirection(req.PreviousStatus, req.Status)

	ref, partner, err := s.repo.TransitionReferral(ctx, id, string(req.PreviousStatus), string(req.Status), direction)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReferralNotFound):
			return transport.ReferralResponse{}, apperr.NotFound("referral not found")
		case errors.Is(err, repository.ErrStaleTransition):
			return transport.ReferralResponse{}, apperr.Conflict("referral status has changed; reload and retry")
		default:
			return transport.ReferralResponse{}, apperr.Wrap(apperr.KindInternal, "failed to update referral", err)
		}
	}

	if direction == repository.LedgerCredit && s.bus != nil {
		s.bus.Publish(ctx, events.ReferralConverted{
			BaseEvent:        events.NewBaseEvent(),
			ReferralID:       ref.ID,
			PartnerID:        partner.ID,
			PartnerPhone:     derefStr(partner.Phone),
			PartnerName:      partner.Name,
			ClientName:       ref.ClientName,
			CreditCents:      ref.CreditAmountCents,
			NewBalanceCents:  partner.CreditBalanceCents,
			TotalConversions: partner.TotalConversions,
		})
	}

	return toReferralResponse(ref), nil
}

func toPartnerResponse(p repository.Partner) transport.PartnerResponse {
	return transport.PartnerResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Phone:              derefStr(p.Phone),
		CreditBalanceCents: p.CreditBalanceCents,
		TotalTaps:          p.TotalTaps,
		TotalConversions:   p.TotalConversions,
		LastSasquatchTapAt: p.LastSasquatchTapAt,
		LastReviewTapAt:    p.LastReviewTapAt,
		GoogleReviewURL:    derefStr(p.GoogleReviewURL),
		CreatedAt:          p.CreatedAt,
	}
}

func toReferralResponse(ref repository.Referral) transport.ReferralResponse {
	return transport.ReferralResponse{
		ID:                ref.ID,
		PartnerID:         ref.PartnerID,
		ClientName:        ref.ClientName,
		ClientPhone:       ref.ClientPhone,
		Status:            transport.ReferralStatus(ref.Status),
		CreditAmountCents: ref.CreditAmountCents,
		ConvertedAt:       ref.ConvertedAt,
		CreatedAt:         ref.CreatedAt,
	}
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
