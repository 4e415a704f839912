package service

import (
	"context"
	"errors"

	"sasquatch_backend/internal/events"
	"sasquatch_backend/internal/leads/repository"
	"sasquatch_backend/internal/leads/transport"
	"sasquatch_backend/platform/apperr"
	"sasquatch_backend/platform/phone"

	"github.com/google/uuid"
)

// LeadsRepository is the persistence surface the service needs.
type LeadsRepository interface {
	CreateDedup(ctx context.Context, params repository.CreateParams) (repository.Lead, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	Update(ctx context.Context, params repository.UpdateParams) (repository.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params repository.ListParams) ([]repository.Lead, int, error)
}

// Service provides business logic for the lead store.
type Service struct {
	repo LeadsRepository
	bus  events.Bus
}

// New creates a new leads service.
func New(repo LeadsRepository, bus events.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

var validSources = map[transport.LeadSource]bool{
	transport.SourceContest:    true,
	transport.SourcePartner:    true,
	transport.SourceMissedCall: true,
	transport.SourceWebsite:    true,
}

// Create ingests a contact event. Re-ingestion of the same normalized
// (phone, source) within 24 hours returns the existing lead unchanged.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.CreateLeadResponse, error) {
	if !validSources[req.Source] {
		return transport.CreateLeadResponse{}, apperr.Validation("invalid lead source")
	}

	normalized := phone.Normalize(req.Phone)
	if normalized == "" {
		return transport.CreateLeadResponse{}, apperr.Validation("phone is required")
	}

	lead, duplicate, err := s.repo.CreateDedup(ctx, repository.CreateParams{
		Source:     string(req.Source),
		Phone:      normalized,
		Name:       optional(req.Name),
		Email:      optional(req.Email),
		Location:   optional(req.Location),
		Notes:      optional(req.Notes),
		PartnerID:  req.PartnerID,
		SightingID: req.SightingID,
	})
	if err != nil {
		return transport.CreateLeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to store lead", err)
	}

	if !duplicate && s.bus != nil {
		s.bus.Publish(ctx, events.LeadCreated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			Source:    lead.Source,
			Phone:     lead.Phone,
			Name:      deref(lead.Name),
		})
	}

	return transport.CreateLeadResponse{Lead: toResponse(lead), Duplicate: duplicate}, nil
}

// IngestMissedCall handles the telephony provider's webhook payload.
// Events that are not terminated inbound calls are dropped; the caller
// still acknowledges them. Returns false when no lead was touched.
func (s *Service) IngestMissedCall(ctx context.Context, payload transport.MissedCallWebhook) (transport.CreateLeadResponse, bool, error) {
	caller, name, ok := payload.MissedCaller()
	if !ok {
		return transport.CreateLeadResponse{}, false, nil
	}

	resp, err := s.Create(ctx, transport.CreateLeadRequest{
		Source: transport.SourceMissedCall,
		Phone:  caller,
		Name:   name,
	})
	if err != nil {
		return transport.CreateLeadResponse{}, false, err
	}
	return resp, true, nil
}

// GetByID fetches one lead.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	return toResponse(lead), nil
}

// Update applies a whitelist partial update. Status transitions into
// contacted/scheduled/won stamp that status's timestamp once; the stamp
// is a one-way marker.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	lead, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:       id,
		Status:   (*string)(req.Status),
		Notes:    req.Notes,
		Name:     req.Name,
		Email:    req.Email,
		Location: req.Location,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to update lead", err)
	}
	return toResponse(lead), nil
}

// Delete removes a lead. Admin-only; there is no soft delete.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to delete lead", err)
	}
	return nil
}

// List returns a page of leads for the admin surface.
func (s *Service) List(ctx context.Context, source, status string, page, pageSize int) (transport.ListLeadsResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	leads, total, err := s.repo.List(ctx, repository.ListParams{
		Source:   source,
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return transport.ListLeadsResponse{}, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, toResponse(lead))
	}
	return transport.ListLeadsResponse{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func toResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:             lead.ID,
		Source:         transport.LeadSource(lead.Source),
		Phone:          lead.Phone,
		Name:           deref(lead.Name),
		Email:          deref(lead.Email),
		Location:       deref(lead.Location),
		Status:         transport.LeadStatus(lead.Status),
		Notes:          deref(lead.Notes),
		PartnerID:      lead.PartnerID,
		SightingID:     lead.SightingID,
		ContactedAt:    lead.ContactedAt,
		ScheduledAt:    lead.ScheduledAt,
		WonAt:          lead.WonAt,
		Day3SMSSentAt:  lead.Day3SMSSentAt,
		Day7SMSSentAt:  lead.Day7SMSSentAt,
		Day14SMSSentAt: lead.Day14SMSSentAt,
		CreatedAt:      lead.CreatedAt,
		UpdatedAt:      lead.UpdatedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
