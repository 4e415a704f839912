package service

import (
	"context"
	"testing"
	"time"

	"sasquatch_backend/internal/events"
	"sasquatch_backend/internal/leads/repository"
	"sasquatch_backend/internal/leads/transport"
	"sasquatch_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeRepo struct {
	createParams *repository.CreateParams
	duplicate    bool
	lead         repository.Lead
}

func (f *fakeRepo) CreateDedup(_ context.Context, params repository.CreateParams) (repository.Lead, bool, error) {
	f.createParams = &params
	lead := f.lead
	if lead.ID == uuid.Nil {
		lead = repository.Lead{
			ID:        uuid.New(),
			Source:    params.Source,
			Phone:     params.Phone,
			Status:    "new",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
	}
	return lead, f.duplicate, nil
}

func (f *fakeRepo) GetByID(context.Context, uuid.UUID) (repository.Lead, error) {
	return f.lead, nil
}

func (f *fakeRepo) Update(_ context.Context, params repository.UpdateParams) (repository.Lead, error) {
	return f.lead, nil
}

func (f *fakeRepo) Delete(context.Context, uuid.UUID) error { return nil }

func (f *fakeRepo) List(context.Context, repository.ListParams) ([]repository.Lead, int, error) {
	return nil, 0, nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.published = append(b.published, e)
}
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

func TestCreateNormalizesPhone(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, &recordingBus{})

	resp, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		Source: transport.SourceContest,
		Phone:  "(719) 555-1234",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.createParams.Phone != "+17195551234" {
		t.Fatalf("phone not normalized before write: %q", repo.createParams.Phone)
	}
	if resp.Duplicate {
		t.Fatal("fresh create should not report duplicate")
	}
}

func TestCreateRejectsInvalidSourceBeforeWrite(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, nil)

	_, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		Source: "carrier_pigeon",
		Phone:  "7195551234",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.createParams != nil {
		t.Fatal("invalid source must be rejected before any write")
	}
}

func TestCreatePublishesEventOnlyForNewLeads(t *testing.T) {
	bus := &recordingBus{}
	svc := New(&fakeRepo{duplicate: true}, bus)

	_, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		Source: transport.SourceWebsite,
		Phone:  "7195551234",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bus.published) != 0 {
		t.Fatalf("dedup hit must not publish LeadCreated, got %d events", len(bus.published))
	}

	bus2 := &recordingBus{}
	svc2 := New(&fakeRepo{}, bus2)
	if _, err := svc2.Create(context.Background(), transport.CreateLeadRequest{
		Source: transport.SourceWebsite,
		Phone:  "7195551234",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bus2.published) != 1 {
		t.Fatalf("expected exactly one LeadCreated event, got %d", len(bus2.published))
	}
}

func TestIngestMissedCallDropsNonTerminatedEvents(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, nil)

	var payload transport.MissedCallWebhook
	payload.Event.Type = "call.ringing"
	payload.Event.Call.Direction = "inbound"
	payload.Event.Call.From.PhoneNumber = "7195551234"

	_, created, err := svc.IngestMissedCall(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("ringing event must be acknowledged and dropped")
	}
	if repo.createParams != nil {
		t.Fatal("dropped event must not touch the store")
	}
}

func TestIngestMissedCallCreatesLead(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, nil)

	var payload transport.MissedCallWebhook
	payload.Event.Type = "call.terminated"
	payload.Event.Call.Direction = "inbound"
	payload.Event.Call.From.PhoneNumber = "7195551234"
	payload.Event.Call.From.Name = "Pat Caller"

	_, created, err := svc.IngestMissedCall(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("terminated inbound call should create a lead")
	}
	if repo.createParams.Source != "missed_call" {
		t.Fatalf("source = %q, want missed_call", repo.createParams.Source)
	}
	if repo.createParams.Phone != "+17195551234" {
		t.Fatalf("caller id not normalized: %q", repo.createParams.Phone)
	}
}

func TestIngestMissedCallOutboundIsDropped(t *testing.T) {
	svc := New(&fakeRepo{}, nil)

	var payload transport.MissedCallWebhook
	payload.Event.Type = "call.terminated"
	payload.Event.Call.Direction = "outbound"
	payload.Event.Call.From.PhoneNumber = "7195551234"

	_, created, err := svc.IngestMissedCall(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("outbound calls never create leads")
	}
}
