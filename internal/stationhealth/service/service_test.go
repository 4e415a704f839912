package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sasquatch_backend/internal/stationhealth/repository"
	"sasquatch_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	partners  []repository.Partner
	onCooldown map[string]bool // "partnerID/station"
	claims     []string
}

func (f *fakeRepo) PartnersWithPhone(context.Context) ([]repository.Partner, error) {
	return f.partners, nil
}

func (f *fakeRepo) ClaimAlert(_ context.Context, partnerID uuid.UUID, station, _ string) (bool, error) {
	k := partnerID.String() + "/" + station
	if f.onCooldown[k] {
		return false, nil
	}
	f.claims = append(f.claims, k)
	return true, nil
}

type fakeSMS struct {
	sent []string
	err  error
}

func (f *fakeSMS) SendPartnerSMS(_ context.Context, _, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, body)
	return nil
}

func testLogger() *logger.Logger { return logger.New("development") }

func daysAgo(n int) *time.Time {
	t := time.Now().AddDate(0, 0, -n)
	return &t
}

func strPtr(s string) *string { return &s }

func partner(taps int, lastSasquatch, lastReview *time.Time, reviewURL *string) repository.Partner {
	return repository.Partner{
		ID:                 uuid.New(),
		Name:               "Hops & Dreams",
		Phone:              "+17195550100",
		TotalTaps:          taps,
		LastSasquatchTapAt: lastSasquatch,
		LastReviewTapAt:    lastReview,
		GoogleReviewURL:    reviewURL,
	}
}

func TestRunFlagsStaleSasquatchStation(t *testing.T) {
	repo := &fakeRepo{partners: []repository.Partner{partner(12, daysAgo(20), nil, nil)}}
	sms := &fakeSMS{}
	svc := New(repo, sms, testLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.AlertsSent != 1 {
		t.Fatalf("expected 1 alert, got %d", report.AlertsSent)
	}
	if len(sms.sent) != 1 || !strings.Contains(sms.sent[0], "Sasquatch station") {
		t.Fatalf("unexpected message: %v", sms.sent)
	}
}

func TestRunNeverFlagsUntappedStation(t *testing.T) {
	// Zero taps means the station was never used; stale-looking timestamps
	// are irrelevant.
	repo := &fakeRepo{partners: []repository.Partner{partner(0, daysAgo(60), nil, nil)}}
	sms := &fakeSMS{}
	svc := New(repo, sms, testLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.AlertsSent != 0 || len(sms.sent) != 0 {
		t.Fatalf("untapped station must not alert: %+v", report)
	}
}

func TestRunSkipsFreshStations(t *testing.T) {
	repo := &fakeRepo{partners: []repository.Partner{
		partner(5, daysAgo(2), daysAgo(1), strPtr("https://g.page/r/hops")),
	}}
	sms := &fakeSMS{}
	svc := New(repo, sms, testLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.AlertsSent != 0 {
		t.Fatalf("fresh taps must not alert: %+v", report)
	}
}

func TestRunCombinesBothStationsIntoOneMessage(t *testing.T) {
	repo := &fakeRepo{partners: []repository.Partner{
		partner(5, daysAgo(30), daysAgo(30), strPtr("https://g.page/r/hops")),
	}}
	sms := &fakeSMS{}
	svc := New(repo, sms, testLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sms.sent) != 1 {
		t.Fatalf("both stations stale must produce one combined SMS, got %d", len(sms.sent))
	}
	if !strings.Contains(sms.sent[0], "Both") {
		t.Fatalf("combined message expected: %q", sms.sent[0])
	}
	if report.AlertsSent != 2 {
		t.Fatalf("both alert rows count, got %d", report.AlertsSent)
	}
	if len(repo.claims) != 2 {
		t.Fatalf("both stations must be claimed: %v", repo.claims)
	}
}

func TestRunRespectsCooldown(t *testing.T) {
	p := partner(5, daysAgo(30), nil, nil)
	repo := &fakeRepo{
		partners:   []repository.Partner{p},
		onCooldown: map[string]bool{p.ID.String() + "/" + repository.StationSasquatch: true},
	}
	sms := &fakeSMS{}
	svc := New(repo, sms, testLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.AlertsSent != 0 || len(sms.sent) != 0 {
		t.Fatalf("cooldown must suppress the alert: %+v", report)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("a cooldown hit is not an error: %v", report.Errors)
	}
}

func TestRunKeepsCooldownOnSendFailure(t *testing.T) {
	repo := &fakeRepo{partners: []repository.Partner{partner(5, daysAgo(30), nil, nil)}}
	sms := &fakeSMS{err: errors.New("provider down")}
	svc := New(repo, sms, testLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("item failures must not fail the run: %v", err)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("send failure must be recorded: %v", report.Errors)
	}
	// The claim already wrote the alert row; the cooldown stands.
	if len(repo.claims) != 1 {
		t.Fatalf("alert row must be kept, got %v", repo.claims)
	}
	if report.AlertsSent != 0 {
		t.Fatalf("failed send does not count as sent: %d", report.AlertsSent)
	}
}
