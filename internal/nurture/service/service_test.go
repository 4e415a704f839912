package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"sasquatch_backend/internal/nurture/repository"
	"sasquatch_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	due      map[int][]repository.Lead
	claimed  map[string]bool // "leadID/day"
	released []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{due: map[int][]repository.Lead{}, claimed: map[string]bool{}}
}

func key(id uuid.UUID, day int) string {
	return fmt.Sprintf("%s/%d", id, day)
}

func (f *fakeRepo) DueLeads(_ context.Context, day int) ([]repository.Lead, error) {
	return f.due[day], nil
}

func (f *fakeRepo) ClaimStamp(_ context.Context, leadID uuid.UUID, day int) (bool, error) {
	k := key(leadID, day)
	if f.claimed[k] {
		return false, nil
	}
	f.claimed[k] = true
	return true, nil
}

func (f *fakeRepo) ReleaseStamp(_ context.Context, leadID uuid.UUID, day int) error {
	k := key(leadID, day)
	delete(f.claimed, k)
	f.released = append(f.released, k)
	return nil
}

type fakeSMS struct {
	sent    []string
	to      []string
	failFor string
}

func (f *fakeSMS) SendCustomerSMS(_ context.Context, to, body string) error {
	if f.failFor != "" && to == f.failFor {
		return errors.New("provider rejected")
	}
	f.to = append(f.to, to)
	f.sent = append(f.sent, body)
	return nil
}

func testLogger() *logger.Logger { return logger.New("development") }

func lead(phone string, name string) repository.Lead {
	l := repository.Lead{
		ID:        uuid.New(),
		Phone:     phone,
		Source:    "contest",
		CreatedAt: time.Now().AddDate(0, 0, -3),
	}
	if name != "" {
		l.Name = &name
	}
	return l
}

func TestRunSendsEachDueMilestone(t *testing.T) {
	repo := newFakeRepo()
	repo.due[3] = []repository.Lead{lead("+17195550001", "Sam")}
	repo.due[7] = []repository.Lead{lead("+17195550002", "")}
	sms := &fakeSMS{}
	svc := New(repo, sms, testLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sms.sent) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(sms.sent))
	}
	if !strings.Contains(sms.sent[1], "Sam") || !strings.Contains(sms.sent[1], "SQUATCH10") {
		t.Fatalf("day-3 message missing name or coupon: %q", sms.sent[1])
	}
	if !strings.Contains(sms.sent[0], "there") {
		t.Fatalf("nameless lead should get the fallback greeting: %q", sms.sent[0])
	}
	if len(report.Errors) != 0 {
		t.Fatalf("clean run reported errors: %v", report.Errors)
	}
}

func TestRunSendsAtMostOneMilestonePerLead(t *testing.T) {
	repo := newFakeRepo()
	overdue := lead("+17195550003", "Alex")
	// The same lead shows up in two windows after a missed run.
	repo.due[14] = []repository.Lead{overdue}
	repo.due[7] = []repository.Lead{overdue}
	sms := &fakeSMS{}
	svc := New(repo, sms, testLogger())

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sms.sent) != 1 {
		t.Fatalf("lead must get exactly one message per run, got %d", len(sms.sent))
	}
	if !strings.Contains(sms.sent[0], "BIGFOOT20") {
		t.Fatalf("the most advanced milestone wins: %q", sms.sent[0])
	}
}

func TestRunReleasesClaimOnSendFailure(t *testing.T) {
	repo := newFakeRepo()
	failing := lead("+17195550004", "")
	repo.due[3] = []repository.Lead{failing, lead("+17195550005", "")}
	sms := &fakeSMS{failFor: "+17195550004"}
	svc := New(repo, sms, testLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("item failures must not fail the run: %v", err)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %v", report.Errors)
	}
	if len(repo.released) != 1 || repo.released[0] != key(failing.ID, 3) {
		t.Fatalf("failed send must release its claim: %v", repo.released)
	}
	if len(sms.sent) != 1 {
		t.Fatalf("healthy lead must still be served, got %d sends", len(sms.sent))
	}
}

func TestRunSkipsAlreadyStampedLeads(t *testing.T) {
	repo := newFakeRepo()
	raced := lead("+17195550006", "")
	repo.due[3] = []repository.Lead{raced}
	repo.claimed[key(raced.ID, 3)] = true // another run got here first
	sms := &fakeSMS{}
	svc := New(repo, sms, testLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sms.sent) != 0 {
		t.Fatalf("lost claim must not send, got %v", sms.sent)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("a lost claim is not an error: %v", report.Errors)
	}
}
