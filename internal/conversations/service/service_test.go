package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sasquatch_backend/internal/ai"
	"sasquatch_backend/internal/conversations/repository"
	"sasquatch_backend/internal/conversations/transport"
	"sasquatch_backend/internal/events"
	"sasquatch_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	conversation repository.Conversation
	created      bool
	automationOn bool

	appended   []repository.Message
	statusSets []string
	ensurePhone string
	ensureLead  *uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		conversation: repository.Conversation{
			ID:          uuid.New(),
			PhoneNumber: "+17195551234",
			Source:      "sms",
			AIEnabled:   true,
			Status:      repository.StatusActive,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		},
		automationOn: true,
	}
}

func (f *fakeRepo) EnsureActive(_ context.Context, phone, source string, leadID *uuid.UUID) (repository.Conversation, bool, error) {
	f.ensurePhone = phone
	f.ensureLead = leadID
	return f.conversation, f.created, nil
}

func (f *fakeRepo) GetByID(context.Context, uuid.UUID) (repository.Conversation, error) {
	return f.conversation, nil
}

func (f *fakeRepo) List(context.Context, string, int, int) ([]repository.Conversation, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, _ uuid.UUID, status string) (repository.Conversation, error) {
	f.statusSets = append(f.statusSets, status)
	f.conversation.Status = status
	return f.conversation, nil
}

func (f *fakeRepo) SetAIEnabled(_ context.Context, _ uuid.UUID, enabled bool) (repository.Conversation, error) {
	f.conversation.AIEnabled = enabled
	return f.conversation, nil
}

func (f *fakeRepo) AppendMessage(_ context.Context, id uuid.UUID, role, content string) (repository.Message, error) {
	msg := repository.Message{
		ConversationID: id,
		Seq:            len(f.appended) + 1,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	f.appended = append(f.appended, msg)
	return msg, nil
}

func (f *fakeRepo) ListMessages(context.Context, uuid.UUID) ([]repository.Message, error) {
	return f.appended, nil
}

func (f *fakeRepo) AutomationEnabled(context.Context) (bool, error) {
	return f.automationOn, nil
}

func (f *fakeRepo) SetAutomationEnabled(_ context.Context, enabled bool) error {
	f.automationOn = enabled
	return nil
}

type fakeResponder struct {
	reply string
	err   error
	calls int
}

func (f *fakeResponder) Generate(context.Context, []ai.HistoryMessage) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeSMS struct {
	sent []string
	to   []string
	err  error
}

func (f *fakeSMS) SendCustomerSMS(_ context.Context, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	f.sent = append(f.sent, body)
	return nil
}

type fakeLeads struct {
	id uuid.UUID
}

func (f *fakeLeads) LatestIDByPhone(context.Context, string) (uuid.UUID, error) {
	return f.id, nil
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

func testLogger() *logger.Logger { return logger.New("development") }

func TestInboundAutoReplies(t *testing.T) {
	repo := newFakeRepo()
	responder := &fakeResponder{reply: "We open at 9am."}
	sms := &fakeSMS{}
	svc := New(repo, responder, ai.MarkerClassifier{}, sms, nil, &recordingBus{}, testLogger())

	if err := svc.Inbound(context.Background(), "(719) 555-1234", "What time do you open?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.ensurePhone != "+17195551234" {
		t.Fatalf("phone not normalized: %q", repo.ensurePhone)
	}
	if len(repo.appended) != 2 {
		t.Fatalf("expected user + assistant messages, got %d", len(repo.appended))
	}
	if repo.appended[0].Role != repository.RoleUser || repo.appended[1].Role != repository.RoleAssistant {
		t.Fatalf("unexpected roles: %s, %s", repo.appended[0].Role, repo.appended[1].Role)
	}
	if len(sms.sent) != 1 || sms.sent[0] != "We open at 9am." {
		t.Fatalf("reply not sent: %v", sms.sent)
	}
	if len(repo.statusSets) != 0 {
		t.Fatalf("ordinary reply must not change status, got %v", repo.statusSets)
	}
}

func TestInboundToggleOffNotifiesOperator(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(*fakeRepo)
	}{
		{"conversation toggle off", func(r *fakeRepo) { r.conversation.AIEnabled = false }},
		{"global automation off", func(r *fakeRepo) { r.automationOn = false }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo()
			tc.setup(repo)
			responder := &fakeResponder{reply: "never"}
			bus := &recordingBus{}
			svc := New(repo, responder, ai.MarkerClassifier{}, &fakeSMS{}, nil, bus, testLogger())

			if err := svc.Inbound(context.Background(), "7195551234", "hello"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if responder.calls != 0 {
				t.Fatal("responder must not run with automation off")
			}
			if len(repo.appended) != 1 || repo.appended[0].Role != repository.RoleUser {
				t.Fatalf("inbound message must still be recorded: %v", repo.appended)
			}
			if len(bus.published) != 1 {
				t.Fatalf("expected one OperatorReplyNeeded event, got %d", len(bus.published))
			}
			if _, ok := bus.published[0].(events.OperatorReplyNeeded); !ok {
				t.Fatalf("published event has type %T", bus.published[0])
			}
		})
	}
}

func TestInboundNilResponderNotifiesOperator(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := New(repo, nil, ai.MarkerClassifier{}, &fakeSMS{}, nil, bus, testLogger())

	if err := svc.Inbound(context.Background(), "7195551234", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatalf("unconfigured model must hand off to an operator, got %d events", len(bus.published))
	}
}

func TestInboundEscalatesOnMarker(t *testing.T) {
	repo := newFakeRepo()
	responder := &fakeResponder{reply: "Let me get a human to help. " + ai.EscalationMarker}
	sms := &fakeSMS{}
	bus := &recordingBus{}
	svc := New(repo, responder, ai.MarkerClassifier{}, sms, nil, bus, testLogger())

	if err := svc.Inbound(context.Background(), "7195551234", "this is urgent!!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.statusSets) != 1 || repo.statusSets[0] != repository.StatusEscalated {
		t.Fatalf("conversation must be escalated, got %v", repo.statusSets)
	}
	if len(sms.sent) != 1 {
		t.Fatalf("handoff sentence must still reach the customer: %v", sms.sent)
	}
	if strings.Contains(sms.sent[0], ai.EscalationMarker) {
		t.Fatalf("marker leaked to customer: %q", sms.sent[0])
	}
	if strings.Contains(repo.appended[1].Content, ai.EscalationMarker) {
		t.Fatalf("marker leaked into the stored message: %q", repo.appended[1].Content)
	}

	escalated, ok := bus.published[0].(events.ConversationEscalated)
	if !ok {
		t.Fatalf("published event has type %T", bus.published[0])
	}
	if escalated.UserMessage != "this is urgent!!" {
		t.Fatalf("event must carry the triggering exchange: %+v", escalated)
	}
}

func TestInboundGenerationFailureEscalatesLoudly(t *testing.T) {
	repo := newFakeRepo()
	responder := &fakeResponder{err: errors.New("model unavailable")}
	sms := &fakeSMS{}
	bus := &recordingBus{}
	svc := New(repo, responder, ai.MarkerClassifier{}, sms, nil, bus, testLogger())

	if err := svc.Inbound(context.Background(), "7195551234", "hello?"); err != nil {
		t.Fatalf("generation failure must not fail the webhook: %v", err)
	}

	if len(repo.appended) != 2 {
		t.Fatalf("expected user + system messages, got %d", len(repo.appended))
	}
	last := repo.appended[1]
	if last.Role != repository.RoleSystem || !strings.HasPrefix(last.Content, "ERROR:") {
		t.Fatalf("failure must be recorded as a system ERROR message: %+v", last)
	}
	if len(repo.statusSets) != 1 || repo.statusSets[0] != repository.StatusEscalated {
		t.Fatalf("generation failure must escalate, got %v", repo.statusSets)
	}
	if len(sms.sent) != 0 {
		t.Fatalf("no customer reply on failure, got %v", sms.sent)
	}
	if len(bus.published) != 1 {
		t.Fatalf("operator must be notified, got %d events", len(bus.published))
	}
}

func TestInboundLinksLeadOnCreation(t *testing.T) {
	repo := newFakeRepo()
	repo.created = true
	leadID := uuid.New()
	svc := New(repo, &fakeResponder{reply: "hi"}, ai.MarkerClassifier{}, &fakeSMS{}, &fakeLeads{id: leadID}, &recordingBus{}, testLogger())

	if err := svc.Inbound(context.Background(), "7195551234", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.ensureLead == nil || *repo.ensureLead != leadID {
		t.Fatalf("most recent lead must be linked at creation, got %v", repo.ensureLead)
	}
}

func TestOperatorReplySendsAndRecords(t *testing.T) {
	repo := newFakeRepo()
	sms := &fakeSMS{}
	svc := New(repo, nil, ai.MarkerClassifier{}, sms, nil, nil, testLogger())

	resp, err := svc.OperatorReply(context.Background(), repo.conversation.ID, transport.OperatorReplyRequest{Body: "On my way, give me 20 minutes."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.appended) != 1 || repo.appended[0].Role != repository.RoleAssistant {
		t.Fatalf("operator reply must be recorded as assistant: %v", repo.appended)
	}
	if len(sms.sent) != 1 || sms.to[0] != repo.conversation.PhoneNumber {
		t.Fatalf("reply not delivered: %v -> %v", sms.sent, sms.to)
	}
	if resp.Status != "active" {
		t.Fatalf("operator reply must not change status, got %s", resp.Status)
	}
}
