package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sasquatch_backend/internal/events"
	"sasquatch_backend/internal/push"
	"sasquatch_backend/platform/logger"
	platformevents "sasquatch_backend/platform/events"

	"github.com/google/uuid"
)

type fakeAdminSMS struct {
	bodies []string
	err    error
}

func (f *fakeAdminSMS) SendAdminSMS(_ context.Context, body string) error {
	if f.err != nil {
		return f.err
	}
	f.bodies = append(f.bodies, body)
	return nil
}

type fakePartnerSMS struct {
	to     []string
	bodies []string
}

func (f *fakePartnerSMS) SendPartnerSMS(_ context.Context, to, body string) error {
	f.to = append(f.to, to)
	f.bodies = append(f.bodies, body)
	return nil
}

type fakePush struct {
	notifications []push.Notification
}

func (f *fakePush) Notify(_ context.Context, n push.Notification) {
	f.notifications = append(f.notifications, n)
}

type fakeEmail struct {
	subjects []string
}

func (f *fakeEmail) SendEscalation(_ context.Context, subject, _ string) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

func newTestModule(t *testing.T) (*Module, events.Bus) {
	t.Helper()
	bus := platformevents.NewInMemoryBus(logger.New("development"))
	return NewModule(bus, logger.New("development")), bus
}

func TestEscalationFansOutToAllChannels(t *testing.T) {
	m, bus := newTestModule(t)
	admin := &fakeAdminSMS{}
	pushed := &fakePush{}
	mail := &fakeEmail{}
	m.SetAdminSMS(admin)
	m.SetPush(pushed)
	m.SetEmail(mail)

	err := bus.PublishSync(context.Background(), events.ConversationEscalated{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: uuid.New(),
		Phone:          "+17195551234",
		Reason:         "assistant flagged handoff",
		UserMessage:    "I need a person, now.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(admin.bodies) != 1 || !strings.Contains(admin.bodies[0], "+17195551234") {
		t.Fatalf("admin SMS missing or malformed: %v", admin.bodies)
	}
	if len(pushed.notifications) != 1 || pushed.notifications[0].Heading != "Conversation escalated" {
		t.Fatalf("push missing or malformed: %v", pushed.notifications)
	}
	if len(mail.subjects) != 1 {
		t.Fatalf("escalation email missing: %v", mail.subjects)
	}
}

func TestEscalationSurvivesChannelFailure(t *testing.T) {
	m, bus := newTestModule(t)
	admin := &fakeAdminSMS{err: errors.New("provider down")}
	pushed := &fakePush{}
	m.SetAdminSMS(admin)
	m.SetPush(pushed)

	err := bus.PublishSync(context.Background(), events.ConversationEscalated{
		BaseEvent: events.NewBaseEvent(),
		Phone:     "+17195551234",
		Reason:    "reply generation failed",
	})
	if err != nil {
		t.Fatalf("channel failure must not fail the handler: %v", err)
	}
	if len(pushed.notifications) != 1 {
		t.Fatal("remaining channels must still fire")
	}
}

func TestReferralConversionTextsThePartner(t *testing.T) {
	m, bus := newTestModule(t)
	partner := &fakePartnerSMS{}
	m.SetPartnerSMS(partner)

	err := bus.PublishSync(context.Background(), events.ReferralConverted{
		BaseEvent:        events.NewBaseEvent(),
		ReferralID:       uuid.New(),
		PartnerID:        uuid.New(),
		PartnerPhone:     "+17195550100",
		PartnerName:      "Hops & Dreams",
		ClientName:       "Pat Client",
		CreditCents:      2500,
		NewBalanceCents:  7500,
		TotalConversions: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(partner.bodies) != 1 {
		t.Fatalf("expected one partner SMS, got %d", len(partner.bodies))
	}
	body := partner.bodies[0]
	for _, want := range []string{"$25.00", "$75.00", "3 referrals"} {
		if !strings.Contains(body, want) {
			t.Fatalf("partner SMS missing %q: %q", want, body)
		}
	}
	if partner.to[0] != "+17195550100" {
		t.Fatalf("sent to %q", partner.to[0])
	}
}

func TestReferralConversionWithoutPhoneSkipsSMS(t *testing.T) {
	m, bus := newTestModule(t)
	partner := &fakePartnerSMS{}
	pushed := &fakePush{}
	m.SetPartnerSMS(partner)
	m.SetPush(pushed)

	err := bus.PublishSync(context.Background(), events.ReferralConverted{
		BaseEvent:   events.NewBaseEvent(),
		PartnerName: "Hops & Dreams",
		ClientName:  "Pat Client",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(partner.bodies) != 0 {
		t.Fatal("no phone on file means no partner SMS")
	}
	if len(pushed.notifications) != 1 {
		t.Fatal("operator push still fires")
	}
}

func TestOperatorReplyNeededNotifies(t *testing.T) {
	m, bus := newTestModule(t)
	admin := &fakeAdminSMS{}
	m.SetAdminSMS(admin)

	err := bus.PublishSync(context.Background(), events.OperatorReplyNeeded{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: uuid.New(),
		Phone:          "+17195551234",
		Body:           "Can someone call me back?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(admin.bodies) != 1 || !strings.Contains(admin.bodies[0], "auto-reply off") {
		t.Fatalf("admin SMS missing or malformed: %v", admin.bodies)
	}
}
