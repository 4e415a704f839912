// Package notification subscribes to domain events and fans them out to
// the operator (SMS, push, email) and to partners (SMS). Every send here
// is best-effort: a notification that fails to deliver is logged and
// dropped, never retried into the publishing flow.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"sasquatch_backend/internal/events"
	apphttp "sasquatch_backend/internal/http"
	"sasquatch_backend/internal/push"
	"sasquatch_backend/platform/logger"
)

// AdminSMS sends to the configured operator phone.
type AdminSMS interface {
	SendAdminSMS(ctx context.Context, body string) error
}

// PartnerSMS sends to a partner phone.
type PartnerSMS interface {
	SendPartnerSMS(ctx context.Context, to, body string) error
}

// Push delivers operator push notifications.
type Push interface {
	Notify(ctx context.Context, n push.Notification)
}

// Email delivers operator escalation mail.
type Email interface {
	SendEscalation(ctx context.Context, subject, body string) error
}

// Module wires domain events to outbound notification channels. Channels
// are attached with setters; anything left unset is simply skipped.
type Module struct {
	log *logger.Logger

	adminSMS   AdminSMS
	partnerSMS PartnerSMS
	push       Push
	email      Email
}

// NewModule creates the notification module and subscribes it to the bus.
func NewModule(bus events.Bus, log *logger.Logger) *Module {
	m := &Module{log: log}

	bus.Subscribe(events.ConversationEscalated{}.EventName(), events.HandlerFunc(m.onConversationEscalated))
	bus.Subscribe(events.OperatorReplyNeeded{}.EventName(), events.HandlerFunc(m.onOperatorReplyNeeded))
	bus.Subscribe(events.ReferralConverted{}.EventName(), events.HandlerFunc(m.onReferralConverted))
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(m.onLeadCreated))

	return m
}

// SetAdminSMS attaches the operator SMS channel.
func (m *Module) SetAdminSMS(c AdminSMS) { m.adminSMS = c }

// SetPartnerSMS attaches the partner SMS channel.
func (m *Module) SetPartnerSMS(c PartnerSMS) { m.partnerSMS = c }

// SetPush attaches the operator push channel.
func (m *Module) SetPush(c Push) { m.push = c }

// SetEmail attaches the operator email channel.
func (m *Module) SetEmail(c Email) { m.email = c }

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes is a no-op; this module only consumes events.
func (m *Module) RegisterRoutes(*apphttp.RouterContext) {}

func (m *Module) onConversationEscalated(ctx context.Context, e events.Event) error {
	escalated, ok := e.(events.ConversationEscalated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", e)
	}

	body := fmt.Sprintf("Conversation with %s needs you (%s).", escalated.Phone, escalated.Reason)
	if escalated.UserMessage != "" {
		body += fmt.Sprintf(" Customer: %q", truncate(escalated.UserMessage, 160))
	}

	if m.adminSMS != nil {
		if err := m.adminSMS.SendAdminSMS(ctx, body); err != nil {
			m.logSendFailure("admin_sms", e, err)
		}
	}
	if m.push != nil {
		m.push.Notify(ctx, push.Notification{
			Heading: "Conversation escalated",
			Content: body,
			Data:    map[string]string{"conversationId": escalated.ConversationID.String()},
		})
	}
	if m.email != nil {
		subject := "Escalated conversation: " + escalated.Phone
		detail := fmt.Sprintf("Reason: %s\nPhone: %s\n\nCustomer message:\n%s\n\nLast reply:\n%s\n",
			escalated.Reason, escalated.Phone, escalated.UserMessage, escalated.ReplyText)
		if err := m.email.SendEscalation(ctx, subject, detail); err != nil {
			m.logSendFailure("email", e, err)
		}
	}
	return nil
}

func (m *Module) onOperatorReplyNeeded(ctx context.Context, e events.Event) error {
	needed, ok := e.(events.OperatorReplyNeeded)
	if !ok {
		return fmt.Errorf("unexpected event type %T", e)
	}

	body := fmt.Sprintf("New message from %s (auto-reply off): %q", needed.Phone, truncate(needed.Body, 160))
	if m.adminSMS != nil {
		if err := m.adminSMS.SendAdminSMS(ctx, body); err != nil {
			m.logSendFailure("admin_sms", e, err)
		}
	}
	if m.push != nil {
		m.push.Notify(ctx, push.Notification{
			Heading: "Reply needed",
			Content: body,
			Data:    map[string]string{"conversationId": needed.ConversationID.String()},
		})
	}
	return nil
}

func (m *Module) onReferralConverted(ctx context.Context, e events.Event) error {
	converted, ok := e.(events.ReferralConverted)
	if !ok {
		return fmt.Errorf("unexpected event type %T", e)
	}

	if m.partnerSMS != nil && converted.PartnerPhone != "" {
		body := fmt.Sprintf("Great news %s! %s just booked with us. You earned $%.2f in credit "+
			"(balance $%.2f, %d referrals converted so far). Thank you!",
			converted.PartnerName, converted.ClientName,
			float64(converted.CreditCents)/100, float64(converted.NewBalanceCents)/100,
			converted.TotalConversions)
		if err := m.partnerSMS.SendPartnerSMS(ctx, converted.PartnerPhone, body); err != nil {
			m.logSendFailure("partner_sms", e, err)
		}
	}
	if m.push != nil {
		m.push.Notify(ctx, push.Notification{
			Heading: "Referral converted",
			Content: fmt.Sprintf("%s converted a referral (%s).", converted.PartnerName, converted.ClientName),
			Data:    map[string]string{"referralId": converted.ReferralID.String()},
		})
	}
	return nil
}

func (m *Module) onLeadCreated(ctx context.Context, e events.Event) error {
	created, ok := e.(events.LeadCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", e)
	}

	if m.push != nil {
		content := fmt.Sprintf("New %s lead: %s", created.Source, created.Phone)
		if created.Name != "" {
			content = fmt.Sprintf("New %s lead: %s (%s)", created.Source, created.Name, created.Phone)
		}
		m.push.Notify(ctx, push.Notification{
			Heading: "New lead",
			Content: content,
			Data:    map[string]string{"leadId": created.LeadID.String()},
		})
	}
	return nil
}

func (m *Module) logSendFailure(channel string, e events.Event, err error) {
	m.log.Error("notification_send_failed",
		slog.String("channel", channel),
		slog.String("event", e.EventName()),
		slog.String("error", err.Error()),
	)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

var _ apphttp.Module = (*Module)(nil)
