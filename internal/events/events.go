// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"sasquatch_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is created (not on deduplicated
// re-ingestion of the same contact).
type LeadCreated struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Source string    `json:"source"`
	Phone  string    `json:"phone"`
	Name   string    `json:"name,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// =============================================================================
// Conversation Domain Events
// =============================================================================

// ConversationEscalated is published whenever a conversation needs a human:
// classifier-flagged replies, reply-generation failures, and manual
// escalations all end up here.
type ConversationEscalated struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	Phone          string    `json:"phone"`
	Reason         string    `json:"reason"`
	UserMessage    string    `json:"userMessage,omitempty"`
	ReplyText      string    `json:"replyText,omitempty"`
}

func (e ConversationEscalated) EventName() string { return "conversations.escalated" }

// OperatorReplyNeeded is published when an inbound message arrives on a
// conversation with automation off; the message sits unanswered until a
// human replies.
type OperatorReplyNeeded struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	Phone          string    `json:"phone"`
	Body           string    `json:"body"`
}

func (e OperatorReplyNeeded) EventName() string { return "conversations.operator_reply_needed" }

// =============================================================================
// Referral Domain Events
// =============================================================================

// ReferralConverted is published after a referral's transition into
// 'converted' has committed, balance write included.
type ReferralConverted struct {
	BaseEvent
	ReferralID       uuid.UUID `json:"referralId"`
	PartnerID        uuid.UUID `json:"partnerId"`
	PartnerPhone     string    `json:"partnerPhone"`
	PartnerName      string    `json:"partnerName"`
	ClientName       string    `json:"clientName"`
	CreditCents      int64     `json:"creditCents"`
	NewBalanceCents  int64     `json:"newBalanceCents"`
	TotalConversions int       `json:"totalConversions"`
}

func (e ReferralConverted) EventName() string { return "partners.referral.converted" }
