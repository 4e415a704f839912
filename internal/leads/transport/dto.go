package transport

import (
	"time"

	"github.com/google/uuid"
)

// Enum values
type LeadSource string

const (
	SourceContest    LeadSource = "contest"
	SourcePartner    LeadSource = "partner"
	SourceMissedCall LeadSource = "missed_call"
	SourceWebsite    LeadSource = "website"
)

type LeadStatus string

const (
	StatusNew       LeadStatus = "new"
	StatusContacted LeadStatus = "contacted"
	StatusQuoted    LeadStatus = "quoted"
	StatusScheduled LeadStatus = "scheduled"
	StatusWon       LeadStatus = "won"
	StatusLost      LeadStatus = "lost"
)

// Request DTOs
type CreateLeadRequest struct {
	Source     LeadSource `json:"source" validate:"required,oneof=contest partner missed_call website"`
	Phone      string     `json:"phone" validate:"required,min=5,max=20"`
	Name       string     `json:"name,omitempty" validate:"omitempty,max=200"`
	Email      string     `json:"email,omitempty" validate:"omitempty,email"`
	Location   string     `json:"location,omitempty" validate:"omitempty,max=200"`
	Notes      string     `json:"notes,omitempty" validate:"omitempty,max=2000"`
	PartnerID  *uuid.UUID `json:"partnerId,omitempty"`
	SightingID *uuid.UUID `json:"sightingId,omitempty"`
}

type UpdateLeadRequest struct {
	Status   *LeadStatus `json:"status,omitempty" validate:"omitempty,oneof=new contacted quoted scheduled won lost"`
	Notes    *string     `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Name     *string     `json:"name,omitempty" validate:"omitempty,max=200"`
	Email    *string     `json:"email,omitempty" validate:"omitempty,email"`
	Location *string     `json:"location,omitempty" validate:"omitempty,max=200"`
}

// MissedCallWebhook is the telephony provider's webhook payload. The
// provider posts many event kinds through one endpoint; only a terminated
// inbound call represents a missed caller worth capturing.
type MissedCallWebhook struct {
	CallID string `json:"callId"`
	Event  struct {
		Type string `json:"type"`
		Call struct {
			Direction string `json:"direction"`
			State     string `json:"state"`
			From      struct {
				PhoneNumber string `json:"phoneNumber"`
				Name        string `json:"name"`
			} `json:"from"`
		} `json:"call"`
	} `json:"event"`
}

// MissedCaller extracts the inbound caller from a terminated-call event.
// ok is false for every other payload shape; those events are acknowledged
// and dropped without creating a lead.
func (w MissedCallWebhook) MissedCaller() (phone, name string, ok bool) {
	call := w.Event.Call
	if w.Event.Type != "call.terminated" || call.Direction != "inbound" {
		return "", "", false
	}
	if call.From.PhoneNumber == "" {
		return "", "", false
	}
	return call.From.PhoneNumber, call.From.Name, true
}

// Response DTOs
type LeadResponse struct {
	ID             uuid.UUID  `json:"id"`
	Source         LeadSource `json:"source"`
	Phone          string     `json:"phone"`
	Name           string     `json:"name,omitempty"`
	Email          string     `json:"email,omitempty"`
	Location       string     `json:"location,omitempty"`
	Status         LeadStatus `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	PartnerID      *uuid.UUID `json:"partnerId,omitempty"`
	SightingID     *uuid.UUID `json:"sightingId,omitempty"`
	ContactedAt    *time.Time `json:"contactedAt,omitempty"`
	ScheduledAt    *time.Time `json:"scheduledAt,omitempty"`
	WonAt          *time.Time `json:"wonAt,omitempty"`
	Day3SMSSentAt  *time.Time `json:"day3SmsSentAt,omitempty"`
	Day7SMSSentAt  *time.Time `json:"day7SmsSentAt,omitempty"`
	Day14SMSSentAt *time.Time `json:"day14SmsSentAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// CreateLeadResponse reports whether the create was absorbed by the
// 24-hour dedup window.
type CreateLeadResponse struct {
	Lead      LeadResponse `json:"lead"`
	Duplicate bool         `json:"duplicate"`
}

type ListLeadsResponse struct {
	Items    []LeadResponse `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}
