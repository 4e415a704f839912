package transport

import (
	"time"

	"github.com/google/uuid"
)

type ConversationStatus string

const (
	StatusActive    ConversationStatus = "active"
	StatusCompleted ConversationStatus = "completed"
	StatusEscalated ConversationStatus = "escalated"
)

// Request DTOs
type UpdateStatusRequest struct {
	Status ConversationStatus `json:"status" validate:"required,oneof=active completed escalated"`
}

type OperatorReplyRequest struct {
	Body string `json:"body" validate:"required,min=1,max=1600"`
}

type ToggleAIRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type UpdateAutomationRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// Response DTOs
type MessageResponse struct {
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type ConversationResponse struct {
	ID          uuid.UUID          `json:"id"`
	PhoneNumber string             `json:"phoneNumber"`
	Source      string             `json:"source"`
	LeadID      *uuid.UUID         `json:"leadId,omitempty"`
	AIEnabled   bool               `json:"aiEnabled"`
	Status      ConversationStatus `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	Messages    []MessageResponse  `json:"messages,omitempty"`
}

type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
	Total         int                    `json:"total"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"pageSize"`
}

type AutomationSettingsResponse struct {
	AIAutoReplyEnabled bool `json:"aiAutoReplyEnabled"`
}
