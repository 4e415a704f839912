package handler

import (
	"context"
	"log/slog"
	"net/http"

	leadstransport "sasquatch_backend/internal/leads/transport"
	"sasquatch_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// twimlEmpty is the no-op reply envelope for the SMS provider: the reply,
// if any, goes out through the gateway client, not the webhook response.
const twimlEmpty = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// IdempotencyStore remembers provider event ids across deliveries.
type IdempotencyStore interface {
	MarkSeen(ctx context.Context, providerEventID, kind string) (bool, error)
}

// ConversationIngester feeds inbound SMS into the conversation engine.
type ConversationIngester interface {
	Inbound(ctx context.Context, phone, body string) error
}

// MissedCallIngester turns missed-call events into leads.
type MissedCallIngester interface {
	IngestMissedCall(ctx context.Context, payload leadstransport.MissedCallWebhook) (leadstransport.CreateLeadResponse, bool, error)
}

// Handler receives provider webhooks. Every request is acknowledged with
// the provider's expected 200 envelope, including drops and internal
// failures; provider-side retries are handled by the seen-set, not by
// error statuses.
type Handler struct {
	store         IdempotencyStore
	conversations ConversationIngester
	missedCalls   MissedCallIngester
	log           *logger.Logger
}

// New creates a new webhook handler.
func New(store IdempotencyStore, conversations ConversationIngester, missedCalls MissedCallIngester, log *logger.Logger) *Handler {
	return &Handler{store: store, conversations: conversations, missedCalls: missedCalls, log: log}
}

// RegisterRoutes mounts the provider webhook routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sms", h.InboundSMS)
	rg.POST("/missed-call", h.MissedCall)
}

// InboundSMS handles the SMS provider's form-encoded delivery.
func (h *Handler) InboundSMS(c *gin.Context) {
	from := c.PostForm("From")
	body := c.PostForm("Body")
	sid := c.PostForm("MessageSid")

	defer c.Data(http.StatusOK, "text/xml", []byte(twimlEmpty))

	if from == "" || body == "" {
		h.log.WebhookDropped("sms", "missing sender or body", sid)
		return
	}
	if sid != "" && h.store != nil {
		first, err := h.store.MarkSeen(c.Request.Context(), sid, "sms")
		if err != nil {
			h.log.DatabaseError("mark webhook seen", err)
			// Fail open: a broken seen-set must not drop real messages.
		} else if !first {
			h.log.WebhookDropped("sms", "duplicate delivery", sid)
			return
		}
	}

	if err := h.conversations.Inbound(c.Request.Context(), from, body); err != nil {
		h.log.Error("inbound_sms_failed",
			slog.String("provider_id", sid),
			slog.String("error", err.Error()),
		)
	}
}

// MissedCall handles the telephony provider's JSON call events.
func (h *Handler) MissedCall(c *gin.Context) {
	defer c.JSON(http.StatusOK, gin.H{})

	var payload leadstransport.MissedCallWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.log.WebhookDropped("missed_call", "malformed payload", "")
		return
	}

	if payload.CallID != "" && h.store != nil {
		first, err := h.store.MarkSeen(c.Request.Context(), payload.CallID, "missed_call")
		if err != nil {
			h.log.DatabaseError("mark webhook seen", err)
		} else if !first {
			h.log.WebhookDropped("missed_call", "duplicate delivery", payload.CallID)
			return
		}
	}

	if _, created, err := h.missedCalls.IngestMissedCall(c.Request.Context(), payload); err != nil {
		h.log.Error("missed_call_ingest_failed",
			slog.String("provider_id", payload.CallID),
			slog.String("error", err.Error()),
		)
	} else if !created {
		h.log.WebhookDropped("missed_call", "non-qualifying call event", payload.CallID)
	}
}
