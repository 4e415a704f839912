package service

import (
	"context"
	"errors"
	"log/slog"

	"sasquatch_backend/internal/ai"
	"sasquatch_backend/internal/conversations/repository"
	"sasquatch_backend/internal/conversations/transport"
	"sasquatch_backend/internal/events"
	"sasquatch_backend/platform/apperr"
	"sasquatch_backend/platform/logger"
	"sasquatch_backend/platform/phone"

	"github.com/google/uuid"
)

// ConversationsRepository is the persistence surface the service needs.
type ConversationsRepository interface {
	EnsureActive(ctx context.Context, phone, source string, leadID *uuid.UUID) (repository.Conversation, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Conversation, error)
	List(ctx context.Context, status string, limit, offset int) ([]repository.Conversation, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (repository.Conversation, error)
	SetAIEnabled(ctx context.Context, id uuid.UUID, enabled bool) (repository.Conversation, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string) (repository.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]repository.Message, error)
	AutomationEnabled(ctx context.Context) (bool, error)
	SetAutomationEnabled(ctx context.Context, enabled bool) error
}

// Responder generates a reply from the conversation history.
type Responder interface {
	Generate(ctx context.Context, history []ai.HistoryMessage) (string, error)
}

// Classifier decides whether a generated reply needs human follow-up.
type Classifier interface {
	ShouldEscalate(replyText string) bool
}

// SMSSender delivers the reply to the customer.
type SMSSender interface {
	SendCustomerSMS(ctx context.Context, to, body string) error
}

// LeadLookup resolves the most recent lead for a phone number, used once
// when a conversation is created.
type LeadLookup interface {
	LatestIDByPhone(ctx context.Context, phone string) (uuid.UUID, error)
}

// Service drives the two-way SMS conversation engine.
type Service struct {
	repo       ConversationsRepository
	responder  Responder
	classifier Classifier
	sms        SMSSender
	leads      LeadLookup
	bus        events.Bus
	log        *logger.Logger
}

// New creates a new conversations service. responder may be nil when no
// model is configured; every inbound message then goes to an operator.
func New(repo ConversationsRepository, responder Responder, classifier Classifier, sms SMSSender, leads LeadLookup, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		responder:  responder,
		classifier: classifier,
		sms:        sms,
		leads:      leads,
		bus:        bus,
		log:        log,
	}
}

// Inbound processes one customer SMS: find-or-create the active
// conversation, append the message, and either auto-reply or hand off to
// an operator. Failures past the message append never bubble up to the
// webhook; the customer's message is already on record.
func (s *Service) Inbound(ctx context.Context, rawPhone, body string) error {
	phoneNumber := phone.Normalize(rawPhone)
	if phoneNumber == "" {
		return apperr.Validation("missing sender phone number")
	}

	conv, created, err := s.ensureConversation(ctx, phoneNumber)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to resolve conversation", err)
	}
	if created {
		s.log.Info("conversation_started", slog.String("phone", phoneNumber))
	}

	if _, err := s.repo.AppendMessage(ctx, conv.ID, repository.RoleUser, body); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to record message", err)
	}

	automationOn, err := s.repo.AutomationEnabled(ctx)
	if err != nil {
		s.log.DatabaseError("read automation settings", err)
		automationOn = true
	}

	if s.responder == nil || !automationOn || !conv.AIEnabled {
		if s.bus != nil {
			s.bus.Publish(ctx, events.OperatorReplyNeeded{
				BaseEvent:      events.NewBaseEvent(),
				ConversationID: conv.ID,
				Phone:          phoneNumber,
				Body:           body,
			})
		}
		return nil
	}

	s.autoReply(ctx, conv, body)
	return nil
}

func (s *Service) ensureConversation(ctx context.Context, phoneNumber string) (repository.Conversation, bool, error) {
	// Lead linkage is best-effort and resolved once, at creation.
	var leadID *uuid.UUID
	if s.leads != nil {
		if id, err := s.leads.LatestIDByPhone(ctx, phoneNumber); err == nil && id != uuid.Nil {
			leadID = &id
		}
	}
	return s.repo.EnsureActive(ctx, phoneNumber, "sms", leadID)
}

func (s *Service) autoReply(ctx context.Context, conv repository.Conversation, userMessage string) {
	history, err := s.repo.ListMessages(ctx, conv.ID)
	if err != nil {
		s.failGeneration(ctx, conv, userMessage, err)
		return
	}

	aiHistory := make([]ai.HistoryMessage, 0, len(history))
	for _, m := range history {
		aiHistory = append(aiHistory, ai.HistoryMessage{Role: m.Role, Content: m.Content})
	}

	reply, err := s.responder.Generate(ctx, aiHistory)
	if err != nil {
		s.failGeneration(ctx, conv, userMessage, err)
		return
	}

	outbound := ai.StripMarker(reply)
	if _, err := s.repo.AppendMessage(ctx, conv.ID, repository.RoleAssistant, outbound); err != nil {
		s.failGeneration(ctx, conv, userMessage, err)
		return
	}

	if s.classifier != nil && s.classifier.ShouldEscalate(reply) {
		s.escalate(ctx, conv, "assistant flagged handoff", userMessage, outbound)
	}

	if outbound != "" && s.sms != nil {
		if err := s.sms.SendCustomerSMS(ctx, conv.PhoneNumber, outbound); err != nil {
			s.log.Error("reply_send_failed",
				slog.String("conversation_id", conv.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// failGeneration records the failure in the conversation itself and
// escalates. The customer gets no reply, but an operator always hears
// about it.
func (s *Service) failGeneration(ctx context.Context, conv repository.Conversation, userMessage string, cause error) {
	if _, err := s.repo.AppendMessage(ctx, conv.ID, repository.RoleSystem, "ERROR: "+cause.Error()); err != nil {
		s.log.DatabaseError("record generation failure", err)
	}
	s.escalate(ctx, conv, "reply generation failed: "+cause.Error(), userMessage, "")
}

func (s *Service) escalate(ctx context.Context, conv repository.Conversation, reason, userMessage, replyText string) {
	if _, err := s.repo.UpdateStatus(ctx, conv.ID, repository.StatusEscalated); err != nil {
		s.log.DatabaseError("escalate conversation", err)
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.ConversationEscalated{
			BaseEvent:      events.NewBaseEvent(),
			ConversationID: conv.ID,
			Phone:          conv.PhoneNumber,
			Reason:         reason,
			UserMessage:    userMessage,
			ReplyText:      replyText,
		})
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.ConversationResponse, error) {
	conv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ConversationResponse{}, mapRepoError(err, "failed to load conversation")
	}
	msgs, err := s.repo.ListMessages(ctx, id)
	if err != nil {
		return transport.ConversationResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load messages", err)
	}
	return toResponse(conv, msgs), nil
}

func (s *Service) List(ctx context.Context, status string, page, pageSize int) (transport.ListConversationsResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	convs, total, err := s.repo.List(ctx, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return transport.ListConversationsResponse{}, apperr.Wrap(apperr.KindInternal, "failed to list conversations", err)
	}

	resp := transport.ListConversationsResponse{
		Conversations: make([]transport.ConversationResponse, 0, len(convs)),
		Total:         total,
		Page:          page,
		PageSize:      pageSize,
	}
	for _, conv := range convs {
		resp.Conversations = append(resp.Conversations, toResponse(conv, nil))
	}
	return resp, nil
}

// UpdateStatus is the operator's status control: complete, reopen, or
// escalate by hand.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req transport.UpdateStatusRequest) (transport.ConversationResponse, error) {
	conv, err := s.repo.UpdateStatus(ctx, id, string(req.Status))
	if err != nil {
		return transport.ConversationResponse{}, mapRepoError(err, "failed to update conversation")
	}
	return toResponse(conv, nil), nil
}

// OperatorReply appends a human-written assistant message and sends it to
// the customer. The conversation status is left alone; completing an
// escalation is a separate, deliberate step.
func (s *Service) OperatorReply(ctx context.Context, id uuid.UUID, req transport.OperatorReplyRequest) (transport.ConversationResponse, error) {
	conv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ConversationResponse{}, mapRepoError(err, "failed to load conversation")
	}

	if _, err := s.repo.AppendMessage(ctx, conv.ID, repository.RoleAssistant, req.Body); err != nil {
		return transport.ConversationResponse{}, apperr.Wrap(apperr.KindInternal, "failed to record reply", err)
	}

	if s.sms != nil {
		if err := s.sms.SendCustomerSMS(ctx, conv.PhoneNumber, req.Body); err != nil {
			return transport.ConversationResponse{}, apperr.Wrap(apperr.KindInternal, "failed to send reply", err)
		}
	}

	msgs, err := s.repo.ListMessages(ctx, conv.ID)
	if err != nil {
		return transport.ConversationResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load messages", err)
	}
	return toResponse(conv, msgs), nil
}

func (s *Service) SetAIEnabled(ctx context.Context, id uuid.UUID, enabled bool) (transport.ConversationResponse, error) {
	conv, err := s.repo.SetAIEnabled(ctx, id, enabled)
	if err != nil {
		return transport.ConversationResponse{}, mapRepoError(err, "failed to update conversation")
	}
	return toResponse(conv, nil), nil
}

func (s *Service) AutomationSettings(ctx context.Context) (transport.AutomationSettingsResponse, error) {
	enabled, err := s.repo.AutomationEnabled(ctx)
	if err != nil {
		return transport.AutomationSettingsResponse{}, apperr.Wrap(apperr.KindInternal, "failed to read settings", err)
	}
	return transport.AutomationSettingsResponse{AIAutoReplyEnabled: enabled}, nil
}

func (s *Service) SetAutomation(ctx context.Context, enabled bool) (transport.AutomationSettingsResponse, error) {
	if err := s.repo.SetAutomationEnabled(ctx, enabled); err != nil {
		return transport.AutomationSettingsResponse{}, apperr.Wrap(apperr.KindInternal, "failed to update settings", err)
	}
	return transport.AutomationSettingsResponse{AIAutoReplyEnabled: enabled}, nil
}

func mapRepoError(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("conversation not found")
	}
	return apperr.Wrap(apperr.KindInternal, msg, err)
}

func toResponse(conv repository.Conversation, msgs []repository.Message) transport.ConversationResponse {
	resp := transport.ConversationResponse{
		ID:          conv.ID,
		PhoneNumber: conv.PhoneNumber,
		Source:      conv.Source,
		LeadID:      conv.LeadID,
		AIEnabled:   conv.AIEnabled,
		Status:      transport.ConversationStatus(conv.Status),
		CreatedAt:   conv.CreatedAt,
		UpdatedAt:   conv.UpdatedAt,
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, transport.MessageResponse{
			Seq:       m.Seq,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return resp
}
