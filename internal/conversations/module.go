// Package conversations provides the two-way SMS conversation engine
// bounded context.
package conversations

import (
	"sasquatch_backend/internal/conversations/handler"
	"sasquatch_backend/internal/conversations/repository"
	"sasquatch_backend/internal/conversations/service"
	"sasquatch_backend/internal/events"
	apphttp "sasquatch_backend/internal/http"
	"sasquatch_backend/platform/logger"
	"sasquatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the conversations bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the conversations module. responder,
// classifier, sms, and leads are collaborator surfaces owned elsewhere;
// responder may be nil when no model is configured.
func NewModule(
	pool *pgxpool.Pool,
	responder service.Responder,
	classifier service.Classifier,
	sms service.SMSSender,
	leads service.LeadLookup,
	eventBus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, responder, classifier, sms, leads, eventBus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conversations"
}

// Service returns the service layer for external use (webhook ingestion).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts conversation routes on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/conversations"), ctx.Admin.Group("/settings/automation"))
}

var _ apphttp.Module = (*Module)(nil)
