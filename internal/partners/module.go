// Package partners provides the partner and referral credit ledger
// bounded context.
package partners

import (
	"sasquatch_backend/internal/events"
	apphttp "sasquatch_backend/internal/http"
	"sasquatch_backend/internal/partners/handler"
	"sasquatch_backend/internal/partners/repository"
	"sasquatch_backend/internal/partners/service"
	"sasquatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the partners bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the partners module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "partners"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for cross-module adapters
// (station health partner scans).
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts partner and referral routes on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/partners"), ctx.Admin.Group("/referrals"))
}

var _ apphttp.Module = (*Module)(nil)
