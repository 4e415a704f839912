// Package webhook receives inbound provider events (SMS, call status)
// and routes them into the conversation engine and the lead store.
package webhook

import (
	apphttp "sasquatch_backend/internal/http"
	"sasquatch_backend/internal/webhook/handler"
	"sasquatch_backend/internal/webhook/repository"
	"sasquatch_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook ingestion module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the webhook module. The conversation
// and missed-call ingesters are owned by their own modules.
func NewModule(pool *pgxpool.Pool, conversations handler.ConversationIngester, missedCalls handler.MissedCallIngester, log *logger.Logger) *Module {
	repo := repository.New(pool)
	h := handler.New(repo, conversations, missedCalls, log)

	return &Module{handler: h}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts provider webhook routes on the public webhook group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Webhooks)
}

var _ apphttp.Module = (*Module)(nil)
