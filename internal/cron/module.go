// Package cron exposes the scheduled jobs as HTTP endpoints so an
// external scheduler can drive them. Authentication (bearer secret) is
// enforced by the router on the whole group.
package cron

import (
	"context"
	"net/http"

	apphttp "sasquatch_backend/internal/http"
	nurtureservice "sasquatch_backend/internal/nurture/service"
	stationservice "sasquatch_backend/internal/stationhealth/service"
	"sasquatch_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// NurtureRunner runs one drip pass.
type NurtureRunner interface {
	Run(ctx context.Context) (nurtureservice.RunReport, error)
}

// StationHealthRunner runs one station inactivity pass.
type StationHealthRunner interface {
	Run(ctx context.Context) (stationservice.RunReport, error)
}

// Module is the cron endpoints module implementing http.Module.
type Module struct {
	nurture       NurtureRunner
	stationHealth StationHealthRunner
}

// NewModule creates the cron module over the two job services.
func NewModule(nurture NurtureRunner, stationHealth StationHealthRunner) *Module {
	return &Module{nurture: nurture, stationHealth: stationHealth}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "cron"
}

// RegisterRoutes mounts the job trigger routes on the cron group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Cron.GET("/nurture", m.runNurture)
	ctx.Cron.GET("/station-health", m.runStationHealth)
}

func (m *Module) runNurture(c *gin.Context) {
	report, err := m.nurture.Run(c.Request.Context())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "nurture run failed", nil)
		return
	}
	httpkit.OK(c, report)
}

func (m *Module) runStationHealth(c *gin.Context) {
	report, err := m.stationHealth.Run(c.Request.Context())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "station health run failed", nil)
		return
	}
	httpkit.OK(c, report)
}

var _ apphttp.Module = (*Module)(nil)
