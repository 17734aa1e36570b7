package handler

import (
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/freightdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping() error
}

type poolReporter interface {
	PoolStats() sql.DBStats
}

// PoolInfo is the connection pool section of the health payload
type PoolInfo struct {
	Open  int `json:"open"`
	InUse int `json:"in_use"`
	Idle  int `json:"idle"`
}

// HealthHandler serves liveness and build information
type HealthHandler struct {
	BaseHandler
	name      string
	version   string
	db        Pinger
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(name, version string, db Pinger) *HealthHandler {
	return &HealthHandler{
		name:      name,
		version:   version,
		db:        db,
		startTime: time.Now(),
	}
}

// HealthResponse is the health check payload
type HealthResponse struct {
	Status    string `json:"status"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Database  string    `json:"database"`
	Pool      *PoolInfo `json:"pool,omitempty"`
}

// Health reports 200 when the database answers and 503 otherwise
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Database:  "up",
	}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			resp.Status = "degraded"
			resp.Database = "down"
			status = http.StatusServiceUnavailable
		}
		if p, ok := h.db.(poolReporter); ok {
			st := p.PoolStats()
			resp.Pool = &PoolInfo{Open: st.OpenConnections, InUse: st.InUse, Idle: st.Idle}
		}
	}

	c.JSON(status, dto.NewSuccessResponse(resp))
}
