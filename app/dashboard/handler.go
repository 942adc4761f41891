package dashboard

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/skuportal/inventory/app/api"
	"github.com/skuportal/inventory/reporting"
)

const pingTimeout = 3 * time.Second

type StatsProvider interface {
	Stats(ctx context.Context) (*reporting.Stats, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// SnapshotStatus reports whether snapshots are on and how the last write went.
type SnapshotStatus interface {
	Enabled() bool
	Err() error
}

type HealthResponse struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Snapshot string `json:"snapshot"`
}

type DashboardHandler struct {
	stats    StatsProvider
	db       Pinger
	snapshot SnapshotStatus
	logger   *zap.Logger
}

func NewDashboardHandler(stats StatsProvider, db Pinger, snapshot SnapshotStatus, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{stats: stats, db: db, snapshot: snapshot, logger: logger}
}

func (h *DashboardHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, stats)
}

// HandleHealth answers 503 when the database is unreachable. A failed or
// disabled snapshot is reported but does not fail the check.
func (h *DashboardHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	resp := HealthResponse{OK: true, Database: "connected", Snapshot: "ok"}
	if err := h.db.PingContext(ctx); err != nil {
		resp.OK = false
		resp.Database = "error"
		if h.logger != nil {
			h.logger.Warn("health check: database ping failed", zap.Error(err))
		}
	}
	switch {
	case h.snapshot == nil || !h.snapshot.Enabled():
		resp.Snapshot = "disabled"
	case h.snapshot.Err() != nil:
		resp.Snapshot = "error"
	}

	status := http.StatusOK
	if !resp.OK {
		status = http.StatusServiceUnavailable
	}
	api.WriteJSON(w, status, resp)
}
