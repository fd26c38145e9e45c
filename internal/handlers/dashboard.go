package handlers

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/procurement/auth"
	"github.com/diewo77/procurement/httpx"
	"github.com/diewo77/procurement/internal/services"
)

type DashboardHandler struct {
	az         Authorizer
	dashboards *services.DashboardService
}

func NewDashboardHandler(az Authorizer, dashboards *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{az: az, dashboards: dashboards}
}

// Redirect sends the caller to the dashboard of their stored role.
func (h *DashboardHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r, h.az)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, auth.DashboardPath(string(a.Role)), http.StatusSeeOther)
}

// Show serves every role dashboard; the route guard has already matched the
// role to the path.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		return h.dashboards.For(r.Context(), a)
	})(w, r)
}

// Health answers liveness and readiness probes. Readiness pings the database.
func Health(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
