// Package policy wires the generic gate to the procurement domain: role
// profiles, a database-backed role resolver with a short cache, ownership
// policies and HTTP middleware.
package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/procurement/auth"
	"github.com/diewo77/procurement/gate"
	"github.com/diewo77/procurement/httpx"
	"github.com/diewo77/procurement/internal/models"
)

// AuthGate is the central authorization point of the application.
type AuthGate struct {
	Gate          *gate.HybridGate[uint]
	CacheResolver *gate.CachedResolver[uint]
}

// NewAuthGate builds the gate with a role cache of cacheTTL and registers the
// ownership policies of the resources handlers check row by row. Other
// resources are scoped inside their services.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[uint](NewDBRoleResolver(db), cacheTTL)
	ag := &AuthGate{
		Gate:          gate.NewHybridGate[uint](cached),
		CacheResolver: cached,
	}

	owner := NewOwnershipPolicy()
	participant := NewParticipantPolicy()
	ag.Gate.Register(ResourceQuote, NewAdminBypassPolicy(owner, ag.IsAdmin))
	ag.Gate.Register(ResourceRequest, NewAdminBypassPolicy(owner, ag.IsAdmin))
	ag.Gate.Register(ResourceLabor, participant)
	return ag
}

// Role returns the user's role as currently stored, through the cache.
func (ag *AuthGate) Role(ctx context.Context, userID uint) (models.Role, error) {
	profile, err := ag.Gate.Profile(ctx, userID)
	if err != nil {
		return "", err
	}
	return models.Role(profile.Name()), nil
}

func (ag *AuthGate) IsAdmin(ctx context.Context, userID uint) bool {
	role, err := ag.Role(ctx, userID)
	return err == nil && role == models.RoleAdmin
}

// Authorize checks the current user against action on resource.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.Gate.Authorize(ctx, userID, action, resourceType, resource)
}

func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// CanProfile checks the profile permission only.
func (ag *AuthGate) CanProfile(ctx context.Context, action gate.Action, resourceType string) bool {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return false
	}
	return ag.Gate.CanProfile(ctx, userID, action, resourceType)
}

// InvalidateUser drops the cached role of userID. Call it after a role change.
func (ag *AuthGate) InvalidateUser(userID uint) {
	ag.CacheResolver.Invalidate(userID)
}

// RequirePermission admits requests whose current role grants resource:action.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				deny(w, r, http.StatusUnauthorized, "")
				return
			}
			if err := ag.Gate.Authorize(r.Context(), userID, action, resourceType, nil); err != nil {
				ag.denyErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole admits requests whose role, re-read from the database, is one of
// roles. The token's role claim is not trusted here. Browsers with another
// role are redirected to their own dashboard.
func (ag *AuthGate) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				deny(w, r, http.StatusUnauthorized, "")
				return
			}
			role, err := ag.Role(r.Context(), userID)
			if err != nil {
				ag.denyErr(w, r, err)
				return
			}
			for _, want := range roles {
				if role == want {
					next.ServeHTTP(w, r)
					return
				}
			}
			deny(w, r, http.StatusForbidden, string(role))
		})
	}
}

func (ag *AuthGate) denyErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gate.ErrUnauthorized):
		deny(w, r, http.StatusUnauthorized, "")
	case errors.Is(err, gate.ErrForbidden):
		role := ""
		if ident, ok := auth.IdentityFromContext(r.Context()); ok {
			role = ident.Role
		}
		deny(w, r, http.StatusForbidden, role)
	default:
		log.WithError(err).Error("authorization lookup failed")
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func deny(w http.ResponseWriter, r *http.Request, status int, role string) {
	if httpx.WantsJSON(r) {
		msg := "forbidden"
		if status == http.StatusUnauthorized {
			msg = "unauthorized"
		}
		httpx.JSONError(w, status, msg, nil)
		return
	}
	if status == http.StatusUnauthorized {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, auth.DashboardPath(role), http.StatusSeeOther)
}
