// Package handlers adapts HTTP requests to the services layer. Handlers decode
// JSON, resolve the caller, call one service method and encode the result.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/diewo77/procurement/auth"
	"github.com/diewo77/procurement/gate"
	"github.com/diewo77/procurement/httpx"
	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/services"
)

// Authorizer resolves the caller's stored role and checks resource policies.
// *policy.AuthGate implements it.
type Authorizer interface {
	Role(ctx context.Context, userID uint) (models.Role, error)
	Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error
}

// actor builds the services.Actor of the request from the session and the
// role currently stored for the user.
func actor(r *http.Request, az Authorizer) (services.Actor, error) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return services.Actor{}, gate.ErrUnauthorized
	}
	role, err := az.Role(r.Context(), uid)
	if err != nil {
		return services.Actor{}, err
	}
	return services.Actor{ID: uid, Role: role}, nil
}

// pathID parses a numeric path parameter.
func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFound(name)
	}
	return uint(id), nil
}

// writeError maps err onto the JSON error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, httpx.ErrInvalidJSON) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	kind := apperr.KindOf(err)
	var details any
	var e *apperr.Error
	switch kind {
	case apperr.KindValidation:
		if errors.As(err, &e) {
			details = e.Fields
		}
	case apperr.KindState:
		if errors.As(err, &e) {
			details = map[string]string{"message": e.Message}
		}
	case apperr.KindInternal:
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}
	httpx.JSONError(w, kind.Status(), kind.Code(), details)
}

// withActor adapts a handler that needs the caller and returns (payload, error).
func withActor(az Authorizer, status int, fn func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actor(r, az)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out, err := fn(w, r, a)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		httpx.JSON(w, status, out)
	}
}
