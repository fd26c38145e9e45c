package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/diewo77/procurement/auth"
	"github.com/diewo77/procurement/httpx"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/services"
)

type AuthHandler struct {
	az       Authorizer
	sessions *auth.Manager
	users    *services.UserService
}

func NewAuthHandler(az Authorizer, sessions *auth.Manager, users *services.UserService) *AuthHandler {
	return &AuthHandler{az: az, sessions: sessions, users: users}
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User      models.UserSummary `json:"user"`
	Dashboard string             `json:"dashboard"`
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, u *models.User, status int) {
	if _, err := h.sessions.Login(w, u.ID, u.Email, string(u.Role)); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, status, sessionResponse{User: u.Summary(), Dashboard: auth.DashboardPath(string(u.Role))})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.WithField("user_id", u.ID).Info("user registered")
	h.startSession(w, r, u, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.startSession(w, r, u, http.StatusOK)
}

// Logout clears the cookie even if revoking the token fails.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), w); err != nil {
		log.WithError(err).Warn("revoke session token")
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me reports the stored user, whose role may differ from the token's claim.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		u, err := h.users.Get(r.Context(), a.ID)
		if err != nil {
			return nil, err
		}
		return sessionResponse{User: u.Summary(), Dashboard: auth.DashboardPath(string(u.Role))}, nil
	})(w, r)
}
