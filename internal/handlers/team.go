package handlers

import (
	"net/http"

	"github.com/diewo77/procurement/httpx"
	"github.com/diewo77/procurement/internal/services"
)

type TeamHandler struct {
	az    Authorizer
	users *services.UserService
}

func NewTeamHandler(az Authorizer, users *services.UserService) *TeamHandler {
	return &TeamHandler{az: az, users: users}
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		out, err := h.users.Team(r.Context(), a)
		if err != nil {
			return nil, err
		}
		return map[string]any{"team": out}, nil
	})(w, r)
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusCreated, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		var in services.TeamMemberInput
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		u, err := h.users.AddTeamMember(r.Context(), a, in)
		if err != nil {
			return nil, err
		}
		return u.Summary(), nil
	})(w, r)
}

func (h *TeamHandler) Admins(w http.ResponseWriter, r *http.Request) {
	out, err := h.users.ListAdmins(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"admins": out})
}
