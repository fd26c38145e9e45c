package handlers

import (
	"net/http"

	"github.com/diewo77/procurement/gate"
	"github.com/diewo77/procurement/httpx"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/policy"
	"github.com/diewo77/procurement/internal/services"
)

type RequestHandler struct {
	az       Authorizer
	requests *services.RequestService
}

func NewRequestHandler(az Authorizer, requests *services.RequestService) *RequestHandler {
	return &RequestHandler{az: az, requests: requests}
}

func (h *RequestHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusCreated, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		var in services.ProjectInput
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.requests.CreateProject(r.Context(), a, in)
	})(w, r)
}

func (h *RequestHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		out, err := h.requests.ListProjects(r.Context(), a)
		if err != nil {
			return nil, err
		}
		return map[string]any{"projects": out}, nil
	})(w, r)
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusCreated, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		var in services.RequestInput
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.requests.Create(r.Context(), a, in)
	})(w, r)
}

// List returns all requests to admins and own requests to clients.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		out, err := h.requests.List(r.Context(), a, services.RequestFilter{Status: models.RequestStatus(r.URL.Query().Get("status"))})
		if err != nil {
			return nil, err
		}
		return map[string]any{"requests": out}, nil
	})(w, r)
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		req, err := h.requests.GetFor(r.Context(), a, id)
		if err != nil {
			return nil, err
		}
		if err := h.az.Authorize(r.Context(), gate.ActionView, policy.ResourceRequest, req); err != nil {
			return nil, err
		}
		return req, nil
	})(w, r)
}

func (h *RequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusNoContent, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		return nil, h.requests.Delete(r.Context(), a, id)
	})(w, r)
}

type statusInput struct {
	Status models.RequestStatus `json:"status"`
}

func (h *RequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in statusInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := h.requests.AdvanceStatus(r.Context(), id, in.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}
