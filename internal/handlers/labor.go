package handlers

import (
	"net/http"

	"github.com/diewo77/procurement/gate"
	"github.com/diewo77/procurement/httpx"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/policy"
	"github.com/diewo77/procurement/internal/services"
)

type LaborHandler struct {
	az    Authorizer
	labor *services.LaborService
}

func NewLaborHandler(az Authorizer, labor *services.LaborService) *LaborHandler {
	return &LaborHandler{az: az, labor: labor}
}

func (h *LaborHandler) Create(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusCreated, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		var in services.LaborInput
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.labor.Create(r.Context(), a, in)
	})(w, r)
}

func (h *LaborHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		out, err := h.labor.ListForAdmin(r.Context(), a, services.LaborFilter{Status: models.LaborStatus(r.URL.Query().Get("status"))})
		if err != nil {
			return nil, err
		}
		return map[string]any{"laborRequests": out}, nil
	})(w, r)
}

func (h *LaborHandler) ContractorList(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		out, err := h.labor.ListForContractor(r.Context(), a, services.LaborFilter{Status: models.LaborStatus(r.URL.Query().Get("status"))})
		if err != nil {
			return nil, err
		}
		return map[string]any{"laborRequests": out}, nil
	})(w, r)
}

// Get serves both the admin and contractor detail routes.
func (h *LaborHandler) Get(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		lr, err := h.labor.GetFor(r.Context(), a, id)
		if err != nil {
			return nil, err
		}
		if err := h.az.Authorize(r.Context(), gate.ActionView, policy.ResourceLabor, lr); err != nil {
			return nil, err
		}
		return lr, nil
	})(w, r)
}

func (h *LaborHandler) Submit(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "requestId")
		if err != nil {
			return nil, err
		}
		var in services.EstimateInput
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.labor.Submit(r.Context(), a, id, in)
	})(w, r)
}

func (h *LaborHandler) Approve(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		return h.labor.Approve(r.Context(), a, id)
	})(w, r)
}

func (h *LaborHandler) Reject(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		return h.labor.Reject(r.Context(), a, id)
	})(w, r)
}

type progressInput struct {
	Progress models.LaborProgress `json:"progress"`
}

func (h *LaborHandler) Progress(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		var in progressInput
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.labor.AdvanceProgress(r.Context(), a, id, in.Progress)
	})(w, r)
}
