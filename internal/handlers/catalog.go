package handlers

import (
	"net/http"

	"github.com/diewo77/procurement/httpx"
	"github.com/diewo77/procurement/internal/pricing"
	"github.com/diewo77/procurement/internal/services"
)

// CatalogHandler serves the service catalog, pricing templates and tax table.
type CatalogHandler struct {
	az      Authorizer
	catalog *services.CatalogService
}

func NewCatalogHandler(az Authorizer, catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{az: az, catalog: catalog}
}

func (h *CatalogHandler) TaxRates(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"taxRates": pricing.TaxRates()})
}

// ListServices shows inactive entries too when an admin asks with ?all=1.
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		all := a.IsAdmin() && r.URL.Query().Get("all") == "1"
		out, err := h.catalog.ListServices(r.Context(), all)
		if err != nil {
			return nil, err
		}
		return map[string]any{"services": out}, nil
	})(w, r)
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var in services.ServiceInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	svc, err := h.catalog.CreateService(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, svc)
}

func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.ServiceInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	svc, err := h.catalog.UpdateService(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, svc)
}

func (h *CatalogHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.catalog.DeleteService(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusCreated, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		var in services.TemplateInput
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.catalog.CreateTemplate(r.Context(), a, in)
	})(w, r)
}

func (h *CatalogHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		out, err := h.catalog.ListTemplates(r.Context(), a)
		if err != nil {
			return nil, err
		}
		return map[string]any{"templates": out}, nil
	})(w, r)
}

func (h *CatalogHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusNoContent, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		return nil, h.catalog.DeleteTemplate(r.Context(), a, id)
	})(w, r)
}
