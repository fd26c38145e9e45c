package handlers

import (
	"net/http"

	"github.com/diewo77/procurement/httpx"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/services"
)

// ContractorHandler serves contractor links and contractor invoices.
type ContractorHandler struct {
	az       Authorizer
	links    *services.ContractorLinkService
	invoices *services.InvoiceService
}

func NewContractorHandler(az Authorizer, links *services.ContractorLinkService, invoices *services.InvoiceService) *ContractorHandler {
	return &ContractorHandler{az: az, links: links, invoices: invoices}
}

func (h *ContractorHandler) RequestLink(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusCreated, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		var in services.LinkInput
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.links.Request(r.Context(), a, in)
	})(w, r)
}

func (h *ContractorHandler) PendingLinks(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		out, err := h.links.ListPending(r.Context(), a)
		if err != nil {
			return nil, err
		}
		return map[string]any{"requests": out}, nil
	})(w, r)
}

type linkDecision struct {
	RequestID uint `json:"requestId"`
}

func (h *ContractorHandler) ApproveLink(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		var in linkDecision
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.links.Approve(r.Context(), a, in.RequestID)
	})(w, r)
}

func (h *ContractorHandler) RejectLink(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		var in linkDecision
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.links.Reject(r.Context(), a, in.RequestID)
	})(w, r)
}

func (h *ContractorHandler) SubmitInvoice(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusCreated, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		var in services.InvoiceInput
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.invoices.Submit(r.Context(), a, in)
	})(w, r)
}

func (h *ContractorHandler) ContractorInvoices(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		out, err := h.invoices.ListForContractor(r.Context(), a)
		if err != nil {
			return nil, err
		}
		return map[string]any{"invoices": out}, nil
	})(w, r)
}

func (h *ContractorHandler) AdminInvoices(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		out, err := h.invoices.ListForAdmin(r.Context(), a)
		if err != nil {
			return nil, err
		}
		return map[string]any{"invoices": out}, nil
	})(w, r)
}

// DecideInvoice returns a handler moving the invoice in {id} to status.
func (h *ContractorHandler) DecideInvoice(status models.InvoiceStatus) http.HandlerFunc {
	return withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		return h.invoices.Decide(r.Context(), a, id, status)
	})
}
