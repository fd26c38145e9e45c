package handlers

import (
	"net/http"

	"github.com/diewo77/procurement/httpx"
	"github.com/diewo77/procurement/internal/services"
)

type ContactHandler struct {
	contact *services.ContactService
}

func NewContactHandler(contact *services.ContactService) *ContactHandler {
	return &ContactHandler{contact: contact}
}

// Submit is public; the route is rate limited.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in services.ContactInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.contact.Submit(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": c.ID})
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.contact.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"submissions": out})
}
