package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/diewo77/procurement/gate"
	"github.com/diewo77/procurement/httpx"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/pdf"
	"github.com/diewo77/procurement/internal/policy"
	"github.com/diewo77/procurement/internal/services"
)

type QuoteHandler struct {
	az       Authorizer
	quotes   *services.QuoteService
	comments *services.CommentService
	company  string
}

func NewQuoteHandler(az Authorizer, quotes *services.QuoteService, comments *services.CommentService, company string) *QuoteHandler {
	return &QuoteHandler{az: az, quotes: quotes, comments: comments, company: company}
}

func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusCreated, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		var in services.QuoteInput
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.quotes.Create(r.Context(), a, in)
	})(w, r)
}

func (h *QuoteHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var in services.QuoteInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.quotes.Preview(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	f := services.QuoteFilter{Status: models.QuoteStatus(r.URL.Query().Get("status"))}
	if v, err := strconv.ParseUint(r.URL.Query().Get("requestId"), 10, 64); err == nil {
		f.RequestID = uint(v)
	}
	quotes, err := h.quotes.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "quoteId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.quotes.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "quoteId")
		if err != nil {
			return nil, err
		}
		var in services.QuoteInput
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.quotes.Update(r.Context(), a, id, in)
	})(w, r)
}

func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "quoteId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.quotes.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuoteHandler) ClientList(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		quotes, err := h.quotes.ListForClient(r.Context(), a)
		if err != nil {
			return nil, err
		}
		return map[string]any{"quotes": quotes}, nil
	})(w, r)
}

func (h *QuoteHandler) ClientGet(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "quoteId")
		if err != nil {
			return nil, err
		}
		q, err := h.quotes.GetForClient(r.Context(), a, id)
		if err != nil {
			return nil, err
		}
		if err := h.az.Authorize(r.Context(), gate.ActionView, policy.ResourceQuote, q); err != nil {
			return nil, err
		}
		return q, nil
	})(w, r)
}

func (h *QuoteHandler) Approve(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "quoteId")
		if err != nil {
			return nil, err
		}
		return h.quotes.Approve(r.Context(), a, id)
	})(w, r)
}

type commentInput struct {
	Body string `json:"body"`
}

func (h *QuoteHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusCreated, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "quoteId")
		if err != nil {
			return nil, err
		}
		var in commentInput
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			return nil, err
		}
		return h.comments.Create(r.Context(), a, id, in.Body)
	})(w, r)
}

func (h *QuoteHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "quoteId")
		if err != nil {
			return nil, err
		}
		comments, err := h.comments.List(r.Context(), a, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"comments": comments}, nil
	})(w, r)
}

// PDF renders the quote into memory first so a rendering error can still be
// reported as JSON.
func (h *QuoteHandler) PDF(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r, h.az)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "quoteId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.quotes.ForDocument(r.Context(), a, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	hdr := pdf.Header{CompanyName: h.company}
	if q.Client != nil {
		hdr.ClientName, hdr.ClientEmail = q.Client.Name, q.Client.Email
	}
	var buf bytes.Buffer
	if err := pdf.WriteQuote(&buf, q, hdr); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pdf.QuoteFilename(q)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
