package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/services"
)

// multipart framing on top of the file itself
const formOverhead = 1 << 20

type DocumentHandler struct {
	az        Authorizer
	documents *services.DocumentService
}

func NewDocumentHandler(az Authorizer, documents *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{az: az, documents: documents}
}

// Upload returns a handler storing the multipart "file" field against the
// owner named by the {id} path parameter.
func (h *DocumentHandler) Upload(ownerType string) http.HandlerFunc {
	return withActor(h.az, http.StatusCreated, func(w http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		r.Body = http.MaxBytesReader(w, r.Body, services.MaxDocumentSize+formOverhead)
		if err := r.ParseMultipartForm(services.MaxDocumentSize); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return nil, apperr.Invalid("file", "too_large")
			}
			return nil, apperr.Invalid("file", "required")
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return nil, apperr.Invalid("file", "required")
		}
		defer f.Close()
		return h.documents.Upload(r.Context(), a, ownerType, id, services.Upload{
			Filename:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Size:        hdr.Size,
			Body:        f,
		})
	})
}

func (h *DocumentHandler) List(ownerType string) http.HandlerFunc {
	return withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		docs, err := h.documents.List(r.Context(), a, ownerType, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"documents": docs}, nil
	})
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		doc, url, err := h.documents.DownloadURL(r.Context(), a, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"document": doc, "url": url}, nil
	})(w, r)
}
