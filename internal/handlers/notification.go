package handlers

import (
	"net/http"
	"strconv"

	"github.com/diewo77/procurement/internal/services"
)

type NotificationHandler struct {
	az            Authorizer
	notifications *services.NotificationService
}

func NewNotificationHandler(az Authorizer, notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{az: az, notifications: notifications}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		out, err := h.notifications.List(r.Context(), a, limit)
		if err != nil {
			return nil, err
		}
		unread, err := h.notifications.UnreadCount(r.Context(), a.ID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"notifications": out, "unread": unread}, nil
	})(w, r)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusNoContent, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		return nil, h.notifications.MarkRead(r.Context(), a, id)
	})(w, r)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	withActor(h.az, http.StatusOK, func(_ http.ResponseWriter, r *http.Request, a services.Actor) (any, error) {
		n, err := h.notifications.MarkAllRead(r.Context(), a)
		if err != nil {
			return nil, err
		}
		return map[string]any{"updated": n}, nil
	})(w, r)
}
