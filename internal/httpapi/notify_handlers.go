package httpapi

import (
	"net/http"
	"strings"
	"time"

	"hostelpass.org/internal/notify"
)

type listNotificationsResponse struct {
	Items  []notify.Notification `json:"items"`
	Unread int                   `json:"unread"`
	AsOf   time.Time             `json:"as_of"`
}

func (a *API) handleNotificationsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	u, err := viewer(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	items, err := a.notes.ListFor(r.Context(), u.ID, u.Role)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	unread := 0
	for _, n := range items {
		if !n.IsRead {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, listNotificationsResponse{
		Items:  items,
		Unread: unread,
		AsOf:   time.Now().UTC(),
	})
}

func (a *API) handleNotificationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/notifications/")
	id, ok := strings.CutSuffix(path, "/read")
	if !ok || id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	// Mark-as-read is tolerant: unknown ids are accepted and ignored.
	if err := a.notes.MarkRead(r.Context(), id); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
