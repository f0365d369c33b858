package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hostelpass.org/internal/directory"
	"hostelpass.org/internal/pass"
)

type createPassRequest struct {
	Kind        string    `json:"kind"`
	Reason      string    `json:"reason"`
	Destination string    `json:"destination"`
	DepartureAt time.Time `json:"departure_at"`
	ReturnAt    time.Time `json:"return_at"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type polishRequest struct {
	Reason string `json:"reason"`
}

type polishResponse struct {
	Reason string `json:"reason"`
}

type listPassesResponse struct {
	Items []pass.Pass `json:"items"`
	AsOf  time.Time   `json:"as_of"`
}

// viewer resolves the acting identity from the X-User-Id header. There is no
// authentication behind this; the header selects one of the mock identities.
func viewer(r *http.Request) (directory.User, error) {
	id := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if id == "" {
		return directory.User{}, errors.New("X-User-Id header is required")
	}
	u, ok := directory.ByID(id)
	if !ok {
		return directory.User{}, fmt.Errorf("unknown user %q", id)
	}
	return u, nil
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, directory.All())
}

func (a *API) handlePassesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createPass(w, r)
	case http.MethodGet:
		a.listPasses(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePassResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/passes/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/status"); ok && id != "" && !strings.Contains(id, "/") {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.setPassStatus(w, r, id)
		return
	}
	writeError(w, r, http.StatusNotFound, "resource not found")
}

func (a *API) createPass(w http.ResponseWriter, r *http.Request) {
	u, err := viewer(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var req createPassRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, r, http.StatusBadRequest, "reason is required")
		return
	}
	if strings.TrimSpace(req.Destination) == "" {
		writeError(w, r, http.StatusBadRequest, "destination is required")
		return
	}
	if req.DepartureAt.IsZero() || req.ReturnAt.IsZero() {
		writeError(w, r, http.StatusBadRequest, "departure_at and return_at are required")
		return
	}

	p, err := a.passes.Create(r.Context(), u, pass.Kind(req.Kind), req.Reason, req.Destination, req.DepartureAt, req.ReturnAt)
	if err != nil {
		handlePassError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/passes/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) listPasses(w http.ResponseWriter, r *http.Request) {
	u, err := viewer(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	all, err := a.passes.List(r.Context())
	if err != nil {
		handlePassError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listPassesResponse{
		Items: pass.ViewFor(u.ID, u.Role, all),
		AsOf:  time.Now().UTC(),
	})
}

func (a *API) setPassStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req setStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.passes.SetStatus(r.Context(), id, pass.Status(strings.ToUpper(strings.TrimSpace(req.Status))))
	if err != nil {
		handlePassError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handlePolish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req polishRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, r, http.StatusBadRequest, "reason is required")
		return
	}
	writeJSON(w, http.StatusOK, polishResponse{
		Reason: a.enricher.Polish(r.Context(), req.Reason),
	})
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	filename := fmt.Sprintf("Hostel_Data_%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := a.passes.ExportCSV(r.Context(), w); err != nil {
		// Headers are already out; nothing better to do than log the line.
		writeError(w, r, http.StatusInternalServerError, "export failed")
	}
}

func (a *API) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snap := range a.feed.Subscribe(r.Context()) {
		data, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handlePassError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pass.ErrInvalidKind), errors.Is(err, pass.ErrInvalidStatus):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, pass.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
