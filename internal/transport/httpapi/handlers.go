package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	logx "toastd/pkg/logx"
)

const (
	maxBodyBytes        = 64 << 10
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

var (
	errBadRequest   = errors.New("bad request")
	errNotFound     = errors.New("toast not found")
	errUnauthorized = errors.New("unauthorized")
	errNoHistory    = errors.New("history storage disabled")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeJSON strictly decodes one JSON value from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data", errBadRequest)
	}
	return nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateView(s.store.State()))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	props, err := req.props()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h := s.store.Toast(props)
	writeJSON(w, http.StatusCreated, map[string]string{"id": h.ID})
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req PatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, ok := s.store.State().Find(id); !ok {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	s.store.Update(req.patch(id))

	t, ok := s.store.State().Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toastView(t))
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.dismiss(id) {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dismiss closes one toast through its OnOpenChange, the same path a
// rendered close button takes.
func (s *Server) dismiss(id string) bool {
	t, ok := s.store.State().Find(id)
	if !ok {
		return false
	}
	if t.OnOpenChange != nil {
		t.OnOpenChange(false)
	} else {
		s.store.Dismiss(id)
	}
	return true
}

func (s *Server) handleDismissAll(w http.ResponseWriter, r *http.Request) {
	s.store.Dismiss("")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.store.State().Find(id); !ok {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	s.store.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveAll(w http.ResponseWriter, r *http.Request) {
	s.store.Remove("")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errNoHistory)
		return
	}
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: limit %q", errBadRequest, raw))
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.log.Warn("history query failed", logx.Err(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryView{Entries: entries})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.store.State()
	open := 0
	for _, t := range st.Toasts {
		if t.Open {
			open++
		}
	}
	body := map[string]any{
		"status":           "ok",
		"toasts":           len(st.Toasts),
		"open":             open,
		"limit":            s.store.Limit(),
		"pending_removals": s.store.PendingRemovals(),
		"listeners":        s.store.Listeners(),
		"streams":          s.streams.Load(),
		"bus_dropped":      s.bus.Dropped(),
	}
	if s.workers != nil {
		body["workers"] = s.workers()
	}
	writeJSON(w, http.StatusOK, body)
}
