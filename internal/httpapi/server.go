package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	"github.com/NYTimes/gziphandler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hamed0406/urlmonitor/internal/domain"
	apimw "github.com/hamed0406/urlmonitor/internal/httpapi/middleware"
	"github.com/hamed0406/urlmonitor/internal/repo"
)

// TargetSource returns the current target list. Errors are per-line
// problems; the list is still served.
type TargetSource func(ctx context.Context) ([]domain.Target, []error, error)

type Limits struct {
	PublicRPM, PublicBurst int
	AdminRPM, AdminBurst   int
}

type Server struct {
	Logger  *zap.Logger
	Store   repo.StateStore
	Targets TargetSource
}

func NewServer(l *zap.Logger, store repo.StateStore, targets TargetSource) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Store: store, Targets: targets}
}

func (s *Server) Router(keys apimw.Keys, limits Limits) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(gziphandler.GzipHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(limits.PublicRPM, limits.PublicBurst))
			r.Use(apimw.RequireAny(keys))
			r.Get("/state", s.handleListState)
			r.Get("/state/{id}", s.handleGetState)
			r.Get("/targets", s.handleListTargets)
		})
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(limits.AdminRPM, limits.AdminBurst))
			r.Use(apimw.RequireAdmin(keys))
			r.Delete("/state/{id}", s.handleDeleteState)
		})
	})

	return r
}

type stateEntry struct {
	ID string `json:"id"`
	domain.DebounceState
}

type targetEntry struct {
	domain.Target
	State domain.DebounceState `json:"state"`
}

func (s *Server) loadState(w http.ResponseWriter, r *http.Request) (domain.States, bool) {
	states, err := s.Store.Load(r.Context())
	if err != nil {
		if !repo.IsCorrupt(err) {
			s.Logger.Error("state_load_failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "state unavailable"})
			return nil, false
		}
		s.Logger.Warn("state_load_failed", zap.Error(err))
	}
	return states, true
}

func (s *Server) handleListState(w http.ResponseWriter, r *http.Request) {
	states, ok := s.loadState(w, r)
	if !ok {
		return
	}
	out := make([]stateEntry, 0, len(states))
	for id, st := range states {
		out = append(out, stateEntry{ID: string(id), DebounceState: st})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	states, ok := s.loadState(w, r)
	if !ok {
		return
	}
	st, found := states[id]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, stateEntry{ID: string(id), DebounceState: st})
}

func (s *Server) handleDeleteState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, ok := s.Store.(repo.Deleter)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "store does not support delete"})
		return
	}
	removed, err := d.Delete(r.Context(), id)
	if err != nil {
		s.Logger.Error("state_delete_failed", zap.String("id", string(id)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "delete failed"})
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	s.Logger.Info("state_deleted", zap.String("id", string(id)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	if s.Targets == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "no target list configured"})
		return
	}
	ts, lineErrs, err := s.Targets(r.Context())
	if err != nil {
		s.Logger.Error("targets_load_failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "target list unavailable"})
		return
	}
	for _, e := range lineErrs {
		s.Logger.Warn("target_skipped", zap.Error(e))
	}
	states, ok := s.loadState(w, r)
	if !ok {
		return
	}
	out := make([]targetEntry, 0, len(ts))
	for _, t := range ts {
		out = append(out, targetEntry{Target: t, State: states.Get(t.ID)})
	}
	writeJSON(w, http.StatusOK, out)
}

// pathID unescapes the {id} segment; ids are URLs and arrive percent-encoded.
func pathID(w http.ResponseWriter, r *http.Request) (domain.TargetID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := url.PathUnescape(raw)
	if err != nil || id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad id"})
		return "", false
	}
	return domain.TargetID(id), true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
