// Package server implements the graph view API.
//
// The API serves archived graph documents over HTTP: infrastructure
// dashboards list advertised substrates and fetch individual graphs as
// JSON, and authoring tools publish new revisions. Every published
// payload is re-imported and validated before it reaches the archive, so
// the archive never holds a structurally broken graph.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/netweave/netweave/pkg/archive"
	nwerrors "github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/graphml"
	"github.com/netweave/netweave/pkg/propgraph"
)

// Server serves the graph view API from an archive.
type Server struct {
	store *archive.Store
}

// New creates a Server backed by the given archive.
func New(store *archive.Store) *Server {
	return &Server{store: store}
}

// Router builds the chi router for the view API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/graphs", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handlePublish)
		r.Get("/{graphID}", s.handleGet)
		r.Get("/{graphID}/nodes", s.handleNodes)
		r.Delete("/{graphID}", s.handleDelete)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []archive.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.Load(r.Context(), chi.URLParam(r, "graphID"))
	if errors.Is(err, archive.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// publishRequest is the body of POST /graphs.
type publishRequest struct {
	Name     string           `json:"name"`
	Kind     string           `json:"kind"`
	Document graphml.Document `json:"document"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Re-import to reject dangling references and duplicate GUIDs before
	// the document lands in the archive.
	g, err := propgraph.FromDocument(&req.Document, "")
	if err != nil {
		status := http.StatusBadRequest
		if !nwerrors.Is(err, nwerrors.ErrCodeGraphIntegrity) && !nwerrors.Is(err, nwerrors.ErrCodeValidation) {
			status = http.StatusInternalServerError
		}
		writeError(w, status, err)
		return
	}
	// Payloads published without an identifier get the one the import
	// assigned.
	req.Document.ID = g.ID()

	if err := s.store.Save(r.Context(), req.Name, req.Kind, &req.Document); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"graph_id": req.Document.ID})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.Load(r.Context(), chi.URLParam(r, "graphID"))
	if errors.Is(err, archive.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	nodes := entry.Document.Nodes
	if nodes == nil {
		nodes = []graphml.Node{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "graphID")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": nwerrors.UserMessage(err)})
}
