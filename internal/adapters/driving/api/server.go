// Package api serves task runs and the document index over HTTP.
// Task events stream to the client as server-sent events, one wire event
// per frame.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
	"github.com/custodia-labs/newsdesk/internal/core/services"
	"github.com/custodia-labs/newsdesk/internal/logger"
)

// maxBodyBytes bounds request bodies, inline documents included.
const maxBodyBytes = 32 << 20

// Server is the HTTP surface of Newsdesk.
type Server struct {
	mu       sync.Mutex
	index    driving.IndexService
	tasks    driving.TaskService
	mux      *http.ServeMux
	server   *http.Server
	listener net.Listener
}

// documentRequest is the body of POST /api/documents.
type documentRequest struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content"`
	URL     string `json:"url,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NewServer creates a server over the given services.
func NewServer(index driving.IndexService, tasks driving.TaskService) *Server {
	s := &Server{
		index: index,
		tasks: tasks,
		mux:   http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/tasks", s.handleTask)
	s.mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	s.mux.HandleFunc("POST /api/documents", s.handleIndexDocument)
	s.mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	s.mux.HandleFunc("DELETE /api/documents/{id}", s.handleRemoveDocument)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)

	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on addr and serves in the background.
// An addr with port 0 picks a free port; see Addr.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	// No write timeout: task streams stay open for the whole run.
	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("http server stopped: %v", err)
		}
	}()

	logger.Info("serving on http://%s", listener.Addr())
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	if err := s.Start(addr); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTask starts a run and streams its events. A client disconnect
// cancels the run.
func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	var req domain.TaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.New("streaming unsupported"))
		return
	}

	run, err := s.tasks.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	log := logger.For("task " + run.ID())
	log.Debug("started")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Run-ID", run.ID())
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	result := services.CollectRun(r.Context(), run, func(ev domain.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Warn("encode %s event: %v", ev.Kind, err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			run.Cancel()
			return
		}
		flusher.Flush()
	})
	log.Debug("ended %s", result.State)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.index.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range docs {
		docs[i].RawText = ""
	}
	if docs == nil {
		docs = []domain.DocumentRecord{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" || req.Content == "" {
		writeError(w, fmt.Errorf("%w: name and content are required", domain.ErrInvalidInput))
		return
	}

	rec, err := s.index.Index(r.Context(), domain.DocumentRecord{
		ID:         req.ID,
		Name:       req.Name,
		Type:       req.Type,
		URL:        req.URL,
		RawText:    req.Content,
		SourceKind: domain.SourceUploaded,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := *rec
	out.RawText = ""
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.index.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeError(w, fmt.Errorf("%w: q is required", domain.ErrInvalidInput))
		return
	}

	opts := domain.SearchOptions{DocumentIDs: q["doc"]}
	if k := q.Get("k"); k != "" {
		n, err := strconv.Atoi(k)
		if err != nil || n <= 0 {
			writeError(w, fmt.Errorf("%w: k must be a positive integer", domain.ErrInvalidInput))
			return
		}
		opts.TopK = n
	}

	hits, err := s.index.Search(r.Context(), query, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if hits == nil {
		hits = []domain.SearchHit{}
	}
	writeJSON(w, http.StatusOK, hits)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	if errors.Is(err, domain.ErrInvalidInput) {
		resp.Code = string(domain.CodeInvalidInput)
	}
	writeJSON(w, statusFor(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("write response: %v", err)
	}
}
