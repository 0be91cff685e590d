package main

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Server holds shared state for HTTP handlers.
type Server struct {
	dbCache *DBCache
}

func NewServer(roots []string, refresh time.Duration) *Server {
	return &Server{dbCache: NewDBCache(roots, refresh)}
}

func (s *Server) Close() error { return s.dbCache.Close() }

// RegisterRoutes sets up all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/summary", s.get(s.handleSummary))
	mux.HandleFunc("/api/heuristics", s.get(s.handleHeuristics))
	mux.HandleFunc("/api/games", s.get(s.handleGames))
	mux.HandleFunc("/api/games/{id}/moves", s.get(s.handleGameMoves))
}

// get wraps a handler with CORS and method checks and resolves the DB.
func (s *Server) get(h func(http.ResponseWriter, *http.Request, *sql.DB)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withCORS(w)
		if r.Method == http.MethodOptions {
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		db, err := s.dbCache.Get()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h(w, r, db)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, db *sql.DB) {
	sum, err := querySummary(r.Context(), db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, sum)
}

func (s *Server) handleHeuristics(w http.ResponseWriter, r *http.Request, db *sql.DB) {
	rows, err := queryHeuristics(r.Context(), db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request, db *sql.DB) {
	limit := parseIntQuery(r, "limit", 100)
	offset := parseIntQuery(r, "offset", 0)
	q := r.URL.Query()
	resp, err := queryGames(r.Context(), db, limit, offset, q.Get("sort"), q.Get("dir"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleGameMoves(w http.ResponseWriter, r *http.Request, db *sql.DB) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	moves, err := queryMoves(r.Context(), db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, moves)
}
