// Package server exposes the search over HTTP.
//
// POST /move answers a single position. GET /ws/play upgrades to a WebSocket
// and streams a self-play game frame by frame.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brensch/tile2048/executor/alphabeta"
	"github.com/brensch/tile2048/game"
	"github.com/brensch/tile2048/heuristic"
	"github.com/brensch/tile2048/rules"
	"github.com/brensch/tile2048/store"
)

// MaxDepth caps the depth a client can ask for.
const MaxDepth = 10

type InfoResponse struct {
	APIVersion string   `json:"apiversion"`
	Author     string   `json:"author"`
	Version    string   `json:"version"`
	Depth      int      `json:"depth"`
	Heuristic  string   `json:"heuristic"`
	Heuristics []string `json:"heuristics"`
}

type MoveRequest struct {
	Board     [game.Size][game.Size]int `json:"board"`
	Depth     int                       `json:"depth,omitempty"`
	Heuristic string                    `json:"heuristic,omitempty"`
}

type MoveResponse struct {
	Move     string   `json:"move,omitempty"`
	Score    int      `json:"score"`
	Legal    []string `json:"legal"`
	Depth    int      `json:"depth"`
	Nodes    int      `json:"nodes"`
	GameOver bool     `json:"game_over,omitempty"`
}

type Config struct {
	Depth     int
	Heuristic heuristic.Heuristic
	Spawn     game.SpawnSettings

	// RecordDir, when set, receives the parquet rows of every game finished
	// over /ws/play.
	RecordDir string
	// Written, when set, gets the ID of each recorded game once both tables
	// hold its rows.
	Written *store.WrittenLog
}

// Server holds the search defaults shared by all requests.
type Server struct {
	cfg Config
}

func New(cfg Config) *Server {
	if cfg.Depth <= 0 {
		cfg.Depth = alphabeta.DefaultDepth
	}
	cfg.Depth = clampDepth(cfg.Depth)
	if cfg.Heuristic == nil {
		cfg.Heuristic = heuristic.Default()
	}
	return &Server{cfg: cfg}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/move", s.handleMove)
	r.Get("/ws/play", s.handlePlay)
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		APIVersion: "1",
		Author:     "tile2048",
		Version:    "1.0.0",
		Depth:      s.cfg.Depth,
		Heuristic:  s.cfg.Heuristic.Name(),
		Heuristics: heuristic.Names(),
	})
}

// handleMove searches the posted board and returns the best legal move.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return
	}
	b, err := game.FromRows(req.Board)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	depth, h, err := s.resolve(req.Depth, req.Heuristic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	legal := rules.LegalMoves(b)
	resp := MoveResponse{Legal: directionNames(legal), Depth: depth}
	if len(legal) == 0 {
		resp.GameOver = true
		writeJSON(w, http.StatusOK, resp)
		return
	}

	res, st := alphabeta.NewSearcher(alphabeta.Config{Depth: depth, Heuristic: h}).Search(b)
	move := res.Move
	if _, ok := rules.Moved(b, move); !ok {
		move = legal[0]
	}
	resp.Move = move.String()
	resp.Score = res.Score
	resp.Nodes = st.Nodes

	slog.Debug("move",
		"request_id", middleware.GetReqID(r.Context()),
		"move", resp.Move,
		"depth", depth,
		"heuristic", h.Name(),
		"nodes", st.Nodes,
		"elapsed", time.Since(start),
	)
	writeJSON(w, http.StatusOK, resp)
}

// resolve applies the server defaults to a request's depth and heuristic.
func (s *Server) resolve(depth int, name string) (int, heuristic.Heuristic, error) {
	if depth == 0 {
		depth = s.cfg.Depth
	}
	h := s.cfg.Heuristic
	if name != "" {
		var err error
		if h, err = heuristic.ByName(name); err != nil {
			return 0, nil, err
		}
	}
	return clampDepth(depth), h, nil
}

func clampDepth(d int) int {
	return max(1, min(d, MaxDepth))
}

func directionNames(ds []game.Direction) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start).Round(time.Microsecond),
		)
	})
}
