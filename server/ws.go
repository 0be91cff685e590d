package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/brensch/tile2048/executor/selfplay"
	"github.com/brensch/tile2048/game"
	"github.com/brensch/tile2048/store"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// Frame is one message of a streamed game. The last frame of a finished game
// has Done set and carries the final board.
type Frame struct {
	GameID  string                    `json:"game_id"`
	Turn    int                       `json:"turn"`
	Board   [game.Size][game.Size]int `json:"board"`
	Move    string                    `json:"move,omitempty"`
	Score   int                       `json:"score"`
	MaxTile int                       `json:"max_tile"`
	Done    bool                      `json:"done"`
}

// ErrBadQuery is returned for malformed /ws/play query parameters.
var ErrBadQuery = errors.New("bad query")

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// playParams reads depth, heuristic and seed from the /ws/play query.
func (s *Server) playParams(q url.Values) (selfplay.Config, int64, error) {
	cfg := selfplay.Config{Spawn: s.cfg.Spawn, Source: store.SourceServer}

	depth := 0
	if v := q.Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, 0, fmt.Errorf("%w: depth %q", ErrBadQuery, v)
		}
		depth = n
	}
	var err error
	if cfg.Depth, cfg.Heuristic, err = s.resolve(depth, q.Get("heuristic")); err != nil {
		return cfg, 0, err
	}

	seed := time.Now().UnixNano()
	if v := q.Get("seed"); v != "" {
		if seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return cfg, 0, fmt.Errorf("%w: seed %q", ErrBadQuery, v)
		}
	}
	return cfg, seed, nil
}

// handlePlay streams one self-play game. The game stops when the client goes
// away.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	cfg, seed, err := s.playParams(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	log := slog.With("request_id", middleware.GetReqID(r.Context()), "seed", seed, "depth", cfg.Depth)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reads only serve to notice the client closing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	out := make(chan Frame, 16)
	writeErr := make(chan error, 1)
	go func() {
		err := writeFrames(conn, out)
		if err != nil {
			cancel()
		}
		writeErr <- err
	}()

	var once sync.Once
	closeOut := func() { once.Do(func() { close(out) }) }
	defer closeOut()

	send := func(f Frame) {
		select {
		case out <- f:
		case <-ctx.Done():
		}
	}

	res, rows, err := selfplay.PlayGame(ctx, 0, cfg, rand.New(rand.NewSource(seed)), func(st selfplay.Step) {
		send(Frame{
			GameID:  st.GameID,
			Turn:    st.Turn,
			Board:   st.Board.Rows(),
			Move:    st.Move.String(),
			Score:   st.GameScore,
			MaxTile: st.Board.MaxTile().Value(),
		})
	})
	if err != nil {
		log.Info("stream stopped", "game_id", res.GameID, "moves", res.Moves, "err", err)
		return
	}
	send(Frame{
		GameID:  res.GameID,
		Turn:    res.Moves,
		Board:   res.Final.Rows(),
		Score:   res.Score,
		MaxTile: res.MaxTile,
		Done:    true,
	})
	closeOut()
	if err := <-writeErr; err != nil {
		log.Info("stream write failed", "game_id", res.GameID, "err", err)
	}

	log.Info("streamed game", "game_id", res.GameID, "moves", res.Moves, "score", res.Score, "max_tile", res.MaxTile)
	if s.cfg.RecordDir != "" {
		if err := s.record(res, cfg, rows); err != nil {
			log.Error("record game", "game_id", res.GameID, "err", err)
		}
	}
}

// writeFrames writes frames until out is closed, pinging while idle, then
// sends a normal close.
func writeFrames(conn *websocket.Conn, out <-chan Frame) error {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case f, ok := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				return conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game over"))
			}
			if err := conn.WriteJSON(f); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func (s *Server) record(res selfplay.GameResult, cfg selfplay.Config, rows []store.MoveRow) error {
	if _, err := store.WriteMovesBatchAtomic(s.cfg.RecordDir, rows); err != nil {
		return fmt.Errorf("write moves: %w", err)
	}
	if _, err := store.WriteGamesBatchAtomic(s.cfg.RecordDir, []store.GameRow{res.Row(cfg)}); err != nil {
		return fmt.Errorf("write games: %w", err)
	}
	if s.cfg.Written != nil {
		if err := s.cfg.Written.Add(res.GameID); err != nil {
			return fmt.Errorf("log game: %w", err)
		}
	}
	return nil
}
