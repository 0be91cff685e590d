package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brensch/tile2048/game"
	"github.com/brensch/tile2048/store"
)

func boardValues(rows [4][4]int) []int32 {
	b := game.MustFromRows(rows)
	return b.Values()
}

// seed writes two games and three moves of the first game under root.
func seed(t *testing.T, root string) {
	t.Helper()
	games := []store.GameRow{
		{GameID: "g-low", StartedNs: 100, Moves: 50, Score: 400, Total: 128, MaxTile: 64, DurationMs: 1000, Depth: 2, Heuristic: "empty", Source: store.SourceSelfPlay},
		{GameID: "g-high", StartedNs: 200, Moves: 150, Score: 2400, Total: 600, MaxTile: 256, DurationMs: 2000, Depth: 3, Heuristic: "squares", Source: store.SourceServer},
	}
	if _, err := store.WriteGamesBatchAtomic(root, games); err != nil {
		t.Fatalf("write games: %v", err)
	}

	moves := []store.MoveRow{
		{GameID: "g-high", Turn: 1, Board: boardValues([4][4]int{{2, 2}, {}, {}, {}}), Move: int32(game.Left), SearchScore: 30, GameScore: 4, Depth: 3, Heuristic: "squares", Source: store.SourceServer},
		{GameID: "g-high", Turn: 0, Board: boardValues([4][4]int{{2}, {}, {2}, {}}), Move: int32(game.Up), SearchScore: 20, GameScore: 4, Depth: 3, Heuristic: "squares", Source: store.SourceServer},
		{GameID: "g-low", Turn: 0, Board: boardValues([4][4]int{{4}, {}, {}, {4}}), Move: int32(game.Down), SearchScore: 10, GameScore: 8, Depth: 2, Heuristic: "empty", Source: store.SourceSelfPlay},
	}
	if _, err := store.WriteMovesBatchAtomic(root, moves); err != nil {
		t.Fatalf("write moves: %v", err)
	}
}

func openSeeded(t *testing.T) *sql.DB {
	t.Helper()
	root := t.TempDir()
	seed(t, root)
	c := NewDBCache([]string{root}, time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	db, err := c.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return db
}

func TestParquetFiles_SkipsTmp(t *testing.T) {
	root := t.TempDir()
	seed(t, root)
	if err := os.MkdirAll(filepath.Join(root, "games", "tmp"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "games", "tmp", "partial.parquet"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	games, err := parquetFiles([]string{root, filepath.Join(root, "missing")}, "games")
	if err != nil {
		t.Fatalf("parquetFiles: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("games files=%v want 1", games)
	}
	moves, err := parquetFiles([]string{root}, "moves")
	if err != nil {
		t.Fatalf("parquetFiles: %v", err)
	}
	if len(moves) != 1 {
		t.Fatalf("moves files=%v want 1", moves)
	}
}

func TestQuerySummary(t *testing.T) {
	db := openSeeded(t)
	s, err := querySummary(context.Background(), db)
	if err != nil {
		t.Fatalf("querySummary: %v", err)
	}
	if s.Games != 2 || s.Moves != 200 || s.MaxScore != 2400 || s.BestTile != 256 {
		t.Fatalf("summary=%+v", s)
	}
	if s.MeanScore != 1400 || s.MeanMoves != 100 {
		t.Fatalf("mean score=%v moves=%v want=1400/100", s.MeanScore, s.MeanMoves)
	}
	want := []TileCount{{Tile: 64, Games: 1}, {Tile: 256, Games: 1}}
	if len(s.MaxTileCount) != len(want) {
		t.Fatalf("histogram=%v want=%v", s.MaxTileCount, want)
	}
	for i := range want {
		if s.MaxTileCount[i] != want[i] {
			t.Fatalf("histogram=%v want=%v", s.MaxTileCount, want)
		}
	}
}

func TestQueryHeuristics(t *testing.T) {
	db := openSeeded(t)
	rows, err := queryHeuristics(context.Background(), db)
	if err != nil {
		t.Fatalf("queryHeuristics: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%+v want 2", rows)
	}
	if rows[0].Heuristic != "empty" || rows[0].Depth != 2 || rows[0].Games != 1 {
		t.Fatalf("rows[0]=%+v", rows[0])
	}
	if rows[1].Heuristic != "squares" || rows[1].MovesPerSec != 75 {
		t.Fatalf("rows[1]=%+v want squares at 75 moves/sec", rows[1])
	}
}

func TestQueryGames_Sort(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	resp, err := queryGames(ctx, db, 10, 0, "score", "asc")
	if err != nil {
		t.Fatalf("queryGames: %v", err)
	}
	if resp.Total != 2 || len(resp.Games) != 2 {
		t.Fatalf("total=%d games=%d want=2/2", resp.Total, len(resp.Games))
	}
	if resp.Games[0].GameID != "g-low" || resp.Games[1].GameID != "g-high" {
		t.Fatalf("order=%s,%s want g-low,g-high", resp.Games[0].GameID, resp.Games[1].GameID)
	}
	if resp.Games[1].Source != store.SourceServer || resp.Games[1].SourceFile == "" {
		t.Fatalf("game=%+v", resp.Games[1])
	}

	// Unknown sort keys fall back to newest first.
	resp, err = queryGames(ctx, db, 1, 0, "score; DROP TABLE games", "sideways")
	if err != nil {
		t.Fatalf("queryGames: %v", err)
	}
	if len(resp.Games) != 1 || resp.Games[0].GameID != "g-high" {
		t.Fatalf("games=%+v want g-high only", resp.Games)
	}
}

func TestQueryMoves(t *testing.T) {
	db := openSeeded(t)
	moves, err := queryMoves(context.Background(), db, "g-high")
	if err != nil {
		t.Fatalf("queryMoves: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("moves=%d want=2", len(moves))
	}
	if moves[0].Turn != 0 || moves[0].Move != "up" || moves[1].Move != "left" {
		t.Fatalf("moves=%+v", moves)
	}
	if want := [4][4]int{{2, 2}, {}, {}, {}}; moves[1].Board != want {
		t.Fatalf("board=%v want=%v", moves[1].Board, want)
	}

	if _, err := queryMoves(context.Background(), db, "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err=%v want=sql.ErrNoRows", err)
	}
}

func TestEmptyRoot(t *testing.T) {
	c := NewDBCache([]string{t.TempDir()}, time.Hour)
	defer c.Close()
	db, err := c.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	s, err := querySummary(context.Background(), db)
	if err != nil {
		t.Fatalf("querySummary: %v", err)
	}
	if s.Games != 0 || len(s.MaxTileCount) != 0 {
		t.Fatalf("summary=%+v want empty", s)
	}
	resp, err := queryGames(context.Background(), db, 10, 0, "", "")
	if err != nil {
		t.Fatalf("queryGames: %v", err)
	}
	if resp.Total != 0 || len(resp.Games) != 0 {
		t.Fatalf("resp=%+v want empty", resp)
	}
}

func TestHandlers(t *testing.T) {
	root := t.TempDir()
	seed(t, root)
	s := NewServer([]string{root}, time.Hour)
	defer s.Close()
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	get := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := get(http.MethodGet, "/api/games?limit=1&sort=score&dir=desc")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
	var games GamesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &games); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if games.Total != 2 || len(games.Games) != 1 || games.Games[0].GameID != "g-high" {
		t.Fatalf("games=%+v", games)
	}

	rec = get(http.MethodGet, "/api/games/g-low/moves")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	var moves []Move
	if err := json.Unmarshal(rec.Body.Bytes(), &moves); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(moves) != 1 || moves[0].Move != "down" {
		t.Fatalf("moves=%+v", moves)
	}

	if rec := get(http.MethodGet, "/api/games/unknown/moves"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown game status=%d want=404", rec.Code)
	}
	if rec := get(http.MethodPost, "/api/summary"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status=%d want=405", rec.Code)
	}
}

func TestParseDataRoots(t *testing.T) {
	got := parseDataRoots(" a, b,,a ,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("roots=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("roots=%v want=%v", got, want)
		}
	}
}

func TestDBCache_RefreshKeepsEarlierHandleUsable(t *testing.T) {
	root := t.TempDir()
	seed(t, root)
	c := NewDBCache([]string{root}, 0)
	defer c.Close()

	first, err := c.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := store.WriteGamesBatchAtomic(root, []store.GameRow{
		{GameID: "g-late", StartedNs: 300, Moves: 10, Score: 40, MaxTile: 16, DurationMs: 10, Depth: 2, Heuristic: "empty", Source: store.SourceSelfPlay},
	}); err != nil {
		t.Fatalf("write games: %v", err)
	}
	// A refresh of zero rebuilds the views on every call.
	second, err := c.Get()
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if second != first {
		t.Fatalf("refresh replaced the DB handle")
	}

	s, err := querySummary(context.Background(), first)
	if err != nil {
		t.Fatalf("querySummary on earlier handle: %v", err)
	}
	if s.Games != 3 {
		t.Fatalf("games=%d want=3 after refresh", s.Games)
	}
}
