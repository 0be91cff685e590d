package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/brensch/tile2048/game"
)

// tables maps each view to the directory name its parquet batches live in and
// the typed empty relation used when no files exist yet.
var tables = []struct {
	view, dir, empty string
}{
	{"moves", "moves", `SELECT NULL::VARCHAR AS game_id, NULL::INTEGER AS turn, NULL::INTEGER[] AS board,
		NULL::INTEGER AS move, NULL::BIGINT AS search_score, NULL::BIGINT AS game_score,
		NULL::INTEGER AS depth, NULL::VARCHAR AS heuristic, NULL::VARCHAR AS source,
		NULL::VARCHAR AS filename WHERE 1=0`},
	{"games", "games", `SELECT NULL::VARCHAR AS game_id, NULL::BIGINT AS started_ns, NULL::INTEGER AS moves,
		NULL::BIGINT AS score, NULL::BIGINT AS total, NULL::INTEGER AS max_tile,
		NULL::BIGINT AS duration_ms, NULL::INTEGER AS depth, NULL::VARCHAR AS heuristic,
		NULL::VARCHAR AS source, NULL::VARCHAR AS filename WHERE 1=0`},
}

// DBCache keeps one in-memory DuckDB with views over the parquet batches
// under roots. The views are recreated in place at most once per refreshRate
// so new batches show up without restarting; the handle itself lives until
// Close, so callers may keep querying a DB returned by an earlier Get.
type DBCache struct {
	roots       []string
	refreshRate time.Duration

	mu          sync.Mutex
	db          *sql.DB
	lastRefresh time.Time
}

func NewDBCache(roots []string, refreshRate time.Duration) *DBCache {
	return &DBCache{roots: roots, refreshRate: refreshRate}
}

// Get returns the DB, recreating the views if they are stale.
func (c *DBCache) Get() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		return c.db, nil
	}
	if err := c.refreshLocked(); err != nil {
		return nil, err
	}
	return c.db, nil
}

// Refresh forces the views to be recreated.
func (c *DBCache) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked()
}

func (c *DBCache) refreshLocked() error {
	start := time.Now()
	if c.db == nil {
		db, err := openDuckDB()
		if err != nil {
			return err
		}
		c.db = db
	}
	files, err := createViews(c.db, c.roots)
	if err != nil {
		return err
	}
	c.lastRefresh = time.Now()
	slog.Debug("duckdb views rebuilt", "files", files, "elapsed", time.Since(start))
	return nil
}

func (c *DBCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// parquetFiles lists finished batches of one table: files named *.parquet
// whose parent directory is dir. Files still under tmp/ are skipped.
func parquetFiles(roots []string, dir string) ([]string, error) {
	var out []string
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() {
				if d.Name() == "tmp" {
					return fs.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == ".parquet" && filepath.Base(filepath.Dir(path)) == dir {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

func openDuckDB() (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	// Ignore errors for compatibility across versions.
	_, _ = db.Exec("PRAGMA threads=4")
	return db, nil
}

// createViews points every table view at the batches currently on disk and
// returns how many files the views cover.
func createViews(db *sql.DB, roots []string) (int, error) {
	total := 0
	for _, t := range tables {
		files, err := parquetFiles(roots, t.dir)
		if err != nil {
			return 0, err
		}
		total += len(files)

		body := t.empty
		if len(files) > 0 {
			quoted := make([]string, len(files))
			for i, f := range files {
				quoted[i] = "'" + escapeSQLString(f) + "'"
			}
			body = `SELECT * FROM read_parquet([` + strings.Join(quoted, ",") + `], filename=true, union_by_name=true)`
		}
		if _, err := db.Exec(`CREATE OR REPLACE VIEW ` + t.view + ` AS ` + body); err != nil {
			return 0, fmt.Errorf("create view %s: %w", t.view, err)
		}
	}
	return total, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func querySummary(ctx context.Context, db *sql.DB) (Summary, error) {
	var s Summary
	err := db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(moves), 0)::BIGINT,
			COALESCE(AVG(score), 0)::DOUBLE,
			COALESCE(MAX(score), 0)::BIGINT,
			COALESCE(MAX(max_tile), 0)::BIGINT,
			COALESCE(AVG(moves), 0)::DOUBLE
		FROM games`).Scan(&s.Games, &s.Moves, &s.MeanScore, &s.MaxScore, &s.BestTile, &s.MeanMoves)
	if err != nil {
		return Summary{}, fmt.Errorf("query summary: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT max_tile::BIGINT, COUNT(*) FROM games GROUP BY max_tile ORDER BY max_tile`)
	if err != nil {
		return Summary{}, fmt.Errorf("query tile histogram: %w", err)
	}
	defer rows.Close()
	s.MaxTileCount = make([]TileCount, 0, 12)
	for rows.Next() {
		var tc TileCount
		if err := rows.Scan(&tc.Tile, &tc.Games); err != nil {
			return Summary{}, fmt.Errorf("scan tile histogram: %w", err)
		}
		s.MaxTileCount = append(s.MaxTileCount, tc)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	return s, nil
}

func queryHeuristics(ctx context.Context, db *sql.DB) ([]HeuristicRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT
			heuristic,
			depth::INTEGER,
			COUNT(*),
			AVG(score)::DOUBLE,
			MAX(max_tile)::BIGINT,
			AVG(moves)::DOUBLE,
			COALESCE(SUM(moves)::DOUBLE * 1000 / NULLIF(SUM(duration_ms), 0), 0)::DOUBLE
		FROM games
		GROUP BY heuristic, depth
		ORDER BY heuristic, depth`)
	if err != nil {
		return nil, fmt.Errorf("query heuristics: %w", err)
	}
	defer rows.Close()

	out := make([]HeuristicRow, 0, 8)
	for rows.Next() {
		var h HeuristicRow
		if err := rows.Scan(&h.Heuristic, &h.Depth, &h.Games, &h.MeanScore, &h.BestTile, &h.MeanMoves, &h.MovesPerSec); err != nil {
			return nil, fmt.Errorf("scan heuristics: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func normalizeSort(sortKey, sortDir string) (string, string) {
	sd := strings.ToLower(strings.TrimSpace(sortDir))
	if sd != "asc" && sd != "desc" {
		sd = "desc"
	}
	// Only whitelisted column names reach the SQL text.
	switch strings.ToLower(strings.TrimSpace(sortKey)) {
	case "score":
		return "score", sd
	case "moves", "turns":
		return "moves", sd
	case "max_tile", "tile":
		return "max_tile", sd
	case "duration", "duration_ms":
		return "duration_ms", sd
	case "id", "game_id":
		return "game_id", sd
	case "time", "started", "started_ns":
		return "started_ns", sd
	default:
		return "started_ns", "desc"
	}
}

func queryGames(ctx context.Context, db *sql.DB, limit, offset int, sortKey, sortDir string) (GamesResponse, error) {
	var resp GamesResponse
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&resp.Total); err != nil {
		return GamesResponse{}, fmt.Errorf("count games: %w", err)
	}

	col, dir := normalizeSort(sortKey, sortDir)
	rows, err := db.QueryContext(ctx, `SELECT game_id, started_ns, moves, score, max_tile, duration_ms, depth, heuristic, source, filename
		FROM games
		ORDER BY `+col+` `+dir+`, game_id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return GamesResponse{}, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	resp.Games = make([]GameSummary, 0, min(limit, 1024))
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.GameID, &g.StartedNs, &g.Moves, &g.Score, &g.MaxTile, &g.DurationMs, &g.Depth, &g.Heuristic, &g.Source, &g.SourceFile); err != nil {
			return GamesResponse{}, fmt.Errorf("scan games: %w", err)
		}
		resp.Games = append(resp.Games, g)
	}
	return resp, rows.Err()
}

func queryMoves(ctx context.Context, db *sql.DB, gameID string) ([]Move, error) {
	rows, err := db.QueryContext(ctx, `SELECT turn, board, move, search_score, game_score
		FROM moves
		WHERE game_id = ?
		ORDER BY turn ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query moves: %w", err)
	}
	defer rows.Close()

	out := make([]Move, 0, 256)
	for rows.Next() {
		var (
			m        Move
			boardAny any
			dir      int32
		)
		if err := rows.Scan(&m.Turn, &boardAny, &dir, &m.SearchScore, &m.GameScore); err != nil {
			return nil, fmt.Errorf("scan moves: %w", err)
		}
		b, err := game.FromValues(asInt32Slice(boardAny))
		if err != nil {
			return nil, fmt.Errorf("game %s turn %d: %w", gameID, m.Turn, err)
		}
		m.Board = b.Rows()
		m.Move = game.Direction(dir).String()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, sql.ErrNoRows
	}
	return out, nil
}
