// Package store persists finished games to Parquet.
//
// Two tables are written: one row per agent move (the board before the move,
// the chosen direction and its search score) and one row per finished game.
// Files are written under outDir/tmp and renamed into outDir so readers never
// observe a partial file.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/tile2048/game"
)

const (
	MovesSchema = "tile2048_move_v1"
	GamesSchema = "tile2048_game_v1"

	// Source values.
	SourceSelfPlay = "selfplay"
	SourceServer   = "server"
)

// MoveRow is a single agent move.
//
// Board is the pre-move board in row-major order, 0 for empty cells.
// Move is the direction index: 0=Up, 1=Down, 2=Left, 3=Right.
// GameScore is the running merge score after the move was applied.
type MoveRow struct {
	GameID      string  `parquet:"game_id,dict"`
	Turn        int32   `parquet:"turn"`
	Board       []int32 `parquet:"board"`
	Move        int32   `parquet:"move"`
	SearchScore int64   `parquet:"search_score"`
	GameScore   int64   `parquet:"game_score"`
	Depth       int32   `parquet:"depth"`
	Heuristic   string  `parquet:"heuristic,dict"`
	Source      string  `parquet:"source,dict"`
}

// GameRow summarizes one finished game.
type GameRow struct {
	GameID     string `parquet:"game_id,dict"`
	StartedNs  int64  `parquet:"started_ns"`
	Moves      int32  `parquet:"moves"`
	Score      int64  `parquet:"score"`
	Total      int64  `parquet:"total"`
	MaxTile    int32  `parquet:"max_tile"`
	DurationMs int64  `parquet:"duration_ms"`
	Depth      int32  `parquet:"depth"`
	Heuristic  string `parquet:"heuristic,dict"`
	Source     string `parquet:"source,dict"`
}

// BoardOf decodes the Board column back into a board.
func (r MoveRow) BoardOf() (game.Board, error) {
	return game.FromValues(r.Board)
}

// Direction returns the recorded move.
func (r MoveRow) Direction() game.Direction {
	return game.Direction(r.Move)
}

func WriteMovesBatchAtomic(outDir string, rows []MoveRow) (string, error) {
	return writeBatchAtomic(outDir, "moves", MovesSchema, rows)
}

func WriteGamesBatchAtomic(outDir string, rows []GameRow) (string, error) {
	return writeBatchAtomic(outDir, "games", GamesSchema, rows)
}

// writeBatchAtomic writes rows into outDir/<table>/tmp and then atomically
// moves the file into outDir/<table>.
func writeBatchAtomic[T any](outDir, table, schema string, rows []T) (string, error) {
	dir := filepath.Join(outDir, table)
	tmpDir := filepath.Join(dir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(dir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

func ReadMoves(path string) ([]MoveRow, error) {
	rows, err := parquet.ReadFile[MoveRow](path)
	if err != nil {
		return nil, fmt.Errorf("read moves %s: %w", path, err)
	}
	return rows, nil
}

func ReadGames(path string) ([]GameRow, error) {
	rows, err := parquet.ReadFile[GameRow](path)
	if err != nil {
		return nil, fmt.Errorf("read games %s: %w", path, err)
	}
	return rows, nil
}
