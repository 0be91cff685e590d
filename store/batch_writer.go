package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// BatchWriter streams rows into a single Parquet file under dir/tmp and moves
// it into dir on Finalize. It is not safe for concurrent use.
type BatchWriter[T any] struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[T]

	games int
	rows  int
}

func NewBatchWriter[T any](dir, schema string) (*BatchWriter[T], error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}
	tmpDir := filepath.Join(absDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[T](f, parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}))
	w.SetKeyValueMetadata("schema", schema)

	return &BatchWriter[T]{
		tmpPath: tmpPath,
		outPath: filepath.Join(absDir, name),
		file:    f,
		writer:  w,
	}, nil
}

func NewMovesWriter(outDir string) (*BatchWriter[MoveRow], error) {
	return NewBatchWriter[MoveRow](filepath.Join(outDir, "moves"), MovesSchema)
}

func NewGamesWriter(outDir string) (*BatchWriter[GameRow], error) {
	return NewBatchWriter[GameRow](filepath.Join(outDir, "games"), GamesSchema)
}

func (b *BatchWriter[T]) OutPath() string    { return b.outPath }
func (b *BatchWriter[T]) BufferedGames() int { return b.games }
func (b *BatchWriter[T]) BufferedRows() int  { return b.rows }

// WriteGame appends the rows of one game.
func (b *BatchWriter[T]) WriteGame(rows []T) error {
	if err := b.write(rows); err != nil {
		return err
	}
	b.games++
	return nil
}

func (b *BatchWriter[T]) write(rows []T) error {
	if b.writer == nil {
		return fmt.Errorf("batch writer is closed")
	}
	if len(rows) > 0 {
		if _, err := b.writer.Write(rows); err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
	}
	b.rows += len(rows)
	return nil
}

// Abort discards everything written so far.
func (b *BatchWriter[T]) Abort() {
	if b.writer != nil {
		_ = b.writer.Close()
		b.writer = nil
	}
	if b.file != nil {
		_ = b.file.Close()
		b.file = nil
	}
	_ = os.Remove(b.tmpPath)
}

// Finalize closes the writer and renames the file into place. With no rows
// written the tmp file is removed and the returned path is empty.
func (b *BatchWriter[T]) Finalize() (outPath string, rows int, games int, err error) {
	if b.writer == nil && b.file == nil {
		return "", 0, 0, nil
	}
	rows, games = b.rows, b.games

	var closeErr, fileErr error
	if b.writer != nil {
		closeErr = b.writer.Close()
		b.writer = nil
	}
	if b.file != nil {
		_ = b.file.Sync()
		fileErr = b.file.Close()
		b.file = nil
	}
	if closeErr != nil {
		return "", 0, 0, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return "", 0, 0, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if rows == 0 {
		_ = os.Remove(b.tmpPath)
		return "", 0, games, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return "", 0, 0, fmt.Errorf("rename parquet: %w", err)
	}
	return b.outPath, rows, games, nil
}
