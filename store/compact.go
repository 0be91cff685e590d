package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// Compaction reports one merged table directory.
type Compaction struct {
	Inputs  int
	Rows    int
	Dropped int
	Path    string
}

// CompactMoves merges every finished moves batch under outDir into one file.
// With a non-nil committed log, rows of games missing from it are dropped.
func CompactMoves(outDir string, committed *WrittenLog) (Compaction, error) {
	var keep func(MoveRow) bool
	if committed != nil {
		keep = func(r MoveRow) bool { return committed.Has(r.GameID) }
	}
	return compact(filepath.Join(outDir, "moves"), MovesSchema, keep)
}

// CompactGames merges every finished games batch under outDir into one file.
// With a non-nil committed log, games missing from it are dropped.
func CompactGames(outDir string, committed *WrittenLog) (Compaction, error) {
	var keep func(GameRow) bool
	if committed != nil {
		keep = func(r GameRow) bool { return committed.Has(r.GameID) }
	}
	return compact(filepath.Join(outDir, "games"), GamesSchema, keep)
}

// compact rewrites the batches in dir as a single batch and then removes the
// inputs. A crash between the rename and the removals leaves duplicate rows.
// Without a keep filter a lone batch is left as it is.
func compact[T any](dir, schema string, keep func(T) bool) (Compaction, error) {
	inputs, err := filepath.Glob(filepath.Join(dir, "batch_*.parquet"))
	if err != nil {
		return Compaction{}, fmt.Errorf("list batches: %w", err)
	}
	if len(inputs) == 0 || (len(inputs) == 1 && keep == nil) {
		return Compaction{Inputs: len(inputs)}, nil
	}

	w, err := NewBatchWriter[T](dir, schema)
	if err != nil {
		return Compaction{}, err
	}
	dropped := 0
	for _, in := range inputs {
		n, err := copyRows(w, in, keep)
		if err != nil {
			w.Abort()
			return Compaction{}, fmt.Errorf("compact %s: %w", in, err)
		}
		dropped += n
	}
	path, rows, _, err := w.Finalize()
	if err != nil {
		return Compaction{}, err
	}

	var rmErr error
	for _, in := range inputs {
		if err := os.Remove(in); err != nil {
			rmErr = errors.Join(rmErr, err)
		}
	}
	if rmErr != nil {
		return Compaction{}, fmt.Errorf("remove compacted inputs: %w", rmErr)
	}
	return Compaction{Inputs: len(inputs), Rows: rows, Dropped: dropped, Path: path}, nil
}

// copyRows appends the rows of path that pass keep and reports how many were
// dropped.
func copyRows[T any](w *BatchWriter[T], path string, keep func(T) bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := parquet.NewGenericReader[T](f)
	defer reader.Close()

	buf := make([]T, 512)
	dropped := 0
	for {
		n, readErr := reader.Read(buf)
		if n > 0 {
			rows := buf[:n]
			if keep != nil {
				kept := rows[:0]
				for _, r := range rows {
					if keep(r) {
						kept = append(kept, r)
					}
				}
				dropped += n - len(kept)
				rows = kept
			}
			if err := w.write(rows); err != nil {
				return dropped, err
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return dropped, nil
			}
			return dropped, readErr
		}
	}
}
