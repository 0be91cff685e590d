// Command compact merges the small parquet batches written by self-play and
// the server into one file per table, so readers open fewer files. When a
// root holds a written-games log, only games listed in it are kept.
// Run it while nothing is writing to the roots: a batch renamed into place
// before its IDs reach the log would be dropped.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/brensch/tile2048/config"
	"github.com/brensch/tile2048/store"
)

func main() {
	dataDirs := flag.String("data-dirs", config.EnvOr("DATA_DIRS", "data/selfplay"), "Comma-separated roots holding moves/ and games/ batches")
	flag.Parse()

	failed := 0
	for _, root := range splitRoots(*dataDirs) {
		committed, err := openCommitted(root)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "compact %s: %v\n", root, err)
			continue
		}
		for _, t := range []struct {
			name string
			run  func(string, *store.WrittenLog) (store.Compaction, error)
		}{
			{"moves", store.CompactMoves},
			{"games", store.CompactGames},
		} {
			c, err := t.run(root, committed)
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "compact %s/%s: %v\n", root, t.name, err)
				continue
			}
			if c.Path == "" && c.Dropped > 0 {
				fmt.Fprintf(os.Stderr, "%s/%s: dropped all %d uncommitted rows from %d batch(es)\n", root, t.name, c.Dropped, c.Inputs)
				continue
			}
			if c.Path == "" {
				fmt.Fprintf(os.Stderr, "%s/%s: %d batch(es), nothing to do\n", root, t.name, c.Inputs)
				continue
			}
			fmt.Fprintf(os.Stderr, "%s/%s: merged %d batches (%d rows, %d uncommitted dropped) into %s\n", root, t.name, c.Inputs, c.Rows, c.Dropped, c.Path)
		}
		if committed != nil {
			_ = committed.Close()
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// openCommitted loads the root's written-games log. Roots without one, such as
// a server record dir run without it, are compacted unfiltered.
func openCommitted(root string) (*store.WrittenLog, error) {
	path := filepath.Join(root, store.WrittenLogName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat log: %w", err)
	}
	return store.OpenWrittenLog(path)
}

func splitRoots(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
