package store

import "fmt"

// GameBatch pairs a moves batch with a games batch so every game lands in
// both tables or in neither. A failed Add discards the whole batch; open a new
// one to continue.
type GameBatch struct {
	moves *BatchWriter[MoveRow]
	games *BatchWriter[GameRow]
	ids   []string
}

// FlushResult describes a finalized GameBatch.
type FlushResult struct {
	MovesPath string
	GamesPath string
	Rows      int
	IDs       []string
}

func NewGameBatch(outDir string) (*GameBatch, error) {
	moves, err := NewMovesWriter(outDir)
	if err != nil {
		return nil, err
	}
	games, err := NewGamesWriter(outDir)
	if err != nil {
		moves.Abort()
		return nil, err
	}
	return &GameBatch{moves: moves, games: games}, nil
}

func (g *GameBatch) Games() int { return len(g.ids) }

// Add appends one finished game. The games row is written first; if either
// write fails both files are discarded, including earlier games.
func (g *GameBatch) Add(game GameRow, moves []MoveRow) error {
	if err := g.games.WriteGame([]GameRow{game}); err != nil {
		g.Abort()
		return fmt.Errorf("game %s: %w", game.GameID, err)
	}
	if err := g.moves.WriteGame(moves); err != nil {
		g.Abort()
		return fmt.Errorf("game %s moves: %w", game.GameID, err)
	}
	g.ids = append(g.ids, game.GameID)
	return nil
}

// Abort discards both files.
func (g *GameBatch) Abort() {
	g.moves.Abort()
	g.games.Abort()
	g.ids = nil
}

// Finalize moves the moves file into place and then the games file. IDs are
// only returned once both renames succeeded; callers record them in the
// WrittenLog, which is what marks the games committed.
func (g *GameBatch) Finalize() (FlushResult, error) {
	movesPath, rows, _, err := g.moves.Finalize()
	if err != nil {
		g.Abort()
		return FlushResult{}, fmt.Errorf("finalize moves: %w", err)
	}
	gamesPath, _, _, err := g.games.Finalize()
	if err != nil {
		g.ids = nil
		return FlushResult{MovesPath: movesPath}, fmt.Errorf("finalize games: %w", err)
	}
	res := FlushResult{MovesPath: movesPath, GamesPath: gamesPath, Rows: rows, IDs: g.ids}
	g.ids = nil
	return res, nil
}
