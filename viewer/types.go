package main

// Summary aggregates every finished game on disk.
type Summary struct {
	Games        int64          `json:"games"`
	Moves        int64          `json:"moves"`
	MeanScore    float64        `json:"mean_score"`
	MaxScore     int64          `json:"max_score"`
	BestTile     int64          `json:"best_tile"`
	MeanMoves    float64        `json:"mean_moves"`
	MaxTileCount []TileCount    `json:"max_tile_histogram"`
	Heuristics   []HeuristicRow `json:"heuristics,omitempty"`
}

type TileCount struct {
	Tile  int64 `json:"tile"`
	Games int64 `json:"games"`
}

// HeuristicRow is one (heuristic, depth) configuration.
type HeuristicRow struct {
	Heuristic   string  `json:"heuristic"`
	Depth       int32   `json:"depth"`
	Games       int64   `json:"games"`
	MeanScore   float64 `json:"mean_score"`
	BestTile    int64   `json:"best_tile"`
	MeanMoves   float64 `json:"mean_moves"`
	MovesPerSec float64 `json:"moves_per_sec"`
}

type GameSummary struct {
	GameID     string `json:"game_id"`
	StartedNs  int64  `json:"started_ns"`
	Moves      int32  `json:"moves"`
	Score      int64  `json:"score"`
	MaxTile    int32  `json:"max_tile"`
	DurationMs int64  `json:"duration_ms"`
	Depth      int32  `json:"depth"`
	Heuristic  string `json:"heuristic"`
	Source     string `json:"source"`
	SourceFile string `json:"file"`
}

type GamesResponse struct {
	Total int64         `json:"total"`
	Games []GameSummary `json:"games"`
}

// Move is one recorded agent move with the board it was played on.
type Move struct {
	Turn        int32     `json:"turn"`
	Board       [4][4]int `json:"board"`
	Move        string    `json:"move"`
	SearchScore int64     `json:"search_score"`
	GameScore   int64     `json:"game_score"`
}
