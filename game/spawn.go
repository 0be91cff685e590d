// spawn.go implements tile spawning between agent moves.

package game

import (
	"math/rand"
)

// SpawnSettings controls which value a spawned tile gets.
type SpawnSettings struct {
	FourChance int // Percentage chance (0–100) that a spawned tile is a 4 instead of a 2
}

// DefaultSpawnSettings matches the reference game (90% twos, 10% fours).
var DefaultSpawnSettings = SpawnSettings{FourChance: 10}

// Spawn places one tile on a uniformly chosen empty cell using the default
// settings. It returns false without touching the board when the board is full.
func Spawn(b *Board, rng *rand.Rand) bool {
	_, _, ok := SpawnWithSettings(b, rng, DefaultSpawnSettings)
	return ok
}

// SpawnWithSettings places one tile and reports where it went and what it was.
// If rng is nil, a deterministic hash of the board picks the cell and value so
// replays stay reproducible.
func SpawnWithSettings(b *Board, rng *rand.Rand, settings SpawnSettings) (Coord, Tile, bool) {
	var free [Cells]Coord
	n := 0
	for i, t := range b.cells {
		if t.Empty() {
			free[n] = Coord(i)
			n++
		}
	}
	if n == 0 {
		return 0, 0, false
	}

	var idx, roll int
	if rng != nil {
		idx = rng.Intn(n)
		roll = rng.Intn(100)
	} else {
		idx = int(spawnHash(b, cellSalt) % uint64(n))
		roll = int(spawnHash(b, valueSalt) % 100)
	}

	value := Tile(2)
	if roll < settings.FourChance {
		value = 4
	}
	c := free[idx]
	b.cells[c] = value
	return c, value, true
}

// Salts separate the cell choice from the value roll for the same board.
const (
	cellSalt  = 0x5EED
	valueSalt = 0xF0F0
)

// spawnHash folds the tile ranks into an FNV-1a hash seeded with salt and
// finishes with a 64-bit avalanche so neighbouring boards land far apart.
func spawnHash(b *Board, salt uint64) uint64 {
	h := uint64(0xcbf29ce484222325) ^ salt
	for _, t := range b.cells {
		h ^= uint64(t.Rank())
		h *= 0x100000001b3
	}
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return h
}
