package equity

import (
	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/game"
)

// Evaluator scores a position statically. Higher is better for
// forPlayer.
type Evaluator interface {
	Evaluate(st *game.GameState, forPlayer board.Cell) int
}
