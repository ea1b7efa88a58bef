package equity

import (
	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/game"
)

// Weights are the tunable constants of the heuristic.
type Weights struct {
	// WinBonus is scored for a completed line. It must dominate the sum
	// of all other terms.
	WinBonus int `yaml:"win-bonus" json:"winBonus"`
	// NearWinBonus is added for a window missing one mark.
	NearWinBonus int `yaml:"near-win-bonus" json:"nearWinBonus"`
	// OpenEndBonus is added per open square just beyond a window.
	OpenEndBonus int `yaml:"open-end-bonus" json:"openEndBonus"`
	// Base is raised to the number of marks in an uncontested window.
	Base int `yaml:"base" json:"base"`
	// CenterWeight scales the bonus for marks near the center.
	CenterWeight int `yaml:"center-weight" json:"centerWeight"`
}

func DefaultWeights() Weights {
	return Weights{
		WinBonus:     100000,
		NearWinBonus: 50,
		OpenEndBonus: 2,
		Base:         4,
		CenterWeight: 3,
	}
}

// HeuristicEvaluator scores every line window on the board plus a
// central-control term.
type HeuristicEvaluator struct {
	Weights Weights
}

func NewHeuristicEvaluator(w Weights) *HeuristicEvaluator {
	return &HeuristicEvaluator{Weights: w}
}

var defaultEvaluator = NewHeuristicEvaluator(DefaultWeights())

// Evaluate scores st for forPlayer with the default weights.
func Evaluate(st *game.GameState, forPlayer board.Cell) int {
	return defaultEvaluator.Evaluate(st, forPlayer)
}

func pow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

func (h *HeuristicEvaluator) Evaluate(st *game.GameState, forPlayer board.Cell) int {
	b := st.Board
	cfg := st.Config
	opp := forPlayer.Opponent()
	lineSign := 1
	if cfg.Misere {
		lineSign = -1
	}

	score := 0
	for _, w := range game.Windows(b.Dim(), cfg.WinLength, cfg.Wrap) {
		score += lineSign * h.windowScore(b, w, forPlayer, opp)
	}
	return score + h.centerScore(b, forPlayer, opp)
}

// windowScore is positive when the window favors p and negative when it
// favors opp. Windows that hold an obstacle or both symbols score 0.
func (h *HeuristicEvaluator) windowScore(b board.Board, w game.Window, p, opp board.Cell) int {
	own, theirs, empty := 0, 0, 0
	for _, c := range w.Cells {
		switch b.At(c.Row, c.Col) {
		case p:
			own++
		case opp:
			theirs++
		case board.Empty:
			empty++
		default:
			return 0
		}
	}
	switch {
	case own > 0 && theirs > 0:
		return 0
	case own == len(w.Cells):
		return h.Weights.WinBonus
	case theirs == len(w.Cells):
		return -h.Weights.WinBonus
	case own > 0:
		return h.potential(b, w, own, empty)
	case theirs > 0:
		return -h.potential(b, w, theirs, empty)
	}
	return 0
}

func (h *HeuristicEvaluator) potential(b board.Board, w game.Window, marks, empty int) int {
	s := pow(h.Weights.Base, marks)
	if empty == 1 {
		s += h.Weights.NearWinBonus
	}
	if w.HasBefore && b.At(w.Before.Row, w.Before.Col) == board.Empty {
		s += h.Weights.OpenEndBonus
	}
	if w.HasAfter && b.At(w.After.Row, w.After.Col) == board.Empty {
		s += h.Weights.OpenEndBonus
	}
	return s
}

// centerScore rewards marks near the middle of the board. Distances are
// doubled so that even-sized boards stay in integers.
func (h *HeuristicEvaluator) centerScore(b board.Board, p, opp board.Cell) int {
	n := b.Dim()
	maxDist := 2 * (n - 1)
	score := 0
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			cell := b.At(r, c)
			if cell != p && cell != opp {
				continue
			}
			d := abs(2*r-(n-1)) + abs(2*c-(n-1))
			v := h.Weights.CenterWeight * (maxDist - d) / 2
			if cell == p {
				score += v
			} else {
				score -= v
			}
		}
	}
	return score
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
