package game

import (
	"fmt"
	"sort"

	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/cache"
	"github.com/domino14/gridwar/move"
)

// Direction of a line on the board.
type Direction uint8

const (
	Horizontal Direction = iota
	Vertical
	Diagonal
	AntiDiagonal
)

var directionSteps = [...][2]int{
	Horizontal:   {0, 1},
	Vertical:     {1, 0},
	Diagonal:     {1, 1},
	AntiDiagonal: {1, -1},
}

func (d Direction) String() string {
	return [...]string{"horizontal", "vertical", "diagonal", "anti-diagonal"}[d]
}

// A Window is a run of winLength squares along one direction. Before and
// After are the squares just beyond either end; HasBefore and HasAfter
// are false when that square is off the board or, with wrap, already
// part of the window.
type Window struct {
	Cells     []move.Coord
	Dir       Direction
	Before    move.Coord
	After     move.Coord
	HasBefore bool
	HasAfter  bool
}

// Windows returns every distinct line window for a board geometry, in
// row-major order of their first square and direction order within a
// square. The result is shared and must not be modified.
func Windows(dim, winLength int, wrap bool) []Window {
	key := fmt.Sprintf("windows:%d:%d:%t", dim, winLength, wrap)
	obj, err := cache.Load(key, func(string) (interface{}, error) {
		return buildWindows(dim, winLength, wrap), nil
	})
	if err != nil {
		// buildWindows cannot fail.
		panic(err)
	}
	return obj.([]Window)
}

func buildWindows(dim, winLength int, wrap bool) []Window {
	var windows []Window
	seen := map[string]bool{}
	norm := func(v int) int {
		return ((v % dim) + dim) % dim
	}
	for r := 0; r < dim; r++ {
		for c := 0; c < dim; c++ {
			for d, step := range directionSteps {
				w, ok := makeWindow(dim, winLength, wrap, r, c, step, norm)
				if !ok {
					continue
				}
				w.Dir = Direction(d)
				k := windowKey(w.Cells)
				if seen[k] {
					continue
				}
				seen[k] = true
				windows = append(windows, w)
			}
		}
	}
	return windows
}

func makeWindow(dim, winLength int, wrap bool, r, c int, step [2]int,
	norm func(int) int) (Window, bool) {

	w := Window{Cells: make([]move.Coord, winLength)}
	inside := map[move.Coord]bool{}
	for i := 0; i < winLength; i++ {
		rr, cc := r+i*step[0], c+i*step[1]
		if wrap {
			rr, cc = norm(rr), norm(cc)
		} else if rr < 0 || cc < 0 || rr >= dim || cc >= dim {
			return Window{}, false
		}
		co := move.Coord{Row: rr, Col: cc}
		if inside[co] {
			// A wrapped line shorter than winLength revisits itself.
			return Window{}, false
		}
		inside[co] = true
		w.Cells[i] = co
	}
	extension := func(rr, cc int) (move.Coord, bool) {
		if wrap {
			rr, cc = norm(rr), norm(cc)
		} else if rr < 0 || cc < 0 || rr >= dim || cc >= dim {
			return move.Coord{}, false
		}
		co := move.Coord{Row: rr, Col: cc}
		return co, !inside[co]
	}
	w.Before, w.HasBefore = extension(r-step[0], c-step[1])
	w.After, w.HasAfter = extension(r+winLength*step[0], c+winLength*step[1])
	return w, true
}

func windowKey(cells []move.Coord) string {
	sorted := append([]move.Coord(nil), cells...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})
	return fmt.Sprint(sorted)
}

// Owner returns the player holding every square of the window, or Empty.
func (w Window) Owner(b board.Board) board.Cell {
	first := b.At(w.Cells[0].Row, w.Cells[0].Col)
	if !first.IsMark() {
		return board.Empty
	}
	for _, c := range w.Cells[1:] {
		if b.At(c.Row, c.Col) != first {
			return board.Empty
		}
	}
	return first
}

// CompletedLine finds the first complete line on the board, scanning
// squares in row-major order and directions in the order horizontal,
// vertical, diagonal, anti-diagonal. It returns nil if there is none.
func CompletedLine(b board.Board, cfg VariantConfig) *Window {
	for _, w := range Windows(b.Dim(), cfg.WinLength, cfg.Wrap) {
		if w.Owner(b) != board.Empty {
			w := w
			return &w
		}
	}
	return nil
}

// CheckWinner returns the result of the position. The side that completes
// a line wins, or loses under misère. A full board with no line is a
// draw.
func CheckWinner(st *GameState) Winner {
	if line := CompletedLine(st.Board, st.Config); line != nil {
		owner := line.Owner(st.Board)
		if st.Config.Misere {
			owner = owner.Opponent()
		}
		return winnerFor(owner)
	}
	if st.Board.EmptyCount() == 0 {
		return WinnerDraw
	}
	return NoWinner
}
