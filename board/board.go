// Package board contains the square grid the game is played on.
package board

import "errors"

const (
	MinDim = 3
	MaxDim = 6
)

var ErrBadDimension = errors.New("board dimension out of range")

// Board is a square grid of cells, indexed [row][col]. Row 0 is the top
// of the board; gravity pulls marks towards the highest row index.
type Board [][]Cell

// NewBoard makes an empty dim x dim board.
func NewBoard(dim int) Board {
	b := make(Board, dim)
	// One backing array keeps copies cheap.
	backing := make([]Cell, dim*dim)
	for i := range b {
		b[i] = backing[i*dim : (i+1)*dim]
	}
	return b
}

func (b Board) Dim() int {
	return len(b)
}

func (b Board) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < len(b) && col < len(b)
}

func (b Board) At(row, col int) Cell {
	return b[row][col]
}

func (b Board) Set(row, col int, c Cell) {
	b[row][col] = c
}

// Copy returns a deep copy of the board. The copy shares no memory with
// the original.
func (b Board) Copy() Board {
	n := NewBoard(len(b))
	for i := range b {
		copy(n[i], b[i])
	}
	return n
}

// Equals compares the contents of two boards.
func (b Board) Equals(o Board) bool {
	if len(b) != len(o) {
		return false
	}
	for i := range b {
		for j := range b[i] {
			if b[i][j] != o[i][j] {
				return false
			}
		}
	}
	return true
}

// Count returns the number of cells with the given content.
func (b Board) Count(c Cell) int {
	ct := 0
	for i := range b {
		for j := range b[i] {
			if b[i][j] == c {
				ct++
			}
		}
	}
	return ct
}

func (b Board) EmptyCount() int {
	return b.Count(Empty)
}

// ShiftRow rotates every cell in the row by one position. A positive
// direction moves cells towards higher column indexes; the cell that
// falls off one end reappears at the other.
func (b Board) ShiftRow(row, direction int) {
	n := len(b)
	r := b[row]
	if direction > 0 {
		last := r[n-1]
		copy(r[1:], r[:n-1])
		r[0] = last
	} else {
		first := r[0]
		copy(r[:n-1], r[1:])
		r[n-1] = first
	}
}

// ShiftCol rotates every cell in the column by one position. A positive
// direction moves cells towards higher row indexes.
func (b Board) ShiftCol(col, direction int) {
	n := len(b)
	if direction > 0 {
		last := b[n-1][col]
		for i := n - 1; i > 0; i-- {
			b[i][col] = b[i-1][col]
		}
		b[0][col] = last
	} else {
		first := b[0][col]
		for i := 0; i < n-1; i++ {
			b[i][col] = b[i+1][col]
		}
		b[n-1][col] = first
	}
}

// LowestEmptyFrom scans down the column starting at row and returns the
// last empty row reached before hitting a non-empty cell or the bottom
// edge. It returns -1 if the starting cell is not empty.
func (b Board) LowestEmptyFrom(row, col int) int {
	if b[row][col] != Empty {
		return -1
	}
	r := row
	for r+1 < len(b) && b[r+1][col] == Empty {
		r++
	}
	return r
}
