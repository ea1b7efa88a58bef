package board

import (
	"fmt"
	"strings"
)

// ToDisplayText renders the board with column letters and 1-based row
// numbers, matching the coordinates users type.
func (b Board) ToDisplayText() string {
	var str strings.Builder
	n := b.Dim()
	str.WriteString("   ")
	for i := 0; i < n; i++ {
		str.WriteString(fmt.Sprintf("%c ", 'A'+i))
	}
	str.WriteString("\n")
	str.WriteString("   " + strings.Repeat("-", n*2) + "\n")
	for i := 0; i < n; i++ {
		str.WriteString(fmt.Sprintf("%2d|", i+1))
		for j := 0; j < n; j++ {
			str.WriteString(b[i][j].String() + " ")
		}
		str.WriteString("|\n")
	}
	str.WriteString("   " + strings.Repeat("-", n*2) + "\n")
	return "\n" + str.String()
}

// String returns the rows joined by slashes, e.g. "X.O/.X./..O".
func (b Board) String() string {
	rows := make([]string, len(b))
	for i := range b {
		var sb strings.Builder
		for _, c := range b[i] {
			sb.WriteString(c.String())
		}
		rows[i] = sb.String()
	}
	return strings.Join(rows, "/")
}

// FromRows builds a board from one string per row, using the display
// characters (. X O # *). Slash-separated single strings also work.
func FromRows(rows ...string) (Board, error) {
	if len(rows) == 1 && strings.Contains(rows[0], "/") {
		rows = strings.Split(rows[0], "/")
	}
	dim := len(rows)
	if dim < MinDim || dim > MaxDim {
		return nil, fmt.Errorf("%w: %d rows", ErrBadDimension, dim)
	}
	b := NewBoard(dim)
	for i, row := range rows {
		runes := []rune(row)
		if len(runes) != dim {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i+1, len(runes), dim)
		}
		for j, r := range runes {
			c, err := CellFromRune(r)
			if err != nil {
				return nil, err
			}
			b[i][j] = c
		}
	}
	return b, nil
}

// MustFromRows is FromRows for fixed boards in tests and fixtures.
func MustFromRows(rows ...string) Board {
	b, err := FromRows(rows...)
	if err != nil {
		panic(err)
	}
	return b
}
