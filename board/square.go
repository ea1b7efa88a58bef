package board

import (
	"encoding/json"
	"fmt"
)

// A Cell is the content of a single square on the board.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
	// Blocked squares are obstacles placed when the game is created.
	Blocked
	// Bombed squares were destroyed by the bomb power. They can never be
	// played on again.
	Bombed
)

const (
	EmptyMarker   = '.'
	BlockedMarker = '#'
	BombedMarker  = '*'
)

func (c Cell) String() string {
	switch c {
	case Empty:
		return string(EmptyMarker)
	case X:
		return "X"
	case O:
		return "O"
	case Blocked:
		return string(BlockedMarker)
	case Bombed:
		return string(BombedMarker)
	}
	return "?"
}

// IsMark returns true for player symbols.
func (c Cell) IsMark() bool {
	return c == X || c == O
}

// IsObstacle returns true if the cell can never hold a mark.
func (c Cell) IsObstacle() bool {
	return c == Blocked || c == Bombed
}

// Opponent returns the other player's symbol. It returns Empty for
// anything that is not a mark.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	}
	return Empty
}

// CellFromRune parses a single display character.
func CellFromRune(r rune) (Cell, error) {
	switch r {
	case EmptyMarker, ' ', '_':
		return Empty, nil
	case 'X', 'x':
		return X, nil
	case 'O', 'o':
		return O, nil
	case BlockedMarker:
		return Blocked, nil
	case BombedMarker:
		return Bombed, nil
	}
	return Empty, fmt.Errorf("unrecognized cell %q", r)
}

func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s) != 1 {
		return fmt.Errorf("bad cell %q", s)
	}
	parsed, err := CellFromRune(rune(s[0]))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Cell) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}
