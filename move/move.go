// Package move describes the moves a player can make. A Move is plain
// data so that it can be sent over the wire unchanged.
package move

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/domino14/gridwar/board"
)

// MoveType is the kind of move: a plain placement or one of the one-time
// powers.
type MoveType uint8

const (
	MoveTypePlace MoveType = iota
	MoveTypeDoubleMove
	MoveTypeLaneShift
	MoveTypeBomb
)

var moveTypeNames = map[MoveType]string{
	MoveTypePlace:      "place",
	MoveTypeDoubleMove: "double",
	MoveTypeLaneShift:  "shift",
	MoveTypeBomb:       "bomb",
}

func (t MoveType) String() string {
	if s, ok := moveTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

func (t MoveType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *MoveType) UnmarshalText(text []byte) error {
	for k, v := range moveTypeNames {
		if v == string(text) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown move type %q", string(text))
}

// Axis selects a row or a column for a lane shift.
type Axis uint8

const (
	AxisRow Axis = iota
	AxisCol
)

func (a Axis) String() string {
	if a == AxisCol {
		return "col"
	}
	return "row"
}

func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Axis) UnmarshalText(text []byte) error {
	switch string(text) {
	case "row":
		*a = AxisRow
	case "col", "column":
		*a = AxisCol
	default:
		return fmt.Errorf("unknown axis %q", string(text))
	}
	return nil
}

// Coord is a board position.
type Coord struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

func (c Coord) String() string {
	return ToCoords(c.Row, c.Col)
}

// Chebyshev returns the king-move distance between two coordinates.
func (c Coord) Chebyshev(o Coord) int {
	dr, dc := c.Row-o.Row, c.Col-o.Col
	if dr < 0 {
		dr = -dr
	}
	if dc < 0 {
		dc = -dc
	}
	if dr > dc {
		return dr
	}
	return dc
}

// Move is a tagged union. Row/Col hold the target of a placement or a
// bomb and the first placement of a double move; Second holds the other
// half of a double move. Axis, Index and Direction only apply to lane
// shifts.
type Move struct {
	Action    MoveType   `json:"type" yaml:"type"`
	Player    board.Cell `json:"player" yaml:"player"`
	Row       int        `json:"row" yaml:"row"`
	Col       int        `json:"col" yaml:"col"`
	Second    *Coord     `json:"second,omitempty" yaml:"second,omitempty"`
	Axis      Axis       `json:"axis,omitempty" yaml:"axis,omitempty"`
	Index     int        `json:"index,omitempty" yaml:"index,omitempty"`
	Direction int        `json:"direction,omitempty" yaml:"direction,omitempty"`
}

var ErrBadCoords = errors.New("bad coordinates")

func NewPlacementMove(player board.Cell, row, col int) *Move {
	return &Move{Action: MoveTypePlace, Player: player, Row: row, Col: col}
}

func NewDoubleMove(player board.Cell, first, second Coord) *Move {
	return &Move{Action: MoveTypeDoubleMove, Player: player,
		Row: first.Row, Col: first.Col, Second: &Coord{second.Row, second.Col}}
}

func NewLaneShiftMove(player board.Cell, axis Axis, index, direction int) *Move {
	return &Move{Action: MoveTypeLaneShift, Player: player, Axis: axis,
		Index: index, Direction: direction}
}

func NewBombMove(player board.Cell, row, col int) *Move {
	return &Move{Action: MoveTypeBomb, Player: player, Row: row, Col: col}
}

// Copy returns a copy that shares no memory with m.
func (m *Move) Copy() *Move {
	c := *m
	if m.Second != nil {
		s := *m.Second
		c.Second = &s
	}
	return &c
}

// Equals compares two moves, ignoring the acting player.
func (m *Move) Equals(o *Move) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Action != o.Action {
		return false
	}
	switch m.Action {
	case MoveTypeLaneShift:
		return m.Axis == o.Axis && m.Index == o.Index && m.Direction == o.Direction
	case MoveTypeDoubleMove:
		if m.Second == nil || o.Second == nil {
			return m.Second == o.Second && m.Row == o.Row && m.Col == o.Col
		}
		return m.Row == o.Row && m.Col == o.Col && *m.Second == *o.Second
	}
	return m.Row == o.Row && m.Col == o.Col
}

// First returns the primary target of the move.
func (m *Move) First() Coord {
	return Coord{m.Row, m.Col}
}

// Placements returns the cells a move puts a mark on.
func (m *Move) Placements() []Coord {
	switch m.Action {
	case MoveTypePlace:
		return []Coord{m.First()}
	case MoveTypeDoubleMove:
		if m.Second == nil {
			return []Coord{m.First()}
		}
		return []Coord{m.First(), *m.Second}
	}
	return nil
}

func (m *Move) IsPower() bool {
	return m.Action != MoveTypePlace
}

// ShortDescription provides a short description, useful for logging or
// user display.
func (m *Move) ShortDescription() string {
	switch m.Action {
	case MoveTypePlace:
		return fmt.Sprintf("%v %v", m.Player, ToCoords(m.Row, m.Col))
	case MoveTypeDoubleMove:
		second := "?"
		if m.Second != nil {
			second = m.Second.String()
		}
		return fmt.Sprintf("%v double %v %v", m.Player, ToCoords(m.Row, m.Col), second)
	case MoveTypeLaneShift:
		dir := "+"
		if m.Direction < 0 {
			dir = "-"
		}
		return fmt.Sprintf("%v shift %v %d %v", m.Player, m.Axis, m.Index+1, dir)
	case MoveTypeBomb:
		return fmt.Sprintf("%v bomb %v", m.Player, ToCoords(m.Row, m.Col))
	}
	return "<unhandled move>"
}

func (m *Move) String() string {
	return "<" + m.ShortDescription() + ">"
}

var reColFirst, reRowFirst *regexp.Regexp

func init() {
	reColFirst = regexp.MustCompile(`^(?P<col>[A-Za-z])(?P<row>[0-9]+)$`)
	reRowFirst = regexp.MustCompile(`^(?P<row>[0-9]+)(?P<col>[A-Za-z])$`)
}

// ToCoords turns a 0-based row and column into user notation; column
// letter first, then the 1-based row, e.g. B2.
func ToCoords(row, col int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row+1)
}

// FromCoords parses user notation. Both B2 and 2B are accepted, in any
// case. Range checking against a board is left to the caller.
func FromCoords(coords string) (row, col int, err error) {
	coords = strings.TrimSpace(coords)
	var colStr, rowStr string
	if m := reColFirst.FindStringSubmatch(coords); m != nil {
		colStr, rowStr = m[1], m[2]
	} else if m := reRowFirst.FindStringSubmatch(coords); m != nil {
		rowStr, colStr = m[1], m[2]
	} else {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadCoords, coords)
	}
	r, err := strconv.Atoi(rowStr)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadCoords, coords)
	}
	if r < 1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadCoords, coords)
	}
	c := int(strings.ToUpper(colStr)[0] - 'A')
	return r - 1, c, nil
}

func coordFrom(s string) (Coord, error) {
	r, c, err := FromCoords(s)
	return Coord{r, c}, err
}

// ParseMove parses a move typed by a user:
//
//	b2
//	double b2 d4
//	shift row 2 +
//	shift col 1 -
//	bomb c3
func ParseMove(player board.Cell, text string) (*Move, error) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return nil, errors.New("empty move")
	}
	switch fields[0] {
	case "double", "dbl", "d":
		if len(fields) != 3 {
			return nil, errors.New("usage: double <coords> <coords>")
		}
		a, err := coordFrom(fields[1])
		if err != nil {
			return nil, err
		}
		b, err := coordFrom(fields[2])
		if err != nil {
			return nil, err
		}
		return NewDoubleMove(player, a, b), nil
	case "shift", "sh":
		if len(fields) != 4 {
			return nil, errors.New("usage: shift <row|col> <n> <+|->")
		}
		var axis Axis
		if err := axis.UnmarshalText([]byte(fields[1])); err != nil {
			return nil, err
		}
		idx, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("bad lane index %q", fields[2])
		}
		var dir int
		switch fields[3] {
		case "+", "+1", "1", "right", "down":
			dir = 1
		case "-", "-1", "left", "up":
			dir = -1
		default:
			return nil, fmt.Errorf("bad shift direction %q", fields[3])
		}
		return NewLaneShiftMove(player, axis, idx-1, dir), nil
	case "bomb", "b":
		if len(fields) != 2 {
			return nil, errors.New("usage: bomb <coords>")
		}
		c, err := coordFrom(fields[1])
		if err != nil {
			return nil, err
		}
		return NewBombMove(player, c.Row, c.Col), nil
	case "place", "play", "p":
		fields = fields[1:]
	}
	if len(fields) != 1 {
		return nil, fmt.Errorf("could not understand move %q", text)
	}
	c, err := coordFrom(fields[0])
	if err != nil {
		return nil, err
	}
	return NewPlacementMove(player, c.Row, c.Col), nil
}
