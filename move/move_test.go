package move

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/gridwar/board"
)

type coordTestStruct struct {
	row    int
	col    int
	output string
}

var coordTests = []coordTestStruct{
	{0, 0, "A1"},
	{5, 5, "F6"},
	{1, 2, "C2"},
	{3, 0, "A4"},
}

func TestToCoords(t *testing.T) {
	for _, tc := range coordTests {
		calc := ToCoords(tc.row, tc.col)
		if calc != tc.output {
			t.Errorf("For row=%v col=%v got %v, expected %v",
				tc.row, tc.col, calc, tc.output)
		}
	}
}

func TestFromCoords(t *testing.T) {
	is := is.New(t)
	for _, tc := range coordTests {
		row, col, err := FromCoords(tc.output)
		is.NoErr(err)
		is.Equal(row, tc.row)
		is.Equal(col, tc.col)
	}
	row, col, err := FromCoords("3b")
	is.NoErr(err)
	is.Equal(row, 2)
	is.Equal(col, 1)

	for _, bad := range []string{"", "b0", "bb", "12", "b-1"} {
		_, _, err = FromCoords(bad)
		is.True(errors.Is(err, ErrBadCoords))
	}
}

func TestParseMove(t *testing.T) {
	is := is.New(t)
	for _, tc := range []struct {
		text string
		exp  *Move
	}{
		{"b2", NewPlacementMove(board.X, 1, 1)},
		{"play c1", NewPlacementMove(board.X, 0, 2)},
		{"double a1 c3", NewDoubleMove(board.X, Coord{0, 0}, Coord{2, 2})},
		{"shift row 2 +", NewLaneShiftMove(board.X, AxisRow, 1, 1)},
		{"shift col 1 -", NewLaneShiftMove(board.X, AxisCol, 0, -1)},
		{"bomb C3", NewBombMove(board.X, 2, 2)},
	} {
		m, err := ParseMove(board.X, tc.text)
		is.NoErr(err)
		is.True(m.Equals(tc.exp))
		is.Equal(m.Player, board.X)
	}
	for _, bad := range []string{"", "double a1", "shift diag 1 +", "shift row 1 x", "bomb", "a1 b2"} {
		_, err := ParseMove(board.O, bad)
		is.True(err != nil)
	}
}

func TestShortDescription(t *testing.T) {
	is := is.New(t)
	is.Equal(NewPlacementMove(board.O, 2, 1).ShortDescription(), "O B3")
	is.Equal(NewDoubleMove(board.X, Coord{0, 0}, Coord{2, 3}).ShortDescription(), "X double A1 D3")
	is.Equal(NewLaneShiftMove(board.X, AxisCol, 2, -1).ShortDescription(), "X shift col 3 -")
	is.Equal(NewBombMove(board.O, 0, 1).ShortDescription(), "O bomb B1")
}

func TestJSON(t *testing.T) {
	is := is.New(t)
	m := NewDoubleMove(board.O, Coord{0, 1}, Coord{3, 2})
	data, err := json.Marshal(m)
	is.NoErr(err)
	is.Equal(string(data), `{"type":"double","player":"O","row":0,"col":1,"second":{"row":3,"col":2}}`)

	var back Move
	is.NoErr(json.Unmarshal([]byte(`{"type":"shift","player":"X","axis":"col","index":2,"direction":-1}`), &back))
	is.True(back.Equals(NewLaneShiftMove(board.X, AxisCol, 2, -1)))
	is.Equal(back.Player, board.X)
}

func TestCopy(t *testing.T) {
	is := is.New(t)
	m := NewDoubleMove(board.X, Coord{0, 0}, Coord{2, 2})
	c := m.Copy()
	c.Second.Row = 1
	is.Equal(m.Second.Row, 2)
}

func TestChebyshev(t *testing.T) {
	is := is.New(t)
	is.Equal(Coord{0, 0}.Chebyshev(Coord{1, 1}), 1)
	is.Equal(Coord{0, 0}.Chebyshev(Coord{2, 1}), 2)
	is.Equal(Coord{3, 3}.Chebyshev(Coord{3, 3}), 0)
}
