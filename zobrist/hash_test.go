package zobrist

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/game"
	"github.com/domino14/gridwar/move"
)

func TestPlayAndUnplay(t *testing.T) {
	is := is.New(t)
	z := &Zobrist{}
	z.Initialize(3)

	st, err := game.CreateGame(game.ClassicConfig(3, 3))
	is.NoErr(err)
	h := z.Hash(st)
	h1 := z.AddPlacement(h, 1, 1, board.X)
	h2 := z.AddPlacement(h1, 1, 1, board.X)
	is.Equal(h, h2)
	is.True(h1 != h2) // extremely unlikely to collide, but this is not technically always true.
}

func TestIncrementalMatchesFull(t *testing.T) {
	is := is.New(t)
	z := &Zobrist{}
	z.Initialize(4)
	cfg := game.ClassicConfig(4, 3)
	cfg.Gravity = true
	st, err := game.CreateGame(cfg)
	is.NoErr(err)

	key := z.Hash(st)
	for _, c := range []move.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 0}, {Row: 2, Col: 3}} {
		player := st.Current
		st, err = game.ApplyMove(st, move.NewPlacementMove(player, c.Row, c.Col))
		is.NoErr(err)
		key = z.AddPlacement(key, st.LastMove.Row, st.LastMove.Col, player)
		is.Equal(key, z.Hash(st))
	}
}

func TestVariantAndPowersChangeHash(t *testing.T) {
	is := is.New(t)
	z := &Zobrist{}
	z.Initialize(3)
	cfg := game.ClassicConfig(3, 3)
	st, err := game.CreateGame(cfg)
	is.NoErr(err)
	base := z.Hash(st)

	cfg.Misere = true
	misere, err := game.CreateGame(cfg)
	is.NoErr(err)
	is.True(z.Hash(misere) != base)

	used := st.Copy()
	used.Powers.X.Bomb = true
	is.True(z.Hash(used) != base)

	turn := st.Copy()
	turn.Current = board.O
	is.True(z.Hash(turn) != base)
}
