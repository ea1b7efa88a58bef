package zobrist

import (
	"lukechampine.com/frand"

	"github.com/domino14/gridwar/board"
	"github.com/domino14/gridwar/game"
)

const bignum = 1<<63 - 2

// number of distinct non-empty cell contents.
const cellKinds = int(board.Bombed) + 1

// Zobrist generates zobrist hashes for game positions.
// https://en.wikipedia.org/wiki/Zobrist_hashing
type Zobrist struct {
	oTurn uint64

	posTable   [][cellKinds]uint64
	powerTable [2][3]uint64

	boardDim int
}

func (z *Zobrist) Initialize(boardDim int) {
	z.boardDim = boardDim
	z.posTable = make([][cellKinds]uint64, boardDim*boardDim)
	for i := range z.posTable {
		// index 0 (empty) stays 0 so empty squares do not contribute.
		for j := 1; j < cellKinds; j++ {
			z.posTable[i][j] = frand.Uint64n(bignum) + 1
		}
	}
	for p := 0; p < 2; p++ {
		for i := 0; i < 3; i++ {
			z.powerTable[p][i] = frand.Uint64n(bignum) + 1
		}
	}
	z.oTurn = frand.Uint64n(bignum) + 1
}

func (z *Zobrist) BoardDim() int {
	return z.boardDim
}

// https://stackoverflow.com/a/12996028/1737333
func hashUint64(x uint64) uint64 {
	x = (x ^ (x >> 30)) * uint64(0xbf58476d1ce4e5b9)
	x = (x ^ (x >> 27)) * uint64(0x94d049bb133111eb)
	x = x ^ (x >> 31)
	return x
}

// Hash computes the key of a position from scratch. The variant rules
// are mixed in, so the same board under different rules hashes apart.
func (z *Zobrist) Hash(st *game.GameState) uint64 {
	key := hashUint64(st.Config.Fingerprint())
	for r := 0; r < z.boardDim; r++ {
		for c := 0; c < z.boardDim; c++ {
			key ^= z.posTable[r*z.boardDim+c][st.Board.At(r, c)]
		}
	}
	if st.Current == board.O {
		key ^= z.oTurn
	}
	for p, f := range []game.PowerFlags{st.Powers.X, st.Powers.O} {
		for i, used := range []bool{f.DoubleMove, f.LaneShift, f.Bomb} {
			if used {
				key ^= z.powerTable[p][i]
			}
		}
	}
	return key
}

// AddPlacement updates key for a mark landing on an empty square, which
// also passes the turn. Calling it again with the same arguments undoes
// the placement.
func (z *Zobrist) AddPlacement(key uint64, row, col int, player board.Cell) uint64 {
	key ^= z.posTable[row*z.boardDim+col][player]
	key ^= z.oTurn
	return key
}
