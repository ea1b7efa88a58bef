package game

import (
	"strings"

	"github.com/cespare/xxhash"
)

// CanonicalKey identifies a position for transposition purposes: board
// contents, side to move, every rule that affects play and the powers
// already spent.
func CanonicalKey(st *GameState) string {
	var sb strings.Builder
	sb.WriteString(st.Board.String())
	sb.WriteByte('|')
	sb.WriteString(st.Current.String())
	sb.WriteByte('|')
	sb.WriteString(st.Config.Canonical())
	sb.WriteByte('|')
	for _, f := range []PowerFlags{st.Powers.X, st.Powers.O} {
		for _, used := range []bool{f.DoubleMove, f.LaneShift, f.Bomb} {
			if used {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}

// KeyDigest is a 64-bit digest of CanonicalKey.
func KeyDigest(st *GameState) uint64 {
	return xxhash.Sum64String(CanonicalKey(st))
}
