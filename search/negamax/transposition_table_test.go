package negamax

import (
	"testing"
	"unsafe"

	"github.com/matryer/is"
)

const testKey = 9409641586937047728

func TestTableEntryLookup(t *testing.T) {
	is := is.New(t)
	is.Equal(unsafe.Sizeof(TableEntry{}), uintptr(entrySize))

	tt := &TranspositionTable{}
	tt.Reset(0, 4)
	is.Equal(tt.pow, minTTPowerOf2)
	is.Equal(tt.Zobrist().BoardDim(), 4)

	tt.store(testKey, TableEntry{score: 12, depth: 23, bound: BoundUpper, best: 5})

	te := tt.lookup(testKey)
	is.True(te.valid())
	is.Equal(te.depth, uint8(23))
	is.Equal(te.bound, BoundUpper)
	is.Equal(te.score, int32(12))
	is.Equal(te.moveIndex(), 4)

	// same slot, different position
	te = tt.lookup(testKey + (1 << 40))
	is.Equal(te, TableEntry{})
	is.Equal(tt.collisions.Load(), uint64(1))

	// an empty slot is not a collision
	te = tt.lookup(testKey + 1)
	is.Equal(te, TableEntry{})
	is.Equal(tt.lookups.Load(), uint64(3))
	is.Equal(tt.collisions.Load(), uint64(1))
}

func TestTableReplacement(t *testing.T) {
	is := is.New(t)
	tt := &TranspositionTable{}
	tt.Reset(0, 4)
	other := uint64(testKey + (1 << 40))

	tt.store(testKey, TableEntry{score: 1, depth: 6, bound: BoundExact})
	// shallower result for another position in the same search: kept out
	tt.store(other, TableEntry{score: 2, depth: 3, bound: BoundExact})
	is.Equal(tt.lookup(testKey).score, int32(1))
	is.True(!tt.lookup(other).valid())

	// the same position is always overwritten
	tt.store(testKey, TableEntry{score: 7, depth: 2, bound: BoundLower})
	is.Equal(tt.lookup(testKey).score, int32(7))

	// entries from an older search give way
	tt.store(testKey, TableEntry{score: 1, depth: 6, bound: BoundExact})
	tt.newSearch()
	tt.store(other, TableEntry{score: 2, depth: 3, bound: BoundExact})
	is.Equal(tt.lookup(other).score, int32(2))
	is.True(!tt.lookup(testKey).valid())
	stores, _, _, _ := tt.Stats()
	is.Equal(stores, uint64(1))
}

func TestTablePowerOf2(t *testing.T) {
	is := is.New(t)
	const gib = 1 << 30
	is.Equal(tablePowerOf2(0, 16*gib, 5), minTTPowerOf2)
	is.Equal(tablePowerOf2(0.5, 16*gib, 3), smallBoardTTPowerOf2)
	is.Equal(tablePowerOf2(0.5, 16*gib, 6), maxTTPowerOf2)
	// 2^20 bytes of 16-byte entries is 2^16 slots
	is.Equal(tablePowerOf2(1, 1<<20, 6), 16)
	is.Equal(tablePowerOf2(1, 1<<24, 6), 20)
}

func TestTableSizeClamp(t *testing.T) {
	is := is.New(t)
	tt := &TranspositionTable{}
	tt.Reset(0.5, 3)
	is.Equal(tt.pow, smallBoardTTPowerOf2)
	tt.Reset(0.5, 6)
	is.True(tt.pow <= maxTTPowerOf2)
	is.Equal(len(tt.table), 1<<tt.pow)
	is.Equal(tt.Zobrist().BoardDim(), 6)
}

func TestDebugTable(t *testing.T) {
	is := is.New(t)
	dt := &DebugTranspositionTable{}
	dt.reset()
	dt.store("X../.../...|O", TableEntry{score: 3, depth: 2, bound: BoundExact})
	e := dt.lookup("X../.../...|O")
	is.True(e.valid())
	is.Equal(e.depth, uint8(2))
	is.True(!dt.lookup("nope").valid())
	is.Equal(dt.hits, uint64(1))
	is.Equal(dt.lookups, uint64(2))
}
