package negamax

import (
	"math/bits"
	"sync/atomic"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gridwar/zobrist"
)

// Bound says how a stored score relates to the true value of the node.
type Bound uint8

const (
	// BoundNone marks an empty slot.
	BoundNone Bound = iota
	BoundExact
	// BoundLower: the true value is at least the score (fail high).
	BoundLower
	// BoundUpper: the true value is at most the score (fail low).
	BoundUpper
)

const entrySize = 16

const (
	minTTPowerOf2 = 16
	maxTTPowerOf2 = 22
	// a 3x3 board has fewer than 3^9 positions.
	smallBoardTTPowerOf2 = 16
)

// TableEntry is one slot of the table. It is entrySize bytes.
type TableEntry struct {
	key   uint64
	score int32
	depth uint8
	bound Bound
	// square index of the best placement plus one; 0 means none.
	best uint8
	// search generation the entry was written in.
	age uint8
}

func (t TableEntry) valid() bool {
	return t.bound != BoundNone
}

// moveIndex returns the square of the stored best move, or -1.
func (t TableEntry) moveIndex() int {
	return int(t.best) - 1
}

// TranspositionTable is a fixed-size, power-of-two array of entries
// indexed by the low bits of the zobrist key. It keeps its contents
// between searches; entries from older searches are replaced first.
type TranspositionTable struct {
	table []TableEntry
	mask  uint64
	pow   int
	age   uint8

	stores     atomic.Uint64
	lookups    atomic.Uint64
	hits       atomic.Uint64
	collisions atomic.Uint64

	zobrist *zobrist.Zobrist
}

func (t *TranspositionTable) lookup(key uint64) TableEntry {
	t.lookups.Add(1)
	e := t.table[key&t.mask]
	if e.key != key {
		if e.valid() {
			// another position occupies the slot
			t.collisions.Add(1)
		}
		return TableEntry{}
	}
	t.hits.Add(1)
	return e
}

// store writes e unless the slot holds a deeper result for a different
// position from the current search.
func (t *TranspositionTable) store(key uint64, e TableEntry) {
	slot := &t.table[key&t.mask]
	if slot.valid() && slot.key != key && slot.age == t.age && slot.depth > e.depth {
		return
	}
	e.key = key
	e.age = t.age
	*slot = e
	t.stores.Add(1)
}

// tablePowerOf2 returns log2 of the slot count for a fraction of system
// memory, clamped for the board size.
func tablePowerOf2(fractionOfMemory float64, totalMem uint64, boardDim int) int {
	hi := maxTTPowerOf2
	if boardDim <= 3 {
		hi = smallBoardTTPowerOf2
	}
	want := uint64(fractionOfMemory * float64(totalMem) / entrySize)
	pow := minTTPowerOf2
	if want > 0 {
		pow = bits.Len64(want) - 1
	}
	return max(minTTPowerOf2, min(pow, hi))
}

// Reset sizes the table from a fraction of system memory and clears it.
// The zobrist tables are rebuilt when the board dimension changes.
func (t *TranspositionTable) Reset(fractionOfMemory float64, boardDim int) {
	totalMem := memory.TotalMemory()
	t.pow = tablePowerOf2(fractionOfMemory, totalMem, boardDim)
	n := 1 << t.pow
	t.mask = uint64(n - 1)
	if len(t.table) == n {
		clear(t.table)
	} else {
		t.table = make([]TableEntry, n)
	}
	t.age = 0

	if t.zobrist == nil || t.zobrist.BoardDim() != boardDim {
		t.zobrist = &zobrist.Zobrist{}
		t.zobrist.Initialize(boardDim)
	}

	log.Debug().Int("slots", n).
		Int("table-bytes", n*entrySize).
		Uint64("system-memory-bytes", totalMem).
		Int("board-dim", boardDim).
		Msg("transposition-table-reset")

	t.resetCounters()
}

// newSearch starts a search generation without clearing the table.
func (t *TranspositionTable) newSearch() {
	t.age++
	t.resetCounters()
}

func (t *TranspositionTable) resetCounters() {
	t.stores.Store(0)
	t.lookups.Store(0)
	t.hits.Store(0)
	t.collisions.Store(0)
}

func (t *TranspositionTable) Zobrist() *zobrist.Zobrist {
	return t.zobrist
}

// Stats returns stores, lookups, hits and slot collisions since the last
// search started.
func (t *TranspositionTable) Stats() (uint64, uint64, uint64, uint64) {
	return t.stores.Load(), t.lookups.Load(), t.hits.Load(), t.collisions.Load()
}

// DebugTranspositionTable is keyed by game.CanonicalKey instead of a
// hash. It is slow but cannot collide, which makes it useful for
// checking the real table.
type DebugTranspositionTable struct {
	table   map[string]TableEntry
	stores  uint64
	lookups uint64
	hits    uint64
}

func (t *DebugTranspositionTable) lookup(key string) TableEntry {
	t.lookups++
	entry, ok := t.table[key]
	if ok {
		t.hits++
	}
	return entry
}

func (t *DebugTranspositionTable) store(key string, e TableEntry) {
	t.table[key] = e
	t.stores++
}

func (t *DebugTranspositionTable) reset() {
	t.table = make(map[string]TableEntry)
	t.stores, t.lookups, t.hits = 0, 0, 0
}
