package game

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash"

	"github.com/domino14/gridwar/board"
)

const (
	MinWinLength = 3
	MaxWinLength = 4
)

var ErrInvalidConfig = errors.New("invalid variant configuration")

// VariantConfig is the set of rules for one game. It is chosen when the
// game is created and never changes afterwards.
type VariantConfig struct {
	BoardSize int `json:"boardSize" yaml:"boardSize"`
	WinLength int `json:"winLength" yaml:"winLength"`

	Gravity bool `json:"gravity" yaml:"gravity"`
	// Wrap makes lines continue across opposite edges.
	Wrap bool `json:"wrap" yaml:"wrap"`
	// Misere makes completing a line lose instead of win.
	Misere       bool `json:"misere" yaml:"misere"`
	RandomBlocks int  `json:"randomBlocks" yaml:"randomBlocks"`

	DoubleMove bool `json:"doubleMove" yaml:"doubleMove"`
	LaneShift  bool `json:"laneShift" yaml:"laneShift"`
	Bomb       bool `json:"bomb" yaml:"bomb"`
}

// ClassicConfig returns a variant with no rule modifications.
func ClassicConfig(boardSize, winLength int) VariantConfig {
	return VariantConfig{BoardSize: boardSize, WinLength: winLength}
}

// Validate checks the configuration. Callers should validate a config
// once, when they build it.
func (v VariantConfig) Validate() error {
	if v.BoardSize < board.MinDim || v.BoardSize > board.MaxDim {
		return fmt.Errorf("%w: board size %d not in [%d, %d]", ErrInvalidConfig,
			v.BoardSize, board.MinDim, board.MaxDim)
	}
	if v.WinLength < MinWinLength || v.WinLength > MaxWinLength {
		return fmt.Errorf("%w: win length %d not in [%d, %d]", ErrInvalidConfig,
			v.WinLength, MinWinLength, MaxWinLength)
	}
	if v.WinLength > v.BoardSize {
		return fmt.Errorf("%w: win length %d exceeds board size %d", ErrInvalidConfig,
			v.WinLength, v.BoardSize)
	}
	if v.RandomBlocks < 0 {
		return fmt.Errorf("%w: negative random blocks", ErrInvalidConfig)
	}
	return nil
}

// MaxBlocks is the most obstacles a game can start with.
func (v VariantConfig) MaxBlocks() int {
	limit := v.BoardSize * v.BoardSize / 4
	if v.RandomBlocks < limit {
		return v.RandomBlocks
	}
	return limit
}

func (v VariantConfig) HasPowers() bool {
	return v.DoubleMove || v.LaneShift || v.Bomb
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Canonical returns a compact string holding every rule that affects
// play.
func (v VariantConfig) Canonical() string {
	return fmt.Sprintf("%d/%d/g%dw%dm%dr%d/d%dl%db%d",
		v.BoardSize, v.WinLength,
		b2i(v.Gravity), b2i(v.Wrap), b2i(v.Misere), v.RandomBlocks,
		b2i(v.DoubleMove), b2i(v.LaneShift), b2i(v.Bomb))
}

// Fingerprint is a 64-bit digest of Canonical.
func (v VariantConfig) Fingerprint() uint64 {
	return xxhash.Sum64String(v.Canonical())
}

// Description is a human-readable list of the active rules.
func (v VariantConfig) Description() string {
	desc := fmt.Sprintf("%dx%d, %d in a row", v.BoardSize, v.BoardSize, v.WinLength)
	for _, r := range []struct {
		on   bool
		name string
	}{
		{v.Gravity, "gravity"}, {v.Wrap, "wrap"}, {v.Misere, "misère"},
		{v.DoubleMove, "double-move"}, {v.LaneShift, "lane-shift"}, {v.Bomb, "bomb"},
	} {
		if r.on {
			desc += ", " + r.name
		}
	}
	if v.RandomBlocks > 0 {
		desc += fmt.Sprintf(", up to %d blocks", v.MaxBlocks())
	}
	return desc
}
