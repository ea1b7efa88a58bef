package game

import (
	"fmt"
	"strings"

	"github.com/domino14/gridwar/board"
)

func powerSummary(cfg VariantConfig, f PowerFlags) string {
	var avail []string
	if cfg.DoubleMove && !f.DoubleMove {
		avail = append(avail, "double")
	}
	if cfg.LaneShift && !f.LaneShift {
		avail = append(avail, "shift")
	}
	if cfg.Bomb && !f.Bomb {
		avail = append(avail, "bomb")
	}
	if len(avail) == 0 {
		return "-"
	}
	return strings.Join(avail, ",")
}

// ToDisplayText turns the game into text that is suitable for display in
// a terminal.
func (st *GameState) ToDisplayText() string {
	lines := strings.Split(strings.TrimRight(st.Board.ToDisplayText(), "\n"), "\n")

	side := []string{
		st.Config.Description(),
		"",
	}
	for _, p := range []board.Cell{board.X, board.O} {
		marker := " "
		if p == st.Current && st.Playing() {
			marker = "->"
		}
		side = append(side, fmt.Sprintf("%2s %v  powers: %s", marker, p,
			powerSummary(st.Config, st.Powers.For(p))))
	}
	if st.LastMove != nil {
		side = append(side, "", fmt.Sprintf("Last move: %v (turn %d)",
			st.LastMove.ShortDescription(), st.Turn()))
	}
	if !st.Playing() {
		if st.Winner == WinnerDraw {
			side = append(side, "Game over: draw")
		} else {
			side = append(side, fmt.Sprintf("Game over: %v wins", st.Winner))
		}
	}

	width := 0
	for _, l := range lines {
		if len(l) > width {
			width = len(l)
		}
	}
	var sb strings.Builder
	for i := 0; i < len(lines) || i < len(side); i++ {
		l := ""
		if i < len(lines) {
			l = lines[i]
		}
		if i < len(side) {
			l += strings.Repeat(" ", width-len(l)+4) + side[i]
		}
		sb.WriteString(strings.TrimRight(l, " "))
		sb.WriteString("\n")
	}
	return sb.String()
}
