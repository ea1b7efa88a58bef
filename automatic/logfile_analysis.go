package automatic

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aybabtme/uniplot/histogram"

	"github.com/domino14/gridwar/stats"
)

const histogramBins = 10

// LogSummary is what a self-play log says about the two players.
type LogSummary struct {
	P1Name, P2Name string
	// P1 counts results from player one's point of view.
	P1 stats.WinRate
	// First counts results from the point of view of whoever moved first.
	First   stats.WinRate
	P1First int
	Plies   stats.Statistic
	plies   []float64
}

func (s *LogSummary) String() string {
	var sb strings.Builder
	games := s.P1.Games()
	fmt.Fprintf(&sb, "Games played: %d\n", games)
	if games == 0 {
		return sb.String()
	}
	lo, hi := s.P1.Interval(95)
	fmt.Fprintf(&sb, "%v wins: %d, draws: %d, losses: %d\n", s.P1Name, s.P1.Wins, s.P1.Draws, s.P1.Losses)
	fmt.Fprintf(&sb, "%v score: %.3f (95%% interval %.3f - %.3f)\n", s.P1Name, s.P1.Score(), lo, hi)
	fmt.Fprintf(&sb, "%v went first: %d (%.3f%%)\n", s.P1Name, s.P1First,
		100.0*float64(s.P1First)/float64(games))
	fmt.Fprintf(&sb, "Player who went first: wins %d, draws %d, losses %d, score %.3f\n",
		s.First.Wins, s.First.Draws, s.First.Losses, s.First.Score())
	fmt.Fprintf(&sb, "Game length: mean %.3f plies, stdev %.3f, min %.0f, max %.0f\n",
		s.Plies.Mean(), s.Plies.Stdev(), s.Plies.Min(), s.Plies.Max())
	sb.WriteString("Game length histogram:\n")
	hist := histogram.Hist(histogramBins, s.plies)
	if err := histogram.Fprint(&sb, hist, histogram.Linear(40)); err != nil {
		fmt.Fprintf(&sb, "(could not draw histogram: %v)\n", err)
	}
	return sb.String()
}

// SummarizeLog reads a self-play CSV log.
func SummarizeLog(r io.Reader) (*LogSummary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6
	s := &LogSummary{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if record[0] == "gameID" {
			continue
		}
		p1, p2, first, winner := record[1], record[2], record[3], record[4]
		if s.P1Name == "" {
			s.P1Name, s.P2Name = p1, p2
		}
		plies, err := strconv.Atoi(record[5])
		if err != nil {
			return nil, fmt.Errorf("bad plies %q: %w", record[5], err)
		}
		s.Plies.Push(float64(plies))
		s.plies = append(s.plies, float64(plies))
		if first == p1 {
			s.P1First++
		}
		switch winner {
		case DrawName:
			s.P1.Draws++
			s.First.Draws++
		case p1, p2:
			if winner == p1 {
				s.P1.Wins++
			} else {
				s.P1.Losses++
			}
			if winner == first {
				s.First.Wins++
			} else {
				s.First.Losses++
			}
		default:
			return nil, fmt.Errorf("winner %q is neither player", winner)
		}
	}
	if s.P1.Games() == 0 {
		return nil, errors.New("no games in log")
	}
	return s, nil
}

// AnalyzeLogFile summarizes the self-play log at filepath.
func AnalyzeLogFile(filepath string) (string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	s, err := SummarizeLog(file)
	if err != nil {
		return "", err
	}
	return s.String(), nil
}
