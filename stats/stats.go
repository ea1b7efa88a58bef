// Package stats has the running statistics used by self-play analysis.
package stats

import "math"

const (
	Epsilon = 1e-6
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Statistic is a running mean and variance (Welford's algorithm).
type Statistic struct {
	n    int
	last float64
	mean float64
	m2   float64
	min  float64
	max  float64
}

func (s *Statistic) Push(val float64) {
	s.last = val
	s.n++
	if s.n == 1 || val < s.min {
		s.min = val
	}
	if s.n == 1 || val > s.max {
		s.max = val
	}
	delta := val - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (val - s.mean)
}

func (s *Statistic) Mean() float64 {
	return s.mean
}

// Variance is the sample variance.
func (s *Statistic) Variance() float64 {
	if s.n <= 1 {
		return 0.0
	}
	return s.m2 / float64(s.n-1)
}

func (s *Statistic) Stdev() float64 {
	return math.Sqrt(s.Variance())
}

func (s *Statistic) Last() float64 {
	return s.last
}

func (s *Statistic) Min() float64 {
	return s.min
}

func (s *Statistic) Max() float64 {
	return s.max
}

// StandardError returns the standard error of the mean.
func (s *Statistic) StandardError() float64 {
	if s.n == 0 {
		return 0
	}
	return math.Sqrt(s.Variance() / float64(s.n))
}

func (s *Statistic) Iterations() int {
	return s.n
}

// WinRate tallies game results from one side's point of view. A draw
// counts as half a win.
type WinRate struct {
	Wins   int
	Draws  int
	Losses int
}

func (w WinRate) Games() int {
	return w.Wins + w.Draws + w.Losses
}

// Score is the fraction of points won.
func (w WinRate) Score() float64 {
	if w.Games() == 0 {
		return 0
	}
	return (float64(w.Wins) + 0.5*float64(w.Draws)) / float64(w.Games())
}

// Interval returns the normal-approximation confidence interval around
// Score, for a confidence given in percent.
func (w WinRate) Interval(confidence float64) (float64, float64) {
	n := float64(w.Games())
	if n == 0 {
		return 0, 1
	}
	p := w.Score()
	half := ZVal(confidence) * math.Sqrt(p*(1-p)/n)
	return math.Max(0, p-half), math.Min(1, p+half)
}
