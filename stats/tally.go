// Package stats collects simulation statistics from hooks.
package stats

import "math"

// Tally summarizes a series of observations. Each observation weighs the
// same, regardless of when it was made.
type Tally struct {
	n    int
	mean float64
	m2   float64
	sum  float64
	min  float64
	max  float64
}

// NewTally creates an empty Tally.
func NewTally() *Tally {
	t := &Tally{}
	t.Reset()

	return t
}

// Register adds an observation.
func (t *Tally) Register(x float64) {
	t.n++
	t.sum += x

	delta := x - t.mean
	t.mean += delta / float64(t.n)
	t.m2 += delta * (x - t.mean)

	t.min = math.Min(t.min, x)
	t.max = math.Max(t.max, x)
}

// Reset forgets all observations.
func (t *Tally) Reset() {
	t.n = 0
	t.mean = 0
	t.m2 = 0
	t.sum = 0
	t.min = math.Inf(1)
	t.max = math.Inf(-1)
}

// N returns the number of observations.
func (t *Tally) N() int { return t.n }

// Sum returns the sum of the observations.
func (t *Tally) Sum() float64 { return t.sum }

// Mean returns the sample mean, or NaN without observations.
func (t *Tally) Mean() float64 {
	if t.n == 0 {
		return math.NaN()
	}

	return t.mean
}

// Variance returns the unbiased sample variance, or NaN with fewer than two
// observations.
func (t *Tally) Variance() float64 {
	if t.n < 2 {
		return math.NaN()
	}

	return t.m2 / float64(t.n-1)
}

// StdDev returns the sample standard deviation.
func (t *Tally) StdDev() float64 {
	return math.Sqrt(t.Variance())
}

// Min returns the smallest observation, or NaN without observations.
func (t *Tally) Min() float64 {
	if t.n == 0 {
		return math.NaN()
	}

	return t.min
}

// Max returns the largest observation, or NaN without observations.
func (t *Tally) Max() float64 {
	if t.n == 0 {
		return math.NaN()
	}

	return t.max
}
