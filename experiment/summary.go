package experiment

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Confidence is the confidence level of Aggregate.HalfWidth.
const Confidence = 0.95

// Aggregate summarizes one statistic across replications. Each replication
// contributes the mean it observed.
type Aggregate struct {
	Name      string  `structs:"name"`
	Kind      string  `structs:"kind"`
	N         int     `structs:"replications"`
	Mean      float64 `structs:"mean"`
	StdDev    float64 `structs:"std_dev"`
	HalfWidth float64 `structs:"half_width"`
	Min       float64 `structs:"min"`
	Max       float64 `structs:"max"`
}

// Low returns the lower bound of the confidence interval.
func (a Aggregate) Low() float64 { return a.Mean - a.HalfWidth }

// High returns the upper bound of the confidence interval.
func (a Aggregate) High() float64 { return a.Mean + a.HalfWidth }

// Summarize aggregates every statistic across the replications, sorted by
// name. Replications without observations of a statistic are left out of
// its aggregate.
func Summarize(results []ReplicationResult) []Aggregate {
	means := make(map[string][]float64)
	kinds := make(map[string]string)

	for _, r := range results {
		for _, s := range r.Statistics {
			kinds[s.Name] = s.Kind
			if math.IsNaN(s.Mean) {
				continue
			}

			means[s.Name] = append(means[s.Name], s.Mean)
		}
	}

	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}

	sort.Strings(names)

	aggregates := make([]Aggregate, 0, len(names))
	for _, name := range names {
		a := aggregate(means[name])
		a.Name = name
		a.Kind = kinds[name]
		aggregates = append(aggregates, a)
	}

	return aggregates
}

func aggregate(xs []float64) Aggregate {
	a := Aggregate{
		N:         len(xs),
		Mean:      math.NaN(),
		StdDev:    math.NaN(),
		HalfWidth: math.NaN(),
		Min:       math.NaN(),
		Max:       math.NaN(),
	}

	if len(xs) == 0 {
		return a
	}

	a.Min, a.Max = xs[0], xs[0]
	for _, x := range xs {
		a.Min = math.Min(a.Min, x)
		a.Max = math.Max(a.Max, x)
	}

	if len(xs) == 1 {
		a.Mean = xs[0]
		return a
	}

	a.Mean, a.StdDev = stat.MeanStdDev(xs, nil)

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(len(xs) - 1)}
	a.HalfWidth = t.Quantile(1-(1-Confidence)/2) * a.StdDev /
		math.Sqrt(float64(len(xs)))

	return a
}
