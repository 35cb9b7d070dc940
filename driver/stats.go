package driver

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kjk/modelrun/kvfile"
)

// Stat summarizes values of an output over all cases
type Stat struct {
	N    int
	Mean float64
	// sample standard deviation, 0 if N < 2
	StdDev float64
	Min    float64
	Max    float64
}

// Values returns values of output key that parse as numbers, in case order
func (r *Result) Values(key string) []float64 {
	var res []float64
	for _, c := range r.Cases {
		if v, err := c.Out.Float(key); err == nil {
			res = append(res, v)
		}
	}
	return res
}

// InputValues is like Values but for inputs
func (r *Result) InputValues(key string) []float64 {
	var res []float64
	for _, c := range r.Cases {
		if v, err := c.In.Float(key); err == nil {
			res = append(res, v)
		}
	}
	return res
}

// OutputKeys returns output keys of all cases, in order of first appearance
func (r *Result) OutputKeys() []string {
	seen := map[string]bool{}
	var res []string
	for _, c := range r.Cases {
		for k := range c.Out.All() {
			if !seen[k] {
				seen[k] = true
				res = append(res, k)
			}
		}
	}
	return res
}

// Stats returns statistics of outputs. With no keys, of all numeric outputs.
func (r *Result) Stats(keys ...string) map[string]Stat {
	if len(keys) == 0 {
		keys = r.OutputKeys()
	}
	res := map[string]Stat{}
	for _, k := range keys {
		vals := r.Values(k)
		if len(vals) == 0 {
			continue
		}
		res[k] = computeStat(vals)
	}
	return res
}

func computeStat(vals []float64) Stat {
	s := Stat{
		N:   len(vals),
		Min: floats.Min(vals),
		Max: floats.Max(vals),
	}
	if s.N == 1 {
		s.Mean = vals[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(vals, nil)
	return s
}

// StatsRecord returns statistics as a record with keys ${key}.mean, ${key}.std etc.
func StatsRecord(stats map[string]Stat, keys []string) *kvfile.Record {
	rec := kvfile.New()
	for _, k := range keys {
		s, ok := stats[k]
		if !ok {
			continue
		}
		rec.Set(k+".n", s.N)
		rec.Set(k+".mean", s.Mean)
		rec.Set(k+".std", s.StdDev)
		rec.Set(k+".min", s.Min)
		rec.Set(k+".max", s.Max)
	}
	return rec
}
