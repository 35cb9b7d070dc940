package driver

import (
	"fmt"
	"math/rand/v2"

	"github.com/kjk/modelrun/kvfile"
	"github.com/kjk/modelrun/log"
)

// MonteCarlo evaluates Trials cases with every variable drawn
// independently from its distribution
type MonteCarlo struct {
	Vars []RandomVar `yaml:"vars"`
	// default 50
	Trials int `yaml:"trials"`
	// 0 means random seed
	Seed uint64 `yaml:"seed"`

	rng    *rand.Rand
	trials int
	trial  int
}

func (m *MonteCarlo) Name() string {
	return "montecarlo"
}

func pickSeed(seed uint64, name string) uint64 {
	if seed == 0 {
		seed = rand.Uint64()
		log.Verbosef("%s: using seed %d\n", name, seed)
	}
	return seed
}

func (m *MonteCarlo) Begin(base *kvfile.Record) error {
	if err := validateVars(m.Vars); err != nil {
		return fmt.Errorf("montecarlo: %w", err)
	}
	m.trials = m.Trials
	if m.trials <= 0 {
		m.trials = 50
	}
	m.trial = 0
	m.rng = newRand(pickSeed(m.Seed, m.Name()))
	return nil
}

func (m *MonteCarlo) Propose(in *kvfile.Record) error {
	for _, v := range m.Vars {
		in.Set(v.Name, v.Dist.Quantile(openUnit(m.rng)))
	}
	return nil
}

func (m *MonteCarlo) Observe(in, out *kvfile.Record) (bool, error) {
	m.trial++
	return m.trial < m.trials, nil
}

// LatinHypercube evaluates Samples cases. The range of every variable is
// split into Samples strata of equal probability and each stratum is
// sampled exactly once, in random order.
type LatinHypercube struct {
	Vars []RandomVar `yaml:"vars"`
	// default 50
	Samples int `yaml:"samples"`
	// 0 means random seed
	Seed uint64 `yaml:"seed"`

	// [case][variable], uniform in (0, 1)
	samples [][]float64
	trial   int
}

func (l *LatinHypercube) Name() string {
	return "lhs"
}

func (l *LatinHypercube) Begin(base *kvfile.Record) error {
	if err := validateVars(l.Vars); err != nil {
		return fmt.Errorf("lhs: %w", err)
	}
	n := l.Samples
	if n <= 0 {
		n = 50
	}
	l.samples = stratifiedSamples(newRand(pickSeed(l.Seed, l.Name())), n, len(l.Vars))
	l.trial = 0
	return nil
}

// stratifiedSamples returns n rows of dim values in (0, 1). For every
// column, row perm[i] gets a value from stratum (i/n, (i+1)/n).
func stratifiedSamples(rng *rand.Rand, n int, dim int) [][]float64 {
	res := make([][]float64, n)
	for i := range res {
		res[i] = make([]float64, dim)
	}
	for j := range dim {
		perm := rng.Perm(n)
		for i := range n {
			res[perm[i]][j] = (float64(i) + openUnit(rng)) / float64(n)
		}
	}
	return res
}

func (l *LatinHypercube) Propose(in *kvfile.Record) error {
	row := l.samples[l.trial]
	for i, v := range l.Vars {
		in.Set(v.Name, v.Dist.Quantile(row[i]))
	}
	return nil
}

func (l *LatinHypercube) Observe(in, out *kvfile.Record) (bool, error) {
	l.trial++
	return l.trial < len(l.samples), nil
}
