package driver

import (
	"context"
	"math"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/modelrun/kvfile"
)

func echo(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
	return in.Clone(), nil
}

func TestDistributionValidate(t *testing.T) {
	valid := []Distribution{
		Normal(0, 1),
		Uniform(1, 2),
		Triangular(0, 0, 1),
		Triangular(0, 0.5, 1),
		Exponential(2),
		Weibull(1, 1.5),
	}
	for _, d := range valid {
		assert.NoError(t, d.Validate(), "%s", d)
	}
	invalid := []Distribution{
		Normal(0, 0),
		Uniform(2, 1),
		Triangular(0, 2, 1),
		Triangular(1, 1, 1),
		Exponential(0),
		Weibull(0, 1),
		Weibull(1, -1),
		{Kind: "poisson"},
	}
	for _, d := range invalid {
		assert.Error(t, d.Validate(), "%s", d)
	}
}

func TestDistributionQuantile(t *testing.T) {
	near := func(exp, got float64) bool {
		return math.Abs(exp-got) < 1e-9
	}
	assert.True(t, near(10, Normal(10, 2).Quantile(0.5)))
	assert.True(t, near(1.25, Uniform(1, 2).Quantile(0.25)))
	// peak in the middle is symmetric
	assert.True(t, near(0.5, Triangular(0, 0.5, 1).Quantile(0.5)))
	// -mean * ln(1 - p)
	assert.True(t, near(-2*math.Log(0.5), Exponential(2).Quantile(0.5)))
	// scale * (-ln(1 - p))^(1/shape)
	assert.True(t, near(3*math.Pow(-math.Log(0.3), 1/1.5), Weibull(3, 1.5).Quantile(0.7)))
}

func TestMonteCarlo(t *testing.T) {
	vars := []RandomVar{
		{Name: "panelRating", Dist: Uniform(200, 400)},
		{Name: "peakSunHours", Dist: Normal(5, 0.5)},
	}
	mc := &MonteCarlo{Vars: vars, Seed: 42}
	res, err := Run(context.Background(), mc, EvaluatorFunc(echo), nil, nil)
	assert.NoError(t, err)
	// default number of trials
	assert.Equal(t, 50, len(res.Cases))
	for _, v := range res.Values("panelRating") {
		assert.True(t, v >= 200 && v <= 400)
	}
	assert.Equal(t, 50, len(res.Values("peakSunHours")))

	// same seed, same values
	mc2 := &MonteCarlo{Vars: vars, Seed: 42, Trials: 10}
	res2, err := Run(context.Background(), mc2, EvaluatorFunc(echo), nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, 10, len(res2.Cases))
	assert.Equal(t, res.Values("panelRating")[:10], res2.Values("panelRating"))

	_, err = Run(context.Background(), &MonteCarlo{}, EvaluatorFunc(echo), nil, nil)
	assert.Error(t, err)
	bad := &MonteCarlo{Vars: []RandomVar{{Name: "x", Dist: Normal(0, -1)}}}
	_, err = Run(context.Background(), bad, EvaluatorFunc(echo), nil, nil)
	assert.Error(t, err)
	dup := &MonteCarlo{Vars: []RandomVar{{Name: "x", Dist: Normal(0, 1)}, {Name: "x", Dist: Normal(0, 1)}}}
	_, err = Run(context.Background(), dup, EvaluatorFunc(echo), nil, nil)
	assert.Error(t, err)
}

func TestStratifiedSamples(t *testing.T) {
	n := 20
	samples := stratifiedSamples(newRand(7), n, 3)
	assert.Equal(t, n, len(samples))
	for j := range 3 {
		// every stratum has exactly one sample
		strata := make([]int, n)
		for i := range n {
			u := samples[i][j]
			assert.True(t, u > 0 && u < 1)
			strata[int(u*float64(n))]++
		}
		for _, cnt := range strata {
			assert.Equal(t, 1, cnt)
		}
	}
}

func TestLatinHypercube(t *testing.T) {
	vars := []RandomVar{
		{Name: "a", Dist: Uniform(0, 10)},
		{Name: "b", Dist: Triangular(0, 1, 4)},
		{Name: "c", Dist: Exponential(1)},
		{Name: "d", Dist: Weibull(2, 2)},
	}
	lhs := &LatinHypercube{Vars: vars, Samples: 10, Seed: 1}
	res, err := Run(context.Background(), lhs, EvaluatorFunc(echo), nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, 10, len(res.Cases))

	// uniform(0, 10) with 10 strata: one value in each [i, i+1)
	seen := make([]bool, 10)
	for _, v := range res.Values("a") {
		seen[int(v)] = true
	}
	for i, ok := range seen {
		assert.True(t, ok, "stratum %d", i)
	}
	for _, v := range res.Values("b") {
		assert.True(t, v >= 0 && v <= 4)
	}
	for _, v := range res.Values("c") {
		assert.True(t, v > 0)
	}

	_, err = Run(context.Background(), &LatinHypercube{}, EvaluatorFunc(echo), nil, nil)
	assert.Error(t, err)
}
