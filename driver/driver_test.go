package driver

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/modelrun/journal"
	"github.com/kjk/modelrun/kvfile"
)

// y = (x - 3)^2, echoes inputs
func parabola(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
	x, err := in.Float("x")
	if err != nil {
		return nil, err
	}
	out := kvfile.New()
	out.Set("y", (x-3)*(x-3))
	return out, nil
}

func countingEvaluator(n *int) Evaluator {
	return EvaluatorFunc(func(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
		*n++
		return parabola(ctx, in)
	})
}

func TestParamStudy(t *testing.T) {
	base, _ := kvfile.FromPairs("x", 0, "other", "keep")
	d := &ParamStudy{Variable: "x", From: 200, To: 400, Steps: 5}
	res, err := Run(context.Background(), d, EvaluatorFunc(parabola), base, nil)
	assert.NoError(t, err)
	assert.Equal(t, "paramstudy", res.Driver)
	assert.NotEqual(t, "", res.RunID)
	assert.Equal(t, []float64{200, 250, 300, 350, 400}, res.InputValues("x"))
	for _, c := range res.Cases {
		v, _ := c.In.Get("other")
		assert.Equal(t, "keep", v)
	}
	// base is not modified
	v, _ := base.Get("x")
	assert.Equal(t, "0", v)
}

func TestParamStudyMinSteps(t *testing.T) {
	for _, steps := range []int{-1, 0, 1, 2} {
		d := &ParamStudy{Variable: "x", From: 1, To: 2, Steps: steps}
		res, err := Run(context.Background(), d, EvaluatorFunc(parabola), nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, []float64{1, 2}, res.InputValues("x"))
	}
	_, err := Run(context.Background(), &ParamStudy{}, EvaluatorFunc(parabola), nil, nil)
	assert.Error(t, err)
}

func TestMinimizer(t *testing.T) {
	base, _ := kvfile.FromPairs("x", 0)
	m := &Minimizer{Variable: "x", Objective: "y"}
	res, err := Run(context.Background(), m, EvaluatorFunc(parabola), base, nil)
	assert.NoError(t, err)
	// reverses and halves the step every time it overshoots 3
	exp := []float64{0, 1, 2, 3, 4, 3.5, 3, 2.5, 2.75, 3, 3.25, 3.125, 3, 2.875, 2.9375, 3}
	assert.Equal(t, exp, res.InputValues("x"))
	assert.Equal(t, 3.0, m.X())
	assert.Equal(t, 15, m.Iterations())
	assert.Equal(t, 0.0625, m.CurrentStep())
	last := res.Last()
	y, _ := last.Out.Float("y")
	assert.True(t, y < 0.01)
}

func TestMinimizerMaxIterations(t *testing.T) {
	// y = -x has no minimum
	ev := EvaluatorFunc(func(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
		x, _ := in.Float("x")
		return kvfile.FromPairs("y", -x)
	})
	m := &Minimizer{Variable: "x", Objective: "y", MaxIterations: 5}
	res, err := Run(context.Background(), m, ev, nil, nil)
	assert.True(t, errors.Is(err, ErrMaxIterations))
	// base point + 5 steps
	assert.Equal(t, 6, len(res.Cases))
}

func TestMinimizerMissingObjective(t *testing.T) {
	m := &Minimizer{Variable: "x", Objective: "nope"}
	_, err := Run(context.Background(), m, EvaluatorFunc(parabola), nil, nil)
	assert.True(t, errors.Is(err, kvfile.ErrMissingKey))
}

func TestRunOptions(t *testing.T) {
	var buf bytes.Buffer
	n := 0
	var seen []int
	opts := &Options{
		Name:    "sweep",
		RunID:   "run1",
		Journal: journal.NewWriter(&buf),
		Cache:   NewCache(),
		OnCase:  func(c *Case) { seen = append(seen, c.N) },
	}
	// x repeats so the second half is cached
	d := &ParamStudy{Variable: "x", From: 0, To: 0, Steps: 4}
	res, err := Run(context.Background(), d, countingEvaluator(&n), nil, opts)
	assert.NoError(t, err)
	assert.Equal(t, "sweep", res.Driver)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{0, 1, 2, 3}, seen)
	assert.False(t, res.Cases[0].Cached)
	assert.True(t, res.Cases[1].Cached)
	assert.Equal(t, 1, opts.Cache.Len())

	r := journal.NewReader(&buf)
	var names []string
	for r.Next() {
		names = append(names, r.Name)
	}
	assert.NoError(t, r.Err())
	assert.Equal(t, 8, len(names))
	assert.Equal(t, "run1 0 in", names[0])
	assert.Equal(t, "run1 0 out", names[1])
	assert.Equal(t, "run1 3 out", names[7])
}

func TestCacheChecksInputsOnHit(t *testing.T) {
	c := NewCache()
	in, _ := kvfile.FromPairs("x", 1)
	other, _ := kvfile.FromPairs("x", 2)
	out, _ := kvfile.FromPairs("y", 4)
	// other stored under the hash of in, as if the hashes collided
	c.m[in.Hash()] = []cacheEntry{{in: other, out: out}}
	_, ok := c.Get(in)
	assert.False(t, ok)

	c.Put(in, out)
	assert.Equal(t, 2, c.Len())
	got, ok := c.Get(in)
	assert.True(t, ok)
	assert.True(t, got.Equal(out))
	got, ok = c.Get(other)
	assert.True(t, ok)
	assert.True(t, got.Equal(out))

	// same inputs replace outputs
	out2, _ := kvfile.FromPairs("y", 5)
	c.Put(in, out2)
	assert.Equal(t, 2, c.Len())
	got, _ = c.Get(in)
	assert.True(t, got.Equal(out2))
}

func TestCacheLoadJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.journal")
	f, err := os.Create(path)
	assert.NoError(t, err)
	n := 0
	d := &ParamStudy{Variable: "x", From: 1, To: 3, Steps: 3}
	_, err = Run(context.Background(), d, countingEvaluator(&n), nil, &Options{Journal: journal.NewWriter(f)})
	assert.NoError(t, err)
	assert.NoError(t, f.Close())
	assert.Equal(t, 3, n)

	cache := NewCache()
	added, err := cache.LoadJournal(path)
	assert.NoError(t, err)
	assert.Equal(t, 3, added)

	// second run is served from the cache
	d = &ParamStudy{Variable: "x", From: 1, To: 3, Steps: 3}
	res, err := Run(context.Background(), d, countingEvaluator(&n), nil, &Options{Cache: cache})
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float64{4, 1, 0}, res.Values("y"))

	added, err = NewCache().LoadJournal(filepath.Join(t.TempDir(), "missing.journal"))
	assert.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestRunMaxCases(t *testing.T) {
	d := &ParamStudy{Variable: "x", From: 0, To: 10, Steps: 11}
	res, err := Run(context.Background(), d, EvaluatorFunc(parabola), nil, &Options{MaxCases: 3})
	assert.NoError(t, err)
	assert.Equal(t, 3, len(res.Cases))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ev := EvaluatorFunc(func(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
		cancel()
		return parabola(ctx, in)
	})
	d := &ParamStudy{Variable: "x", From: 0, To: 10, Steps: 11}
	res, err := Run(ctx, d, ev, nil, nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, len(res.Cases))
}

func TestRunEvaluatorError(t *testing.T) {
	errBoom := errors.New("boom")
	ev := EvaluatorFunc(func(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
		return nil, errBoom
	})
	res, err := Run(context.Background(), &ParamStudy{Variable: "x"}, ev, nil, nil)
	assert.True(t, errors.Is(err, errBoom))
	assert.Equal(t, 0, len(res.Cases))

	_, err = Run(context.Background(), &ParamStudy{Variable: "x"}, nil, nil, nil)
	assert.True(t, errors.Is(err, ErrNoEvaluator))
}

func TestStats(t *testing.T) {
	d := &ParamStudy{Variable: "x", From: 1, To: 5, Steps: 5}
	res, err := Run(context.Background(), d, EvaluatorFunc(parabola), nil, nil)
	assert.NoError(t, err)
	// y: 4, 1, 0, 1, 4
	st := res.Stats()
	s := st["y"]
	assert.Equal(t, 5, s.N)
	assert.Equal(t, 2.0, s.Mean)
	assert.True(t, math.Abs(s.StdDev-math.Sqrt(3.5)) < 1e-12)
	assert.Equal(t, 0.0, s.Min)
	assert.Equal(t, 4.0, s.Max)

	rec := StatsRecord(st, []string{"y", "missing"})
	assert.Equal(t, []string{"y.n", "y.mean", "y.std", "y.min", "y.max"}, rec.Keys())

	one := &Result{Cases: []*Case{res.Cases[0]}}
	s = one.Stats("y")["y"]
	assert.Equal(t, 1, s.N)
	assert.Equal(t, 4.0, s.Mean)
	assert.Equal(t, 0.0, s.StdDev)

	assert.Equal(t, 0, len(one.Stats("missing")))
}
