package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kjk/modelrun/journal"
	"github.com/kjk/modelrun/kvfile"
	"github.com/kjk/modelrun/log"
	"github.com/kjk/modelrun/metrics"
)

var (
	ErrMaxIterations = errors.New("max iterations exceeded")
	ErrNoEvaluator   = errors.New("no evaluator")
)

// Driver decides which cases to evaluate.
// Run calls Begin once, then Propose and Observe for every case
// until Observe returns false.
type Driver interface {
	// Name is used in logs and metrics
	Name() string
	// Begin resets the driver. base has inputs of the study.
	Begin(base *kvfile.Record) error
	// Propose sets inputs of the next case. in starts as a copy of base.
	Propose(in *kvfile.Record) error
	// Observe receives outputs of the case. Returns false when done.
	Observe(in, out *kvfile.Record) (bool, error)
}

// Case is a single evaluation of a study
type Case struct {
	// 0-based
	N   int
	In  *kvfile.Record
	Out *kvfile.Record
	// true if Out came from Options.Cache
	Cached   bool
	Duration time.Duration
}

// Cache remembers outputs for inputs. Safe for concurrent use
// and can be shared between runs.
type Cache struct {
	mu sync.Mutex
	m  map[uint64][]cacheEntry
}

// entries with the same hash
type cacheEntry struct {
	in  *kvfile.Record
	out *kvfile.Record
}

func NewCache() *Cache {
	return &Cache{
		m: map[uint64][]cacheEntry{},
	}
}

func (c *Cache) Get(in *kvfile.Record) (*kvfile.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.m[in.Hash()] {
		if e.in.Equal(in) {
			return e.out.Clone(), true
		}
	}
	return nil, false
}

func (c *Cache) Put(in, out *kvfile.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := in.Hash()
	entries := c.m[h]
	for i, e := range entries {
		if e.in.Equal(in) {
			entries[i].out = out.Clone()
			return
		}
	}
	c.m[h] = append(entries, cacheEntry{in: in.Clone(), out: out.Clone()})
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, entries := range c.m {
		n += len(entries)
	}
	return n
}

// LoadJournal adds cases from a journal written by Run and returns
// how many were added. A missing file is not an error.
func (c *Cache) LoadJournal(path string) (int, error) {
	var in *kvfile.Record
	var inName string
	n := 0
	err := journal.ReadFile(path, func(r *journal.Reader) error {
		if name, ok := strings.CutSuffix(r.Name, " in"); ok {
			in, inName = r.Record, name
			return nil
		}
		name, ok := strings.CutSuffix(r.Name, " out")
		if ok && in != nil && name == inName {
			c.Put(in, r.Record)
			n++
		}
		in = nil
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return n, err
}

type Options struct {
	// label in logs and metrics, defaults to Driver.Name()
	Name string
	// id of the run, a random uuid if empty
	RunID string
	// if set, inputs and outputs of every case are written here
	Journal *journal.Writer
	// if set, outputs are re-used for identical inputs
	Cache *Cache
	// called after every case
	OnCase func(c *Case)
	// stop after that many cases, 0 means no limit
	MaxCases int
}

// Result has all evaluated cases, in order
type Result struct {
	Driver string
	RunID  string
	Cases  []*Case
}

// Last returns the last evaluated case or nil
func (r *Result) Last() *Case {
	if len(r.Cases) == 0 {
		return nil
	}
	return r.Cases[len(r.Cases)-1]
}

func (r *Result) String() string {
	return fmt.Sprintf("%s run %s: %d cases", r.Driver, r.RunID, len(r.Cases))
}

// Run evaluates cases proposed by d until d is done, ctx is cancelled
// or opts.MaxCases cases are evaluated.
// On error the returned Result has cases evaluated so far.
func Run(ctx context.Context, d Driver, ev Evaluator, base *kvfile.Record, opts *Options) (*Result, error) {
	if ev == nil {
		return nil, ErrNoEvaluator
	}
	if opts == nil {
		opts = &Options{}
	}
	name := opts.Name
	if name == "" {
		name = d.Name()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	res := &Result{
		Driver: name,
		RunID:  runID,
	}
	if base == nil {
		base = kvfile.New()
	}
	if err := d.Begin(base.Clone()); err != nil {
		return res, fmt.Errorf("%s: %w", name, err)
	}

	timeStart := time.Now()
	log.Event("study_start", "run", runID, "driver", name)
	err := runCases(ctx, d, ev, base, opts, res)
	dur := time.Since(timeStart)
	if err != nil {
		log.Event("study_failed", "run", runID, "driver", name, "cases", len(res.Cases), "error", err.Error())
		return res, err
	}
	log.EventWithDuration("study_done", dur, "run", runID, "driver", name, "cases", len(res.Cases))
	log.Verbosef("%s in %s\n", res, dur)
	return res, nil
}

func runCases(ctx context.Context, d Driver, ev Evaluator, base *kvfile.Record, opts *Options, res *Result) error {
	name := res.Driver
	for n := 0; opts.MaxCases <= 0 || n < opts.MaxCases; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		in := base.Clone()
		if err := d.Propose(in); err != nil {
			return fmt.Errorf("%s: case %d: %w", name, n, err)
		}
		c := &Case{N: n, In: in}
		if err := evalCase(ctx, ev, c, opts, name); err != nil {
			return fmt.Errorf("%s: case %d: %w", name, n, err)
		}
		res.Cases = append(res.Cases, c)
		if err := writeJournal(opts.Journal, res.RunID, c); err != nil {
			return fmt.Errorf("%s: case %d: journal: %w", name, n, err)
		}
		if opts.OnCase != nil {
			opts.OnCase(c)
		}
		more, err := d.Observe(c.In, c.Out)
		if err != nil {
			return fmt.Errorf("%s: case %d: %w", name, n, err)
		}
		if !more {
			return nil
		}
	}
	log.Verbosef("%s: stopped after %d cases\n", name, opts.MaxCases)
	return nil
}

func evalCase(ctx context.Context, ev Evaluator, c *Case, opts *Options, name string) error {
	if opts.Cache != nil {
		if out, ok := opts.Cache.Get(c.In); ok {
			c.Out = out
			c.Cached = true
			metrics.ObserveCacheHit(name)
			log.Verbosef("%s: case %d cached\n", name, c.N)
			return nil
		}
	}
	timeStart := time.Now()
	// evaluator gets a copy so it can't change inputs we journal
	out, err := ev.Evaluate(ctx, c.In.Clone())
	c.Duration = time.Since(timeStart)
	metrics.ObserveCase(name, c.Duration, err)
	if err != nil {
		return err
	}
	if out == nil {
		out = kvfile.New()
	}
	c.Out = out
	if opts.Cache != nil {
		opts.Cache.Put(c.In, out)
	}
	log.Verbosef("%s: case %d in %s\n", name, c.N, c.Duration)
	return nil
}

func writeJournal(w *journal.Writer, runID string, c *Case) error {
	if w == nil {
		return nil
	}
	prefix := runID + " " + strconv.Itoa(c.N)
	if _, err := w.WriteRecord(prefix+" in", time.Time{}, c.In); err != nil {
		return err
	}
	_, err := w.WriteRecord(prefix+" out", time.Time{}, c.Out)
	return err
}
