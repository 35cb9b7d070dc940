package driver

import (
	"errors"
	"fmt"
	"math"

	"github.com/kjk/modelrun/kvfile"
)

// Minimizer looks for a minimum of Objective output by stepping
// Variable input. The first case is the base point. After every step
// it stops if Objective changed less than Tolerance, otherwise if
// Objective got bigger it reverses direction and halves the step.
type Minimizer struct {
	Variable  string `yaml:"variable"`
	Objective string `yaml:"objective"`
	// initial step, default 1
	Step float64 `yaml:"step"`
	// default 0.01
	Tolerance float64 `yaml:"tolerance"`
	// default 50
	MaxIterations int `yaml:"maxIterations"`

	x             float64
	step          float64
	tolerance     float64
	maxIterations int
	lastY         float64
	iterations    int
	started       bool
}

func (m *Minimizer) Name() string {
	return "minimizer"
}

func (m *Minimizer) Begin(base *kvfile.Record) error {
	if m.Variable == "" {
		return errors.New("minimizer: variable not set")
	}
	if m.Objective == "" {
		return errors.New("minimizer: objective not set")
	}
	x, err := base.FloatOr(m.Variable, 0)
	if err != nil {
		return err
	}
	m.x = x
	m.step = m.Step
	if m.step == 0 {
		m.step = 1
	}
	m.tolerance = m.Tolerance
	if m.tolerance <= 0 {
		m.tolerance = 0.01
	}
	m.maxIterations = m.MaxIterations
	if m.maxIterations <= 0 {
		m.maxIterations = 50
	}
	m.iterations = 0
	m.started = false
	return nil
}

func (m *Minimizer) Propose(in *kvfile.Record) error {
	if m.started {
		m.iterations++
		if m.iterations > m.maxIterations {
			return fmt.Errorf("%w (%d)", ErrMaxIterations, m.maxIterations)
		}
		m.x += m.step
	}
	in.Set(m.Variable, m.x)
	return nil
}

func (m *Minimizer) Observe(in, out *kvfile.Record) (bool, error) {
	y, err := out.Float(m.Objective)
	if err != nil {
		return false, err
	}
	if !m.started {
		m.started = true
		m.lastY = y
		return true, nil
	}
	if math.Abs(m.lastY-y) < m.tolerance {
		return false, nil
	}
	if y > m.lastY {
		m.step *= -0.5
	}
	m.lastY = y
	return true, nil
}

// X returns the last value of Variable
func (m *Minimizer) X() float64 {
	return m.x
}

// Iterations returns number of steps taken, not counting the base point
func (m *Minimizer) Iterations() int {
	return m.iterations
}

// CurrentStep returns the step that will be taken next
func (m *Minimizer) CurrentStep() float64 {
	return m.step
}
