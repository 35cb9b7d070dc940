package driver

import (
	"errors"

	"github.com/kjk/modelrun/kvfile"
)

// ParamStudy evaluates Steps values of Variable evenly spaced
// from From to To (both included). Steps < 2 is treated as 2.
type ParamStudy struct {
	Variable string  `yaml:"variable"`
	From     float64 `yaml:"from"`
	To       float64 `yaml:"to"`
	Steps    int     `yaml:"steps"`

	steps int
	step  float64
	i     int
}

func (p *ParamStudy) Name() string {
	return "paramstudy"
}

func (p *ParamStudy) Begin(base *kvfile.Record) error {
	if p.Variable == "" {
		return errors.New("paramstudy: variable not set")
	}
	p.i = 0
	p.steps = max(p.Steps, 2)
	p.step = (p.To - p.From) / float64(p.steps-1)
	return nil
}

// Value returns value of Variable in i-th case
func (p *ParamStudy) Value(i int) float64 {
	return p.From + float64(i)*p.step
}

func (p *ParamStudy) Propose(in *kvfile.Record) error {
	in.Set(p.Variable, p.Value(p.i))
	return nil
}

func (p *ParamStudy) Observe(in, out *kvfile.Record) (bool, error) {
	p.i++
	return p.i < p.steps, nil
}
