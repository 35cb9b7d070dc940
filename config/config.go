// Package config loads study definitions from YAML files:
//
//	name: panel-sweep
//	base: data.in
//	inputs:
//	  panelRating: 250
//	driver:
//	  paramstudy: {variable: panelCount, from: 1, to: 20, steps: 20}
//	evaluator:
//	  command: {exe: ./model}
//	journal: panel-sweep.journal
//	cache: true
//
// ${VAR} references are expanded from the environment before parsing.
// Relative paths are relative to the directory of the study file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjk/modelrun/driver"
	"github.com/kjk/modelrun/evaluator"
	"github.com/kjk/modelrun/kvfile"
	"github.com/kjk/modelrun/solar"
	"github.com/kjk/modelrun/u"
)

type Study struct {
	Name string `yaml:"name"`
	// key=value file with base inputs
	Base string `yaml:"base"`
	// added to (or replace) inputs from Base
	Inputs    map[string]string `yaml:"inputs"`
	Driver    DriverConfig      `yaml:"driver"`
	Evaluator EvaluatorConfig   `yaml:"evaluator"`
	// if set, cases are appended to this file
	Journal  string `yaml:"journal"`
	Cache    bool   `yaml:"cache"`
	MaxCases int    `yaml:"maxCases"`

	// directory of the study file
	dir string
}

// DriverConfig must have exactly one driver set
type DriverConfig struct {
	ParamStudy     *driver.ParamStudy     `yaml:"paramstudy"`
	Minimizer      *driver.Minimizer      `yaml:"minimizer"`
	MonteCarlo     *driver.MonteCarlo     `yaml:"montecarlo"`
	LatinHypercube *driver.LatinHypercube `yaml:"lhs"`
}

// EvaluatorConfig must have exactly one evaluator set
type EvaluatorConfig struct {
	// built-in solar model, takes no options
	Solar   *struct{}      `yaml:"solar"`
	Command *CommandConfig `yaml:"command"`
	HTTP    *HTTPConfig    `yaml:"http"`
	SSH     *SSHConfig     `yaml:"ssh"`
}

type CommandConfig struct {
	Exe     string   `yaml:"exe"`
	Args    []string `yaml:"args"`
	Dir     string   `yaml:"dir"`
	InFile  string   `yaml:"inFile"`
	OutFile string   `yaml:"outFile"`
	Env     []string `yaml:"env"`
}

type HTTPConfig struct {
	URL     string            `yaml:"url"`
	APIKey  string            `yaml:"apiKey"`
	Header  map[string]string `yaml:"header"`
	Timeout time.Duration     `yaml:"timeout"`
}

type SSHConfig struct {
	User            string        `yaml:"user"`
	Host            string        `yaml:"host"`
	Port            uint          `yaml:"port"`
	KeyPath         string        `yaml:"keyPath"`
	Passphrase      string        `yaml:"passphrase"`
	InsecureHostKey bool          `yaml:"insecureHostKey"`
	Timeout         time.Duration `yaml:"timeout"`
	RemoteDir       string        `yaml:"remoteDir"`
	Exe             string        `yaml:"exe"`
	Args            []string      `yaml:"args"`
	InFile          string        `yaml:"inFile"`
	OutFile         string        `yaml:"outFile"`
}

// Load reads and validates a study file, which can be compressed
func Load(path string) (*Study, error) {
	data, err := u.ReadFileMaybeCompressed(path)
	if err != nil {
		return nil, fmt.Errorf("could not read study file '%s': %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("'%s': %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// Parse parses and validates a study. Relative paths are relative
// to the current directory.
func Parse(data []byte) (*Study, error) {
	expanded := os.ExpandEnv(string(data))
	var s Study
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("YAML syntax error: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func countSet(isSet ...bool) int {
	n := 0
	for _, b := range isSet {
		if b {
			n++
		}
	}
	return n
}

// Validate checks that exactly one driver and one evaluator are set
func (s *Study) Validate() error {
	d := &s.Driver
	switch countSet(d.ParamStudy != nil, d.Minimizer != nil, d.MonteCarlo != nil, d.LatinHypercube != nil) {
	case 0:
		return errors.New("no driver (paramstudy, minimizer, montecarlo or lhs)")
	case 1:
	default:
		return errors.New("more than one driver")
	}
	e := &s.Evaluator
	switch countSet(e.Solar != nil, e.Command != nil, e.HTTP != nil, e.SSH != nil) {
	case 0:
		return errors.New("no evaluator (solar, command, http or ssh)")
	case 1:
	default:
		return errors.New("more than one evaluator")
	}
	if e.Command != nil && e.Command.Exe == "" {
		return errors.New("command: exe not set")
	}
	if e.HTTP != nil && e.HTTP.URL == "" {
		return errors.New("http: url not set")
	}
	if s.MaxCases < 0 {
		return fmt.Errorf("maxCases must be >= 0, is %d", s.MaxCases)
	}
	for k, v := range s.Inputs {
		rec := kvfile.New()
		rec.SetString(k, v)
		if err := kvfile.Validate(rec); err != nil {
			return fmt.Errorf("inputs: %w", err)
		}
	}
	return nil
}

// Path resolves path relative to the study file
func (s *Study) Path(path string) string {
	if path == "" || filepath.IsAbs(path) || s.dir == "" {
		return path
	}
	return filepath.Join(s.dir, path)
}

// NewDriver returns the configured driver
func (s *Study) NewDriver() driver.Driver {
	d := s.Driver
	switch {
	case d.ParamStudy != nil:
		return d.ParamStudy
	case d.Minimizer != nil:
		return d.Minimizer
	case d.MonteCarlo != nil:
		return d.MonteCarlo
	case d.LatinHypercube != nil:
		return d.LatinHypercube
	}
	return nil
}

// NewEvaluator returns the configured evaluator. SSH evaluator must be
// closed, use CloseEvaluator.
func (s *Study) NewEvaluator() driver.Evaluator {
	e := s.Evaluator
	switch {
	case e.Solar != nil:
		return solar.Evaluator(solar.Placeholder)
	case e.Command != nil:
		c := e.Command
		exe := c.Exe
		// ./model is relative to the study, model is looked up in $PATH
		if strings.ContainsAny(exe, `/\`) {
			exe = s.Path(exe)
		}
		return &evaluator.Command{
			Exe:     exe,
			Args:    c.Args,
			Dir:     s.Path(c.Dir),
			InFile:  c.InFile,
			OutFile: c.OutFile,
			Env:     c.Env,
		}
	case e.HTTP != nil:
		h := e.HTTP
		return &evaluator.HTTP{
			URL:     h.URL,
			APIKey:  h.APIKey,
			Header:  h.Header,
			Timeout: h.Timeout,
		}
	case e.SSH != nil:
		c := e.SSH
		return &evaluator.SSH{
			User:            c.User,
			Host:            c.Host,
			Port:            c.Port,
			KeyPath:         c.KeyPath,
			Passphrase:      c.Passphrase,
			InsecureHostKey: c.InsecureHostKey,
			Timeout:         c.Timeout,
			RemoteDir:       c.RemoteDir,
			Exe:             c.Exe,
			Args:            c.Args,
			InFile:          c.InFile,
			OutFile:         c.OutFile,
		}
	}
	return nil
}

// CloseEvaluator closes ev if it holds a connection
func CloseEvaluator(ev driver.Evaluator) error {
	if c, ok := ev.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// BaseRecord returns inputs from Base file with Inputs applied,
// Inputs in sorted key order
func (s *Study) BaseRecord() (*kvfile.Record, error) {
	rec := kvfile.New()
	if s.Base != "" {
		var err error
		if rec, err = kvfile.Read(s.Path(s.Base)); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(s.Inputs))
	for k := range s.Inputs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		rec.SetString(k, s.Inputs[k])
	}
	return rec, nil
}

// RunName returns Name or, if not set, name of the driver
func (s *Study) RunName() string {
	if s.Name != "" {
		return s.Name
	}
	if d := s.NewDriver(); d != nil {
		return d.Name()
	}
	return ""
}
