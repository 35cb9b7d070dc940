// Package solar is the exchange point between a solar installation model
// and tools that drive it: inputs are read from a key=value file, the model
// is run and outputs are written to another key=value file.
package solar

import (
	"context"
	"fmt"

	"github.com/kjk/modelrun/driver"
	"github.com/kjk/modelrun/kvfile"
	"github.com/kjk/modelrun/log"
)

const (
	KeyPanelRating     = "panelRating"
	KeyPanelEfficiency = "panelEfficiency"
	KeyPanelCount      = "panelCount"
	KeyPeakSunHours    = "peakSunHours"
	KeySystemLosses    = "systemLosses"
	KeyCostPerWatt     = "costPerWatt"
	KeyLifetimeYears   = "lifetimeYears"

	KeySolarSurfaceArea = "solarSurfaceArea"
	KeyTotalKWh         = "totalkWh"
	KeySolarCapitalCost = "solarCapitalCost"
)

// Inputs are parameters of a model run
type Inputs struct {
	// rated power of a single panel, in W
	PanelRating float64
	// fraction of sunlight converted to electricity, 0..1
	PanelEfficiency float64
	PanelCount      float64
	// daily hours of 1000 W/m^2 equivalent sunlight
	PeakSunHours float64
	// fraction lost in wiring, inverter etc., 0..1
	SystemLosses float64
	// installed cost, in $ per W
	CostPerWatt   float64
	LifetimeYears float64
}

// Outputs are results of a model run
type Outputs struct {
	// in m^2
	SolarSurfaceArea float64
	// energy produced over lifetime, in kWh
	TotalKWh float64
	// in $
	SolarCapitalCost float64
}

// DefaultInputs returns values used for keys missing in the input file.
// PanelRating has no default.
func DefaultInputs() Inputs {
	return Inputs{
		PanelEfficiency: 0.2,
		PanelCount:      1,
		PeakSunHours:    5,
		SystemLosses:    0.14,
		CostPerWatt:     3,
		LifetimeYears:   25,
	}
}

// InputsFromRecord reads inputs from rec. panelRating is required,
// other keys default to DefaultInputs().
func InputsFromRecord(rec *kvfile.Record) (Inputs, error) {
	in := DefaultInputs()
	var err error
	if in.PanelRating, err = rec.Float(KeyPanelRating); err != nil {
		return in, err
	}
	optional := []struct {
		key string
		v   *float64
	}{
		{KeyPanelEfficiency, &in.PanelEfficiency},
		{KeyPanelCount, &in.PanelCount},
		{KeyPeakSunHours, &in.PeakSunHours},
		{KeySystemLosses, &in.SystemLosses},
		{KeyCostPerWatt, &in.CostPerWatt},
		{KeyLifetimeYears, &in.LifetimeYears},
	}
	for _, o := range optional {
		if *o.v, err = rec.FloatOr(o.key, *o.v); err != nil {
			return in, err
		}
	}
	return in, nil
}

// Record returns inputs as a record, in canonical key order
func (in Inputs) Record() *kvfile.Record {
	rec := kvfile.New()
	rec.Set(KeyPanelRating, in.PanelRating)
	rec.Set(KeyPanelEfficiency, in.PanelEfficiency)
	rec.Set(KeyPanelCount, in.PanelCount)
	rec.Set(KeyPeakSunHours, in.PeakSunHours)
	rec.Set(KeySystemLosses, in.SystemLosses)
	rec.Set(KeyCostPerWatt, in.CostPerWatt)
	rec.Set(KeyLifetimeYears, in.LifetimeYears)
	return rec
}

// Record returns outputs as a record: solarSurfaceArea, totalkWh, solarCapitalCost
func (out Outputs) Record() *kvfile.Record {
	rec := kvfile.New()
	rec.Set(KeySolarSurfaceArea, out.SolarSurfaceArea)
	rec.Set(KeyTotalKWh, out.TotalKWh)
	rec.Set(KeySolarCapitalCost, out.SolarCapitalCost)
	return rec
}

// OutputsFromRecord parses outputs written by Outputs.Record
func OutputsFromRecord(rec *kvfile.Record) (Outputs, error) {
	var out Outputs
	var err error
	if out.SolarSurfaceArea, err = rec.Float(KeySolarSurfaceArea); err != nil {
		return out, err
	}
	if out.TotalKWh, err = rec.Float(KeyTotalKWh); err != nil {
		return out, err
	}
	out.SolarCapitalCost, err = rec.Float(KeySolarCapitalCost)
	return out, err
}

// Model computes outputs from inputs
type Model interface {
	Run(ctx context.Context, in Inputs) (Outputs, error)
}

// ModelFunc adapts a function to Model
type ModelFunc func(ctx context.Context, in Inputs) (Outputs, error)

func (f ModelFunc) Run(ctx context.Context, in Inputs) (Outputs, error) {
	return f(ctx, in)
}

// Placeholder stands in for the real model. It returns all zero outputs.
var Placeholder Model = ModelFunc(func(ctx context.Context, in Inputs) (Outputs, error) {
	return Outputs{}, ctx.Err()
})

// Run reads inputs from inPath, runs the model and writes outputs to outPath
func Run(ctx context.Context, model Model, inPath string, outPath string) error {
	rec, err := kvfile.Read(inPath)
	if err != nil {
		return err
	}
	out, err := Evaluate(ctx, model, rec)
	if err != nil {
		return err
	}
	if err = kvfile.Write(outPath, out); err != nil {
		return err
	}
	log.Verbosef("solar.Run: '%s' => '%s'\n", inPath, outPath)
	return nil
}

// Evaluate runs model with inputs from rec and returns outputs as a record
func Evaluate(ctx context.Context, model Model, rec *kvfile.Record) (*kvfile.Record, error) {
	in, err := InputsFromRecord(rec)
	if err != nil {
		return nil, err
	}
	out, err := model.Run(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("solar: model failed: %w", err)
	}
	return out.Record(), nil
}

// Evaluator adapts model to driver.Evaluator so it can be used in studies
func Evaluator(model Model) driver.Evaluator {
	return driver.EvaluatorFunc(func(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
		return Evaluate(ctx, model, in)
	})
}
