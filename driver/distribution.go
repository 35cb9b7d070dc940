package driver

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

type DistKind string

const (
	KindNormal      DistKind = "normal"
	KindUniform     DistKind = "uniform"
	KindTriangular  DistKind = "triangular"
	KindExponential DistKind = "exponential"
	KindWeibull     DistKind = "weibull"
)

// Distribution of a random variable. Which fields are used depends on Kind:
//
//	normal       Mean, Std
//	uniform      Low, High
//	triangular   Low, Peak, High
//	exponential  Mean
//	weibull      Scale, Shape
type Distribution struct {
	Kind  DistKind `yaml:"kind"`
	Mean  float64  `yaml:"mean,omitempty"`
	Std   float64  `yaml:"std,omitempty"`
	Low   float64  `yaml:"low,omitempty"`
	Peak  float64  `yaml:"peak,omitempty"`
	High  float64  `yaml:"high,omitempty"`
	Scale float64  `yaml:"scale,omitempty"`
	Shape float64  `yaml:"shape,omitempty"`
}

func Normal(mean, std float64) Distribution {
	return Distribution{Kind: KindNormal, Mean: mean, Std: std}
}

func Uniform(low, high float64) Distribution {
	return Distribution{Kind: KindUniform, Low: low, High: high}
}

func Triangular(low, peak, high float64) Distribution {
	return Distribution{Kind: KindTriangular, Low: low, Peak: peak, High: high}
}

func Exponential(mean float64) Distribution {
	return Distribution{Kind: KindExponential, Mean: mean}
}

func Weibull(scale, shape float64) Distribution {
	return Distribution{Kind: KindWeibull, Scale: scale, Shape: shape}
}

// Validate returns an error if parameters don't describe a valid distribution
func (d Distribution) Validate() error {
	switch d.Kind {
	case KindNormal:
		if d.Std <= 0 {
			return fmt.Errorf("normal: std must be > 0, is %v", d.Std)
		}
	case KindUniform:
		if d.Low >= d.High {
			return fmt.Errorf("uniform: low (%v) must be < high (%v)", d.Low, d.High)
		}
	case KindTriangular:
		if d.Low >= d.High || d.Peak < d.Low || d.Peak > d.High {
			return fmt.Errorf("triangular: must be low (%v) <= peak (%v) <= high (%v) and low < high", d.Low, d.Peak, d.High)
		}
	case KindExponential:
		if d.Mean <= 0 {
			return fmt.Errorf("exponential: mean must be > 0, is %v", d.Mean)
		}
	case KindWeibull:
		if d.Scale <= 0 || d.Shape <= 0 {
			return fmt.Errorf("weibull: scale (%v) and shape (%v) must be > 0", d.Scale, d.Shape)
		}
	default:
		return fmt.Errorf("unknown distribution '%s'", d.Kind)
	}
	return nil
}

type quantiler interface {
	Quantile(p float64) float64
}

func (d Distribution) quantiler() quantiler {
	switch d.Kind {
	case KindNormal:
		return distuv.Normal{Mu: d.Mean, Sigma: d.Std}
	case KindUniform:
		return distuv.Uniform{Min: d.Low, Max: d.High}
	case KindTriangular:
		// panics on invalid parameters so Validate() first
		return distuv.NewTriangle(d.Low, d.High, d.Peak, nil)
	case KindExponential:
		return distuv.Exponential{Rate: 1 / d.Mean}
	case KindWeibull:
		return distuv.Weibull{K: d.Shape, Lambda: d.Scale}
	}
	panic(fmt.Sprintf("unknown distribution '%s'", d.Kind))
}

// Quantile returns the value x for which P(X <= x) = p.
// d must be valid and p must be in (0, 1).
func (d Distribution) Quantile(p float64) float64 {
	return d.quantiler().Quantile(p)
}

func (d Distribution) String() string {
	switch d.Kind {
	case KindNormal:
		return fmt.Sprintf("normal(mean=%v, std=%v)", d.Mean, d.Std)
	case KindUniform:
		return fmt.Sprintf("uniform(low=%v, high=%v)", d.Low, d.High)
	case KindTriangular:
		return fmt.Sprintf("triangular(low=%v, peak=%v, high=%v)", d.Low, d.Peak, d.High)
	case KindExponential:
		return fmt.Sprintf("exponential(mean=%v)", d.Mean)
	case KindWeibull:
		return fmt.Sprintf("weibull(scale=%v, shape=%v)", d.Scale, d.Shape)
	}
	return string(d.Kind)
}

// RandomVar is an input drawn from a distribution
type RandomVar struct {
	Name string       `yaml:"name"`
	Dist Distribution `yaml:"dist"`
}

func validateVars(vars []RandomVar) error {
	if len(vars) == 0 {
		return fmt.Errorf("no variables")
	}
	seen := map[string]bool{}
	for _, v := range vars {
		if v.Name == "" {
			return fmt.Errorf("variable without a name")
		}
		if seen[v.Name] {
			return fmt.Errorf("duplicate variable '%s'", v.Name)
		}
		seen[v.Name] = true
		if err := v.Dist.Validate(); err != nil {
			return fmt.Errorf("variable '%s': %w", v.Name, err)
		}
	}
	return nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// uniform in (0, 1), quantiles at 0 are -Inf for some distributions
func openUnit(rng *rand.Rand) float64 {
	for {
		if u := rng.Float64(); u > 0 {
			return u
		}
	}
}
