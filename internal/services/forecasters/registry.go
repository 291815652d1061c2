package forecasters

import (
	"fmt"

	domsvc "FinCast/internal/domain/service"
)

// Kind tags a model variant.
type Kind string

const (
	KindNaive    Kind = "naive"
	KindDrift    Kind = "drift"
	KindSeasonal Kind = "seasonal"
	KindBagging  Kind = "bagging"
	KindRemote   Kind = "remote"
)

// IsValidKind returns true if k names a known variant.
func IsValidKind(k Kind) bool {
	switch k {
	case KindNaive, KindDrift, KindSeasonal, KindBagging, KindRemote:
		return true
	default:
		return false
	}
}

// Spec declares one registered model.
type Spec struct {
	Name    string  `yaml:"name"`
	Kind    Kind    `yaml:"kind"`
	Weight  float64 `yaml:"weight"`
	Enabled bool    `yaml:"enabled"`
}

// DefaultLocalSpecs registers every in-process variant.
func DefaultLocalSpecs() []Spec {
	return []Spec{
		{Name: "naive", Kind: KindNaive, Weight: 0.20, Enabled: true},
		{Name: "drift", Kind: KindDrift, Weight: 0.30, Enabled: true},
		{Name: "seasonal", Kind: KindSeasonal, Weight: 0.25, Enabled: true},
		{Name: "bagging", Kind: KindBagging, Weight: 0.25, Enabled: true},
	}
}

// DefaultRemoteSpecs registers the service-side models with their default weights.
func DefaultRemoteSpecs() []Spec {
	return []Spec{
		{Name: "lstm", Kind: KindRemote, Weight: 0.25, Enabled: true},
		{Name: "random_forest", Kind: KindRemote, Weight: 0.25, Enabled: true},
		{Name: "xgboost", Kind: KindRemote, Weight: 0.30, Enabled: true},
		{Name: "prophet", Kind: KindRemote, Weight: 0.20, Enabled: true},
	}
}

// New builds the variant named by spec, wrapped by Guard.
func New(spec Spec, remote RemoteOptions) (domsvc.Forecaster, error) {
	var f domsvc.Forecaster
	switch spec.Kind {
	case KindNaive:
		f = NewNaive(spec.Name)
	case KindDrift:
		f = NewDrift(spec.Name)
	case KindSeasonal:
		f = NewSeasonal(spec.Name)
	case KindBagging:
		f = NewBagging(spec.Name)
	case KindRemote:
		if remote.BaseURL == "" {
			return nil, fmt.Errorf("model %s: remote kind requires a model service url", spec.Name)
		}
		f = NewRemoteForecaster(spec.Name, remote)
	default:
		return nil, fmt.Errorf("model %s: unknown kind %q", spec.Name, spec.Kind)
	}
	return Guard(f), nil
}

// Build creates every enabled model and its weight. Names must be unique.
func Build(specs []Spec, remote RemoteOptions) ([]domsvc.Forecaster, map[string]float64, error) {
	out := make([]domsvc.Forecaster, 0, len(specs))
	weights := make(map[string]float64, len(specs))
	for _, s := range specs {
		if !s.Enabled {
			continue
		}
		if s.Name == "" {
			s.Name = string(s.Kind)
		}
		if _, dup := weights[s.Name]; dup {
			return nil, nil, fmt.Errorf("duplicate model name %q", s.Name)
		}
		if s.Weight < 0 {
			return nil, nil, fmt.Errorf("model %s: negative weight", s.Name)
		}
		f, err := New(s, remote)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, f)
		weights[s.Name] = s.Weight
	}
	if len(out) == 0 {
		return nil, nil, fmt.Errorf("no enabled models")
	}
	return out, weights, nil
}
