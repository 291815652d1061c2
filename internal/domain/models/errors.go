package models

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientData      = errors.New("insufficient data")
	ErrUnknownModel          = errors.New("unknown model")
	ErrNoSuccessfulModels    = errors.New("no successful models")
	ErrNoTrainedModels       = errors.New("no trained models")
	ErrEmptyConfigurationSet = errors.New("empty configuration set")
	ErrUnknownHorizon        = errors.New("unknown horizon")
	ErrUnknownSymbol         = errors.New("unknown symbol")
	ErrJobNotFound           = errors.New("job not found")
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrSymbolBusy            = errors.New("another run holds this symbol")
)

// InsufficientDataError reports that a series cannot cover the requested windows.
type InsufficientDataError struct {
	Required  int
	Available int
	Reason    string
}

func (e *InsufficientDataError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("insufficient data: %s (need %d, have %d)", e.Reason, e.Required, e.Available)
	}
	return fmt.Sprintf("insufficient data: need %d, have %d", e.Required, e.Available)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// UnknownModelError reports a model name that is not registered.
type UnknownModelError struct {
	Name string
}

func (e *UnknownModelError) Error() string { return fmt.Sprintf("unknown model: %q", e.Name) }

func (e *UnknownModelError) Is(target error) bool { return target == ErrUnknownModel }

// ModelFailure is an opaque failure reported by a single model.
type ModelFailure struct {
	Model  string
	Reason string
}

func (e *ModelFailure) Error() string { return fmt.Sprintf("model %s failed: %s", e.Model, e.Reason) }
