// Package macros implements the built-in story macros.
package macros

import (
	"github.com/leapstack-labs/leapstory/internal/macro"
)

// Definitions returns the built-in macro set in registration order.
func Definitions() []*macro.Definition {
	return []*macro.Definition{
		Switch(),
		Silent(),
		If(),
		Set(),
		Run(),
		Print("print"),
		Print("="),
		Print("-"),
		Include(),
		Nobr(),
	}
}

// Register adds the built-in macros to reg.
func Register(reg *macro.Registry) error {
	return reg.AddAll(Definitions()...)
}

// NewRegistry creates a registry holding the built-in macros.
func NewRegistry() (*macro.Registry, error) {
	reg := macro.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
