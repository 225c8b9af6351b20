// Package uictl defines the small read/write controls a terminal UI uses to
// observe and steer the code behind it.
package uictl

import "golang.org/x/exp/constraints"

// Number is any integer or float type.
type Number interface {
	constraints.Integer | constraints.Float
}

// Knob is an on/off toggle.
type Knob interface {
	Read() bool
	On()
	Off()
	Toggle()
}

// Dial reads a single value.
type Dial[N Number] interface {
	Read() N
}

// Levels reads a series of values, oldest first.
type Levels[N Number] interface {
	Read() []N
}
