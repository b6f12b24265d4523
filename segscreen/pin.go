// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package segscreen

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// ErrNotImplemented is returned by the input and PWM functions of Pin.
var ErrNotImplemented = errors.New("segscreen: not implemented")

// Pin is one emulated segment line.
type Pin struct {
	dev    *Dev
	name   string
	number int
}

// Halt implements conn.Resource.
func (pin *Pin) Halt() error {
	return nil
}

// Name returns the name of the segment line, SEG_A to SEG_G.
func (pin *Pin) Name() string {
	return pin.name
}

// Number returns the segment index, 0 for a.
func (pin *Pin) Number() int {
	return pin.number
}

// Deprecated: returns "Out"
func (pin *Pin) Function() string {
	return "Out"
}

// In is not supported; the lines are outputs only.
func (pin *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	return ErrNotImplemented
}

// Read returns the level last written.
func (pin *Pin) Read() gpio.Level {
	return pin.dev.Levels()[pin.number]
}

// WaitForEdge always returns false.
func (pin *Pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (pin *Pin) Pull() gpio.Pull {
	return gpio.PullNoChange
}

// DefaultPull implements gpio.PinIn.
func (pin *Pin) DefaultPull() gpio.Pull {
	return gpio.PullNoChange
}

// Out sets the segment line and redraws the digit.
func (pin *Pin) Out(l gpio.Level) error {
	return pin.dev.set(pin.number, l)
}

// Not implemented.
func (pin *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

func (pin *Pin) String() string {
	return pin.name
}

var _ gpio.PinIO = &Pin{}
