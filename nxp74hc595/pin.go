// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nxp74hc595

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Pin is one output of the shift register.
type Pin struct {
	dev    *Dev
	name   string
	number int
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name returns "74HC595_Qn".
func (p *Pin) Name() string {
	return p.name
}

// Number returns the output index, 0 to 7.
func (p *Pin) Number() int {
	return p.number
}

// Function returns "Out".
//
// Deprecated: Use PinFunc.Func.
func (p *Pin) Function() string {
	return "Out"
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	bit := byte(1) << p.number
	var v byte
	if l {
		v = bit
	}
	return p.dev.Write(v, bit)
}

// PWM is not supported.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

func (p *Pin) String() string {
	return p.name
}

var _ gpio.PinOut = &Pin{}
