// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package voltmeter measures a voltage through a resistor divider on an ADC
// input.
//
// The measured node sits between R1 (to the input) and R2 (to ground):
//
//	Vin ---[R1]---+---[R2]--- GND
//	              |
//	             ADC
//
// so Vin = Vadc * (R1+R2) / R2. Each reading averages several samples and
// removes a fixed error margin.
package voltmeter

import (
	"errors"
	"fmt"
	"math"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

// Opts holds the calibration of the meter.
type Opts struct {
	// Reference is the ADC full scale voltage.
	Reference physic.ElectricPotential
	// FullScale is the raw count at Reference. When 0 the voltage reported
	// by the ADC in Sample.V is used instead of Sample.Raw.
	FullScale int32
	// R1 and R2 form the input divider.
	R1, R2 physic.ElectricResistance
	// Samples averaged per reading.
	Samples int
	// ErrorMargin is subtracted from every reading.
	ErrorMargin physic.ElectricPotential
	// Readings below Floor are reported as 0.
	Floor physic.ElectricPotential
}

// DefaultOpts matches a 16 bit 3.3V ADC behind a 100k/10k divider.
var DefaultOpts = Opts{
	Reference:   3300 * physic.MilliVolt,
	FullScale:   65535,
	R1:          100 * physic.KiloOhm,
	R2:          10 * physic.KiloOhm,
	Samples:     10,
	ErrorMargin: 400 * physic.MilliVolt,
	Floor:       999 * physic.MilliVolt,
}

// MaxDigit is the highest whole voltage Digit reports.
const MaxDigit = 15

// Dev is a voltmeter reading one ADC pin.
type Dev struct {
	pin  analog.PinADC
	opts Opts
}

// New returns a voltmeter reading pin.
func New(pin analog.PinADC, opts *Opts) (*Dev, error) {
	if pin == nil {
		return nil, errors.New("voltmeter: no ADC pin")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	switch {
	case opts.Samples <= 0:
		return nil, fmt.Errorf("voltmeter: invalid sample count %d", opts.Samples)
	case opts.R2 <= 0 || opts.R1 < 0:
		return nil, fmt.Errorf("voltmeter: invalid divider %s/%s", opts.R1, opts.R2)
	case opts.FullScale < 0:
		return nil, fmt.Errorf("voltmeter: invalid full scale %d", opts.FullScale)
	case opts.FullScale > 0 && opts.Reference <= 0:
		return nil, fmt.Errorf("voltmeter: invalid reference %s", opts.Reference)
	}
	return &Dev{pin: pin, opts: *opts}, nil
}

// ReadInput takes one sample and returns the divider input voltage.
func (d *Dev) ReadInput() (physic.ElectricPotential, error) {
	v, err := d.readInput()
	if err != nil {
		return 0, err
	}
	return volts(v), nil
}

func (d *Dev) readInput() (float64, error) {
	s, err := d.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("voltmeter: %w", err)
	}
	var vout float64
	if d.opts.FullScale > 0 {
		vout = float64(s.Raw) * float64(d.opts.Reference) / float64(physic.Volt) / float64(d.opts.FullScale)
	} else {
		vout = float64(s.V) / float64(physic.Volt)
	}
	r1, r2 := float64(d.opts.R1), float64(d.opts.R2)
	return vout / (r2 / (r1 + r2)), nil
}

// Sense averages Samples inputs, rounded to the millivolt, less the error
// margin. Readings under Floor return 0.
func (d *Dev) Sense() (physic.ElectricPotential, error) {
	var sum float64
	for range d.opts.Samples {
		v, err := d.readInput()
		if err != nil {
			return 0, err
		}
		sum += v
	}
	mean := math.Round(sum/float64(d.opts.Samples)*1000) / 1000
	v := volts(mean) - d.opts.ErrorMargin
	if v < d.opts.Floor {
		return 0, nil
	}
	return v, nil
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return d.pin.Halt()
}

func (d *Dev) String() string {
	return fmt.Sprintf("Voltmeter{%s}", d.pin)
}

// Digit returns the whole volts of v clamped to 0-15, for a single
// seven-segment digit.
func Digit(v physic.ElectricPotential) int {
	n := int(v / physic.Volt)
	if n < 0 {
		return 0
	}
	if n > MaxDigit {
		return MaxDigit
	}
	return n
}

// Format renders v as "Voltage: 12.345 V".
func Format(v physic.ElectricPotential) string {
	return fmt.Sprintf("Voltage: %.3f V", float64(v)/float64(physic.Volt))
}

func volts(v float64) physic.ElectricPotential {
	return physic.ElectricPotential(math.Round(v * float64(physic.Volt)))
}
