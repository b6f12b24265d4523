// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package nxp74hc595 drives a seven-segment digit through a 74HC595 serial
// shift register, so the digit only takes an SPI bus instead of seven GPIO
// lines.
//
// Outputs Q0 through Q6 feed segments a through g and Q7 the decimal point.
// Every line write shifts the full latched byte out.
//
// # Datasheet
//
// https://www.nexperia.com/product/74HC595D
package nxp74hc595

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	devName  = "74HC595"
	numLines = 8
	dpLine   = 7
)

// ErrNotImplemented is returned for PWM.
var ErrNotImplemented = errors.New("nxp74hc595: not implemented")

// Opts holds the SPI settings used by Connect.
type Opts struct {
	Freq physic.Frequency
	Mode spi.Mode
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{Freq: physic.MegaHertz, Mode: spi.Mode0}

// Dev is a 74HC595 with its outputs exposed as lines.
type Dev struct {
	mu      sync.Mutex
	conn    spi.Conn
	value   byte
	written bool
	lines   [numLines]*Pin
}

// Connect opens a connection on port and returns the device.
func Connect(port spi.Port, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	c, err := port.Connect(opts.Freq, opts.Mode, 8)
	if err != nil {
		return nil, fmt.Errorf("nxp74hc595: %w", err)
	}
	return New(c)
}

// New returns a device using conn. Nothing is written until a line is.
func New(conn spi.Conn) (*Dev, error) {
	if conn == nil {
		return nil, errors.New("nxp74hc595: no SPI connection")
	}
	d := &Dev{conn: conn}
	for i := range d.lines {
		d.lines[i] = &Pin{dev: d, number: i, name: fmt.Sprintf("%s_Q%d", devName, i)}
	}
	return d, nil
}

// Segments returns the lines for segments a through g.
func (d *Dev) Segments() []gpio.PinOut {
	out := make([]gpio.PinOut, dpLine)
	for i := range out {
		out[i] = d.lines[i]
	}
	return out
}

// DP returns the decimal point line.
func (d *Dev) DP() gpio.PinOut {
	return d.lines[dpLine]
}

// Value returns the byte last latched on the outputs.
func (d *Dev) Value() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

// Write sets the outputs selected by mask to value in one transfer.
func (d *Dev) Write(value, mask byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return errors.New("nxp74hc595: halted")
	}
	v := d.value&^mask | value&mask
	if d.written && v == d.value {
		return nil
	}
	if err := d.conn.Tx([]byte{v}, nil); err != nil {
		return fmt.Errorf("nxp74hc595: %w", err)
	}
	d.value, d.written = v, true
	return nil
}

// Halt implements conn.Resource. The outputs keep their last value and the
// device can't be written afterwards.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conn = nil
	return nil
}

func (d *Dev) String() string {
	return devName
}
