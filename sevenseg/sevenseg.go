// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sevenseg drives a single seven-segment digit wired with one GPIO
// line per segment.
//
// The segments are supplied in a through g order:
//
//	   a
//	  ---
//	f| g |b
//	  ---
//	e|   |c
//	  ---
//	   d
//
// Both common anode (active low) and common cathode (active high) wiring
// are supported. Values 0-9 are shown as decimal digits and 10-15 as the
// hexadecimal letters A-F. The decimal point is not driven.
//
// A Dev is not safe for concurrent use.
package sevenseg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// DefaultTestDelay is the pause between digits used by Test.
const DefaultTestDelay = 200 * time.Millisecond

var (
	// ErrConfiguration is returned when a Dev can't be built from the
	// supplied lines.
	ErrConfiguration = errors.New("sevenseg: invalid configuration")
	// ErrRange is returned for digits outside 0-15.
	ErrRange = errors.New("sevenseg: digit out of range 0-15")
)

// Opts holds the configuration of a Dev.
type Opts struct {
	// Polarity of the display wiring. The zero value is CommonAnode.
	Polarity Polarity
	// Clock paces Test. If nil, the real clock is used.
	Clock clockwork.Clock
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{Polarity: CommonAnode}

// Dev is a seven-segment digit driven through GPIO lines.
type Dev struct {
	pins     [NumSegments]gpio.PinOut
	polarity Polarity
	codes    *[MaxDigit + 1]byte
	clock    clockwork.Clock
}

// New returns a Dev driving the first seven pins as segments a through g.
//
// Pins that can be read are switched to output at the level they currently
// read, so no segment changes until Fill or WriteNumeric is called.
// Output-only pins are used as is.
func New(pins []gpio.PinOut, opts *Opts) (*Dev, error) {
	if len(pins) < NumSegments {
		return nil, fmt.Errorf("%w: need %d segment lines, got %d", ErrConfiguration, NumSegments, len(pins))
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Polarity != CommonAnode && opts.Polarity != CommonCathode {
		return nil, fmt.Errorf("%w: %s", ErrConfiguration, opts.Polarity)
	}
	for i, p := range pins[:NumSegments] {
		if p == nil {
			return nil, fmt.Errorf("%w: segment %s has no line", ErrConfiguration, SegmentName(i))
		}
	}
	d := &Dev{polarity: opts.Polarity, codes: opts.Polarity.codes(), clock: opts.Clock}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	for i, p := range pins[:NumSegments] {
		if in, ok := p.(gpio.PinIn); ok {
			if err := p.Out(in.Read()); err != nil {
				return nil, fmt.Errorf("sevenseg: configuring segment %s (%s): %w", SegmentName(i), p, err)
			}
		}
		d.pins[i] = p
	}
	return d, nil
}

// NewByName resolves names through the GPIO registry and calls New.
//
// Every name is resolved before any line is touched.
func NewByName(names []string, opts *Opts) (*Dev, error) {
	if len(names) < NumSegments {
		return nil, fmt.Errorf("%w: need %d segment lines, got %d", ErrConfiguration, NumSegments, len(names))
	}
	pins := make([]gpio.PinOut, NumSegments)
	for i, name := range names[:NumSegments] {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("%w: no GPIO named %q for segment %s", ErrConfiguration, name, SegmentName(i))
		}
		pins[i] = p
	}
	return New(pins, opts)
}

// Polarity returns the wiring the Dev was built with.
func (d *Dev) Polarity() Polarity {
	return d.polarity
}

// Fill turns every segment on or off.
//
// The requested state is inverted for common anode wiring, so true always
// means lit.
func (d *Dev) Fill(on bool) error {
	l := gpio.Level(on)
	if d.polarity == CommonAnode {
		l = !l
	}
	for i, p := range d.pins {
		if err := p.Out(l); err != nil {
			return fmt.Errorf("sevenseg: segment %s: %w", SegmentName(i), err)
		}
	}
	return nil
}

// WriteNumeric shows digit, 0-15, on the display.
//
// All seven lines are written on every call. Nothing is written when digit
// is out of range.
func (d *Dev) WriteNumeric(digit int) error {
	if digit < 0 || digit > MaxDigit {
		return fmt.Errorf("%w: %d", ErrRange, digit)
	}
	for i, l := range Levels(d.codes[digit]) {
		if err := d.pins[i].Out(l); err != nil {
			return fmt.Errorf("sevenseg: segment %s: %w", SegmentName(i), err)
		}
	}
	return nil
}

// Test cycles through 0-F, pausing stepDelay after each digit. A
// non-positive stepDelay uses DefaultTestDelay.
//
// It blocks for 16*stepDelay.
func (d *Dev) Test(stepDelay time.Duration) error {
	if stepDelay <= 0 {
		stepDelay = DefaultTestDelay
	}
	for digit := 0; digit <= MaxDigit; digit++ {
		if err := d.WriteNumeric(digit); err != nil {
			return err
		}
		d.clock.Sleep(stepDelay)
	}
	return nil
}

// Halt implements conn.Resource.
//
// It turns all segments off.
func (d *Dev) Halt() error {
	return d.Fill(false)
}

func (d *Dev) String() string {
	names := make([]string, NumSegments)
	for i, p := range d.pins {
		names[i] = p.String()
	}
	return fmt.Sprintf("SevenSegment{%s, [%s]}", d.polarity, strings.Join(names, " "))
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}
