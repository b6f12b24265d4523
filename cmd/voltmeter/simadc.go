// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

// simPeriod is the time the simulated input takes to sweep up and down.
const simPeriod = 20 * time.Second

// simADC is a 16 bit 3.3V input sweeping a triangle wave over its full
// range, for running without hardware.
type simADC struct {
	clock clockwork.Clock
	start time.Time
}

func newSimADC(clock clockwork.Clock) *simADC {
	return &simADC{clock: clock, start: clock.Now()}
}

func (s *simADC) String() string   { return "SimADC" }
func (s *simADC) Halt() error      { return nil }
func (s *simADC) Name() string     { return "SIM_ADC" }
func (s *simADC) Number() int      { return -1 }
func (s *simADC) Function() string { return "ADC" }

func (s *simADC) Range() (analog.Sample, analog.Sample) {
	return analog.Sample{}, analog.Sample{V: 3300 * physic.MilliVolt, Raw: 65535}
}

func (s *simADC) Read() (analog.Sample, error) {
	phase := s.clock.Since(s.start) % simPeriod
	half := simPeriod / 2
	if phase > half {
		phase = simPeriod - phase
	}
	raw := int32(int64(65535) * int64(phase) / int64(half))
	v := physic.ElectricPotential(int64(3300*physic.MilliVolt) * int64(raw) / 65535)
	return analog.Sample{V: v, Raw: raw}, nil
}

var _ analog.PinADC = &simADC{}
