// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/GermanBionicSystems/segdisplay/internal/logging"
	"github.com/GermanBionicSystems/segdisplay/mqttpub"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

type fakeMeter struct {
	v   physic.ElectricPotential
	err error
}

func (m *fakeMeter) Sense() (physic.ElectricPotential, error) { return m.v, m.err }

type fakeScreen struct {
	mu     sync.Mutex
	events []string
}

func (s *fakeScreen) add(e string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *fakeScreen) Centered(text string) error { return s.add("centered " + text) }
func (s *fakeScreen) Line(text string) error     { return s.add("line " + text) }
func (s *fakeScreen) Clear() error               { return s.add("clear") }
func (s *fakeScreen) Halt() error                { return s.add("halt") }

func (s *fakeScreen) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

type fakeDigit struct {
	digits []int
	err    error
}

func (d *fakeDigit) WriteNumeric(n int) error {
	d.digits = append(d.digits, n)
	return d.err
}

type fakeRecorder struct{ v []physic.ElectricPotential }

func (r *fakeRecorder) Record(v physic.ElectricPotential) { r.v = append(r.v, v) }

type fakePublisher struct{ r []mqttpub.Reading }

func (p *fakePublisher) Publish(r mqttpub.Reading) error {
	p.r = append(p.r, r)
	return nil
}

func quietLogger() *slog.Logger {
	return logging.NewWriter(io.Discard, slog.LevelDebug)
}

func TestStep(t *testing.T) {
	var out bytes.Buffer
	scr := &fakeScreen{}
	dig := &fakeDigit{}
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	a := &app{
		log:    quietLogger(),
		meter:  &fakeMeter{v: 10600 * physic.MilliVolt},
		out:    &out,
		oled:   scr,
		digit:  dig,
		record: rec,
		pub:    pub,
	}
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	a.step(now)

	assert.Equal(t, "Voltage: 10.600 V\n", out.String())
	assert.Equal(t, []string{"line Voltage: 10.600 V"}, scr.snapshot())
	assert.Equal(t, []int{10}, dig.digits)
	assert.Equal(t, []physic.ElectricPotential{10600 * physic.MilliVolt}, rec.v)
	require.Len(t, pub.r, 1)
	assert.InDelta(t, 10.6, pub.r[0].Voltage, 1e-9)
	assert.Equal(t, 10, pub.r[0].Digit)
	assert.Equal(t, now, pub.r[0].Time)
}

func TestStepOptionalOutputs(t *testing.T) {
	var out bytes.Buffer
	a := &app{log: quietLogger(), meter: &fakeMeter{v: 20 * physic.Volt}, out: &out}
	a.step(time.Now())
	assert.Equal(t, "Voltage: 20.000 V\n", out.String())
}

func TestStepErrors(t *testing.T) {
	var out bytes.Buffer
	dig := &fakeDigit{}
	a := &app{log: quietLogger(), meter: &fakeMeter{err: errors.New("adc gone")}, out: &out, digit: dig}
	a.step(time.Now())
	assert.Empty(t, out.String())
	assert.Empty(t, dig.digits)

	// A failing digit doesn't stop the other outputs.
	dig = &fakeDigit{err: errors.New("line stuck")}
	rec := &fakeRecorder{}
	a = &app{log: quietLogger(), meter: &fakeMeter{v: 3 * physic.Volt}, out: &out, digit: dig, record: rec}
	a.step(time.Now())
	assert.Equal(t, []int{3}, dig.digits)
	assert.Len(t, rec.v, 1)
}

func TestSplash(t *testing.T) {
	scr := &fakeScreen{}
	a := &app{log: quietLogger(), oled: scr}
	fc := clockwork.NewFakeClock()

	done := make(chan error, 1)
	go func() { done <- a.splash(context.Background(), fc, "Z VOLT", 3*time.Second) }()
	fc.BlockUntil(1)
	assert.Equal(t, []string{"centered Z VOLT"}, scr.snapshot())
	fc.Advance(3 * time.Second)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"centered Z VOLT", "clear"}, scr.snapshot())

	// Without an OLED there is nothing to wait for.
	assert.NoError(t, (&app{}).splash(context.Background(), fc, "Z VOLT", time.Hour))
}

func TestRun(t *testing.T) {
	var out syncBuffer
	a := &app{log: quietLogger(), meter: &fakeMeter{v: 5 * physic.Volt}, out: &out}
	fc := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.run(ctx, fc, 200*time.Millisecond) }()
	// The ticker may not exist yet, so keep advancing until a reading shows.
	require.Eventually(t, func() bool {
		fc.Advance(200 * time.Millisecond)
		return out.lines() > 0
	}, 5*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, out.String(), "Voltage: 5.000 V")
}

func TestSimADC(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := newSimADC(fc)
	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, int32(0), got.Raw)

	fc.Advance(simPeriod / 2)
	got, err = s.Read()
	require.NoError(t, err)
	assert.Equal(t, int32(65535), got.Raw)
	assert.Equal(t, 3300*physic.MilliVolt, got.V)

	fc.Advance(simPeriod / 4)
	got, err = s.Read()
	require.NoError(t, err)
	assert.InDelta(t, 32767, got.Raw, 1)
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func (s *syncBuffer) lines() int {
	return bytes.Count([]byte(s.String()), []byte("\n"))
}
