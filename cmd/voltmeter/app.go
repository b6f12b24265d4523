// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/GermanBionicSystems/segdisplay/mqttpub"
	"github.com/GermanBionicSystems/segdisplay/voltmeter"
	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/physic"
)

type meter interface {
	Sense() (physic.ElectricPotential, error)
}

type screen interface {
	Centered(text string) error
	Line(text string) error
	Clear() error
	Halt() error
}

type digit interface {
	WriteNumeric(digit int) error
}

type recorder interface {
	Record(v physic.ElectricPotential)
}

type publisher interface {
	Publish(r mqttpub.Reading) error
}

// app is the polling loop. Every output is optional except out.
type app struct {
	log    *slog.Logger
	meter  meter
	out    io.Writer
	oled   screen
	digit  digit
	record recorder
	pub    publisher
}

// splash shows text on the OLED for d, then clears it.
func (a *app) splash(ctx context.Context, clock clockwork.Clock, text string, d time.Duration) error {
	if a.oled == nil || text == "" {
		return nil
	}
	if err := a.oled.Centered(text); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-clock.After(d):
	}
	return a.oled.Clear()
}

// run takes a reading every tick until ctx is canceled.
func (a *app) run(ctx context.Context, clock clockwork.Clock, tick time.Duration) error {
	t := clock.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			a.log.Info("stopping")
			return nil
		case now := <-t.Chan():
			a.step(now)
		}
	}
}

// step takes one reading and fans it out. Output failures are logged and
// the loop carries on.
func (a *app) step(now time.Time) {
	v, err := a.meter.Sense()
	if err != nil {
		a.log.Error("reading voltage", "err", err)
		return
	}
	text := voltmeter.Format(v)
	fmt.Fprintln(a.out, text)
	a.log.Debug("reading", "voltage", v.String())

	if a.oled != nil {
		if err := a.oled.Line(text); err != nil {
			a.log.Warn("oled", "err", err)
		}
	}
	d := voltmeter.Digit(v)
	if a.digit != nil {
		if err := a.digit.WriteNumeric(d); err != nil {
			a.log.Warn("seven-segment", "err", err)
		}
	}
	if a.record != nil {
		a.record.Record(v)
	}
	if a.pub != nil {
		r := mqttpub.Reading{Voltage: float64(v) / float64(physic.Volt), Digit: d, Time: now}
		if err := a.pub.Publish(r); err != nil {
			a.log.Warn("mqtt", "err", err)
		}
	}
}
