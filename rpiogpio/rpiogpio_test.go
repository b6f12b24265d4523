// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rpiogpio

import (
	"errors"
	"testing"

	"github.com/stianeikeland/go-rpio"
	"periph.io/x/conn/v3/gpio"
)

func TestByName(t *testing.T) {
	for name, want := range map[string]int{
		"17":      17,
		"GPIO27":  27,
		"gpio4":   4,
		"BCM22":   22,
		" bcm5 ": 5,
	} {
		p, err := ByName(name)
		if err != nil {
			t.Errorf("ByName(%q): %v", name, err)
			continue
		}
		if p.Number() != want {
			t.Errorf("ByName(%q).Number() = %d, want %d", name, p.Number(), want)
		}
	}
	for _, name := range []string{"", "GPIO", "P1_11", "-1", "54"} {
		if _, err := ByName(name); err == nil {
			t.Errorf("ByName(%q) succeeded", name)
		}
	}
}

func TestIdentity(t *testing.T) {
	p, err := New(17)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "GPIO17" || p.String() != "GPIO17" || p.Function() != "In" {
		t.Errorf("unexpected identity %s %s", p.Name(), p.Function())
	}
	if err := p.PWM(gpio.DutyHalf, 0); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("PWM() = %v", err)
	}
	if err := p.In(gpio.PullNoChange, gpio.RisingEdge); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("In(RisingEdge) = %v", err)
	}
}

func TestStates(t *testing.T) {
	if toState(gpio.High) != rpio.High || toState(gpio.Low) != rpio.Low {
		t.Error("toState")
	}
	if fromState(rpio.High) != gpio.High || fromState(rpio.Low) != gpio.Low {
		t.Error("fromState")
	}
}
