// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rpiogpio exposes Raspberry Pi GPIOs driven through go-rpio as
// periph gpio.PinIO.
//
// It is an alternative to periph.io/x/host on systems where only
// /dev/gpiomem is available. Open must be called before any pin is used.
package rpiogpio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// maxBCM is the highest GPIO number of the BCM283x.
const maxBCM = 53

// ErrNotImplemented is returned for PWM.
var ErrNotImplemented = errors.New("rpiogpio: not implemented")

// Open maps the GPIO registers.
func Open() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("rpiogpio: %w", err)
	}
	return nil
}

// Close unmaps the GPIO registers.
func Close() error {
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("rpiogpio: %w", err)
	}
	return nil
}

// Pin is a BCM numbered GPIO.
type Pin struct {
	number int
	pin    rpio.Pin

	mu   sync.Mutex
	fn   string
	pull gpio.Pull
}

// New returns the pin with the given BCM number.
func New(bcm int) (*Pin, error) {
	if bcm < 0 || bcm > maxBCM {
		return nil, fmt.Errorf("rpiogpio: invalid BCM number %d", bcm)
	}
	return &Pin{number: bcm, pin: rpio.Pin(bcm), fn: "In", pull: gpio.PullNoChange}, nil
}

// ByName accepts "17", "GPIO17" or "BCM17".
func ByName(name string) (*Pin, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "GPIO"), "BCM")
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("rpiogpio: invalid pin name %q", name)
	}
	return New(n)
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return p.Name()
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name returns "GPIOnn".
func (p *Pin) Name() string {
	return "GPIO" + strconv.Itoa(p.number)
}

// Number returns the BCM number.
func (p *Pin) Number() int {
	return p.number
}

// Deprecated: returns "In" or "Out".
func (p *Pin) Function() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fn
}

// In configures the pin as an input. Edge detection is not supported.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return fmt.Errorf("rpiogpio: %s: edge detection %w", p, ErrNotImplemented)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pin.Input()
	switch pull {
	case gpio.PullDown:
		p.pin.PullDown()
	case gpio.PullUp:
		p.pin.PullUp()
	case gpio.Float:
		p.pin.PullOff()
	case gpio.PullNoChange:
	default:
		return fmt.Errorf("rpiogpio: %s: unknown pull %s", p, pull)
	}
	if pull != gpio.PullNoChange {
		p.pull = pull
	}
	p.fn = "In"
	return nil
}

// Read returns the current level of the pin.
func (p *Pin) Read() gpio.Level {
	return fromState(p.pin.Read())
}

// WaitForEdge always returns false.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull returns the last pull set with In.
func (p *Pin) Pull() gpio.Pull {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pull
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.PullNoChange
}

// Out configures the pin as an output and drives it to l.
func (p *Pin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fn != "Out" {
		p.pin.Output()
		p.fn = "Out"
	}
	p.pin.Write(toState(l))
	return nil
}

// Not implemented.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

func toState(l gpio.Level) rpio.State {
	if l {
		return rpio.High
	}
	return rpio.Low
}

func fromState(s rpio.State) gpio.Level {
	return s == rpio.High
}

var _ gpio.PinIO = &Pin{}
