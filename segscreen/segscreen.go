// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package segscreen emulates a seven-segment digit on the terminal.
//
// It exposes seven gpio.PinIO lines that can be handed to sevenseg.New in
// place of real GPIOs. Useful while the display is still in the mail.
package segscreen

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/GermanBionicSystems/segdisplay/sevenseg"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/gpio"
)

// Opts represents the options available for the emulator.
type Opts struct {
	// Polarity decides which level lights a segment.
	Polarity sevenseg.Polarity
	// Palette used in colour mode. Defaults to ansi256.Default.
	Palette *ansi256.Palette
	// Lit and Unlit segment colours. Zero values use red and dark grey.
	Lit, Unlit color.NRGBA
	// Plain draws ASCII art without escape codes. Frames are only written
	// by Refresh, which suits pipes and log files.
	Plain bool
	// W is where frames go. Defaults to a colorable stdout.
	W io.Writer

	_ struct{}
}

// Dev is a seven-segment digit emulator.
type Dev struct {
	w        io.Writer
	palette  ansi256.Palette
	polarity sevenseg.Polarity
	lit      color.NRGBA
	unlit    color.NRGBA
	plain    bool

	mu     sync.Mutex
	levels [sevenseg.NumSegments]gpio.Level
	pins   [sevenseg.NumSegments]*Pin
	drawn  bool
	buf    bytes.Buffer
}

// New returns a Dev with every segment dark.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	d := &Dev{
		w:        opts.W,
		palette:  *p,
		polarity: opts.Polarity,
		lit:      opts.Lit,
		unlit:    opts.Unlit,
		plain:    opts.Plain,
	}
	if d.w == nil {
		d.w = colorable.NewColorableStdout()
	}
	if d.lit == (color.NRGBA{}) {
		d.lit = color.NRGBA{R: 255, A: 255}
	}
	if d.unlit == (color.NRGBA{}) {
		d.unlit = color.NRGBA{R: 48, G: 48, B: 48, A: 255}
	}
	off := !opts.Polarity.On()
	for i := range d.pins {
		d.levels[i] = off
		d.pins[i] = &Pin{dev: d, number: i, name: "SEG_" + string(rune('A'+i))}
	}
	return d
}

// Pins returns the segment lines a through g.
func (d *Dev) Pins() []gpio.PinOut {
	out := make([]gpio.PinOut, len(d.pins))
	for i, p := range d.pins {
		out[i] = p
	}
	return out
}

// Levels returns the level last written to each line.
func (d *Dev) Levels() [sevenseg.NumSegments]gpio.Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levels
}

// Lit returns which segments are visible.
func (d *Dev) Lit() [sevenseg.NumSegments]bool {
	return sevenseg.Lit(d.polarity, d.Levels())
}

func (d *Dev) String() string {
	return "SegScreen"
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes.
func (d *Dev) Halt() error {
	if d.plain {
		return nil
	}
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Refresh writes the current frame.
func (d *Dev) Refresh() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refresh()
}

func (d *Dev) set(i int, l gpio.Level) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels[i] = l
	if d.plain {
		return nil
	}
	return d.refresh()
}

// Cell layout of the colour frame, 4 cells wide and 5 high. -1 is
// background.
var layout = [5][4]int{
	{-1, 0, 0, -1},
	{5, -1, -1, 1},
	{-1, 6, 6, -1},
	{4, -1, -1, 2},
	{-1, 3, 3, -1},
}

func (d *Dev) refresh() error {
	// This code is designed to minimize the amount of memory allocated per call.
	lit := sevenseg.Lit(d.polarity, d.levels)
	d.buf.Reset()
	if d.plain {
		writePlain(&d.buf, lit)
	} else {
		if d.drawn {
			_, _ = fmt.Fprintf(&d.buf, "\033[%dA", len(layout))
		}
		for _, row := range layout {
			_, _ = d.buf.WriteString("\r\033[0m")
			for _, seg := range row {
				switch {
				case seg < 0:
					_, _ = d.buf.WriteString("\033[0m  ")
				case lit[seg]:
					_, _ = io.WriteString(&d.buf, d.palette.Block(d.lit))
				default:
					_, _ = io.WriteString(&d.buf, d.palette.Block(d.unlit))
				}
			}
			_, _ = d.buf.WriteString("\033[0m\n")
		}
	}
	d.drawn = true
	_, err := d.buf.WriteTo(d.w)
	return err
}

// writePlain draws the classic three line glyph.
func writePlain(b *bytes.Buffer, lit [sevenseg.NumSegments]bool) {
	mark := func(on bool, c byte) {
		if on {
			_ = b.WriteByte(c)
		} else {
			_ = b.WriteByte(' ')
		}
	}
	_ = b.WriteByte(' ')
	mark(lit[0], '_')
	_, _ = b.WriteString(" \n")
	mark(lit[5], '|')
	mark(lit[6], '_')
	mark(lit[1], '|')
	_ = b.WriteByte('\n')
	mark(lit[4], '|')
	mark(lit[3], '_')
	mark(lit[2], '|')
	_ = b.WriteByte('\n')
}

var _ fmt.Stringer = &Dev{}
