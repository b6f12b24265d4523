// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package banner writes short text on a monochrome display such as an
// SSD1306 OLED.
package banner

import (
	"errors"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Dev draws text on a display.Drawer.
type Dev struct {
	d    display.Drawer
	face font.Face
	img  *image1bit.VerticalLSB
}

// New returns a Dev writing to d with the 7x13 fixed font.
func New(d display.Drawer) (*Dev, error) {
	if d == nil {
		return nil, errors.New("banner: no display")
	}
	b := d.Bounds()
	if b.Empty() {
		return nil, errors.New("banner: display has no area")
	}
	return &Dev{d: d, face: basicfont.Face7x13, img: image1bit.NewVerticalLSB(b)}, nil
}

// Clear blanks the display.
func (b *Dev) Clear() error {
	b.blank()
	return b.flush()
}

// Centered clears the display and draws text in the middle of it.
func (b *Dev) Centered(text string) error {
	b.blank()
	r := b.img.Bounds()
	m := b.face.Metrics()
	w := font.MeasureString(b.face, text).Ceil()
	h := (m.Ascent + m.Descent).Ceil()
	x := r.Min.X + (r.Dx()-w)/2
	y := r.Min.Y + (r.Dy()-h)/2 + m.Ascent.Ceil()
	b.draw(text, x, y)
	return b.flush()
}

// Line clears the display and draws text at the top left corner.
func (b *Dev) Line(text string) error {
	return b.Lines(text)
}

// Lines clears the display and draws one line of text per argument from
// the top. Lines that don't fit are dropped.
func (b *Dev) Lines(lines ...string) error {
	b.blank()
	r := b.img.Bounds()
	m := b.face.Metrics()
	y := r.Min.Y + m.Ascent.Ceil()
	for _, l := range lines {
		if y+m.Descent.Ceil() > r.Max.Y {
			break
		}
		b.draw(l, r.Min.X, y)
		y += m.Height.Ceil()
	}
	return b.flush()
}

// Halt implements conn.Resource.
func (b *Dev) Halt() error {
	return b.d.Halt()
}

func (b *Dev) String() string {
	return "Banner{" + b.d.String() + "}"
}

func (b *Dev) blank() {
	r := b.img.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			b.img.SetBit(x, y, image1bit.Off)
		}
	}
}

func (b *Dev) draw(text string, x, y int) {
	drawer := font.Drawer{
		Dst:  b.img,
		Src:  &image.Uniform{image1bit.On},
		Face: b.face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

func (b *Dev) flush() error {
	return b.d.Draw(b.d.Bounds(), b.img, image.Point{})
}
