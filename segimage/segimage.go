// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package segimage renders the state of a seven-segment digit to an image,
// for previews and documentation.
package segimage

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/GermanBionicSystems/segdisplay/sevenseg"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Opts controls the rendering.
type Opts struct {
	// Size of the digit cell in pixels.
	W, H int
	// Thickness of a segment in pixels.
	Thickness float64
	Lit       color.Color
	Unlit     color.Color
	Back      color.Color
	// Caption is drawn under the digit when not empty.
	Caption  string
	FontSize float64
}

// DefaultOpts is a red digit on black, 120x200.
var DefaultOpts = Opts{
	W:         120,
	H:         200,
	Thickness: 16,
	Lit:       color.NRGBA{R: 255, G: 32, B: 16, A: 255},
	Unlit:     color.NRGBA{R: 40, G: 40, B: 40, A: 255},
	Back:      color.Black,
	FontSize:  14,
}

const margin = 10

var (
	fontOnce sync.Once
	fontErr  error
	regular  *truetype.Font
)

func captionFace(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		regular, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("segimage: %w", fontErr)
	}
	return truetype.NewFace(regular, &truetype.Options{Size: size}), nil
}

// Rects returns the rectangle of each segment, a through g, for a digit
// cell of the given size.
func Rects(w, h int, t float64) [sevenseg.NumSegments]image.Rectangle {
	x0, y0 := float64(margin), float64(margin)
	x1, y1 := float64(w-margin), float64(h-margin)
	ym := (y0 + y1) / 2
	long := x1 - x0 - 2*t
	tall := (y1-y0)/2 - 1.5*t
	r := func(x, y, dx, dy float64) image.Rectangle {
		return image.Rect(int(x), int(y), int(x+dx), int(y+dy))
	}
	return [sevenseg.NumSegments]image.Rectangle{
		r(x0+t, y0, long, t),     // a
		r(x1-t, y0+t, t, tall),   // b
		r(x1-t, ym+t/2, t, tall), // c
		r(x0+t, y1-t, long, t),   // d
		r(x0, ym+t/2, t, tall),   // e
		r(x0, y0+t, t, tall),     // f
		r(x0+t, ym-t/2, long, t), // g
	}
}

// Render draws the digit with the given segments lit.
func Render(lit [sevenseg.NumSegments]bool, opts *Opts) (image.Image, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.W <= 2*margin || opts.H <= 2*margin || opts.Thickness <= 0 {
		return nil, fmt.Errorf("segimage: invalid size %dx%d/%g", opts.W, opts.H, opts.Thickness)
	}
	h := opts.H
	if opts.Caption != "" {
		h += int(2 * opts.FontSize)
	}
	dc := gg.NewContext(opts.W, h)
	dc.SetColor(opts.Back)
	dc.Clear()
	for i, r := range Rects(opts.W, opts.H, opts.Thickness) {
		if lit[i] {
			dc.SetColor(opts.Lit)
		} else {
			dc.SetColor(opts.Unlit)
		}
		dc.DrawRoundedRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()), opts.Thickness/4)
		dc.Fill()
	}
	if opts.Caption != "" {
		face, err := captionFace(opts.FontSize)
		if err != nil {
			return nil, err
		}
		dc.SetFontFace(face)
		dc.SetColor(opts.Lit)
		dc.DrawStringAnchored(opts.Caption, float64(opts.W)/2, float64(opts.H)+opts.FontSize, 0.5, 0.5)
	}
	return dc.Image(), nil
}

// RenderDigit draws digit as it appears on a display of polarity p.
func RenderDigit(p sevenseg.Polarity, digit int, opts *Opts) (image.Image, error) {
	b, err := sevenseg.Pattern(p, digit)
	if err != nil {
		return nil, err
	}
	return Render(sevenseg.Lit(p, sevenseg.Levels(b)), opts)
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("segimage: %w", err)
	}
	return nil
}
