// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package videosink is a virtual display served over HTTP.
//
// It implements display.Drawer, so a banner or a rendered digit can be drawn
// on it in place of real hardware. GET requests receive a "MJPEG" style
// multipart/x-mixed-replace stream with a new frame after every Draw, or a
// single image with "?once=1". PNG is the default format; "?format=jpeg"
// selects JPEG.
package videosink

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"mime"
	"net/http"
	"net/textproto"
	"sync"

	"periph.io/x/conn/v3/display"
)

// Opts for a Display.
type Opts struct {
	// Width and height of the frame buffer.
	Width, Height int
	// Format sent when the request doesn't ask for one.
	Format ImageFormat
	// Background fills the buffer initially. Defaults to black.
	Background color.Color
}

var jpegOptions = jpeg.Options{Quality: 90}

var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

// Display is a frame buffer mirrored to HTTP clients.
type Display struct {
	format ImageFormat

	mu      sync.Mutex
	buffer  *image.RGBA
	frames  map[ImageFormat][]byte
	clients map[*client]struct{}
}

type client struct {
	refresh chan struct{}
	stop    chan struct{}
}

// New returns a Display of the given size.
func New(opts *Opts) (*Display, error) {
	if opts == nil || opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.New("videosink: invalid size")
	}
	if opts.Format != PNG && opts.Format != JPEG {
		return nil, fmt.Errorf("videosink: invalid format %s", opts.Format)
	}
	bg := opts.Background
	if bg == nil {
		bg = color.Black
	}
	buffer := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(buffer, buffer.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return &Display{
		format:  opts.Format,
		buffer:  buffer,
		frames:  map[ImageFormat][]byte{},
		clients: map[*client]struct{}{},
	}, nil
}

func (d *Display) String() string {
	b := d.buffer.Bounds()
	return fmt.Sprintf("VideoSink{%dx%d}", b.Dx(), b.Dy())
}

// Halt implements conn.Resource. Running streams end; new requests are
// still served.
func (d *Display) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for c := range d.clients {
		select {
		case c.stop <- struct{}{}:
		default:
		}
	}
	return nil
}

// ColorModel implements display.Drawer.
func (d *Display) ColorModel() color.Model {
	return d.buffer.ColorModel()
}

// Bounds implements display.Drawer.
func (d *Display) Bounds() image.Rectangle {
	return d.buffer.Bounds()
}

// Draw implements display.Drawer.
func (d *Display) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	draw.Draw(d.buffer, r, src, sp, draw.Src)
	clear(d.frames)
	for c := range d.clients {
		select {
		case c.refresh <- struct{}{}:
		default:
		}
	}
	return nil
}

// Frame returns the buffer encoded as f.
func (d *Display) Frame(f ImageFormat) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.frames[f]; ok {
		return b, nil
	}
	var buf bytes.Buffer
	var err error
	switch f {
	case PNG:
		err = pngEncoder.Encode(&buf, d.buffer)
	case JPEG:
		err = jpeg.Encode(&buf, d.buffer, &jpegOptions)
	default:
		err = fmt.Errorf("unhandled image format %s", f)
	}
	if err != nil {
		return nil, fmt.Errorf("videosink: %w", err)
	}
	d.frames[f] = buf.Bytes()
	return d.frames[f], nil
}

// ServeHTTP implements http.Handler.
func (d *Display) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	format := d.format
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := ParseImageFormat(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = f
	}
	if r.URL.Query().Get("once") != "" {
		d.serveOnce(w, format)
		return
	}

	c := &client{refresh: make(chan struct{}, 1), stop: make(chan struct{}, 1)}
	d.mu.Lock()
	d.clients[c] = struct{}{}
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.clients, c)
		d.mu.Unlock()
	}()

	fw := newFrameWriter(w)
	w.Header().Set("Content-Type", mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{"boundary": fw.boundary}))
	part := textproto.MIMEHeader{}
	part.Set("Content-Type", format.mimeType())
	for {
		frame, err := d.Frame(format)
		if err != nil {
			return
		}
		// A failed write means the client went away.
		if err := fw.write(part, frame); err != nil {
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-c.refresh:
		case <-c.stop:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (d *Display) serveOnce(w http.ResponseWriter, f ImageFormat) {
	frame, err := d.Frame(f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", f.mimeType())
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(frame)
}

var _ display.Drawer = &Display{}
var _ http.Handler = &Display{}
