// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package httpapi

import (
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GermanBionicSystems/segdisplay/segimage"
	"github.com/GermanBionicSystems/segdisplay/segscreen"
	"github.com/GermanBionicSystems/segdisplay/sevenseg"
	"github.com/GermanBionicSystems/segdisplay/videosink"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

type fakeMeter struct {
	v   physic.ElectricPotential
	err error

	calls   atomic.Int32
	busy    atomic.Int32
	overlap atomic.Bool
}

func (m *fakeMeter) Sense() (physic.ElectricPotential, error) {
	m.calls.Add(1)
	if m.busy.Add(1) > 1 {
		m.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	m.busy.Add(-1)
	return m.v, m.err
}

type fixture struct {
	screen *segscreen.Dev
	server *Server
	http   *httptest.Server
}

func newFixture(t *testing.T, meter Meter) *fixture {
	t.Helper()
	scr := segscreen.New(&segscreen.Opts{Polarity: sevenseg.CommonCathode, Plain: true, W: io.Discard})
	fc := clockwork.NewFakeClock()
	dev, err := sevenseg.New(scr.Pins(), &sevenseg.Opts{Polarity: sevenseg.CommonCathode, Clock: fc})
	require.NoError(t, err)
	s := New(dev, meter, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return &fixture{screen: scr, server: s, http: ts}
}

func (f *fixture) do(t *testing.T, method, path string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.http.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestDigit(t *testing.T) {
	f := newFixture(t, nil)

	code, body := f.do(t, http.MethodPut, "/api/digit/1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["digit"])
	assert.Equal(t, [sevenseg.NumSegments]bool{false, true, true}, f.screen.Lit())

	code, body = f.do(t, http.MethodGet, "/api/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "CommonCathode", body["polarity"])
	assert.Equal(t, float64(1), body["digit"])
	assert.NotContains(t, body, "voltage")
}

func TestDigitRejected(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.server.WriteNumeric(3))
	before := f.screen.Lit()

	code, body := f.do(t, http.MethodPut, "/api/digit/16")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "out of range")

	code, _ = f.do(t, http.MethodPut, "/api/digit/x")
	assert.Equal(t, http.StatusBadRequest, code)

	assert.Equal(t, before, f.screen.Lit())
}

func TestFill(t *testing.T) {
	f := newFixture(t, nil)

	code, _ := f.do(t, http.MethodPut, "/api/fill/on")
	assert.Equal(t, http.StatusOK, code)
	for _, lit := range f.screen.Lit() {
		assert.True(t, lit)
	}
	_, body := f.do(t, http.MethodGet, "/api/status")
	assert.Equal(t, true, body["fill"])
	assert.NotContains(t, body, "digit")

	code, _ = f.do(t, http.MethodPut, "/api/fill/off")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, [sevenseg.NumSegments]bool{}, f.screen.Lit())

	req, err := http.NewRequest(http.MethodPut, f.http.URL+"/api/fill/maybe", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSelfTest(t *testing.T) {
	f := newFixture(t, nil)
	code, body := f.do(t, http.MethodPost, "/api/test?delay=nope")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "error")
}

func TestVoltage(t *testing.T) {
	f := newFixture(t, &fakeMeter{v: 10600 * physic.MilliVolt})
	code, body := f.do(t, http.MethodGet, "/api/voltage")
	assert.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 10.6, body["voltage"], 1e-9)

	_, body = f.do(t, http.MethodGet, "/api/status")
	assert.InDelta(t, 10.6, body["voltage"], 1e-9)
}

func TestVoltageLatest(t *testing.T) {
	m := &fakeMeter{v: 10600 * physic.MilliVolt}
	f := newFixture(t, m)
	f.server.Record(3 * physic.Volt)
	code, body := f.do(t, http.MethodGet, "/api/voltage")
	assert.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 3.0, body["voltage"], 1e-9)
	assert.Equal(t, int32(0), m.calls.Load())

	v, err := f.server.Sense()
	require.NoError(t, err)
	assert.Equal(t, 10600*physic.MilliVolt, v)
	_, body = f.do(t, http.MethodGet, "/api/voltage")
	assert.InDelta(t, 10.6, body["voltage"], 1e-9)
	assert.Equal(t, int32(1), m.calls.Load())
}

func TestSenseSerialized(t *testing.T) {
	m := &fakeMeter{v: physic.Volt}
	s := New(nil, m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Sense()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(8), m.calls.Load())
	assert.False(t, m.overlap.Load())

	_, err := New(nil, nil, nil).Sense()
	assert.Error(t, err)
}

func TestVoltageErrors(t *testing.T) {
	f := newFixture(t, nil)
	code, _ := f.do(t, http.MethodGet, "/api/voltage")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	f = newFixture(t, &fakeMeter{err: errors.New("adc gone")})
	code, body := f.do(t, http.MethodGet, "/api/voltage")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "adc gone", body["error"])
}

func TestServerTest(t *testing.T) {
	scr := segscreen.New(&segscreen.Opts{Plain: true, W: io.Discard})
	fc := clockwork.NewFakeClock()
	dev, err := sevenseg.New(scr.Pins(), &sevenseg.Opts{Clock: fc})
	require.NoError(t, err)
	s := New(dev, nil, nil)

	done := make(chan error, 1)
	go func() { done <- s.Test(time.Millisecond) }()
	for range sevenseg.MaxDigit + 1 {
		fc.BlockUntil(1)
		fc.Advance(time.Millisecond)
	}
	require.NoError(t, <-done)

	want, err := sevenseg.Pattern(sevenseg.CommonAnode, 0xf)
	require.NoError(t, err)
	assert.Equal(t, sevenseg.Lit(sevenseg.CommonAnode, sevenseg.Levels(want)), scr.Lit())
}

func getPicture(t *testing.T, f *fixture) (int, image.Image) {
	t.Helper()
	resp, err := http.Get(f.http.URL + "/api/digit.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, img
}

func TestMirror(t *testing.T) {
	f := newFixture(t, nil)
	code, _ := getPicture(t, f)
	assert.Equal(t, http.StatusNotFound, code)

	look := segimage.DefaultOpts
	sink, err := videosink.New(&videosink.Opts{Width: look.W, Height: look.H})
	require.NoError(t, err)
	f.server.Mirror(sink, &look)

	rects := segimage.Rects(look.W, look.H, look.Thickness)
	center := func(r image.Rectangle) image.Point {
		return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
	}
	litR, _, _, _ := look.Lit.RGBA()
	unlitR, _, _, _ := look.Unlit.RGBA()

	code, _ = f.do(t, http.MethodPut, "/api/digit/1")
	require.Equal(t, http.StatusOK, code)
	code, img := getPicture(t, f)
	require.Equal(t, http.StatusOK, code)
	for i, r := range rects {
		got, _, _, _ := img.At(center(r).X, center(r).Y).RGBA()
		want := unlitR
		if i == 1 || i == 2 {
			want = litR
		}
		assert.Equal(t, want, got, "segment %s", sevenseg.SegmentName(i))
	}

	code, _ = f.do(t, http.MethodPut, "/api/fill/on")
	require.Equal(t, http.StatusOK, code)
	_, img = getPicture(t, f)
	got, _, _, _ := img.At(center(rects[6]).X, center(rects[6]).Y).RGBA()
	assert.Equal(t, litR, got)
}
