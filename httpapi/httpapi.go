// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package httpapi exposes a seven-segment display, and optionally a
// voltmeter, over HTTP.
//
// Routes:
//
//	GET  /api/status            polarity, last digit, last voltage
//	PUT  /api/fill/{on|off}     light or blank every segment
//	PUT  /api/digit/{0-15}      show a digit
//	POST /api/test?delay=50ms   cycle through 0-F
//	GET  /api/voltage           latest reading
//	GET  /api/digit.png         picture of the digit, with Mirror
//	GET  /api/stream            live MJPEG stream of the digit, with Mirror
//
// All display access goes through one mutex, since the driver assumes a
// single caller. Readings go through a second one.
package httpapi

import (
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/GermanBionicSystems/segdisplay/segimage"
	"github.com/GermanBionicSystems/segdisplay/sevenseg"
	"github.com/GermanBionicSystems/segdisplay/videosink"
	"github.com/gorilla/mux"
	"periph.io/x/conn/v3/physic"
)

// Display is the command surface of a seven-segment driver.
type Display interface {
	Polarity() sevenseg.Polarity
	Fill(on bool) error
	WriteNumeric(digit int) error
	Test(stepDelay time.Duration) error
}

// Meter takes a voltage reading.
type Meter interface {
	Sense() (physic.ElectricPotential, error)
}

// Status is the body of GET /api/status.
type Status struct {
	Polarity string   `json:"polarity"`
	Digit    *int     `json:"digit,omitempty"`
	Fill     *bool    `json:"fill,omitempty"`
	Voltage  *float64 `json:"voltage,omitempty"`
}

// Server serializes access to a Display and serves it over HTTP.
//
// Server implements Display and Meter itself so other callers, such as a
// polling loop, share the same locks.
type Server struct {
	log *slog.Logger

	senseMu sync.Mutex
	meter   Meter

	mu      sync.Mutex
	display Display
	digit   *int
	fill    *bool
	voltage *float64
	sink    *videosink.Display
	look    segimage.Opts
}

// New returns a Server. meter may be nil.
func New(d Display, meter Meter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{display: d, meter: meter, log: log}
}

// Polarity implements Display.
func (s *Server) Polarity() sevenseg.Polarity {
	return s.display.Polarity()
}

// Fill implements Display.
func (s *Server) Fill(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.display.Fill(on); err != nil {
		return err
	}
	s.digit, s.fill = nil, &on
	s.mirrorLocked()
	return nil
}

// WriteNumeric implements Display.
func (s *Server) WriteNumeric(digit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.display.WriteNumeric(digit); err != nil {
		return err
	}
	s.digit, s.fill = &digit, nil
	s.mirrorLocked()
	return nil
}

// Test implements Display. The display is held for the whole run.
func (s *Server) Test(stepDelay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.display.Test(stepDelay); err != nil {
		return err
	}
	last := sevenseg.MaxDigit
	s.digit, s.fill = &last, nil
	s.mirrorLocked()
	return nil
}

// Mirror draws the digit on sink after every change, rendered with look.
// sink sized look.W by look.H shows the whole digit.
func (s *Server) Mirror(sink *videosink.Display, look *segimage.Opts) {
	if look == nil {
		look = &segimage.DefaultOpts
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink, s.look = sink, *look
	s.mirrorLocked()
}

// mirrorLocked renders the shown state. A failure only costs the picture.
func (s *Server) mirrorLocked() {
	if s.sink == nil {
		return
	}
	var lit [sevenseg.NumSegments]bool
	switch {
	case s.fill != nil:
		for i := range lit {
			lit[i] = *s.fill
		}
	case s.digit != nil:
		p := s.display.Polarity()
		b, err := sevenseg.Pattern(p, *s.digit)
		if err != nil {
			return
		}
		lit = sevenseg.Lit(p, sevenseg.Levels(b))
	}
	img, err := segimage.Render(lit, &s.look)
	if err != nil {
		s.log.Warn("rendering digit", "err", err)
		return
	}
	if err := s.sink.Draw(s.sink.Bounds(), img, image.Point{}); err != nil {
		s.log.Warn("mirroring digit", "err", err)
	}
}

// Sense implements Meter and records the reading.
func (s *Server) Sense() (physic.ElectricPotential, error) {
	if s.meter == nil {
		return 0, errNoMeter
	}
	s.senseMu.Lock()
	defer s.senseMu.Unlock()
	v, err := s.meter.Sense()
	if err != nil {
		return 0, err
	}
	s.Record(v)
	return v, nil
}

// Record stores a reading taken elsewhere for /api/status.
func (s *Server) Record(v physic.ElectricPotential) {
	f := float64(v) / float64(physic.Volt)
	s.mu.Lock()
	s.voltage = &f
	s.mu.Unlock()
}

// Router returns the routes of the server.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.status).Methods(http.MethodGet)
	api.HandleFunc("/fill/{state:on|off}", s.fillHandler).Methods(http.MethodPut)
	api.HandleFunc("/digit/{digit}", s.digitHandler).Methods(http.MethodPut)
	api.HandleFunc("/test", s.testHandler).Methods(http.MethodPost)
	api.HandleFunc("/voltage", s.voltageHandler).Methods(http.MethodGet)
	api.HandleFunc("/digit.png", s.pictureHandler).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.streamHandler).Methods(http.MethodGet)
	api.Use(s.logRequests)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := Status{Polarity: s.display.Polarity().String(), Digit: s.digit, Fill: s.fill, Voltage: s.voltage}
	s.mu.Unlock()
	s.reply(w, http.StatusOK, st)
}

func (s *Server) fillHandler(w http.ResponseWriter, r *http.Request) {
	on := mux.Vars(r)["state"] == "on"
	if err := s.Fill(on); err != nil {
		s.fail(w, err)
		return
	}
	s.reply(w, http.StatusOK, map[string]bool{"fill": on})
}

func (s *Server) digitHandler(w http.ResponseWriter, r *http.Request) {
	digit, err := strconv.Atoi(mux.Vars(r)["digit"])
	if err != nil {
		s.reply(w, http.StatusBadRequest, errorBody{Error: "digit must be an integer"})
		return
	}
	if err := s.WriteNumeric(digit); err != nil {
		s.fail(w, err)
		return
	}
	s.reply(w, http.StatusOK, map[string]int{"digit": digit})
}

func (s *Server) testHandler(w http.ResponseWriter, r *http.Request) {
	delay := sevenseg.DefaultTestDelay
	if v := r.URL.Query().Get("delay"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 || d > 10*time.Second {
			s.reply(w, http.StatusBadRequest, errorBody{Error: "delay must be a duration between 0 and 10s"})
			return
		}
		delay = d
	}
	if err := s.Test(delay); err != nil {
		s.fail(w, err)
		return
	}
	s.reply(w, http.StatusOK, map[string]string{"test": "done"})
}

// voltageHandler returns the latest reading, taking one only before the
// first.
func (s *Server) voltageHandler(w http.ResponseWriter, r *http.Request) {
	if s.meter == nil {
		s.reply(w, http.StatusServiceUnavailable, errorBody{Error: errNoMeter.Error()})
		return
	}
	s.mu.Lock()
	last := s.voltage
	s.mu.Unlock()
	if last == nil {
		v, err := s.Sense()
		if err != nil {
			s.fail(w, err)
			return
		}
		f := float64(v) / float64(physic.Volt)
		last = &f
	}
	s.reply(w, http.StatusOK, map[string]float64{"voltage": *last})
}

func (s *Server) mirror() *videosink.Display {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

func (s *Server) pictureHandler(w http.ResponseWriter, r *http.Request) {
	sink := s.mirror()
	if sink == nil {
		s.reply(w, http.StatusNotFound, errorBody{Error: "no mirror configured"})
		return
	}
	b, err := sink.Frame(videosink.PNG)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(b)
}

func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	sink := s.mirror()
	if sink == nil {
		s.reply(w, http.StatusNotFound, errorBody{Error: "no mirror configured"})
		return
	}
	sink.ServeHTTP(w, r)
}

var errNoMeter = errors.New("no voltmeter configured")

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, sevenseg.ErrRange) {
		code = http.StatusBadRequest
	} else {
		s.log.Error("display command failed", "err", err)
	}
	s.reply(w, code, errorBody{Error: err.Error()})
}

func (s *Server) reply(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("writing response", "err", err)
	}
}

var _ Display = &Server{}
var _ Display = &sevenseg.Dev{}
var _ Meter = &Server{}
