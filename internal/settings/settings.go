// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package settings loads the voltmeter configuration file.
//
// The file is a flat JSON object. Every key is optional; missing keys keep
// their default and unknown keys are ignored.
package settings

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/GermanBionicSystems/segdisplay/sevenseg"
	"github.com/buger/jsonparser"
)

// Settings of the voltmeter application.
type Settings struct {
	// Segment lines a through g, by GPIO name. Empty disables the digit.
	Pins     []string
	Polarity sevenseg.Polarity

	// I2CBus is the bus name for the ADC and the OLED, "" for the first.
	I2CBus string
	// ADC is "ads1115" or "sim" for a simulated input.
	ADC        string
	ADCAddr    uint16
	ADCChannel int

	OLED       bool
	OLEDWidth  int
	OLEDHeight int

	Tick        time.Duration
	Samples     int
	ErrorMargin float64 // volts
	Banner      string
	BannerTime  time.Duration

	HTTPAddr   string
	MQTTAddr   string
	MQTTTopic  string
	MQTTClient string

	LogFile string
}

// Default returns the settings used when no file is given.
func Default() *Settings {
	return &Settings{
		Polarity:    sevenseg.CommonAnode,
		ADC:         "ads1115",
		ADCAddr:     0x48,
		OLED:        true,
		OLEDWidth:   128,
		OLEDHeight:  32,
		Tick:        200 * time.Millisecond,
		Samples:     10,
		ErrorMargin: 0.4,
		Banner:      "Z VOLT",
		BannerTime:  3 * time.Second,
		MQTTTopic:   "segdisplay/voltage",
		MQTTClient:  "segdisplay-voltmeter",
	}
}

// Load reads path. An empty path returns Default.
func Load(path string) (*Settings, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("settings: %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a settings document on top of Default.
func Parse(data []byte) (*Settings, error) {
	s := Default()
	p := parser{data: data}

	if _, _, _, err := jsonparser.Get(data, "pins"); err == nil {
		s.Pins = nil
		_, err := jsonparser.ArrayEach(data, func(value []byte, t jsonparser.ValueType, _ int, err error) {
			if p.err != nil {
				return
			}
			if t != jsonparser.String {
				p.err = fmt.Errorf("pins: %q is not a string", value)
				return
			}
			s.Pins = append(s.Pins, string(value))
		}, "pins")
		if err != nil {
			return nil, fmt.Errorf("pins: %w", err)
		}
	}
	if v, ok := p.str("polarity"); ok {
		pol, err := sevenseg.ParsePolarity(v)
		if err != nil {
			return nil, err
		}
		s.Polarity = pol
	}
	p.strTo("i2c_bus", &s.I2CBus)
	p.strTo("adc", &s.ADC)
	if v, ok := p.int("adc_addr"); ok {
		if v < 0 || v > 0x7f {
			return nil, fmt.Errorf("adc_addr %#x out of the 7 bit I²C range", v)
		}
		s.ADCAddr = uint16(v)
	}
	p.intTo("adc_channel", &s.ADCChannel)
	p.boolTo("oled", &s.OLED)
	p.intTo("oled_width", &s.OLEDWidth)
	p.intTo("oled_height", &s.OLEDHeight)
	p.durationTo("tick", &s.Tick)
	p.intTo("samples", &s.Samples)
	if v, ok := p.float("error_margin"); ok {
		s.ErrorMargin = v
	}
	p.strTo("banner", &s.Banner)
	p.durationTo("banner_time", &s.BannerTime)
	p.strTo("http_addr", &s.HTTPAddr)
	p.strTo("mqtt_addr", &s.MQTTAddr)
	p.strTo("mqtt_topic", &s.MQTTTopic)
	p.strTo("mqtt_client", &s.MQTTClient)
	p.strTo("log_file", &s.LogFile)
	if p.err != nil {
		return nil, p.err
	}
	return s, s.Validate()
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	switch {
	case len(s.Pins) != 0 && len(s.Pins) < sevenseg.NumSegments:
		return fmt.Errorf("%w: pins needs %d entries, got %d", sevenseg.ErrConfiguration, sevenseg.NumSegments, len(s.Pins))
	case s.ADC != "ads1115" && s.ADC != "sim":
		return fmt.Errorf("unknown adc %q", s.ADC)
	case s.ADCAddr > 0x7f:
		return fmt.Errorf("adc_addr %#x out of the 7 bit I²C range", s.ADCAddr)
	case s.ADCChannel < 0 || s.ADCChannel > 3:
		return fmt.Errorf("adc_channel %d out of range 0-3", s.ADCChannel)
	case s.Tick <= 0:
		return fmt.Errorf("tick must be positive, got %s", s.Tick)
	case s.Samples <= 0:
		return fmt.Errorf("samples must be positive, got %d", s.Samples)
	case s.OLED && (s.OLEDWidth <= 0 || s.OLEDHeight <= 0):
		return fmt.Errorf("invalid oled size %dx%d", s.OLEDWidth, s.OLEDHeight)
	}
	return nil
}

// parser keeps the first error so each key reads as one line.
type parser struct {
	data []byte
	err  error
}

func missing(err error) bool {
	return errors.Is(err, jsonparser.KeyPathNotFoundError)
}

func (p *parser) str(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, err := jsonparser.GetString(p.data, key)
	if missing(err) {
		return "", false
	}
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return "", false
	}
	return v, true
}

func (p *parser) strTo(key string, dst *string) {
	if v, ok := p.str(key); ok {
		*dst = v
	}
}

func (p *parser) int(key string) (int64, bool) {
	if p.err != nil {
		return 0, false
	}
	v, err := jsonparser.GetInt(p.data, key)
	if missing(err) {
		return 0, false
	}
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return 0, false
	}
	return v, true
}

func (p *parser) intTo(key string, dst *int) {
	if v, ok := p.int(key); ok {
		*dst = int(v)
	}
}

func (p *parser) float(key string) (float64, bool) {
	if p.err != nil {
		return 0, false
	}
	v, err := jsonparser.GetFloat(p.data, key)
	if missing(err) {
		return 0, false
	}
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return 0, false
	}
	return v, true
}

func (p *parser) boolTo(key string, dst *bool) {
	if p.err != nil {
		return
	}
	v, err := jsonparser.GetBoolean(p.data, key)
	if missing(err) {
		return
	}
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = v
}

func (p *parser) durationTo(key string, dst *time.Duration) {
	v, ok := p.str(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = d
}
