// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// voltmeter reads a voltage through an ADC and shows it on an SSD1306 OLED
// and a seven-segment digit.
//
// Every tick it prints the reading, shows it on the OLED, lights the whole
// volts on the digit and, when configured, publishes it over MQTT. The
// digit and the last reading are also served over HTTP, along with live
// pictures of the digit and, when no OLED is fitted, of a virtual one.
//
// Usage:
//
//	voltmeter -config /etc/voltmeter.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/segdisplay/banner"
	"github.com/GermanBionicSystems/segdisplay/httpapi"
	"github.com/GermanBionicSystems/segdisplay/internal/logging"
	"github.com/GermanBionicSystems/segdisplay/internal/settings"
	"github.com/GermanBionicSystems/segdisplay/mqttpub"
	"github.com/GermanBionicSystems/segdisplay/segimage"
	"github.com/GermanBionicSystems/segdisplay/sevenseg"
	"github.com/GermanBionicSystems/segdisplay/videosink"
	"github.com/GermanBionicSystems/segdisplay/voltmeter"
	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// ADS1115 input range and data rate used for the divider output.
const (
	adcRange = 4096 * physic.MilliVolt
	adcRate  = 128 * physic.Hertz
)

func openADC(s *settings.Settings, bus i2c.Bus) (analog.PinADC, error) {
	switch s.ADC {
	case "ads1115":
		if bus == nil {
			return nil, errors.New("ads1115 needs an I²C bus")
		}
		opts := ads1x15.DefaultOpts
		opts.I2cAddress = s.ADCAddr
		adc, err := ads1x15.NewADS1115(bus, &opts)
		if err != nil {
			return nil, err
		}
		channels := []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}
		return adc.PinForChannel(channels[s.ADCChannel], adcRange, adcRate, ads1x15.SaveEnergy)
	case "sim":
		return newSimADC(clockwork.NewRealClock()), nil
	}
	return nil, fmt.Errorf("unknown adc %q", s.ADC)
}

func openOLED(s *settings.Settings, bus i2c.Bus) (*banner.Dev, error) {
	opts := ssd1306.DefaultOpts
	opts.W = s.OLEDWidth
	opts.H = s.OLEDHeight
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return nil, err
	}
	return banner.New(dev)
}

func serveHTTP(ctx context.Context, log *slog.Logger, addr string, h http.Handler) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shut, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shut)
	}()
	go func() {
		log.Info("http listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", "err", err)
		}
	}()
}

func mainImpl() error {
	config := flag.String("config", "", "JSON settings file")
	verbose := flag.Bool("v", false, "verbose")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	s, err := settings.Load(*config)
	if err != nil {
		return err
	}
	log, logCloser := logging.New(s.LogFile, *verbose)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := host.Init(); err != nil {
		return err
	}

	var bus i2c.BusCloser
	if s.ADC == "ads1115" || s.OLED {
		if bus, err = i2creg.Open(s.I2CBus); err != nil {
			return err
		}
		defer bus.Close()
	}

	pin, err := openADC(s, bus)
	if err != nil {
		return err
	}
	mopts := voltmeter.DefaultOpts
	mopts.Samples = s.Samples
	mopts.ErrorMargin = physic.ElectricPotential(s.ErrorMargin * float64(physic.Volt))
	if s.ADC == "ads1115" {
		// The ADS1115 reports volts directly.
		mopts.FullScale = 0
	}
	meter, err := voltmeter.New(pin, &mopts)
	if err != nil {
		return err
	}
	defer meter.Halt()

	a := &app{log: log, meter: meter, out: os.Stdout}

	// Without the OLED its text goes to a virtual one served over HTTP.
	var virtualOLED *videosink.Display
	switch {
	case s.OLED:
		if a.oled, err = openOLED(s, bus); err != nil {
			return err
		}
		defer a.oled.Halt()
	case s.HTTPAddr != "":
		if virtualOLED, err = videosink.New(&videosink.Opts{Width: s.OLEDWidth, Height: s.OLEDHeight}); err != nil {
			return err
		}
		if a.oled, err = banner.New(virtualOLED); err != nil {
			return err
		}
		defer a.oled.Halt()
	}

	var server *httpapi.Server
	if len(s.Pins) != 0 {
		dev, err := sevenseg.NewByName(s.Pins, &sevenseg.Opts{Polarity: s.Polarity})
		if err != nil {
			return err
		}
		defer dev.Halt()
		server = httpapi.New(dev, meter, log)
		a.meter, a.digit, a.record = server, server, server
	}

	if s.MQTTAddr != "" {
		popts := mqttpub.DefaultOpts
		popts.ClientID = s.MQTTClient
		popts.Topic = s.MQTTTopic
		popts.Logger = log
		pub, err := mqttpub.Dial(ctx, s.MQTTAddr, &popts)
		if err != nil {
			return err
		}
		defer pub.Close()
		a.pub = pub
	}

	if s.HTTPAddr != "" {
		if server == nil {
			return errors.New("http_addr needs a seven-segment digit, set pins")
		}
		look := segimage.DefaultOpts
		sink, err := videosink.New(&videosink.Opts{Width: look.W, Height: look.H})
		if err != nil {
			return err
		}
		defer sink.Halt()
		server.Mirror(sink, &look)
		r := server.Router()
		if virtualOLED != nil {
			r.Handle("/oled", virtualOLED).Methods(http.MethodGet)
			defer virtualOLED.Halt()
		}
		serveHTTP(ctx, log, s.HTTPAddr, r)
	}

	clock := clockwork.NewRealClock()
	if err := a.splash(ctx, clock, s.Banner, s.BannerTime); err != nil {
		return err
	}
	return a.run(ctx, clock, s.Tick)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "voltmeter: %s.\n", err)
		os.Exit(1)
	}
}
