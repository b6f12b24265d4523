// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// sevenseg drives a single seven-segment digit wired to seven GPIO lines.
//
// Examples:
//
//	sevenseg -polarity cathode -digit 7
//	sevenseg -backend rpio -pins 17,18,27,22,23,24,25 -test -delay 100ms
//	sevenseg -backend hc595 -spi SPI0.0 -fill on
//	sevenseg -backend sim -digit 0xa -png a.png
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/GermanBionicSystems/segdisplay/internal/logging"
	"github.com/GermanBionicSystems/segdisplay/nxp74hc595"
	"github.com/GermanBionicSystems/segdisplay/rpiogpio"
	"github.com/GermanBionicSystems/segdisplay/segimage"
	"github.com/GermanBionicSystems/segdisplay/segscreen"
	"github.com/GermanBionicSystems/segdisplay/sevenseg"
	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const defaultPins = "GPIO17,GPIO18,GPIO27,GPIO22,GPIO23,GPIO24,GPIO25"

func parsePins(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDigit accepts decimal, 0x prefixed hex or a single hex letter.
func parseDigit(s string) (int, error) {
	if len(s) == 1 {
		if n, err := strconv.ParseInt(s, 16, 8); err == nil {
			return int(n), nil
		}
	}
	n, err := strconv.ParseInt(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid digit %q", s)
	}
	return int(n), nil
}

// display is the opened digit and what to release afterwards.
type display struct {
	dev    *sevenseg.Dev
	screen *segscreen.Dev
	close  func() error
}

func open(backend, spiPort string, pins []string, opts *sevenseg.Opts) (*display, error) {
	switch backend {
	case "periph":
		if _, err := host.Init(); err != nil {
			return nil, err
		}
		dev, err := sevenseg.NewByName(pins, opts)
		if err != nil {
			return nil, err
		}
		return &display{dev: dev, close: func() error { return nil }}, nil
	case "rpio":
		if err := rpiogpio.Open(); err != nil {
			return nil, err
		}
		lines := make([]gpio.PinOut, 0, len(pins))
		for _, name := range pins {
			p, err := rpiogpio.ByName(name)
			if err != nil {
				_ = rpiogpio.Close()
				return nil, fmt.Errorf("%w: %v", sevenseg.ErrConfiguration, err)
			}
			lines = append(lines, p)
		}
		dev, err := sevenseg.New(lines, opts)
		if err != nil {
			_ = rpiogpio.Close()
			return nil, err
		}
		return &display{dev: dev, close: rpiogpio.Close}, nil
	case "hc595":
		if _, err := host.Init(); err != nil {
			return nil, err
		}
		port, err := spireg.Open(spiPort)
		if err != nil {
			return nil, err
		}
		sr, err := nxp74hc595.Connect(port, &nxp74hc595.DefaultOpts)
		if err != nil {
			_ = port.Close()
			return nil, err
		}
		dev, err := sevenseg.New(sr.Segments(), opts)
		if err != nil {
			_ = port.Close()
			return nil, err
		}
		return &display{dev: dev, close: port.Close}, nil
	case "sim":
		scr := segscreen.New(&segscreen.Opts{
			Polarity: opts.Polarity,
			Plain:    !isatty.IsTerminal(os.Stdout.Fd()),
		})
		dev, err := sevenseg.New(scr.Pins(), opts)
		if err != nil {
			return nil, err
		}
		return &display{dev: dev, screen: scr, close: scr.Halt}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

func mainImpl() error {
	pinsFlag := flag.String("pins", defaultPins, "GPIO names of segments a through g")
	polarityFlag := flag.String("polarity", "anode", "common anode or cathode wiring")
	backend := flag.String("backend", "periph", "GPIO backend: periph, rpio, hc595 or sim")
	spiPort := flag.String("spi", "", "SPI port of the 74HC595 with -backend hc595")
	fill := flag.String("fill", "", "light (on) or blank (off) every segment")
	digitFlag := flag.String("digit", "", "digit to show, 0-15 or 0-F")
	test := flag.Bool("test", false, "cycle through every digit")
	delay := flag.Duration("delay", sevenseg.DefaultTestDelay, "pause between digits with -test")
	png := flag.String("png", "", "save a picture of the final state")
	logFile := flag.String("logfile", "", "log to a rotated file instead of stderr")
	verbose := flag.Bool("v", false, "verbose")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	log, logCloser := logging.New(*logFile, *verbose)
	defer logCloser.Close()

	polarity, err := sevenseg.ParsePolarity(*polarityFlag)
	if err != nil {
		return err
	}
	var digit int
	hasDigit := *digitFlag != ""
	if hasDigit {
		if digit, err = parseDigit(*digitFlag); err != nil {
			return err
		}
	}
	if *fill != "" && *fill != "on" && *fill != "off" {
		return fmt.Errorf("-fill must be on or off, got %q", *fill)
	}
	if *fill == "" && !hasDigit && !*test {
		return errors.New("specify at least one of -fill, -digit or -test")
	}

	d, err := open(*backend, *spiPort, parsePins(*pinsFlag), &sevenseg.Opts{Polarity: polarity})
	if err != nil {
		return err
	}
	defer d.close()
	log.Debug("opened display", "backend", *backend, "display", d.dev.String())

	// lit tracks what the digit shows for -png.
	var lit [sevenseg.NumSegments]bool
	if *fill != "" {
		on := *fill == "on"
		if err := d.dev.Fill(on); err != nil {
			return err
		}
		for i := range lit {
			lit[i] = on
		}
		log.Info("fill", "on", on)
	}
	if hasDigit {
		if err := d.dev.WriteNumeric(digit); err != nil {
			return err
		}
		lit = litDigit(polarity, digit)
		log.Info("digit", "value", digit)
	}
	if *test {
		start := time.Now()
		if err := d.dev.Test(*delay); err != nil {
			return err
		}
		lit = litDigit(polarity, sevenseg.MaxDigit)
		log.Info("test done", "duration", time.Since(start))
	}
	if d.screen != nil {
		if err := d.screen.Refresh(); err != nil {
			return err
		}
		lit = d.screen.Lit()
	}
	if *png != "" {
		return savePNG(log, *png, lit)
	}
	return nil
}

func litDigit(p sevenseg.Polarity, digit int) [sevenseg.NumSegments]bool {
	b, err := sevenseg.Pattern(p, digit)
	if err != nil {
		return [sevenseg.NumSegments]bool{}
	}
	return sevenseg.Lit(p, sevenseg.Levels(b))
}

func savePNG(log *slog.Logger, path string, lit [sevenseg.NumSegments]bool) error {
	img, err := segimage.Render(lit, &segimage.DefaultOpts)
	if err != nil {
		return err
	}
	if err := segimage.SavePNG(path, img); err != nil {
		return err
	}
	log.Info("saved picture", "path", path)
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "sevenseg: %s.\n", err)
		os.Exit(1)
	}
}
