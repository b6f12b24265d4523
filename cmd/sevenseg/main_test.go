// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/GermanBionicSystems/segdisplay/internal/logging"
	"github.com/GermanBionicSystems/segdisplay/sevenseg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDigit(t *testing.T) {
	data := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"9", 9},
		{"a", 10},
		{"F", 15},
		{"12", 12},
		{"0xb", 11},
		{"16", 16},
	}
	for _, line := range data {
		got, err := parseDigit(line.in)
		require.NoError(t, err, line.in)
		assert.Equal(t, line.want, got, line.in)
	}
	_, err := parseDigit("g")
	assert.Error(t, err)
}

func TestParsePins(t *testing.T) {
	assert.Equal(t, []string{"GPIO17", "GPIO18"}, parsePins(" GPIO17, ,GPIO18,"))
	assert.Len(t, parsePins(defaultPins), sevenseg.NumSegments)
}

func TestLitDigit(t *testing.T) {
	one := [sevenseg.NumSegments]bool{false, true, true}
	assert.Equal(t, one, litDigit(sevenseg.CommonAnode, 1))
	assert.Equal(t, one, litDigit(sevenseg.CommonCathode, 1))
	assert.Equal(t, [sevenseg.NumSegments]bool{}, litDigit(sevenseg.CommonAnode, 16))
}

func TestOpenSim(t *testing.T) {
	d, err := open("sim", "", nil, &sevenseg.Opts{Polarity: sevenseg.CommonCathode})
	require.NoError(t, err)
	require.NoError(t, d.dev.WriteNumeric(8))
	for _, on := range d.screen.Lit() {
		assert.True(t, on)
	}

	_, err = open("bogus", "", nil, &sevenseg.DefaultOpts)
	assert.Error(t, err)
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digit.png")
	log := logging.NewWriter(io.Discard, slog.LevelInfo)
	assert.NoError(t, savePNG(log, path, litDigit(sevenseg.CommonAnode, 4)))
	assert.FileExists(t, path)
}

func runMain(t *testing.T, args ...string) error {
	oldArgs, oldFlags := os.Args, flag.CommandLine
	t.Cleanup(func() { os.Args, flag.CommandLine = oldArgs, oldFlags })
	os.Args = append([]string{"sevenseg"}, args...)
	flag.CommandLine = flag.NewFlagSet("sevenseg", flag.ContinueOnError)
	flag.CommandLine.SetOutput(io.Discard)
	return mainImpl()
}

func TestMainDigit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digit.png")
	require.NoError(t, runMain(t, "-backend", "sim", "-digit", "7", "-png", path))
	assert.FileExists(t, path)
}

func TestMainDigitRange(t *testing.T) {
	for _, d := range []string{"-3", "16", "0x10"} {
		err := runMain(t, "-backend", "sim", "-fill", "off", "-digit", d)
		assert.ErrorIs(t, err, sevenseg.ErrRange, d)
	}
	err := runMain(t, "-backend", "sim", "-digit", "-1")
	assert.ErrorIs(t, err, sevenseg.ErrRange)
}
