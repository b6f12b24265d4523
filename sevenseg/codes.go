// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sevenseg

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/gpio"
)

// Polarity is the wiring of the display's shared terminal.
type Polarity int

const (
	// CommonAnode displays light a segment when its line is driven low.
	CommonAnode Polarity = iota
	// CommonCathode displays light a segment when its line is driven high.
	CommonCathode
)

// NumSegments is the number of segment lines, a through g.
const NumSegments = 7

// MaxDigit is the largest value WriteNumeric accepts. 10-15 render as A-F.
const MaxDigit = 15

// Segment patterns indexed by digit. Bit i is the electrical level of
// segment i (a=bit 0 ... g=bit 6). Bit 7 is unused.
var cathodeCodes = [MaxDigit + 1]byte{
	0x3f, 0x06, 0x5b, 0x4f, 0x66, 0x6d, 0x7d, 0x07,
	0x7f, 0x67, 0x77, 0x7c, 0x39, 0x5e, 0x79, 0x71,
}

// Active low. Complement of cathodeCodes.
var anodeCodes = [MaxDigit + 1]byte{
	0xc0, 0xf9, 0xa4, 0xb0, 0x99, 0x92, 0x82, 0xf8,
	0x80, 0x98, 0x88, 0x83, 0xc6, 0xa1, 0x86, 0x8e,
}

func (p Polarity) codes() *[MaxDigit + 1]byte {
	if p == CommonCathode {
		return &cathodeCodes
	}
	return &anodeCodes
}

// On returns the electrical level that lights a segment.
func (p Polarity) On() gpio.Level {
	return p == CommonCathode
}

func (p Polarity) String() string {
	switch p {
	case CommonAnode:
		return "CommonAnode"
	case CommonCathode:
		return "CommonCathode"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// ParsePolarity accepts "anode", "ca", "cathode" or "cc", case insensitive.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anode", "ca", "commonanode", "common-anode":
		return CommonAnode, nil
	case "cathode", "cc", "commoncathode", "common-cathode":
		return CommonCathode, nil
	}
	return CommonAnode, fmt.Errorf("%w: unknown polarity %q", ErrConfiguration, s)
}

// Pattern returns the table entry for digit under polarity p.
func Pattern(p Polarity, digit int) (byte, error) {
	if digit < 0 || digit > MaxDigit {
		return 0, fmt.Errorf("%w: %d", ErrRange, digit)
	}
	return p.codes()[digit], nil
}

// Lit reports which segments are visible for the given line levels.
func Lit(p Polarity, levels [NumSegments]gpio.Level) [NumSegments]bool {
	var lit [NumSegments]bool
	on := p.On()
	for i, l := range levels {
		lit[i] = l == on
	}
	return lit
}

// Levels expands a table entry into per-segment line levels.
func Levels(pattern byte) [NumSegments]gpio.Level {
	var levels [NumSegments]gpio.Level
	for i := range NumSegments {
		levels[i] = gpio.Level(pattern>>i&1 == 1)
	}
	return levels
}

// SegmentName returns "a".."g" for index 0..6.
func SegmentName(i int) string {
	if i < 0 || i >= NumSegments {
		return "?"
	}
	return string(rune('a' + i))
}
