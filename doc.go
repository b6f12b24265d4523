// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package segdisplay is a container for a seven-segment digit driver and
// the voltmeter built on it.
//
// The driver lives in sevenseg. segscreen and segimage render a digit in a
// terminal or a picture, rpiogpio provides go-rpio backed lines, and
// voltmeter, banner, httpapi and mqttpub make up the voltmeter
// application in cmd/voltmeter.
package segdisplay
