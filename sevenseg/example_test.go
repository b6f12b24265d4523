// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sevenseg_test

import (
	"log"
	"time"

	"github.com/GermanBionicSystems/segdisplay/sevenseg"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	// Segments a through g, wired to a common cathode digit.
	names := []string{"GPIO17", "GPIO27", "GPIO22", "GPIO5", "GPIO6", "GPIO13", "GPIO19"}
	opts := sevenseg.DefaultOpts
	opts.Polarity = sevenseg.CommonCathode
	dev, err := sevenseg.NewByName(names, &opts)
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Halt()

	if err := dev.Fill(true); err != nil {
		log.Fatal(err)
	}
	time.Sleep(time.Second)
	if err := dev.WriteNumeric(0xc); err != nil {
		log.Fatal(err)
	}
	time.Sleep(time.Second)
	// Cycle through 0-F.
	if err := dev.Test(sevenseg.DefaultTestDelay); err != nil {
		log.Fatal(err)
	}
}
