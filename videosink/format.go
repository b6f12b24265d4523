// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package videosink

import (
	"fmt"
	"strings"
)

// ImageFormat of the frames sent to clients.
type ImageFormat int

const (
	PNG ImageFormat = iota
	JPEG
)

func (f ImageFormat) String() string {
	switch f {
	case PNG:
		return "PNG"
	case JPEG:
		return "JPEG"
	default:
		return fmt.Sprintf("ImageFormat(%d)", int(f))
	}
}

func (f ImageFormat) mimeType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// ParseImageFormat accepts "png", "jpg" or "jpeg".
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(s) {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	}
	return PNG, fmt.Errorf("unrecognized image format %q", s)
}
