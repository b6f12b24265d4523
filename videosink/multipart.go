// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package videosink

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/textproto"
	"strconv"
)

// frameWriter writes an endless multipart body. mime/multipart can't flush
// the closing boundary of a part before the next one is known.
type frameWriter struct {
	w        io.Writer
	boundary string
	started  bool
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{w: w, boundary: randomBoundary()}
}

// randomBoundary returns 68 hex digits, within the 70 characters RFC 2046
// allows.
func randomBoundary() string {
	var b [34]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// write sends one part followed by its closing boundary. header gets the
// Content-Length of body.
func (f *frameWriter) write(header textproto.MIMEHeader, body []byte) error {
	header.Set("Content-Length", strconv.Itoa(len(body)))
	bw := bufio.NewWriter(f.w)
	if !f.started {
		bw.WriteString("--" + f.boundary + "\r\n")
		f.started = true
	}
	for k, vs := range header {
		for _, v := range vs {
			bw.WriteString(k + ": " + v + "\r\n")
		}
	}
	bw.WriteString("\r\n")
	bw.Write(body)
	bw.WriteString("\r\n--" + f.boundary + "\r\n")
	return bw.Flush()
}
