// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"io"

	"github.com/dignifiedquire/pgp/openpgp/errors"
)

// Marker represents a marker packet. Marker packets must be ignored when
// received. See RFC 4880, section 5.8.
type Marker struct{}

// markerString is "PGP" as UTF-8 octets.
var markerString = []byte{0x50, 0x47, 0x50}

func (m *Marker) parse(r io.Reader) error {
	var buf [3]byte
	if _, err := readFull(r, buf[:]); err != nil {
		return err
	}
	if buf != [3]byte{markerString[0], markerString[1], markerString[2]} {
		return errors.StructuralError("invalid marker packet contents")
	}
	_, err := consumeAll(r)
	return err
}

// Serialize writes the marker packet to w.
func (m *Marker) Serialize(w io.Writer) error {
	if err := serializeHeader(w, packetTypeMarker, len(markerString)); err != nil {
		return err
	}
	_, err := w.Write(markerString)
	return err
}
