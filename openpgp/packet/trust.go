// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"io"
)

// Trust represents a trust packet. Trust packets hold implementation
// specific data and are not emitted when a key is exported. See RFC 4880,
// section 5.10.
type Trust struct {
	Data []byte
}

func (t *Trust) parse(r io.Reader) (err error) {
	t.Data, err = io.ReadAll(r)
	return
}

// Serialize writes the trust packet, including its data verbatim, to w.
func (t *Trust) Serialize(w io.Writer) error {
	if err := serializeHeader(w, packetTypeTrust, len(t.Data)); err != nil {
		return err
	}
	_, err := w.Write(t.Data)
	return err
}
