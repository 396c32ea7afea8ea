// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"crypto/sha1"
	"io"

	"github.com/dignifiedquire/pgp/openpgp/errors"
)

// ModificationDetectionCode holds the SHA-1 digest that trails the plaintext
// of an integrity protected data packet. See RFC 4880, section 5.14. It is
// normally consumed inline by the integrity checks of the encrypted data
// packet and only surfaces on its own when a stream is parsed out of
// context.
type ModificationDetectionCode struct {
	Digest []byte
}

func (mdc *ModificationDetectionCode) parse(r io.Reader) error {
	mdc.Digest = make([]byte, sha1.Size)
	if _, err := readFull(r, mdc.Digest); err != nil {
		return err
	}
	if n, _ := consumeAll(r); n != 0 {
		return errors.StructuralError("trailing bytes in MDC packet")
	}
	return nil
}

// Serialize writes the MDC packet to w.
func (mdc *ModificationDetectionCode) Serialize(w io.Writer) error {
	if len(mdc.Digest) != sha1.Size {
		return errors.InvalidArgumentError("MDC digest must be 20 bytes")
	}
	if err := serializeHeader(w, packetTypeModificationDetectionCode, sha1.Size); err != nil {
		return err
	}
	_, err := w.Write(mdc.Digest)
	return err
}
