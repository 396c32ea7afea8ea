// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/dignifiedquire/pgp/openpgp/errors"
)

// Reader reads packets from an io.Reader and allows packets to be 'unread'
// so that they result from the next call to Next.
type Reader struct {
	q       []Packet
	readers []io.Reader
}

// New io.Readers are pushed when a compressed or encrypted packet is
// processed and recursively parsed. This is the maximum depth of the stack
// of pushed Readers, which is limited to avoid infinite recursion.
const maxReaders = 32

// Next returns the most recently unread Packet, or reads another packet from
// the top-most io.Reader. Packets with unknown tags or whose bodies fail to
// parse are skipped with a warning so that the stream resynchronizes at the
// next packet header. Such parse failures tolerate the private and
// experimental packets found in real keyserver dumps.
func (r *Reader) Next() (p Packet, err error) {
	if len(r.q) > 0 {
		p = r.q[len(r.q)-1]
		r.q = r.q[:len(r.q)-1]
		return
	}

	for len(r.readers) > 0 {
		p, err = Read(r.readers[len(r.readers)-1])
		if err == nil {
			return
		}
		if err == io.EOF {
			r.readers = r.readers[:len(r.readers)-1]
			continue
		}
		// Parse errors for a single packet must not abort the stream.
		if _, ok := err.(errors.UnknownPacketTypeError); ok {
			logrus.WithError(err).Warn("openpgp: skipping unknown packet")
			continue
		}
		if _, ok := err.(errors.UnsupportedError); ok {
			logrus.WithError(err).Warn("openpgp: skipping unsupported packet")
			continue
		}
		if _, ok := err.(errors.StructuralError); ok {
			err = errors.InvalidPacketContentError{Inner: err}
			logrus.WithError(err).Warn("openpgp: skipping invalid packet")
			continue
		}
		return nil, err
	}

	return nil, io.EOF
}

// Push causes the Reader to start reading from a new io.Reader. When an EOF
// error is seen from the new io.Reader, it is popped and the Reader
// continues to read from the next most recent io.Reader. Push returns a
// StructuralError if pushing the reader would exceed the maximum recursion
// level, otherwise it returns nil.
func (r *Reader) Push(reader io.Reader) (err error) {
	if len(r.readers) >= maxReaders {
		return errors.StructuralError("too many layers of packets")
	}
	r.readers = append(r.readers, reader)
	return nil
}

// Unread causes the given Packet to be returned from the next call to Next.
func (r *Reader) Unread(p Packet) {
	r.q = append(r.q, p)
}

// NewReader returns a Reader for the given input.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		q:       nil,
		readers: []io.Reader{r},
	}
}
