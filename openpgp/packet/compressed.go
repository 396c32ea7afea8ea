// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"compress/flate"
	"compress/zlib"
	"io"
	"strconv"

	"github.com/dignifiedquire/pgp/openpgp/errors"
)

// Compressed represents a compressed OpenPGP packet. The decompressed
// contents will contain more OpenPGP packets. See RFC 4880, section 5.6.
type Compressed struct {
	Algo CompressionAlgo
	// Body holds the raw, still compressed body. Use Decompress to obtain
	// the decompressed packet stream.
	Body io.Reader
}

func (c *Compressed) parse(r io.Reader) error {
	var buf [1]byte
	_, err := readFull(r, buf[:])
	if err != nil {
		return err
	}

	c.Algo = CompressionAlgo(buf[0])
	switch c.Algo {
	case CompressionNone, CompressionZIP, CompressionZLIB, CompressionBZip2:
		c.Body = r
	default:
		return errors.UnsupportedError("unknown compression algorithm: " + strconv.Itoa(int(buf[0])))
	}

	return nil
}

// Decompress returns a reader yielding the decompressed body. BZip2 bodies
// parse and round-trip but cannot be decompressed.
func (c *Compressed) Decompress() (io.Reader, error) {
	switch c.Algo {
	case CompressionNone:
		return c.Body, nil
	case CompressionZIP:
		return flate.NewReader(c.Body), nil
	case CompressionZLIB:
		return zlib.NewReader(c.Body)
	case CompressionBZip2:
		return nil, errors.UnsupportedError("BZip2 compression")
	}
	return nil, errors.UnsupportedError("unknown compression algorithm: " + strconv.Itoa(int(c.Algo)))
}

// SerializeRawCompressed writes a compressed packet containing the given
// raw, already compressed body.
func SerializeRawCompressed(w io.Writer, algo CompressionAlgo, body []byte) error {
	if err := serializeHeader(w, packetTypeCompressed, 1+len(body)); err != nil {
		return err
	}
	if _, err := w.Write([]byte{uint8(algo)}); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// compressedWriteCloser represents the serialized compression packet data.
// The external world should only interact with it through Write and Close
// calls.
type compressedWriteCloser struct {
	sh io.Closer      // Stream Header
	c  io.WriteCloser // Compressor
}

func (cwc compressedWriteCloser) Write(p []byte) (int, error) {
	return cwc.c.Write(p)
}

func (cwc compressedWriteCloser) Close() (err error) {
	err = cwc.c.Close()
	if err != nil {
		return err
	}
	return cwc.sh.Close()
}

// SerializeCompressed serializes a compressed data packet to w and returns a
// WriteCloser to which the literal data packets themselves can be written
// and which MUST be closed on completion.
func SerializeCompressed(w io.WriteCloser, algo CompressionAlgo, level int) (literaldata io.WriteCloser, err error) {
	compressed, err := serializeStreamHeader(w, packetTypeCompressed)
	if err != nil {
		return
	}

	_, err = compressed.Write([]byte{uint8(algo)})
	if err != nil {
		return
	}

	var compressor io.WriteCloser
	switch algo {
	case CompressionZIP:
		compressor, err = flate.NewWriter(compressed, level)
	case CompressionZLIB:
		compressor, err = zlib.NewWriterLevel(compressed, level)
	default:
		err = errors.UnsupportedError("unsupported compression algorithm: " + strconv.Itoa(int(algo)))
	}
	if err != nil {
		return
	}

	literaldata = compressedWriteCloser{compressed, compressor}
	return
}
