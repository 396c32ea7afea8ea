// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package armor implements OpenPGP ASCII Armor, see RFC 4880. OpenPGP Armor
// is very similar to PEM except that it has an additional CRC checksum.
package armor

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"io"
	"strconv"
	"strings"

	"github.com/dignifiedquire/pgp/openpgp/errors"
)

// A Block represents an OpenPGP armored structure.
//
// The encoded form is:
//
//	-----BEGIN Type-----
//	Headers
//
//	base64-encoded Bytes
//	'=' base64 encoded checksum
//	-----END Type-----
//
// where Headers is a possibly empty sequence of Key: Value lines.
type Block struct {
	Type    string            // The type, taken from the preamble (i.e. "PGP SIGNATURE").
	Kind    BlockType         // The parsed block type.
	Header  map[string]string // Optional headers.
	Body    io.Reader         // A Reader from which the contents can be read
	part    int
	total   int
	lReader lineReader
	oReader openpgpReader
}

// BlockType classifies the type string of an armored block.
type BlockType int

const (
	// BlockPublicKey is a PGP public key block.
	BlockPublicKey BlockType = iota
	// BlockPrivateKey is a PGP private key block.
	BlockPrivateKey
	// BlockMessage is a PGP message.
	BlockMessage
	// BlockMultipartMessage is one part of a multipart PGP message.
	BlockMultipartMessage
	// BlockSignature is a detached PGP signature.
	BlockSignature
	// BlockFile is the gnupg armored file extension.
	BlockFile
	// The following are accepted on input only; their contents are not
	// interpreted by this package.
	BlockPublicKeyPKCS1
	BlockPublicKeyPKCS8
	BlockPublicKeyOpenSSH
	BlockPrivateKeyPKCS1
	BlockPrivateKeyPKCS8
	BlockPrivateKeyOpenSSH
)

// MultipartPart reports the x and y of a "PGP MESSAGE, PART x/y" block type.
// For "PART x" forms, total is zero.
func (b *Block) MultipartPart() (part, total int) {
	return b.part, b.total
}

var ErrHeader = errors.StructuralError("invalid armor header")

const crc24Init = 0xb704ce
const crc24Poly = 0x1864cfb

// crc24 calculates the OpenPGP checksum as specified in RFC 4880,
// section 6.1.
func crc24(crc uint32, d []byte) uint32 {
	for _, b := range d {
		crc ^= uint32(b) << 16
		for i := 0; i < 8; i++ {
			crc <<= 1
			if crc&0x1000000 != 0 {
				crc ^= crc24Poly
			}
		}
	}
	return crc
}

var armorStart = []byte("-----BEGIN ")
var armorEnd = []byte("-----END ")
var armorEndOfLine = []byte("-----")

// lineReader wraps a line based reader. It watches for the end of an armor
// block and records the expected CRC value.
type lineReader struct {
	in      *bufio.Reader
	buf     []byte
	eof     bool
	crc     uint32
	crcSet  bool
	endLine []byte
}

func (l *lineReader) checkEnd(line []byte) error {
	if !bytes.Equal(bytes.TrimSpace(line), l.endLine) {
		return errors.StructuralError("armor BEGIN and END block types differ")
	}
	return nil
}

func (l *lineReader) Read(p []byte) (n int, err error) {
	if l.eof {
		return 0, io.EOF
	}

	if len(l.buf) > 0 {
		// We have something buffered from the last time.
		n = copy(p, l.buf)
		l.buf = l.buf[n:]
		return
	}

	line, isPrefix, err := l.in.ReadLine()
	if err != nil {
		return
	}
	if isPrefix {
		return 0, ErrHeader
	}

	if bytes.HasPrefix(line, armorEnd) {
		if err := l.checkEnd(line); err != nil {
			return 0, err
		}
		l.eof = true
		return 0, io.EOF
	}

	if len(line) == 5 && line[0] == '=' {
		// This is the checksum line
		var expectedBytes [3]byte
		var m int
		m, err = base64.StdEncoding.Decode(expectedBytes[0:], line[1:])
		if m != 3 || err != nil {
			return
		}
		l.crc = uint32(expectedBytes[0])<<16 |
			uint32(expectedBytes[1])<<8 |
			uint32(expectedBytes[2])
		l.crcSet = true

		line, _, err = l.in.ReadLine()
		if err != nil && err != io.EOF {
			return
		}
		if !bytes.HasPrefix(line, armorEnd) {
			return 0, ErrHeader
		}
		if err = l.checkEnd(line); err != nil {
			return 0, err
		}

		l.eof = true
		return 0, io.EOF
	}

	if len(line) > 96 {
		return 0, ErrHeader
	}

	n = copy(p, line)
	bytesToSave := len(line) - n
	if bytesToSave > 0 {
		if cap(l.buf) < bytesToSave {
			l.buf = make([]byte, 0, bytesToSave)
		}
		l.buf = l.buf[0:bytesToSave]
		copy(l.buf, line[n:])
	}

	return
}

// openpgpReader passes Read calls to the underlying base64 decoder, but keeps
// a running CRC of the resulting data and checks the CRC against the armor
// trailer when the stream ends.
type openpgpReader struct {
	lReader    *lineReader
	b64Reader  io.Reader
	currentCRC uint32
}

func (r *openpgpReader) Read(p []byte) (n int, err error) {
	n, err = r.b64Reader.Read(p)
	r.currentCRC = crc24(r.currentCRC, p[:n])

	if err == io.EOF && r.lReader.crcSet && r.lReader.crc != r.currentCRC&crc24Mask {
		return 0, errors.ErrInvalidChecksum
	}

	return
}

const crc24Mask = 0xffffff

// Decode reads a PGP armored block from the given Reader. It will ignore
// leading garbage. If it doesn't find a block, it will return nil, io.EOF.
// The given Reader is not usable after calling this function: an arbitrary
// amount of data may have been read past the end of the block.
func Decode(in io.Reader) (p *Block, err error) {
	r := bufio.NewReaderSize(in, 100)
	var line []byte
	ignoreNext := false

TryNextBlock:
	p = nil

	// Skip leading garbage
	for {
		ignoreThis := ignoreNext
		line, ignoreNext, err = r.ReadLine()
		if err != nil {
			return
		}
		if ignoreNext || ignoreThis {
			continue
		}
		line = bytes.TrimSpace(line)
		if len(line) > len(armorStart)+len(armorEndOfLine) && bytes.HasPrefix(line, armorStart) {
			break
		}
	}

	p = new(Block)
	p.Type = string(line[len(armorStart) : len(line)-len(armorEndOfLine)])
	p.Kind, p.part, p.total, err = parseBlockType(p.Type)
	if err != nil {
		return nil, err
	}
	p.Header = make(map[string]string)
	nextIsContinuation := false
	var lastKey string

	// Read headers
	for {
		isContinuation := nextIsContinuation
		line, nextIsContinuation, err = r.ReadLine()
		if err != nil {
			p = nil
			return
		}
		if isContinuation {
			p.Header[lastKey] += string(line)
			continue
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			break
		}

		i := bytes.Index(line, []byte(": "))
		if i == -1 {
			goto TryNextBlock
		}
		lastKey = string(line[:i])
		p.Header[lastKey] = string(line[i+2:])
	}

	p.lReader.in = r
	p.lReader.endLine = []byte("-----END " + p.Type + "-----")
	p.oReader.currentCRC = crc24Init
	p.oReader.lReader = &p.lReader
	p.oReader.b64Reader = base64.NewDecoder(base64.StdEncoding, &p.lReader)
	p.Body = &p.oReader

	return
}

// parseBlockType maps the armor preamble type string onto a BlockType,
// extracting the part numbers of multipart messages.
func parseBlockType(t string) (kind BlockType, part, total int, err error) {
	switch t {
	case "PGP PUBLIC KEY BLOCK":
		return BlockPublicKey, 0, 0, nil
	case "PGP PRIVATE KEY BLOCK":
		return BlockPrivateKey, 0, 0, nil
	case "PGP MESSAGE":
		return BlockMessage, 0, 0, nil
	case "PGP SIGNATURE":
		return BlockSignature, 0, 0, nil
	case "PGP ARMORED FILE":
		return BlockFile, 0, 0, nil
	case "RSA PUBLIC KEY", "DSA PUBLIC KEY", "EC PUBLIC KEY":
		return BlockPublicKeyPKCS1, 0, 0, nil
	case "PUBLIC KEY":
		return BlockPublicKeyPKCS8, 0, 0, nil
	case "OPENSSH PUBLIC KEY":
		return BlockPublicKeyOpenSSH, 0, 0, nil
	case "RSA PRIVATE KEY", "DSA PRIVATE KEY", "EC PRIVATE KEY":
		return BlockPrivateKeyPKCS1, 0, 0, nil
	case "PRIVATE KEY":
		return BlockPrivateKeyPKCS8, 0, 0, nil
	case "OPENSSH PRIVATE KEY":
		return BlockPrivateKeyOpenSSH, 0, 0, nil
	}

	if rest, ok := strings.CutPrefix(t, "PGP MESSAGE, PART "); ok {
		x, y, found := strings.Cut(rest, "/")
		part, err = strconv.Atoi(x)
		if err != nil {
			return 0, 0, 0, ErrHeader
		}
		if found {
			total, err = strconv.Atoi(y)
			if err != nil {
				return 0, 0, 0, ErrHeader
			}
		}
		return BlockMultipartMessage, part, total, nil
	}

	return 0, 0, 0, errors.UnsupportedError("unknown armor block type: " + t)
}
