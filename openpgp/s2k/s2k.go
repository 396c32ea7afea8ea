// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package s2k implements the various OpenPGP string-to-key transforms as
// specified in RFC 4880 section 3.7.1.
package s2k

import (
	"crypto"
	"hash"
	"io"
	"strconv"

	"github.com/dignifiedquire/pgp/openpgp/errors"
)

// Type specifies the string-to-key transform in use.
type Type uint8

const (
	// TypeSimple hashes the passphrase alone.
	TypeSimple Type = 0
	// TypeSalted hashes an eight-octet salt followed by the passphrase.
	TypeSalted Type = 1
	// TypeIteratedSalted repeatedly hashes salt and passphrase up to an
	// encoded octet count.
	TypeIteratedSalted Type = 3
	// TypeGNUDummy marks a key whose secret material is stored elsewhere,
	// typically on a smartcard. GnuPG extension.
	TypeGNUDummy Type = 101
)

// ParamLen returns the number of parameter bytes following the hash
// identifier octet for the given type.
func (t Type) ParamLen() (int, error) {
	switch t {
	case TypeSimple:
		return 0, nil
	case TypeSalted:
		return 8, nil
	case TypeIteratedSalted:
		return 9, nil
	}
	return 0, errors.UnsupportedError("S2K type " + strconv.Itoa(int(t)))
}

// Params contains a parsed string-to-key specifier.
type Params struct {
	Type      Type
	Hash      crypto.Hash
	Salt      []byte
	CountByte uint8
}

// Simple writes to out the result of computing the Simple S2K function (RFC
// 4880, section 3.7.1.1) on the given passphrase and hash function.
func Simple(out []byte, h hash.Hash, in []byte) {
	Salted(out, h, in, nil)
}

var zero [1]byte

// Salted writes to out the result of computing the Salted S2K function (RFC
// 4880, section 3.7.1.2) on the given passphrase and hash function.
func Salted(out []byte, h hash.Hash, in []byte, salt []byte) {
	done := 0
	var digest []byte

	for i := 0; done < len(out); i++ {
		h.Reset()
		for j := 0; j < i; j++ {
			h.Write(zero[:])
		}
		h.Write(salt)
		h.Write(in)
		digest = h.Sum(digest[:0])
		n := copy(out[done:], digest)
		done += n
	}
}

// Iterated writes to out the result of computing the Iterated and Salted S2K
// function (RFC 4880, section 3.7.1.3) on the given passphrase and hash
// function.
func Iterated(out []byte, h hash.Hash, in []byte, salt []byte, count int) {
	combined := make([]byte, len(in)+len(salt))
	copy(combined, salt)
	copy(combined[len(salt):], in)

	if count < len(combined) {
		count = len(combined)
	}

	done := 0
	var digest []byte
	for i := 0; done < len(out); i++ {
		h.Reset()
		for j := 0; j < i; j++ {
			h.Write(zero[:])
		}
		written := 0
		for written+len(combined) < count {
			h.Write(combined)
			written += len(combined)
		}
		// Write the tail of the last occurrence
		h.Write(combined[:count-written])
		digest = h.Sum(digest[:0])
		n := copy(out[done:], digest)
		done += n
	}
}

// DecodeCount returns the s2k mode 3 iterative "count" given the encoded
// octet count c.
func DecodeCount(c uint8) int {
	return (16 + int(c&15)) << (uint32(c>>4) + 6)
}

// EncodeCount converts an iterative "count" in the range 65536 to 65011712,
// inclusive, to an encoded count, rounding up to the next representable
// count. The return value is the octet that is actually stored in the GPG
// file. EncodeCount panics if i is not in the above range.
func EncodeCount(i int) uint8 {
	if i < 65536 || i > 65011712 {
		panic("count arg i outside the required range")
	}

	for encoded := 96; encoded < 256; encoded++ {
		count := DecodeCount(uint8(encoded))
		if count >= i {
			return uint8(encoded)
		}
	}

	return 255
}

// Parse reads a binary specification for a string-to-key transformation from
// r and returns the parameters.
func Parse(r io.Reader) (*Params, error) {
	var buf [9]byte

	_, err := io.ReadFull(r, buf[:2])
	if err != nil {
		return nil, err
	}

	params := &Params{Type: Type(buf[0])}
	if params.Type == TypeGNUDummy {
		// "GNU" followed by a protection mode octet.
		_, err = io.ReadFull(r, buf[:4])
		if err != nil {
			return nil, err
		}
		if buf[0] != 'G' || buf[1] != 'N' || buf[2] != 'U' {
			return nil, errors.StructuralError("malformed GNU extension S2K")
		}
		params.Salt = append([]byte(nil), buf[:4]...)
		return params, nil
	}
	hash, ok := HashIdToHash(buf[1])
	if !ok {
		return nil, errors.UnsupportedError("hash for S2K function: " + strconv.Itoa(int(buf[1])))
	}
	if !hash.Available() {
		return nil, errors.UnsupportedError("hash not available: " + strconv.Itoa(int(hash)))
	}
	params.Hash = hash

	switch params.Type {
	case TypeSimple:
		return params, nil
	case TypeSalted:
		_, err = io.ReadFull(r, buf[:8])
		if err != nil {
			return nil, err
		}
		params.Salt = append([]byte(nil), buf[:8]...)
		return params, nil
	case TypeIteratedSalted:
		_, err = io.ReadFull(r, buf[:9])
		if err != nil {
			return nil, err
		}
		params.Salt = append([]byte(nil), buf[:8]...)
		params.CountByte = buf[8]
		return params, nil
	}

	return nil, errors.UnsupportedError("S2K function")
}

// Key derives a key of the given size from the passphrase according to the
// parsed parameters.
func (params *Params) Key(out, passphrase []byte) error {
	h := params.Hash.New()
	switch params.Type {
	case TypeSimple:
		Simple(out, h, passphrase)
	case TypeSalted:
		Salted(out, h, passphrase, params.Salt)
	case TypeIteratedSalted:
		Iterated(out, h, passphrase, params.Salt, DecodeCount(params.CountByte))
	default:
		return errors.UnsupportedError("S2K function")
	}
	return nil
}

// Serialize salts and stretches the given passphrase and writes the
// resulting key into key. It also serializes an S2K descriptor to w. The
// descriptor is iterated and salted with SHA-256; count sets the key
// stretching and is passed to EncodeCount.
func Serialize(w io.Writer, key []byte, rand io.Reader, passphrase []byte, count int) error {
	var buf [11]byte
	buf[0] = byte(TypeIteratedSalted)
	buf[1], _ = HashToHashId(crypto.SHA256)
	salt := buf[2:10]
	if _, err := io.ReadFull(rand, salt); err != nil {
		return err
	}
	encodedCount := EncodeCount(count)
	buf[10] = encodedCount
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}

	Iterated(key, crypto.SHA256.New(), passphrase, salt, DecodeCount(encodedCount))
	return nil
}
