// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors contains common error types for the OpenPGP packages.
package errors

import (
	"strconv"
)

// A StructuralError is returned when OpenPGP data is found to be syntactically
// invalid.
type StructuralError string

func (s StructuralError) Error() string {
	return "openpgp: invalid data: " + string(s)
}

// UnsupportedError indicates that, although the OpenPGP data is valid, it
// makes use of currently unimplemented features.
type UnsupportedError string

func (s UnsupportedError) Error() string {
	return "openpgp: unsupported feature: " + string(s)
}

// InvalidArgumentError indicates that the caller is in error and passed an
// incorrect value.
type InvalidArgumentError string

func (i InvalidArgumentError) Error() string {
	return "openpgp: invalid argument: " + string(i)
}

// SignatureError indicates that a syntactically valid signature failed to
// validate.
type SignatureError string

func (b SignatureError) Error() string {
	return "openpgp: invalid signature: " + string(b)
}

// InvalidPacketContentError wraps the error raised by a per-packet body
// parser. The stream level parser demotes it to a warning and resynchronizes
// at the next packet header.
type InvalidPacketContentError struct {
	Inner error
}

func (e InvalidPacketContentError) Error() string {
	return "openpgp: invalid packet content: " + e.Inner.Error()
}

func (e InvalidPacketContentError) Unwrap() error {
	return e.Inner
}

// IncompleteError is returned by streaming parsers that were starved: the
// source returned no more bytes while at least that many more were required.
type IncompleteError int

func (i IncompleteError) Error() string {
	return "openpgp: premature end of stream, need " + strconv.Itoa(int(i)) + " more bytes"
}

var ErrKeyIncorrect error = keyIncorrectError(0)

type keyIncorrectError int

func (ki keyIncorrectError) Error() string {
	return "openpgp: incorrect key"
}

// ErrUnknownIssuer indicates that we were unable to determine which key
// made a signature.
var ErrUnknownIssuer error = unknownIssuerError(0)

type unknownIssuerError int

func (unknownIssuerError) Error() string {
	return "openpgp: signature made by unknown entity"
}

// ErrMissingKey is returned from the decrypt path when no encrypted session
// key packet matches the primary key or any subkey.
var ErrMissingKey error = missingKeyError(0)

type missingKeyError int

func (missingKeyError) Error() string {
	return "openpgp: no encrypted session key matches the given key"
}

// ErrInvalidChecksum is returned on an armor CRC-24 mismatch and on
// secret key material checksum failures.
var ErrInvalidChecksum error = invalidChecksumError(0)

type invalidChecksumError int

func (invalidChecksumError) Error() string {
	return "openpgp: invalid checksum"
}

// ErrTooManyPackets is returned by the single-composition helpers when the
// stream contained more than one key or message.
var ErrTooManyPackets error = tooManyPacketsError(0)

type tooManyPacketsError int

func (tooManyPacketsError) Error() string {
	return "openpgp: stream contained more than one composition"
}

// ErrNoMatchingPacket is returned by the single-composition helpers when the
// stream contained none.
var ErrNoMatchingPacket error = noMatchingPacketError(0)

type noMatchingPacketError int

func (noMatchingPacketError) Error() string {
	return "openpgp: stream contained no matching composition"
}

// UnknownPacketTypeError indicates that an unknown packet type was found.
// These packets are skipped at the stream level.
type UnknownPacketTypeError byte

func (upte UnknownPacketTypeError) Error() string {
	return "openpgp: unknown packet type: " + strconv.Itoa(int(upte))
}
