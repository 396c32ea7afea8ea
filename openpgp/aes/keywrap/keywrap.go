// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package keywrap is an implementation of the RFC 3394 AES key wrapping
// algorithm. This is used in OpenPGP with elliptic curve keys.
package keywrap

import (
	"crypto/aes"
	"encoding/binary"

	"github.com/dignifiedquire/pgp/openpgp/errors"
)

var (
	// ErrWrapPlaintext is returned if the plaintext is not a multiple
	// of 64 bits.
	ErrWrapPlaintext = errors.InvalidArgumentError("keywrap: plainText must be a multiple of 64 bits")

	// ErrUnwrapCiphertext is returned if the ciphertext is not a
	// multiple of 64 bits.
	ErrUnwrapCiphertext = errors.InvalidArgumentError("keywrap: cipherText must by a multiple of 64 bits")

	// ErrUnwrapFailed is returned if unwrapping a key fails.
	ErrUnwrapFailed = errors.StructuralError("keywrap: failed to unwrap key")

	// ErrInvalidKey is returned if the wrapping key is not 128, 192 or 256
	// bits.
	ErrInvalidKey = errors.InvalidArgumentError("keywrap: invalid AES key size")
)

// The default initial value as defined in RFC 3394, section 2.2.3.1.
var defaultIV = []byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// Wrap encrypts the plaintext with the given key encryption key per RFC
// 3394, section 2.2.1.
func Wrap(key, plainText []byte) ([]byte, error) {
	if len(plainText)%8 != 0 {
		return nil, ErrWrapPlaintext
	}

	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrInvalidKey
	}

	nblocks := len(plainText) / 8

	// 1) Initialize variables.
	var block [aes.BlockSize]byte
	// - Set A = IV, an initial value.
	copy(block[:8], defaultIV)

	// - For i = 1 to n, R[i] = P[i].
	intermediate := make([]byte, len(plainText))
	copy(intermediate, plainText)

	// 2) Calculate intermediate values.
	for i := 0; i < 6; i++ {
		for j := 0; j < nblocks; j++ {
			// - B = AES(K, A | R[j]).
			copy(block[8:], intermediate[j*8:j*8+8])
			c.Encrypt(block[:], block[:])

			// - A = MSB(64, B) ^ t where t = (n*j)+i.
			t := uint64(i*nblocks + j + 1)
			val := binary.BigEndian.Uint64(block[:8]) ^ t
			binary.BigEndian.PutUint64(block[:8], val)

			// - R[j] = LSB(64, B).
			copy(intermediate[j*8:j*8+8], block[8:])
		}
	}

	// 3) Output results.
	return append(block[:8], intermediate...), nil
}

// Unwrap decrypts the ciphertext with the given key encryption key per RFC
// 3394, section 2.2.2. It returns ErrUnwrapFailed if the integrity check on
// the recovered initial value fails.
func Unwrap(key, cipherText []byte) ([]byte, error) {
	if len(cipherText)%8 != 0 {
		return nil, ErrUnwrapCiphertext
	}

	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrInvalidKey
	}

	nblocks := len(cipherText)/8 - 1

	// 1) Initialize variables.
	var block [aes.BlockSize]byte
	// - Set A = C[0].
	copy(block[:8], cipherText[:8])

	// - For i = 1 to n, R[i] = C[i].
	intermediate := make([]byte, len(cipherText)-8)
	copy(intermediate, cipherText[8:])

	// 2) Compute intermediate values.
	for i := 5; i >= 0; i-- {
		for j := nblocks - 1; j >= 0; j-- {
			// - B = AES-1(K, (A ^ t) | R[j]) where t = n*j+i.
			t := uint64(i*nblocks + j + 1)
			val := binary.BigEndian.Uint64(block[:8]) ^ t
			binary.BigEndian.PutUint64(block[:8], val)

			copy(block[8:], intermediate[j*8:j*8+8])
			c.Decrypt(block[:], block[:])

			// - A = MSB(64, B).
			// - R[j] = LSB(64, B).
			copy(intermediate[j*8:j*8+8], block[8:])
		}
	}

	// 3) Output results.
	// - If A is an appropriate initial value, then output R[i] for i = 1 to
	//   n. Otherwise output an error.
	for i := 0; i < 8; i++ {
		if block[i] != defaultIV[i] {
			return nil, ErrUnwrapFailed
		}
	}

	return intermediate, nil
}
