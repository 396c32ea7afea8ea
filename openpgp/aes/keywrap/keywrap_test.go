// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package keywrap

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test vectors from RFC 3394, section 4.
var wrapTests = []struct {
	name    string
	kek     string
	data    string
	wrapped string
}{
	{
		"128-bit key, 128-bit kek",
		"000102030405060708090A0B0C0D0E0F",
		"00112233445566778899AABBCCDDEEFF",
		"1FA68B0A8112B447AEF34BD8FB5A7B829D3E862371D2CFE5",
	},
	{
		"128-bit key, 192-bit kek",
		"000102030405060708090A0B0C0D0E0F1011121314151617",
		"00112233445566778899AABBCCDDEEFF",
		"96778B25AE6CA435F92B5B97C050AED2468AB8A17AD84E5D",
	},
	{
		"128-bit key, 256-bit kek",
		"000102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F",
		"00112233445566778899AABBCCDDEEFF",
		"64E8C3F9CE0F5BA263E9777905818A2A93C8191E7D6E8AE7",
	},
	{
		"192-bit key, 192-bit kek",
		"000102030405060708090A0B0C0D0E0F1011121314151617",
		"00112233445566778899AABBCCDDEEFF0001020304050607",
		"031D33264E15D33268F24EC260743EDCE1C6C7DDEE725A936BA814915C6762D2",
	},
	{
		"192-bit key, 256-bit kek",
		"000102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F",
		"00112233445566778899AABBCCDDEEFF0001020304050607",
		"A8F9BC1612C68B3FF6E6F4FBE30E71E4769C8B80A32CB8958CD5D17D6B254DA1",
	},
	{
		"256-bit key, 256-bit kek",
		"000102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F",
		"00112233445566778899AABBCCDDEEFF000102030405060708090A0B0C0D0E0F",
		"28C9F404C4B810F4CBCCB35CFB87F8263F5786E2D80ED326CBC7F0E71A99F43BFB988B9B7A02DD21",
	},
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestWrap(t *testing.T) {
	for _, test := range wrapTests {
		kek := mustHex(t, test.kek)
		data := mustHex(t, test.data)

		wrapped, err := Wrap(kek, data)
		require.NoError(t, err, test.name)
		assert.Equal(t, mustHex(t, test.wrapped), wrapped, test.name)
	}
}

func TestUnwrap(t *testing.T) {
	for _, test := range wrapTests {
		kek := mustHex(t, test.kek)
		wrapped := mustHex(t, test.wrapped)

		data, err := Unwrap(kek, wrapped)
		require.NoError(t, err, test.name)
		assert.Equal(t, mustHex(t, test.data), data, test.name)
	}
}

func TestUnwrapCorrupted(t *testing.T) {
	kek := mustHex(t, wrapTests[0].kek)
	wrapped := mustHex(t, wrapTests[0].wrapped)
	wrapped[0] ^= 0x40

	_, err := Unwrap(kek, wrapped)
	assert.Equal(t, ErrUnwrapFailed, err)
}

func TestWrapOddLength(t *testing.T) {
	kek := mustHex(t, wrapTests[0].kek)

	_, err := Wrap(kek, []byte{1, 2, 3})
	assert.Equal(t, ErrWrapPlaintext, err)

	_, err = Unwrap(kek, []byte{1, 2, 3})
	assert.Equal(t, ErrUnwrapCiphertext, err)
}

func TestWrapBadKeySize(t *testing.T) {
	_, err := Wrap([]byte{0x01}, mustHex(t, wrapTests[0].data))
	assert.Equal(t, ErrInvalidKey, err)
}
