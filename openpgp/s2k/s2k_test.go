// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package s2k

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/sha1"
	"testing"

	_ "crypto/md5"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCount(t *testing.T) {
	tests := []struct {
		encoded  uint8
		expected int
	}{
		{0, 1024},
		{96, 65536},
		{0xc0, 4194304},
		{0xff, 65011712},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, DecodeCount(test.encoded))
	}
}

func TestEncodeCount(t *testing.T) {
	for i := 96; i < 256; i++ {
		// DecodeCount is monotone over the encodable range, and
		// EncodeCount must pick an encoding that stretches at least as
		// much as requested.
		count := DecodeCount(uint8(i))
		encoded := EncodeCount(count)
		assert.GreaterOrEqual(t, DecodeCount(encoded), count)
	}

	assert.Panics(t, func() { EncodeCount(1024) })
	assert.Panics(t, func() { EncodeCount(65011713) })
}

func TestSimpleTruncatesHash(t *testing.T) {
	passphrase := []byte("testing")
	out := make([]byte, 10)
	Simple(out, sha1.New(), passphrase)

	full := sha1.Sum(passphrase)
	assert.Equal(t, full[:10], out)
}

func TestSaltedExpandsBeyondHashSize(t *testing.T) {
	salt := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	out := make([]byte, sha1.Size+8)
	Salted(out, sha1.New(), []byte("testing"), salt)

	// The first hash block covers salt || passphrase; the second is
	// preloaded with a zero byte.
	h := sha1.New()
	h.Write(salt)
	h.Write([]byte("testing"))
	first := h.Sum(nil)
	assert.Equal(t, first, out[:sha1.Size])

	h.Reset()
	h.Write([]byte{0})
	h.Write(salt)
	h.Write([]byte("testing"))
	second := h.Sum(nil)
	assert.Equal(t, second[:8], out[sha1.Size:])
}

func TestIteratedMatchesGnuPGTrickle(t *testing.T) {
	// An iteration count below the combined length hashes salt and
	// passphrase exactly once.
	salt := []byte{8, 7, 6, 5, 4, 3, 2, 1}
	passphrase := []byte("pw")
	out := make([]byte, 16)
	Iterated(out, sha1.New(), passphrase, salt, 1)

	h := sha1.New()
	h.Write(salt)
	h.Write(passphrase)
	expected := h.Sum(nil)
	assert.Equal(t, expected[:16], out)
}

func TestParseRoundTrip(t *testing.T) {
	spec := []byte{
		byte(TypeIteratedSalted),
		2, // SHA-1
		1, 2, 3, 4, 5, 6, 7, 8,
		0x60,
	}
	params, err := Parse(bytes.NewReader(spec))
	require.NoError(t, err)
	assert.Equal(t, TypeIteratedSalted, params.Type)
	assert.Equal(t, crypto.SHA1, params.Hash)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, params.Salt)
	assert.Equal(t, uint8(0x60), params.CountByte)

	key := make([]byte, 16)
	require.NoError(t, params.Key(key, []byte("passphrase")))

	expected := make([]byte, 16)
	Iterated(expected, sha1.New(), []byte("passphrase"), params.Salt, DecodeCount(0x60))
	assert.Equal(t, expected, key)
}

func TestParseGNUDummy(t *testing.T) {
	spec := []byte{101, 0, 'G', 'N', 'U', 1}
	params, err := Parse(bytes.NewReader(spec))
	require.NoError(t, err)
	assert.Equal(t, TypeGNUDummy, params.Type)
}

func TestSerialize(t *testing.T) {
	var buf bytes.Buffer
	key := make([]byte, 16)
	err := Serialize(&buf, key, rand.Reader, []byte("testing"), 65536)
	require.NoError(t, err)

	params, err := Parse(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, TypeIteratedSalted, params.Type)
	assert.Equal(t, crypto.SHA256, params.Hash)

	derived := make([]byte, 16)
	require.NoError(t, params.Key(derived, []byte("testing")))
	assert.Equal(t, key, derived)

	wrong := make([]byte, 16)
	require.NoError(t, params.Key(wrong, []byte("other")))
	assert.NotEqual(t, key, wrong)
}

func TestHashIdMapping(t *testing.T) {
	for _, m := range hashToHashIdMapping {
		h, ok := HashIdToHash(m.id)
		require.True(t, ok)
		id, ok := HashToHashId(h)
		require.True(t, ok)
		assert.Equal(t, m.id, id)
	}

	_, ok := HashIdToHash(0x42)
	assert.False(t, ok)
}
