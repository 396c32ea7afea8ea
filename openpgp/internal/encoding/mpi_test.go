// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encoding

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMPI(t *testing.T) {
	tests := []struct {
		value     []byte
		bitLength uint16
		encoded   []byte
	}{
		{[]byte{0x01}, 1, []byte{0x00, 0x01, 0x01}},
		{[]byte{0x01, 0xff}, 9, []byte{0x00, 0x09, 0x01, 0xff}},
		{[]byte{0x80}, 8, []byte{0x00, 0x08, 0x80}},
		{[]byte{}, 0, []byte{0x00, 0x00}},
	}

	for _, test := range tests {
		m := NewMPI(test.value)
		assert.Equal(t, test.bitLength, m.BitLength())
		assert.Equal(t, test.encoded, m.EncodedBytes())
		assert.Equal(t, uint16(len(test.encoded)), m.EncodedLength())

		parsed := new(MPI)
		_, err := parsed.ReadFrom(bytes.NewReader(test.encoded))
		require.NoError(t, err)
		assert.Equal(t, test.encoded, parsed.EncodedBytes())
	}
}

func TestMPITrimsLeadingZeros(t *testing.T) {
	m := NewMPI([]byte{0x00, 0x00, 0x01})
	assert.Equal(t, []byte{0x01}, m.Bytes())
	assert.Equal(t, uint16(1), m.BitLength())
}

func TestMPISetBig(t *testing.T) {
	n := big.NewInt(0x1ffff)
	m := new(MPI).SetBig(n)
	assert.Equal(t, uint16(17), m.BitLength())
	assert.Equal(t, n.Bytes(), m.Bytes())
}

func TestMPIReadFromTruncated(t *testing.T) {
	_, err := new(MPI).ReadFrom(bytes.NewReader([]byte{0x00, 0x20, 0x01}))
	assert.Error(t, err)
}

func TestOID(t *testing.T) {
	oid := NewOID([]byte{0x2b, 0x06, 0x01})
	assert.Equal(t, []byte{0x03, 0x2b, 0x06, 0x01}, oid.EncodedBytes())
	assert.Equal(t, uint16(24), oid.BitLength())

	parsed := new(OID)
	_, err := parsed.ReadFrom(bytes.NewReader(oid.EncodedBytes()))
	require.NoError(t, err)
	assert.Equal(t, oid.Bytes(), parsed.Bytes())
}

func TestOIDReservedLength(t *testing.T) {
	_, err := new(OID).ReadFrom(bytes.NewReader([]byte{0x00}))
	assert.Error(t, err)
	_, err = new(OID).ReadFrom(bytes.NewReader([]byte{0xff, 0x01}))
	assert.Error(t, err)
}
