// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ecc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dignifiedquire/pgp/openpgp/internal/encoding"
)

func TestFindByOid(t *testing.T) {
	tests := []struct {
		name string
		oid  []byte
	}{
		{"Curve25519", []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0x97, 0x55, 0x01, 0x05, 0x01}},
		{"Ed25519", []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0xDA, 0x47, 0x0F, 0x01}},
		{"NIST P-256", []byte{0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x03, 0x01, 0x07}},
		{"NIST P-384", []byte{0x2B, 0x81, 0x04, 0x00, 0x22}},
	}

	for _, test := range tests {
		info, err := FindByOid(encoding.NewOID(test.oid))
		require.NoError(t, err, test.name)
		assert.Equal(t, test.name, info.Name)
	}

	_, err := FindByOid(encoding.NewOID([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestOidsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := range Curves {
		oid := string(Curves[i].Oid.Bytes())
		assert.False(t, seen[oid], Curves[i].Name)
		seen[oid] = true
	}
}

func TestCurvePredicates(t *testing.T) {
	assert.True(t, FindByName("Curve25519").Curve25519())
	assert.False(t, FindByName("Curve25519").Ed25519())
	assert.True(t, FindByName("Ed25519").Ed25519())
	require.Nil(t, FindByName("no such curve"))
}
