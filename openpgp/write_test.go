// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package openpgp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dignifiedquire/pgp/openpgp/packet"
)

func TestDetachSignVerify(t *testing.T) {
	for name, config := range map[string]*packet.Config{
		"rsa":   rsaTestConfig,
		"eddsa": eddsaTestConfig,
	} {
		t.Run(name, func(t *testing.T) {
			signer, err := NewEntity("", "", name+"@example.com", config)
			require.NoError(t, err)

			message := []byte("the quick brown fox")
			var sig bytes.Buffer
			require.NoError(t, DetachSign(&sig, signer, bytes.NewReader(message), config))

			verified, err := CheckDetachedSignature(EntityList{signer}, bytes.NewReader(message), bytes.NewReader(sig.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, signer.PrimaryKey.KeyId, verified.PrimaryKey.KeyId)

			// A modified message fails.
			_, err = CheckDetachedSignature(EntityList{signer}, bytes.NewReader([]byte("tampered")), bytes.NewReader(sig.Bytes()))
			assert.Error(t, err)
		})
	}
}

func TestArmoredDetachSignVerify(t *testing.T) {
	signer, err := NewEntity("", "", "armored-sig@example.com", eddsaTestConfig)
	require.NoError(t, err)

	message := []byte("sign me, armored")
	var sig bytes.Buffer
	require.NoError(t, ArmoredDetachSign(&sig, signer, bytes.NewReader(message), nil))
	assert.True(t, strings.HasPrefix(sig.String(), "-----BEGIN PGP SIGNATURE-----\n"))

	verified, err := CheckArmoredDetachedSignature(EntityList{signer}, bytes.NewReader(message), bytes.NewReader(sig.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, signer.PrimaryKey.KeyId, verified.PrimaryKey.KeyId)
}

func TestDetachSignTextCanonicalizes(t *testing.T) {
	signer, err := NewEntity("", "", "text@example.com", eddsaTestConfig)
	require.NoError(t, err)

	var sig bytes.Buffer
	require.NoError(t, DetachSignText(&sig, signer, strings.NewReader("line one\nline two\n"), nil))

	// The same text with CRLF endings verifies against the same
	// signature.
	_, err = CheckDetachedSignature(EntityList{signer}, strings.NewReader("line one\r\nline two\r\n"), bytes.NewReader(sig.Bytes()))
	require.NoError(t, err)
}

func TestDetachSignUnknownSigner(t *testing.T) {
	signer, err := NewEntity("", "", "known@example.com", eddsaTestConfig)
	require.NoError(t, err)
	stranger, err := NewEntity("", "", "stranger@example.com", eddsaTestConfig)
	require.NoError(t, err)

	message := []byte("who signed this?")
	var sig bytes.Buffer
	require.NoError(t, DetachSign(&sig, signer, bytes.NewReader(message), nil))

	_, err = CheckDetachedSignature(EntityList{stranger}, bytes.NewReader(message), bytes.NewReader(sig.Bytes()))
	assert.Error(t, err)
}
