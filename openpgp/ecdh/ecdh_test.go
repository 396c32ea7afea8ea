// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ecdh

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dignifiedquire/pgp/openpgp/internal/ecc"
)

func generateTestKey(t *testing.T) *PrivateKey {
	t.Helper()
	kdf := KDF{Hash: 8 /* SHA-256 */, Cipher: 7 /* AES-128 */}
	priv, err := GenerateKey(rand.Reader, ecc.FindByName("Curve25519"), kdf)
	require.NoError(t, err)
	return priv
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	priv := generateTestKey(t)

	oid := priv.Curve.Oid.Bytes()
	fingerprint := make([]byte, 20)
	_, err := rand.Read(fingerprint)
	require.NoError(t, err)

	// A session key block: cipher id, 16 byte key, 2 byte checksum.
	message := make([]byte, 19)
	_, err = rand.Read(message)
	require.NoError(t, err)

	vsG, c, err := Encrypt(rand.Reader, &priv.PublicKey, message, oid, fingerprint)
	require.NoError(t, err)
	assert.Len(t, vsG, 33)
	assert.Equal(t, byte(0x40), vsG[0])

	out, err := Decrypt(priv, vsG, c, oid, fingerprint)
	require.NoError(t, err)
	assert.Equal(t, message, out)
}

func TestDecryptWrongFingerprint(t *testing.T) {
	priv := generateTestKey(t)

	oid := priv.Curve.Oid.Bytes()
	fingerprint := make([]byte, 20)
	message := make([]byte, 19)

	vsG, c, err := Encrypt(rand.Reader, &priv.PublicKey, message, oid, fingerprint)
	require.NoError(t, err)

	// The fingerprint is folded into the KDF, so a different recipient
	// fingerprint must derive a different KEK and fail the unwrap.
	fingerprint[0] ^= 0xff
	_, err = Decrypt(priv, vsG, c, oid, fingerprint)
	assert.Error(t, err)
}

func TestDecryptWrongKey(t *testing.T) {
	priv := generateTestKey(t)
	other := generateTestKey(t)

	oid := priv.Curve.Oid.Bytes()
	fingerprint := make([]byte, 20)
	message := make([]byte, 19)

	vsG, c, err := Encrypt(rand.Reader, &priv.PublicKey, message, oid, fingerprint)
	require.NoError(t, err)

	_, err = Decrypt(other, vsG, c, oid, fingerprint)
	assert.Error(t, err)
}

func TestKDFKeySizes(t *testing.T) {
	tests := []struct {
		cipher  uint8
		kekSize int
	}{
		{7, 16},
		{8, 24},
		{9, 32},
	}
	pub := &PublicKey{
		Curve: ecc.FindByName("Curve25519"),
		KDF:   KDF{Hash: 10 /* SHA-512 */},
	}
	z := make([]byte, 32)
	for _, test := range tests {
		pub.KDF.Cipher = test.cipher
		kek, err := buildKey(pub, z, pub.Curve.Oid.Bytes(), make([]byte, 20))
		require.NoError(t, err)
		assert.Len(t, kek, test.kekSize)
	}
}
