// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dignifiedquire/pgp/openpgp/ecdh"
	"github.com/dignifiedquire/pgp/openpgp/errors"
	"github.com/dignifiedquire/pgp/openpgp/internal/ecc"
)

var testCreationTime = time.Unix(0x5f000000, 0)

func generateRSAPrivateKey(t *testing.T) *PrivateKey {
	t.Helper()
	rsaPriv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	return NewRSAPrivateKey(testCreationTime, rsaPriv)
}

func generateEdDSAPrivateKey(t *testing.T) *PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return NewEdDSAPrivateKey(testCreationTime, priv)
}

func generateECDHPrivateKey(t *testing.T) *PrivateKey {
	t.Helper()
	priv, err := ecdh.GenerateKey(rand.Reader, ecc.FindByName("Curve25519"), ecdh.KDF{Hash: 8, Cipher: 7})
	require.NoError(t, err)
	return NewECDHPrivateKey(testCreationTime, priv)
}

func reparsePrivateKey(t *testing.T, pk *PrivateKey) *PrivateKey {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, pk.Serialize(&buf))
	p, err := Read(&buf)
	require.NoError(t, err)
	out, ok := p.(*PrivateKey)
	require.True(t, ok)
	return out
}

func TestPrivateKeySerializeParse(t *testing.T) {
	for name, gen := range map[string]func(*testing.T) *PrivateKey{
		"rsa":   generateRSAPrivateKey,
		"eddsa": generateEdDSAPrivateKey,
		"ecdh":  generateECDHPrivateKey,
	} {
		t.Run(name, func(t *testing.T) {
			pk := generateAndReparse(t, gen)
			assert.False(t, pk.Encrypted)
		})
	}
}

func generateAndReparse(t *testing.T, gen func(*testing.T) *PrivateKey) *PrivateKey {
	pk := gen(t)
	parsed := reparsePrivateKey(t, pk)
	assert.Equal(t, pk.Fingerprint, parsed.Fingerprint)
	assert.Equal(t, pk.KeyId, parsed.KeyId)
	assert.Equal(t, pk.PubKeyAlgo, parsed.PubKeyAlgo)
	assert.NotNil(t, parsed.PrivateKey)
	return parsed
}

func TestPrivateKeyEncryptDecrypt(t *testing.T) {
	pk := generateRSAPrivateKey(t)
	passphrase := []byte("testing")

	require.NoError(t, pk.Encrypt(passphrase, nil))
	assert.True(t, pk.Encrypted)

	parsed := reparsePrivateKey(t, pk)
	assert.True(t, parsed.Encrypted)
	assert.Nil(t, parsed.PrivateKey)

	// A wrong passphrase must fail the SHA-1 check.
	err := parsed.Decrypt([]byte("wrong"))
	assert.Equal(t, errors.ErrInvalidChecksum, err)

	require.NoError(t, parsed.Decrypt(passphrase))
	assert.False(t, parsed.Encrypted)
	require.IsType(t, &rsa.PrivateKey{}, parsed.PrivateKey)

	orig := pk.PrivateKey.(*rsa.PrivateKey)
	decrypted := parsed.PrivateKey.(*rsa.PrivateKey)
	assert.Zero(t, orig.D.Cmp(decrypted.D))
}

func TestPrivateKeyEncryptedRoundTripsCiphertext(t *testing.T) {
	pk := generateEdDSAPrivateKey(t)
	require.NoError(t, pk.Encrypt([]byte("passphrase"), nil))

	var buf bytes.Buffer
	require.NoError(t, pk.Serialize(&buf))
	serialized := buf.Bytes()

	p, err := Read(bytes.NewReader(serialized))
	require.NoError(t, err)
	parsed := p.(*PrivateKey)

	var buf2 bytes.Buffer
	require.NoError(t, parsed.Serialize(&buf2))
	assert.Equal(t, serialized, buf2.Bytes())
}

func TestPrivateKeyUnlock(t *testing.T) {
	pk := generateEdDSAPrivateKey(t)
	passphrase := []byte("secret")
	require.NoError(t, pk.Encrypt(passphrase, nil))
	parsed := reparsePrivateKey(t, pk)

	var sawKey bool
	err := parsed.Unlock(passphrase, func(unlocked *PrivateKey) error {
		assert.False(t, unlocked.Encrypted)
		assert.NotNil(t, unlocked.PrivateKey)
		sawKey = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sawKey)

	// The outer key remains locked after the callback returns.
	assert.True(t, parsed.Encrypted)
	assert.Nil(t, parsed.PrivateKey)

	err = parsed.Unlock([]byte("wrong"), func(*PrivateKey) error {
		t.Fatal("callback must not run with a wrong passphrase")
		return nil
	})
	assert.Error(t, err)
}

func TestV3KeyIdAndFingerprint(t *testing.T) {
	pk := generateRSAPrivateKey(t)
	pk.Version = 3
	pk.DaysToExpire = 30
	pk.setFingerPrintAndKeyId()

	n := pk.n.Bytes()
	expectedKeyId := uint64(0)
	for _, b := range n[len(n)-8:] {
		expectedKeyId = expectedKeyId<<8 | uint64(b)
	}
	assert.Equal(t, expectedKeyId, pk.KeyId)

	parsed := reparsePrivateKey(t, pk)
	assert.Equal(t, 3, parsed.Version)
	assert.Equal(t, uint16(30), parsed.DaysToExpire)
	assert.Equal(t, pk.Fingerprint, parsed.Fingerprint)
}
