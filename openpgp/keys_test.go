// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package openpgp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dignifiedquire/pgp/openpgp/packet"
)

var rsaTestConfig = &packet.Config{RSABits: 1024}

var eddsaTestConfig = &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA}

func TestNewEntityRSA(t *testing.T) {
	e, err := NewEntity("", "", "hello@world.com", rsaTestConfig)
	require.NoError(t, err)

	assert.Equal(t, packet.PubKeyAlgoRSA, e.PrimaryKey.PubKeyAlgo)
	require.Len(t, e.Identities, 1)
	assert.Equal(t, "<hello@world.com>", e.Identities[0].Name)
	require.Len(t, e.Subkeys, 1)
	assert.True(t, e.Subkeys[0].PublicKey.IsSubkey)

	require.NoError(t, e.Verify())
}

func TestNewEntityEdDSA(t *testing.T) {
	e, err := NewEntity("Test", "", "test@example.com", eddsaTestConfig)
	require.NoError(t, err)

	assert.Equal(t, packet.PubKeyAlgoEdDSA, e.PrimaryKey.PubKeyAlgo)
	require.Len(t, e.Subkeys, 1)
	assert.Equal(t, packet.PubKeyAlgoECDH, e.Subkeys[0].PublicKey.PubKeyAlgo)

	require.NoError(t, e.Verify())
}

func reparseEntityPrivate(t *testing.T, e *Entity) *Entity {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, e.SerializePrivate(&buf, nil))

	el, err := ReadKeyRing(&buf)
	require.NoError(t, err)
	require.Len(t, el, 1)
	return el[0]
}

func TestKeySerializeParseRoundTrip(t *testing.T) {
	e, err := NewEntity("", "", "hello@world.com", rsaTestConfig)
	require.NoError(t, err)

	parsed := reparseEntityPrivate(t, e)

	assert.Equal(t, e.PrimaryKey.Fingerprint, parsed.PrimaryKey.Fingerprint)
	assert.Equal(t, e.PrimaryKey.KeyId, parsed.PrimaryKey.KeyId)
	require.Len(t, parsed.Identities, 1)
	assert.Equal(t, e.Identities[0].Name, parsed.Identities[0].Name)
	require.Len(t, parsed.Subkeys, 1)
	assert.Equal(t, e.Subkeys[0].PublicKey.Fingerprint, parsed.Subkeys[0].PublicKey.Fingerprint)
	require.NotNil(t, parsed.PrivateKey)
	require.NotNil(t, parsed.Subkeys[0].PrivateKey)

	require.NoError(t, parsed.Verify())

	// Serializing the parsed entity reproduces the primary key bytes
	// exactly.
	var first, second bytes.Buffer
	require.NoError(t, e.PrimaryKey.Serialize(&first))
	require.NoError(t, parsed.PrimaryKey.Serialize(&second))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestKeyIdIsLowBitsOfFingerprint(t *testing.T) {
	e, err := NewEntity("", "", "a@b.c", eddsaTestConfig)
	require.NoError(t, err)

	fp := e.PrimaryKey.Fingerprint
	var fromFingerprint uint64
	for _, b := range fp[12:20] {
		fromFingerprint = fromFingerprint<<8 | uint64(b)
	}
	assert.Equal(t, fromFingerprint, e.PrimaryKey.KeyId)
}

func TestArmoredKeyRoundTrip(t *testing.T) {
	e, err := NewEntity("", "", "armored@example.com", eddsaTestConfig)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e.SerializeArmored(&buf, map[string]string{"Version": "test"}))

	el, err := ReadArmoredKeyRing(&buf)
	require.NoError(t, err)
	require.Len(t, el, 1)
	assert.Equal(t, e.PrimaryKey.Fingerprint, el[0].PrimaryKey.Fingerprint)
	assert.Nil(t, el[0].PrivateKey)
	require.NoError(t, el[0].Verify())
}

func TestPublicSerializationDropsSecrets(t *testing.T) {
	e, err := NewEntity("", "", "pub@example.com", rsaTestConfig)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e.Serialize(&buf))

	el, err := ReadKeyRing(&buf)
	require.NoError(t, err)
	require.Len(t, el, 1)
	assert.Nil(t, el[0].PrivateKey)
	assert.Nil(t, el[0].Subkeys[0].PrivateKey)
}

func TestReadKeyRingMultiple(t *testing.T) {
	e1, err := NewEntity("", "", "one@example.com", eddsaTestConfig)
	require.NoError(t, err)
	e2, err := NewEntity("", "", "two@example.com", eddsaTestConfig)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e1.Serialize(&buf))
	require.NoError(t, e2.Serialize(&buf))

	el, err := ReadKeyRing(&buf)
	require.NoError(t, err)
	require.Len(t, el, 2)
	assert.Equal(t, e1.PrimaryKey.KeyId, el[0].PrimaryKey.KeyId)
	assert.Equal(t, e2.PrimaryKey.KeyId, el[1].PrimaryKey.KeyId)

	keys := el.KeysById(e2.PrimaryKey.KeyId)
	require.Len(t, keys, 1)
	assert.Equal(t, e2.PrimaryKey.KeyId, keys[0].PublicKey.KeyId)
}

func TestAddSigningSubkey(t *testing.T) {
	e, err := NewEntity("", "", "signer@example.com", eddsaTestConfig)
	require.NoError(t, err)
	require.NoError(t, e.AddSigningSubkey(eddsaTestConfig))
	require.Len(t, e.Subkeys, 2)

	signingSub := e.Subkeys[1]
	require.NotNil(t, signingSub.Sig.EmbeddedSignature)
	assert.Equal(t, packet.SigTypePrimaryKeyBinding, signingSub.Sig.EmbeddedSignature.SigType)

	require.NoError(t, e.Verify())

	parsed := reparseEntityPrivate(t, e)
	require.Len(t, parsed.Subkeys, 2)
	require.NoError(t, parsed.Verify())
}

func TestEncryptDecryptPrivateKeys(t *testing.T) {
	e, err := NewEntity("", "", "locked@example.com", rsaTestConfig)
	require.NoError(t, err)

	passphrase := []byte("password")
	require.NoError(t, e.PrivateKey.Encrypt(passphrase, nil))
	for i := range e.Subkeys {
		require.NoError(t, e.Subkeys[i].PrivateKey.Encrypt(passphrase, nil))
	}

	parsed := reparseEntityPrivate(t, e)
	assert.True(t, parsed.PrivateKey.Encrypted)

	require.Error(t, parsed.PrivateKey.Decrypt([]byte("wrong")))
	require.NoError(t, parsed.DecryptPrivateKeys(passphrase))
	assert.False(t, parsed.PrivateKey.Encrypted)
	assert.False(t, parsed.Subkeys[0].PrivateKey.Encrypted)
}

func TestMissingUserIdsFails(t *testing.T) {
	e, err := NewEntity("", "", "x@example.com", eddsaTestConfig)
	require.NoError(t, err)

	var buf bytes.Buffer
	// Only the bare key packet, no user ids.
	require.NoError(t, e.PrimaryKey.Serialize(&buf))

	_, err = ReadEntity(packet.NewReader(&buf))
	assert.Error(t, err)
}
