// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"bytes"
	"crypto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signAndReparse(t *testing.T, pk *PrivateKey, sig *Signature) *Signature {
	t.Helper()
	h, err := userIdSignatureHash("test <test@example.com>", &pk.PublicKey, sig.Hash.New())
	require.NoError(t, err)
	require.NoError(t, sig.Sign(h, pk, nil))

	var buf bytes.Buffer
	require.NoError(t, sig.Serialize(&buf))

	p, err := Read(&buf)
	require.NoError(t, err)
	parsed, ok := p.(*Signature)
	require.True(t, ok)
	return parsed
}

func TestSignatureSignVerifyRSA(t *testing.T) {
	pk := generateRSAPrivateKey(t)
	sig := &Signature{
		Version:      4,
		SigType:      SigTypePositiveCert,
		PubKeyAlgo:   PubKeyAlgoRSA,
		Hash:         crypto.SHA256,
		CreationTime: testCreationTime,
		IssuerKeyId:  &pk.KeyId,
	}
	parsed := signAndReparse(t, pk, sig)

	assert.Equal(t, SigTypePositiveCert, parsed.SigType)
	assert.Equal(t, testCreationTime.Unix(), parsed.CreationTime.Unix())
	require.NotNil(t, parsed.IssuerKeyId)
	assert.Equal(t, pk.KeyId, *parsed.IssuerKeyId)

	err := pk.PublicKey.VerifyUserIdSignature("test <test@example.com>", &pk.PublicKey, parsed)
	assert.NoError(t, err)

	err = pk.PublicKey.VerifyUserIdSignature("other <other@example.com>", &pk.PublicKey, parsed)
	assert.Error(t, err)
}

func TestSignatureSignVerifyEdDSA(t *testing.T) {
	pk := generateEdDSAPrivateKey(t)
	sig := &Signature{
		Version:      4,
		SigType:      SigTypePositiveCert,
		PubKeyAlgo:   PubKeyAlgoEdDSA,
		Hash:         crypto.SHA256,
		CreationTime: testCreationTime,
		IssuerKeyId:  &pk.KeyId,
	}
	parsed := signAndReparse(t, pk, sig)

	err := pk.PublicKey.VerifyUserIdSignature("test <test@example.com>", &pk.PublicKey, parsed)
	assert.NoError(t, err)
}

func TestSignatureSubpacketsRoundTrip(t *testing.T) {
	pk := generateEdDSAPrivateKey(t)
	keyLifetime := uint32(86400)
	isPrimary := true
	sig := &Signature{
		Version:              4,
		SigType:              SigTypePositiveCert,
		PubKeyAlgo:           PubKeyAlgoEdDSA,
		Hash:                 crypto.SHA256,
		CreationTime:         testCreationTime,
		IssuerKeyId:          &pk.KeyId,
		KeyLifetimeSecs:      &keyLifetime,
		IsPrimaryId:          &isPrimary,
		FlagsValid:           true,
		FlagSign:             true,
		FlagCertify:          true,
		PreferredSymmetric:   []uint8{uint8(CipherAES256), uint8(CipherAES128)},
		PreferredHash:        []uint8{8, 2},
		PreferredCompression: []uint8{uint8(CompressionNone), uint8(CompressionZLIB)},
		MDC:                  true,
	}
	parsed := signAndReparse(t, pk, sig)

	require.NotNil(t, parsed.KeyLifetimeSecs)
	assert.Equal(t, keyLifetime, *parsed.KeyLifetimeSecs)
	require.NotNil(t, parsed.IsPrimaryId)
	assert.True(t, *parsed.IsPrimaryId)
	assert.True(t, parsed.FlagsValid)
	assert.True(t, parsed.FlagSign)
	assert.True(t, parsed.FlagCertify)
	assert.False(t, parsed.FlagEncryptCommunications)
	assert.Equal(t, sig.PreferredSymmetric, parsed.PreferredSymmetric)
	assert.Equal(t, sig.PreferredHash, parsed.PreferredHash)
	assert.Equal(t, sig.PreferredCompression, parsed.PreferredCompression)
	assert.True(t, parsed.MDC)
}

func TestSignatureReserializeExact(t *testing.T) {
	pk := generateEdDSAPrivateKey(t)
	sig := &Signature{
		Version:      4,
		SigType:      SigTypeBinary,
		PubKeyAlgo:   PubKeyAlgoEdDSA,
		Hash:         crypto.SHA256,
		CreationTime: testCreationTime,
		IssuerKeyId:  &pk.KeyId,
	}
	h := sig.Hash.New()
	h.Write([]byte("signed data"))
	require.NoError(t, sig.Sign(h, pk, nil))

	var first bytes.Buffer
	require.NoError(t, sig.Serialize(&first))

	p, err := Read(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)
	parsed := p.(*Signature)

	var second bytes.Buffer
	require.NoError(t, parsed.Serialize(&second))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestKeyBindingSignature(t *testing.T) {
	primary := generateEdDSAPrivateKey(t)
	sub := generateECDHPrivateKey(t)
	sub.IsSubkey = true
	sub.PublicKey.IsSubkey = true

	sig := &Signature{
		Version:                   4,
		SigType:                   SigTypeSubkeyBinding,
		PubKeyAlgo:                primary.PubKeyAlgo,
		Hash:                      crypto.SHA256,
		CreationTime:              testCreationTime,
		IssuerKeyId:               &primary.KeyId,
		FlagsValid:                true,
		FlagEncryptCommunications: true,
	}
	require.NoError(t, sig.SignKey(&sub.PublicKey, primary, nil))

	err := primary.PublicKey.VerifyKeySignature(&sub.PublicKey, sig)
	assert.NoError(t, err)
}

func TestEmbeddedCrossSignature(t *testing.T) {
	primary := generateEdDSAPrivateKey(t)
	signingSub := generateEdDSAPrivateKey(t)
	signingSub.IsSubkey = true
	signingSub.PublicKey.IsSubkey = true

	embedded := &Signature{
		Version:      4,
		SigType:      SigTypePrimaryKeyBinding,
		PubKeyAlgo:   signingSub.PubKeyAlgo,
		Hash:         crypto.SHA256,
		CreationTime: testCreationTime,
		IssuerKeyId:  &primary.KeyId,
	}
	require.NoError(t, embedded.CrossSignKey(&signingSub.PublicKey, &primary.PublicKey, signingSub, nil))

	sig := &Signature{
		Version:           4,
		SigType:           SigTypeSubkeyBinding,
		PubKeyAlgo:        primary.PubKeyAlgo,
		Hash:              crypto.SHA256,
		CreationTime:      testCreationTime,
		IssuerKeyId:       &primary.KeyId,
		FlagsValid:        true,
		FlagSign:          true,
		EmbeddedSignature: embedded,
	}
	require.NoError(t, sig.SignKey(&signingSub.PublicKey, primary, nil))

	require.NoError(t, primary.PublicKey.VerifyKeySignature(&signingSub.PublicKey, sig))

	// The binding must also verify after a round trip through the wire
	// format.
	var buf bytes.Buffer
	require.NoError(t, sig.Serialize(&buf))
	p, err := Read(&buf)
	require.NoError(t, err)
	parsed := p.(*Signature)
	require.NotNil(t, parsed.EmbeddedSignature)
	assert.Equal(t, SigTypePrimaryKeyBinding, parsed.EmbeddedSignature.SigType)
	require.NoError(t, primary.PublicKey.VerifyKeySignature(&signingSub.PublicKey, parsed))
}
