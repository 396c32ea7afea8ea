// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package openpgp

import (
	"bytes"
	"crypto"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dignifiedquire/pgp/openpgp/armor"
	pgperrors "github.com/dignifiedquire/pgp/openpgp/errors"
	"github.com/dignifiedquire/pgp/openpgp/packet"
)

func writeLiteralPacket(t *testing.T, w io.Writer, data []byte) {
	t.Helper()
	pw, err := packet.SerializeLiteral(nopWriteCloser{w}, true, "", 0)
	require.NoError(t, err)
	_, err = pw.Write(data)
	require.NoError(t, err)
	require.NoError(t, pw.Close())
}

func TestReadLiteralMessage(t *testing.T) {
	var buf bytes.Buffer
	writeLiteralPacket(t, &buf, []byte("hello world"))

	msg, err := ReadSingleMessage(&buf)
	require.NoError(t, err)
	lit, ok := msg.(*LiteralMessage)
	require.True(t, ok)
	assert.Equal(t, []byte("hello world"), lit.Data)
}

func TestReadSingleMessageCounts(t *testing.T) {
	_, err := ReadSingleMessage(bytes.NewReader(nil))
	assert.Equal(t, pgperrors.ErrNoMatchingPacket, err)

	var buf bytes.Buffer
	writeLiteralPacket(t, &buf, []byte("one"))
	writeLiteralPacket(t, &buf, []byte("two"))
	_, err = ReadSingleMessage(&buf)
	assert.Equal(t, pgperrors.ErrTooManyPackets, err)
}

func TestMarkerIsIgnored(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&packet.Marker{}).Serialize(&buf))
	writeLiteralPacket(t, &buf, []byte("data"))

	msg, err := ReadSingleMessage(&buf)
	require.NoError(t, err)
	assert.IsType(t, &LiteralMessage{}, msg)
}

func TestUnexpectedPacketInMessage(t *testing.T) {
	e, err := NewEntity("", "", "m@example.com", eddsaTestConfig)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e.PrimaryKey.Serialize(&buf))
	_, err = ReadMessages(&buf)
	assert.Error(t, err)
}

func TestLiteralMessageSerializeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writeLiteralPacket(t, &buf, []byte("round trip me"))
	original := append([]byte(nil), buf.Bytes()...)

	msg, err := ReadSingleMessage(&buf)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, msg.Serialize(&out))
	assert.Equal(t, original, out.Bytes())
}

func encryptTestMessage(t *testing.T, to *Entity, plaintext []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := Encrypt(&buf, []*Entity{to}, nil, nil, nil)
	require.NoError(t, err)
	_, err = w.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestEncryptDecryptRSA(t *testing.T) {
	e, err := NewEntity("", "", "rsa@example.com", rsaTestConfig)
	require.NoError(t, err)

	ciphertext := encryptTestMessage(t, e, []byte("secret message"))

	msg, err := ReadSingleMessage(bytes.NewReader(ciphertext))
	require.NoError(t, err)
	enc, ok := msg.(*EncryptedMessage)
	require.True(t, ok)
	assert.True(t, enc.Protected)
	require.Len(t, enc.ESK, 1)
	assert.Equal(t, e.Subkeys[0].PublicKey.KeyId, enc.ESK[0].KeyId)

	plaintext, err := enc.Decrypt(EntityList{e}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret message"), plaintext)
}

func TestEncryptDecryptECDH(t *testing.T) {
	e, err := NewEntity("", "", "curve@example.com", eddsaTestConfig)
	require.NoError(t, err)

	ciphertext := encryptTestMessage(t, e, []byte("x25519 sealed"))

	msg, err := ReadSingleMessage(bytes.NewReader(ciphertext))
	require.NoError(t, err)
	enc := msg.(*EncryptedMessage)

	plaintext, err := enc.Decrypt(EntityList{e}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("x25519 sealed"), plaintext)
}

func TestDecryptWithLockedKey(t *testing.T) {
	e, err := NewEntity("", "", "locked@example.com", eddsaTestConfig)
	require.NoError(t, err)

	ciphertext := encryptTestMessage(t, e, []byte("for your eyes"))

	passphrase := []byte("hunter2")
	for i := range e.Subkeys {
		require.NoError(t, e.Subkeys[i].PrivateKey.Encrypt(passphrase, nil))
	}

	msg, err := ReadSingleMessage(bytes.NewReader(ciphertext))
	require.NoError(t, err)
	enc := msg.(*EncryptedMessage)

	_, err = enc.Decrypt(EntityList{e}, []byte("wrong"), nil)
	require.Error(t, err)

	// The packet stream is immutable; decrypting again with the right
	// passphrase succeeds.
	msg, err = ReadSingleMessage(bytes.NewReader(ciphertext))
	require.NoError(t, err)
	plaintext, err := msg.(*EncryptedMessage).Decrypt(EntityList{e}, passphrase, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("for your eyes"), plaintext)

	// The subkey itself is still locked.
	assert.True(t, e.Subkeys[0].PrivateKey.Encrypted)
}

func TestDecryptMissingKey(t *testing.T) {
	recipient, err := NewEntity("", "", "to@example.com", eddsaTestConfig)
	require.NoError(t, err)
	other, err := NewEntity("", "", "other@example.com", eddsaTestConfig)
	require.NoError(t, err)

	ciphertext := encryptTestMessage(t, recipient, []byte("not for you"))

	msg, err := ReadSingleMessage(bytes.NewReader(ciphertext))
	require.NoError(t, err)

	_, err = msg.(*EncryptedMessage).Decrypt(EntityList{other}, nil, nil)
	assert.Equal(t, pgperrors.ErrMissingKey, err)
}

func TestArmoredMessageRoundTrip(t *testing.T) {
	e, err := NewEntity("", "", "armor@example.com", eddsaTestConfig)
	require.NoError(t, err)

	var buf bytes.Buffer
	aw, err := armor.Encode(&buf, MessageType, nil)
	require.NoError(t, err)
	w, err := Encrypt(aw, []*Entity{e}, nil, nil, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("armored secret"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, aw.Close())

	msg, err := ReadArmoredMessage(&buf)
	require.NoError(t, err)
	plaintext, err := msg.(*EncryptedMessage).Decrypt(EntityList{e}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("armored secret"), plaintext)
}

func TestEncryptSignDecrypt(t *testing.T) {
	recipient, err := NewEntity("", "", "to@example.com", eddsaTestConfig)
	require.NoError(t, err)
	signer, err := NewEntity("", "", "from@example.com", eddsaTestConfig)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := Encrypt(&buf, []*Entity{recipient}, signer, nil, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("signed and sealed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	msg, err := ReadSingleMessage(&buf)
	require.NoError(t, err)
	plaintext, err := msg.(*EncryptedMessage).Decrypt(EntityList{recipient}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("signed and sealed"), plaintext)
}

func TestEskAfterEdataFails(t *testing.T) {
	e, err := NewEntity("", "", "order@example.com", eddsaTestConfig)
	require.NoError(t, err)

	ciphertext := encryptTestMessage(t, e, []byte("data"))

	msgs, err := ReadMessages(bytes.NewReader(ciphertext))
	require.NoError(t, err)
	enc := msgs[0].(*EncryptedMessage)

	// Re-emit with the session key packet after the encrypted data.
	var reordered bytes.Buffer
	require.NoError(t, enc.EData[0].Serialize(&reordered))
	require.NoError(t, enc.ESK[0].Serialize(&reordered))

	_, err = ReadMessages(&reordered)
	assert.Error(t, err)
}

func TestDecryptCompressedMessage(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}

	// A ZLIB compressed literal packet inside an integrity protected
	// packet.
	var buf bytes.Buffer
	ew, err := packet.SerializeSymmetricallyEncrypted(&buf, packet.CipherAES128, key, nil)
	require.NoError(t, err)
	cw, err := packet.SerializeCompressed(nopWriteCloser{ew}, packet.CompressionZLIB, -1)
	require.NoError(t, err)
	writeLiteralPacket(t, cw, []byte("compressed plaintext"))
	require.NoError(t, cw.Close())
	require.NoError(t, ew.Close())

	msg, err := ReadSingleMessage(&buf)
	require.NoError(t, err)
	enc := msg.(*EncryptedMessage)

	plaintext, err := enc.decryptEData(key, packet.CipherAES128)
	require.NoError(t, err)
	assert.Equal(t, []byte("compressed plaintext"), plaintext)
}

func TestCompressedMessageRoundTrip(t *testing.T) {
	var inner bytes.Buffer
	writeLiteralPacket(t, &inner, []byte("inner data"))

	var buf bytes.Buffer
	require.NoError(t, packet.SerializeRawCompressed(&buf, packet.CompressionNone, inner.Bytes()))
	original := append([]byte(nil), buf.Bytes()...)

	msg, err := ReadSingleMessage(&buf)
	require.NoError(t, err)
	comp, ok := msg.(*CompressedMessage)
	require.True(t, ok)
	assert.Equal(t, packet.CompressionNone, comp.Algo)

	var out bytes.Buffer
	require.NoError(t, comp.Serialize(&out))
	assert.Equal(t, original, out.Bytes())
}

func TestSignedMessageComposition(t *testing.T) {
	signer, err := NewEntity("", "", "sig@example.com", eddsaTestConfig)
	require.NoError(t, err)

	// Build a one-pass signed message the way the encrypt path does, but
	// without encryption.
	var buf bytes.Buffer
	ops := &packet.OnePassSignature{
		SigType:    packet.SigTypeBinary,
		Hash:       crypto.SHA256,
		PubKeyAlgo: signer.PrimaryKey.PubKeyAlgo,
		KeyId:      signer.PrimaryKey.KeyId,
		IsLast:     true,
	}
	require.NoError(t, ops.Serialize(&buf))
	writeLiteralPacket(t, &buf, []byte("signed data"))

	sig := &packet.Signature{
		Version:      4,
		SigType:      packet.SigTypeBinary,
		PubKeyAlgo:   signer.PrimaryKey.PubKeyAlgo,
		Hash:         crypto.SHA256,
		CreationTime: signer.PrimaryKey.CreationTime,
		IssuerKeyId:  &signer.PrimaryKey.KeyId,
	}
	h := crypto.SHA256.New()
	h.Write([]byte("signed data"))
	require.NoError(t, sig.Sign(h, signer.PrivateKey, nil))
	require.NoError(t, sig.Serialize(&buf))

	msg, err := ReadSingleMessage(&buf)
	require.NoError(t, err)
	signed, ok := msg.(*SignedMessage)
	require.True(t, ok)
	require.NotNil(t, signed.OnePass)
	require.NotNil(t, signed.Sig)
	lit := Literal(signed)
	require.NotNil(t, lit)
	assert.Equal(t, []byte("signed data"), lit.Data)

	// Verify the signature over the literal data.
	vh := signed.Sig.Hash.New()
	vh.Write(lit.Data)
	require.NoError(t, signer.PrimaryKey.VerifySignature(vh, signed.Sig))
}
