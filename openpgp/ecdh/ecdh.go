// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ecdh implements ECDH encryption for Curve25519, suitable for
// OpenPGP, as specified in RFC 6637.
package ecdh

import (
	"bytes"
	"io"

	"github.com/cloudflare/circl/dh/x25519"

	"github.com/dignifiedquire/pgp/openpgp/aes/keywrap"
	"github.com/dignifiedquire/pgp/openpgp/errors"
	"github.com/dignifiedquire/pgp/openpgp/internal/ecc"
	"github.com/dignifiedquire/pgp/openpgp/s2k"
)

// KDF contains the hash and cipher identifiers bound to an ECDH key. See RFC
// 6637, section 8.
type KDF struct {
	Hash   uint8
	Cipher uint8
}

// PublicKey is an ECDH public key. Point holds the encoded point, for
// Curve25519 a 0x40 octet followed by the 32 byte u-coordinate.
type PublicKey struct {
	Curve *ecc.CurveInfo
	Point []byte
	KDF
}

// PrivateKey is an ECDH private key. D holds the secret scalar in OpenPGP
// (big-endian) byte order.
type PrivateKey struct {
	PublicKey
	D []byte
}

// anonymousSender is the 20 octets representing "Anonymous Sender    ",
// folded into every KDF input. See RFC 6637, section 8.
var anonymousSender = []byte{
	0x41, 0x6E, 0x6F, 0x6E, 0x79, 0x6D, 0x6F, 0x75, 0x73, 0x20,
	0x53, 0x65, 0x6E, 0x64, 0x65, 0x72, 0x20, 0x20, 0x20, 0x20,
}

// ecdhAlgoId is the public key algorithm number for ECDH, included in the
// KDF parameter block.
const ecdhAlgoId = 18

// GenerateKey returns a fresh Curve25519 ECDH key pair using the given
// source of randomness.
func GenerateKey(rand io.Reader, curve *ecc.CurveInfo, kdf KDF) (*PrivateKey, error) {
	if !curve.Curve25519() {
		return nil, errors.UnsupportedError("ECDH key generation for curve " + curve.Name)
	}

	var secret, public x25519.Key
	if _, err := io.ReadFull(rand, secret[:]); err != nil {
		return nil, err
	}
	x25519.KeyGen(&public, &secret)

	priv := &PrivateKey{
		PublicKey: PublicKey{
			Curve: curve,
			Point: append([]byte{0x40}, public[:]...),
			KDF:   kdf,
		},
		D: reverse(secret[:]),
	}
	return priv, nil
}

// Encrypt wraps the session key material msg to the given public key. It
// returns the encoded ephemeral point and the wrapped key block.
func Encrypt(rand io.Reader, pub *PublicKey, msg, curveOID, fingerprint []byte) (vsG, c []byte, err error) {
	if !pub.Curve.Curve25519() {
		return nil, nil, errors.UnsupportedError("ECDH encryption for curve " + pub.Curve.Name)
	}
	if len(msg) > 40 {
		return nil, nil, errors.InvalidArgumentError("ecdh: message too long")
	}

	// the sender MAY use 21, 13, and 5 bytes of padding for AES-128,
	// AES-192, and AES-256, respectively, to provide the same number of
	// octets, 40 total, as an input to the key wrapping method.
	padding := make([]byte, 40-len(msg))
	for i := range padding {
		padding[i] = byte(40 - len(msg))
	}
	m := append(append([]byte(nil), msg...), padding...)

	var epkSecret, epkPublic, shared, theirPublic x25519.Key
	if _, err = io.ReadFull(rand, epkSecret[:]); err != nil {
		return nil, nil, err
	}
	x25519.KeyGen(&epkPublic, &epkSecret)

	if len(pub.Point) != 33 || pub.Point[0] != 0x40 {
		return nil, nil, errors.InvalidArgumentError("ecdh: invalid public point")
	}
	copy(theirPublic[:], pub.Point[1:])
	if !x25519.Shared(&shared, &epkSecret, &theirPublic) {
		return nil, nil, errors.InvalidArgumentError("ecdh: bad shared point")
	}

	z, err := buildKey(pub, shared[:], curveOID, fingerprint)
	if err != nil {
		return nil, nil, err
	}

	c, err = keywrap.Wrap(z, m)
	if err != nil {
		return nil, nil, err
	}

	return append([]byte{0x40}, epkPublic[:]...), c, nil
}

// Decrypt unwraps the wrapped session key block c using the private key and
// the encoded ephemeral point vsG.
func Decrypt(priv *PrivateKey, vsG, c, curveOID, fingerprint []byte) (msg []byte, err error) {
	if !priv.Curve.Curve25519() {
		return nil, errors.UnsupportedError("ECDH decryption for curve " + priv.Curve.Name)
	}
	if len(vsG) != 33 || vsG[0] != 0x40 {
		return nil, errors.InvalidArgumentError("ecdh: invalid ephemeral point")
	}

	var secret, ephemeral, shared x25519.Key
	// The secret scalar is stored in OpenPGP (big-endian) order.
	copy(secret[:], reverse(priv.D))
	copy(ephemeral[:], vsG[1:])
	if !x25519.Shared(&shared, &secret, &ephemeral) {
		return nil, errors.InvalidArgumentError("ecdh: bad shared point")
	}

	z, err := buildKey(&priv.PublicKey, shared[:], curveOID, fingerprint)
	if err != nil {
		return nil, err
	}

	m, err := keywrap.Unwrap(z, c)
	if err != nil {
		return nil, err
	}

	// Strip the PKCS#5 padding from the tail.
	if len(m) == 0 {
		return nil, errors.StructuralError("ecdh: empty session key block")
	}
	padLen := int(m[len(m)-1])
	if padLen < 1 || padLen > len(m) {
		return nil, errors.StructuralError("ecdh: invalid padding length")
	}
	for _, b := range m[len(m)-padLen:] {
		if int(b) != padLen {
			return nil, errors.StructuralError("ecdh: invalid padding")
		}
	}
	return m[:len(m)-padLen], nil
}

// buildKey derives the key wrapping key from the shared secret per RFC 6637,
// section 7.
func buildKey(pub *PublicKey, zb, curveOID, fingerprint []byte) ([]byte, error) {
	// Param = curve_OID_len || curve_OID || public_key_alg_ID || 0x03 ||
	//         0x01 || KDF_hash_ID || KEK_alg_ID for AESKeyWrap ||
	//         "Anonymous Sender    " || recipient_fingerprint
	param := new(bytes.Buffer)
	if _, err := param.Write([]byte{byte(len(curveOID))}); err != nil {
		return nil, err
	}
	if _, err := param.Write(curveOID); err != nil {
		return nil, err
	}
	if _, err := param.Write([]byte{ecdhAlgoId, 0x03, 0x01, pub.KDF.Hash, pub.KDF.Cipher}); err != nil {
		return nil, err
	}
	if _, err := param.Write(anonymousSender); err != nil {
		return nil, err
	}
	if _, err := param.Write(fingerprint[:20]); err != nil {
		return nil, err
	}

	// MB = Hash ( 00 || 00 || 00 || 01 || ZB || Param );
	cryptoHash, ok := s2k.HashIdToHash(pub.KDF.Hash)
	if !ok {
		return nil, errors.UnsupportedError("ECDH KDF hash id")
	}
	h := cryptoHash.New()
	if _, err := h.Write([]byte{0x0, 0x0, 0x0, 0x1}); err != nil {
		return nil, err
	}
	if _, err := h.Write(zb); err != nil {
		return nil, err
	}
	if _, err := h.Write(param.Bytes()); err != nil {
		return nil, err
	}
	mb := h.Sum(nil)

	var kekSize int
	switch pub.KDF.Cipher {
	case 7: // AES-128
		kekSize = 16
	case 8: // AES-192
		kekSize = 24
	case 9: // AES-256
		kekSize = 32
	default:
		return nil, errors.UnsupportedError("ECDH KEK cipher id")
	}
	if kekSize > len(mb) {
		return nil, errors.UnsupportedError("ECDH KDF hash too short for KEK")
	}

	return mb[:kekSize], nil
}

func reverse(d []byte) []byte {
	out := make([]byte, len(d))
	for i, b := range d {
		out[len(d)-i-1] = b
	}
	return out
}
