// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"crypto/md5"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/dignifiedquire/pgp/openpgp/ecdh"
	"github.com/dignifiedquire/pgp/openpgp/errors"
	"github.com/dignifiedquire/pgp/openpgp/internal/ecc"
	"github.com/dignifiedquire/pgp/openpgp/internal/encoding"
)

// PublicKey represents an OpenPGP public key. See RFC 4880, section 5.5.2.
type PublicKey struct {
	Version      int
	CreationTime time.Time
	// DaysToExpire holds the v2/v3 validity period in days; zero means the
	// key never expires. V4 keys carry expiration in self signatures
	// instead.
	DaysToExpire uint16
	PubKeyAlgo   PublicKeyAlgorithm
	PublicKey    interface{} // *rsa.PublicKey, *ecdh.PublicKey, ed25519.PublicKey or nil for unsupported algorithms
	Fingerprint  [20]byte
	KeyId        uint64
	IsSubkey     bool

	// RFC 4880 fields
	n, e, p, q, g, y encoding.Field
	oid              *encoding.OID
	kdf              *encoding.OID
}

// NewRSAPublicKey returns a PublicKey that wraps the given rsa.PublicKey.
func NewRSAPublicKey(creationTime time.Time, pub *rsa.PublicKey) *PublicKey {
	pk := &PublicKey{
		Version:      4,
		CreationTime: creationTime,
		PubKeyAlgo:   PubKeyAlgoRSA,
		PublicKey:    pub,
		n:            new(encoding.MPI).SetBig(pub.N),
		e:            new(encoding.MPI).SetBig(big.NewInt(int64(pub.E))),
	}

	pk.setFingerPrintAndKeyId()
	return pk
}

// NewEdDSAPublicKey returns a PublicKey that wraps the given Ed25519 public
// key.
func NewEdDSAPublicKey(creationTime time.Time, pub ed25519.PublicKey) *PublicKey {
	curve := ecc.FindByName("Ed25519")
	pk := &PublicKey{
		Version:      4,
		CreationTime: creationTime,
		PubKeyAlgo:   PubKeyAlgoEdDSA,
		PublicKey:    pub,
		oid:          curve.Oid,
		// The public point is prefixed with 0x40. See RFC 6637bis.
		p: encoding.NewMPI(append([]byte{0x40}, pub...)),
	}

	pk.setFingerPrintAndKeyId()
	return pk
}

// NewECDHPublicKey returns a PublicKey that wraps the given ecdh.PublicKey.
func NewECDHPublicKey(creationTime time.Time, pub *ecdh.PublicKey) *PublicKey {
	pk := &PublicKey{
		Version:      4,
		CreationTime: creationTime,
		PubKeyAlgo:   PubKeyAlgoECDH,
		PublicKey:    pub,
		oid:          pub.Curve.Oid,
		p:            encoding.NewMPI(pub.Point),
		kdf:          encoding.NewOID([]byte{0x01, pub.KDF.Hash, pub.KDF.Cipher}),
	}

	pk.setFingerPrintAndKeyId()
	return pk
}

func (pk *PublicKey) parse(r io.Reader) (err error) {
	// RFC 4880, section 5.5.2
	var buf [6]byte
	_, err = readFull(r, buf[:])
	if err != nil {
		return
	}

	pk.Version = int(buf[0])
	switch pk.Version {
	case 2, 3:
		pk.CreationTime = time.Unix(int64(binary.BigEndian.Uint32(buf[1:5])), 0)
		var old [3]byte
		old[0] = buf[5]
		_, err = readFull(r, old[1:])
		if err != nil {
			return
		}
		pk.DaysToExpire = binary.BigEndian.Uint16(old[:2])
		pk.PubKeyAlgo = PublicKeyAlgorithm(old[2])
	case 4:
		pk.CreationTime = time.Unix(int64(binary.BigEndian.Uint32(buf[1:5])), 0)
		pk.PubKeyAlgo = PublicKeyAlgorithm(buf[5])
	default:
		return errors.UnsupportedError("public key version " + strconv.Itoa(int(buf[0])))
	}
	if pk.Version < 4 && pk.PubKeyAlgo != PubKeyAlgoRSA &&
		pk.PubKeyAlgo != PubKeyAlgoRSAEncryptOnly && pk.PubKeyAlgo != PubKeyAlgoRSASignOnly {
		return errors.StructuralError("v2/v3 keys must be RSA")
	}

	switch pk.PubKeyAlgo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoRSASignOnly:
		err = pk.parseRSA(r)
	case PubKeyAlgoDSA:
		err = pk.parseDSA(r)
	case PubKeyAlgoElGamal, PubKeyAlgoElGamalBoth:
		err = pk.parseElGamal(r)
	case PubKeyAlgoECDSA:
		err = pk.parseECDSA(r)
	case PubKeyAlgoECDH:
		err = pk.parseECDH(r)
	case PubKeyAlgoEdDSA:
		err = pk.parseEdDSA(r)
	default:
		err = errors.UnsupportedError("public key type: " + strconv.Itoa(int(pk.PubKeyAlgo)))
	}
	if err != nil {
		return
	}

	pk.setFingerPrintAndKeyId()
	return
}

func (pk *PublicKey) setFingerPrintAndKeyId() {
	if pk.Version < 4 {
		// See RFC 4880, section 12.2.
		fingerPrint := md5.New()
		fingerPrint.Write(pk.n.Bytes())
		fingerPrint.Write(pk.e.Bytes())
		pk.Fingerprint = [20]byte{}
		fingerPrint.Sum(pk.Fingerprint[:0])
		if n := pk.n.Bytes(); len(n) >= 8 {
			pk.KeyId = binary.BigEndian.Uint64(n[len(n)-8:])
		}
		return
	}
	fingerPrint := sha1.New()
	pk.SerializeSignaturePrefix(fingerPrint)
	pk.serializeWithoutHeaders(fingerPrint)
	copy(pk.Fingerprint[:], fingerPrint.Sum(nil))
	pk.KeyId = binary.BigEndian.Uint64(pk.Fingerprint[12:20])
}

// parseRSA parses RSA public key material from the given Reader. See RFC
// 4880, section 5.5.2.
func (pk *PublicKey) parseRSA(r io.Reader) (err error) {
	pk.n = new(encoding.MPI)
	if _, err = pk.n.ReadFrom(r); err != nil {
		return
	}
	pk.e = new(encoding.MPI)
	if _, err = pk.e.ReadFrom(r); err != nil {
		return
	}

	if len(pk.e.Bytes()) > 3 {
		err = errors.UnsupportedError("large public exponent")
		return
	}
	rsa := &rsa.PublicKey{
		N: new(big.Int).SetBytes(pk.n.Bytes()),
		E: 0,
	}
	for i := 0; i < len(pk.e.Bytes()); i++ {
		rsa.E <<= 8
		rsa.E |= int(pk.e.Bytes()[i])
	}
	pk.PublicKey = rsa
	return
}

// parseDSA parses DSA public key material from the given Reader. The
// parameters round-trip; signature verification is not supported.
func (pk *PublicKey) parseDSA(r io.Reader) (err error) {
	pk.p = new(encoding.MPI)
	if _, err = pk.p.ReadFrom(r); err != nil {
		return
	}
	pk.q = new(encoding.MPI)
	if _, err = pk.q.ReadFrom(r); err != nil {
		return
	}
	pk.g = new(encoding.MPI)
	if _, err = pk.g.ReadFrom(r); err != nil {
		return
	}
	pk.y = new(encoding.MPI)
	_, err = pk.y.ReadFrom(r)
	return
}

// parseElGamal parses ElGamal public key material from the given Reader. The
// parameters round-trip; encryption to them is not supported.
func (pk *PublicKey) parseElGamal(r io.Reader) (err error) {
	pk.p = new(encoding.MPI)
	if _, err = pk.p.ReadFrom(r); err != nil {
		return
	}
	pk.g = new(encoding.MPI)
	if _, err = pk.g.ReadFrom(r); err != nil {
		return
	}
	pk.y = new(encoding.MPI)
	_, err = pk.y.ReadFrom(r)
	return
}

// parseECDSA parses ECDSA public key material from the given Reader. The
// parameters round-trip; signature verification is not supported.
func (pk *PublicKey) parseECDSA(r io.Reader) (err error) {
	pk.oid = new(encoding.OID)
	if _, err = pk.oid.ReadFrom(r); err != nil {
		return
	}
	pk.p = new(encoding.MPI)
	_, err = pk.p.ReadFrom(r)
	return
}

// parseECDH parses ECDH public key material from the given Reader. See RFC
// 6637, section 9.
func (pk *PublicKey) parseECDH(r io.Reader) (err error) {
	pk.oid = new(encoding.OID)
	if _, err = pk.oid.ReadFrom(r); err != nil {
		return
	}
	pk.p = new(encoding.MPI)
	if _, err = pk.p.ReadFrom(r); err != nil {
		return
	}
	pk.kdf = new(encoding.OID)
	if _, err = pk.kdf.ReadFrom(r); err != nil {
		return
	}

	if kdfLen := len(pk.kdf.Bytes()); kdfLen < 3 {
		return errors.UnsupportedError("unsupported ECDH KDF length: " + strconv.Itoa(kdfLen))
	}
	if reserved := pk.kdf.Bytes()[0]; reserved != 0x01 {
		return errors.UnsupportedError("unsupported KDF reserved field: " + strconv.Itoa(int(reserved)))
	}

	curveInfo, err := ecc.FindByOid(pk.oid)
	if err != nil {
		// Unknown curves still round-trip.
		return nil
	}
	if curveInfo.Curve25519() {
		pk.PublicKey = &ecdh.PublicKey{
			Curve: curveInfo,
			Point: pk.p.Bytes(),
			KDF: ecdh.KDF{
				Hash:   pk.kdf.Bytes()[1],
				Cipher: pk.kdf.Bytes()[2],
			},
		}
	}
	return
}

// parseEdDSA parses EdDSA public key material from the given Reader.
func (pk *PublicKey) parseEdDSA(r io.Reader) (err error) {
	pk.oid = new(encoding.OID)
	if _, err = pk.oid.ReadFrom(r); err != nil {
		return
	}
	pk.p = new(encoding.MPI)
	if _, err = pk.p.ReadFrom(r); err != nil {
		return
	}

	curveInfo, err := ecc.FindByOid(pk.oid)
	if err != nil {
		return nil
	}
	if !curveInfo.Ed25519() {
		return nil
	}

	eddsa := pk.p.Bytes()
	if len(eddsa) != ed25519.PublicKeySize+1 || eddsa[0] != 0x40 {
		return errors.StructuralError("invalid EdDSA public key point")
	}
	pk.PublicKey = ed25519.PublicKey(eddsa[1:])
	return
}

// SerializeSignaturePrefix writes the prefix for this public key to the
// given Writer. The prefix is used when calculating a signature over this
// public key. See RFC 4880, section 5.2.4.
func (pk *PublicKey) SerializeSignaturePrefix(h io.Writer) {
	var pLength uint16
	switch pk.PubKeyAlgo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoRSASignOnly:
		pLength += pk.n.EncodedLength()
		pLength += pk.e.EncodedLength()
	case PubKeyAlgoDSA:
		pLength += pk.p.EncodedLength()
		pLength += pk.q.EncodedLength()
		pLength += pk.g.EncodedLength()
		pLength += pk.y.EncodedLength()
	case PubKeyAlgoElGamal, PubKeyAlgoElGamalBoth:
		pLength += pk.p.EncodedLength()
		pLength += pk.g.EncodedLength()
		pLength += pk.y.EncodedLength()
	case PubKeyAlgoECDSA:
		pLength += pk.oid.EncodedLength()
		pLength += pk.p.EncodedLength()
	case PubKeyAlgoECDH:
		pLength += pk.oid.EncodedLength()
		pLength += pk.p.EncodedLength()
		pLength += pk.kdf.EncodedLength()
	case PubKeyAlgoEdDSA:
		pLength += pk.oid.EncodedLength()
		pLength += pk.p.EncodedLength()
	default:
		panic("unknown public key algorithm")
	}
	pLength += 6
	h.Write([]byte{0x99, byte(pLength >> 8), byte(pLength)})
}

func (pk *PublicKey) Serialize(w io.Writer) (err error) {
	length := 6 // 6 byte header
	if pk.Version < 4 {
		length += 2 // expiration days
	}
	length += pk.algorithmSpecificByteLength()

	ptype := packetTypePublicKey
	if pk.IsSubkey {
		ptype = packetTypePublicSubkey
	}
	err = serializeHeader(w, ptype, length)
	if err != nil {
		return
	}
	return pk.serializeWithoutHeaders(w)
}

func (pk *PublicKey) algorithmSpecificByteLength() int {
	length := 0
	switch pk.PubKeyAlgo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoRSASignOnly:
		length += int(pk.n.EncodedLength())
		length += int(pk.e.EncodedLength())
	case PubKeyAlgoDSA:
		length += int(pk.p.EncodedLength())
		length += int(pk.q.EncodedLength())
		length += int(pk.g.EncodedLength())
		length += int(pk.y.EncodedLength())
	case PubKeyAlgoElGamal, PubKeyAlgoElGamalBoth:
		length += int(pk.p.EncodedLength())
		length += int(pk.g.EncodedLength())
		length += int(pk.y.EncodedLength())
	case PubKeyAlgoECDSA:
		length += int(pk.oid.EncodedLength())
		length += int(pk.p.EncodedLength())
	case PubKeyAlgoECDH:
		length += int(pk.oid.EncodedLength())
		length += int(pk.p.EncodedLength())
		length += int(pk.kdf.EncodedLength())
	case PubKeyAlgoEdDSA:
		length += int(pk.oid.EncodedLength())
		length += int(pk.p.EncodedLength())
	default:
		panic("unknown public key algorithm")
	}
	return length
}

// serializeWithoutHeaders marshals the PublicKey to w in the form of an
// OpenPGP public key packet, not including the packet header.
func (pk *PublicKey) serializeWithoutHeaders(w io.Writer) (err error) {
	t := uint32(pk.CreationTime.Unix())

	var buf [6]byte
	buf[0] = byte(pk.Version)
	binary.BigEndian.PutUint32(buf[1:5], t)
	if pk.Version < 4 {
		buf[5] = byte(pk.DaysToExpire >> 8)
		if _, err = w.Write(buf[:6]); err != nil {
			return
		}
		if _, err = w.Write([]byte{byte(pk.DaysToExpire), byte(pk.PubKeyAlgo)}); err != nil {
			return
		}
	} else {
		buf[5] = byte(pk.PubKeyAlgo)
		if _, err = w.Write(buf[:]); err != nil {
			return
		}
	}

	switch pk.PubKeyAlgo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoRSASignOnly:
		if _, err = w.Write(pk.n.EncodedBytes()); err != nil {
			return
		}
		_, err = w.Write(pk.e.EncodedBytes())
		return
	case PubKeyAlgoDSA:
		if _, err = w.Write(pk.p.EncodedBytes()); err != nil {
			return
		}
		if _, err = w.Write(pk.q.EncodedBytes()); err != nil {
			return
		}
		if _, err = w.Write(pk.g.EncodedBytes()); err != nil {
			return
		}
		_, err = w.Write(pk.y.EncodedBytes())
		return
	case PubKeyAlgoElGamal, PubKeyAlgoElGamalBoth:
		if _, err = w.Write(pk.p.EncodedBytes()); err != nil {
			return
		}
		if _, err = w.Write(pk.g.EncodedBytes()); err != nil {
			return
		}
		_, err = w.Write(pk.y.EncodedBytes())
		return
	case PubKeyAlgoECDSA:
		if _, err = w.Write(pk.oid.EncodedBytes()); err != nil {
			return
		}
		_, err = w.Write(pk.p.EncodedBytes())
		return
	case PubKeyAlgoECDH:
		if _, err = w.Write(pk.oid.EncodedBytes()); err != nil {
			return
		}
		if _, err = w.Write(pk.p.EncodedBytes()); err != nil {
			return
		}
		_, err = w.Write(pk.kdf.EncodedBytes())
		return
	case PubKeyAlgoEdDSA:
		if _, err = w.Write(pk.oid.EncodedBytes()); err != nil {
			return
		}
		_, err = w.Write(pk.p.EncodedBytes())
		return
	}
	return errors.InvalidArgumentError("bad public-key algorithm")
}

// CanSign returns true iff this public key can generate signatures.
func (pk *PublicKey) CanSign() bool {
	return pk.PubKeyAlgo != PubKeyAlgoRSAEncryptOnly &&
		pk.PubKeyAlgo != PubKeyAlgoElGamal &&
		pk.PubKeyAlgo != PubKeyAlgoElGamalBoth &&
		pk.PubKeyAlgo != PubKeyAlgoECDH
}

// VerifySignature returns nil iff sig is a valid signature, made by this
// public key, of the data hashed into signed. signed is mutated by this call.
func (pk *PublicKey) VerifySignature(signed hash.Hash, sig *Signature) (err error) {
	if !pk.CanSign() {
		return errors.InvalidArgumentError("public key cannot generate signatures")
	}

	signed.Write(sig.HashSuffix)
	hashBytes := signed.Sum(nil)
	if hashBytes[0] != sig.HashTag[0] || hashBytes[1] != sig.HashTag[1] {
		return errors.SignatureError("hash tag doesn't match")
	}

	if pk.PubKeyAlgo != sig.PubKeyAlgo {
		return errors.InvalidArgumentError("public key and signature use different algorithms")
	}

	switch pk.PubKeyAlgo {
	case PubKeyAlgoRSA, PubKeyAlgoRSASignOnly:
		rsaPublicKey, _ := pk.PublicKey.(*rsa.PublicKey)
		if err = rsa.VerifyPKCS1v15(rsaPublicKey, sig.Hash, hashBytes, padToKeySize(rsaPublicKey, sig.RSASignature.Bytes())); err != nil {
			return errors.SignatureError("RSA verification failure")
		}
		return nil
	case PubKeyAlgoEdDSA:
		eddsaPublicKey, ok := pk.PublicKey.(ed25519.PublicKey)
		if !ok {
			return errors.UnsupportedError("EdDSA verification on unknown curve")
		}

		sigR := sig.EdDSASigR.Bytes()
		sigS := sig.EdDSASigS.Bytes()

		eddsaSig := make([]byte, ed25519.SignatureSize)
		copy(eddsaSig[32-len(sigR):32], sigR)
		copy(eddsaSig[64-len(sigS):], sigS)

		if !ed25519.Verify(eddsaPublicKey, hashBytes, eddsaSig) {
			return errors.SignatureError("EdDSA verification failure")
		}
		return nil
	case PubKeyAlgoDSA, PubKeyAlgoECDSA:
		return errors.UnsupportedError("verifying signature of algorithm: " + strconv.Itoa(int(pk.PubKeyAlgo)))
	default:
		return errors.SignatureError("unsupported public key algorithm used in signature")
	}
}

// keySignatureHash returns a Hash of the message that needs to be signed for
// pk to assert a subkey relationship to signed.
func keySignatureHash(pk, signed signingKey, hashFunc hash.Hash) (h hash.Hash, err error) {
	h = hashFunc

	// RFC 4880, section 5.2.4
	pk.SerializeSignaturePrefix(h)
	pk.serializeWithoutHeaders(h)
	signed.SerializeSignaturePrefix(h)
	signed.serializeWithoutHeaders(h)
	return
}

// VerifyKeySignature returns nil iff sig is a valid signature, made by this
// public key, of signed.
func (pk *PublicKey) VerifyKeySignature(signed *PublicKey, sig *Signature) error {
	h, err := keySignatureHash(pk, signed, sig.Hash.New())
	if err != nil {
		return err
	}
	if err = pk.VerifySignature(h, sig); err != nil {
		return err
	}

	if sig.FlagSign && sig.EmbeddedSignature == nil {
		return errors.StructuralError("signing subkey is missing cross-signature")
	}
	if sig.EmbeddedSignature != nil {
		// We have a subkey binding signature of a subkey that can sign.
		// Check the cross certification.
		if sig.EmbeddedSignature.SigType != SigTypePrimaryKeyBinding {
			return errors.StructuralError("signing subkey is missing cross-signature")
		}
		// Verify the cross-signature. This is calculated over the same
		// data as the main signature, so we cannot just recursively
		// call signed.VerifyKeySignature(...)
		h, err = keySignatureHash(pk, signed, sig.EmbeddedSignature.Hash.New())
		if err != nil {
			return errors.StructuralError("error while hashing for cross-signature: " + err.Error())
		}
		if err := signed.VerifySignature(h, sig.EmbeddedSignature); err != nil {
			return errors.StructuralError("error while verifying cross-signature: " + err.Error())
		}
	}

	return nil
}

func keyRevocationHash(pk signingKey, hashFunc hash.Hash) (h hash.Hash, err error) {
	h = hashFunc

	// RFC 4880, section 5.2.4
	pk.SerializeSignaturePrefix(h)
	pk.serializeWithoutHeaders(h)
	return
}

// VerifyRevocationSignature returns nil iff sig is a valid signature, made
// by this public key.
func (pk *PublicKey) VerifyRevocationSignature(sig *Signature) (err error) {
	h, err := keyRevocationHash(pk, sig.Hash.New())
	if err != nil {
		return err
	}
	return pk.VerifySignature(h, sig)
}

// userIdSignatureHash returns a Hash of the message that needs to be signed
// to assert that pk is a valid key for id.
func userIdSignatureHash(id string, pk *PublicKey, hashFunc hash.Hash) (h hash.Hash, err error) {
	h = hashFunc

	// RFC 4880, section 5.2.4
	pk.SerializeSignaturePrefix(h)
	pk.serializeWithoutHeaders(h)

	var buf [5]byte
	buf[0] = 0xb4
	binary.BigEndian.PutUint32(buf[1:], uint32(len(id)))
	h.Write(buf[:])
	h.Write([]byte(id))

	return
}

// userAttributeSignatureHash returns a Hash of the message that needs to be
// signed to assert that pk is a valid key for the given user attribute.
func userAttributeSignatureHash(uat *UserAttribute, pk *PublicKey, hashFunc hash.Hash) (h hash.Hash, err error) {
	h = hashFunc

	pk.SerializeSignaturePrefix(h)
	pk.serializeWithoutHeaders(h)

	contents := new(bytesWriter)
	for _, sp := range uat.Contents {
		if err := sp.Serialize(contents); err != nil {
			return nil, err
		}
	}

	var buf [5]byte
	buf[0] = 0xd1
	binary.BigEndian.PutUint32(buf[1:], uint32(len(contents.buf)))
	h.Write(buf[:])
	h.Write(contents.buf)

	return
}

type bytesWriter struct {
	buf []byte
}

func (b *bytesWriter) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// VerifyUserIdSignature returns nil iff sig is a valid signature, made by
// this public key, that id is the identity of pub.
func (pk *PublicKey) VerifyUserIdSignature(id string, pub *PublicKey, sig *Signature) (err error) {
	h, err := userIdSignatureHash(id, pub, sig.Hash.New())
	if err != nil {
		return err
	}
	return pk.VerifySignature(h, sig)
}

// VerifyUserAttributeSignature returns nil iff sig is a valid signature,
// made by this public key, over the given user attribute.
func (pk *PublicKey) VerifyUserAttributeSignature(uat *UserAttribute, pub *PublicKey, sig *Signature) (err error) {
	h, err := userAttributeSignatureHash(uat, pub, sig.Hash.New())
	if err != nil {
		return err
	}
	return pk.VerifySignature(h, sig)
}

// KeyIdString returns the public key's fingerprint in capital hex
// (e.g. "6C7EE1B8621CC013").
func (pk *PublicKey) KeyIdString() string {
	return fmt.Sprintf("%X", pk.Fingerprint[12:20])
}

// KeyIdShortString returns the short form of public key's fingerprint
// in capital hex, as shown by gpg --list-keys (e.g. "621CC013").
func (pk *PublicKey) KeyIdShortString() string {
	return fmt.Sprintf("%X", pk.Fingerprint[16:20])
}

// BitLength returns the bit length for the given public key.
func (pk *PublicKey) BitLength() (bitLength uint16, err error) {
	switch pk.PubKeyAlgo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoRSASignOnly:
		bitLength = pk.n.BitLength()
	case PubKeyAlgoDSA:
		bitLength = pk.p.BitLength()
	case PubKeyAlgoElGamal, PubKeyAlgoElGamalBoth:
		bitLength = pk.p.BitLength()
	case PubKeyAlgoECDSA, PubKeyAlgoECDH, PubKeyAlgoEdDSA:
		bitLength = pk.p.BitLength()
	default:
		err = errors.InvalidArgumentError("bad public-key algorithm")
	}
	return
}

// padToKeySize left-pads a MPI with zeroes to match the length of the
// specified RSA public.
func padToKeySize(pub *rsa.PublicKey, b []byte) []byte {
	k := (pub.N.BitLen() + 7) / 8
	if len(b) >= k {
		return b
	}
	bb := make([]byte, k)
	copy(bb[len(bb)-len(b):], b)
	return bb
}

// signingKey provides a convenient abstraction over signature verification
// for v3 and v4 public keys.
type signingKey interface {
	SerializeSignaturePrefix(io.Writer)
	serializeWithoutHeaders(io.Writer) error
}
