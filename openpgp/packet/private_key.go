// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"bytes"
	"crypto"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha1"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/dignifiedquire/pgp/openpgp/ecdh"
	"github.com/dignifiedquire/pgp/openpgp/errors"
	"github.com/dignifiedquire/pgp/openpgp/internal/encoding"
	"github.com/dignifiedquire/pgp/openpgp/s2k"
)

// PrivateKey represents a possibly encrypted private key. See RFC 4880,
// section 5.5.3.
type PrivateKey struct {
	PublicKey
	Encrypted     bool // if true then the private key is unavailable until Decrypt has been called.
	encryptedData []byte
	cipher        CipherFunction
	s2kParams     *s2k.Params
	s2kUsage      uint8
	iv            []byte

	// s2k related flags
	sha1Checksum bool
	s2kType      S2KType

	PrivateKey interface{} // An *rsa.PrivateKey, *ecdh.PrivateKey or ed25519.PrivateKey.
}

// S2KType s2k usage type
type S2KType uint8

const (
	// S2KNON unencrypted
	S2KNON S2KType = 0
	// S2KSHA1 sha1 sum check
	S2KSHA1 S2KType = 254
	// S2KCHECKSUM sum check
	S2KCHECKSUM S2KType = 255
)

// NewRSAPrivateKey returns a PrivateKey that wraps the given rsa.PrivateKey.
func NewRSAPrivateKey(creationTime time.Time, priv *rsa.PrivateKey) *PrivateKey {
	pk := new(PrivateKey)
	pk.PublicKey = *NewRSAPublicKey(creationTime, &priv.PublicKey)
	pk.PrivateKey = priv
	return pk
}

// NewEdDSAPrivateKey returns a PrivateKey that wraps the given Ed25519
// private key.
func NewEdDSAPrivateKey(creationTime time.Time, priv ed25519.PrivateKey) *PrivateKey {
	pk := new(PrivateKey)
	pub := priv.Public().(ed25519.PublicKey)
	pk.PublicKey = *NewEdDSAPublicKey(creationTime, pub)
	pk.PrivateKey = priv
	return pk
}

// NewECDHPrivateKey returns a PrivateKey that wraps the given ecdh
// private key.
func NewECDHPrivateKey(creationTime time.Time, priv *ecdh.PrivateKey) *PrivateKey {
	pk := new(PrivateKey)
	pk.PublicKey = *NewECDHPublicKey(creationTime, &priv.PublicKey)
	pk.PrivateKey = priv
	return pk
}

func (pk *PrivateKey) parse(r io.Reader) (err error) {
	err = (&pk.PublicKey).parse(r)
	if err != nil {
		return
	}

	var buf [1]byte
	_, err = readFull(r, buf[:])
	if err != nil {
		return
	}
	pk.s2kUsage = buf[0]

	switch pk.s2kUsage {
	case uint8(S2KNON):
		pk.s2kType = S2KNON
		pk.Encrypted = false
	case uint8(S2KSHA1), uint8(S2KCHECKSUM):
		pk.s2kType = S2KType(pk.s2kUsage)
		_, err = readFull(r, buf[:])
		if err != nil {
			return
		}
		pk.cipher = CipherFunction(buf[0])
		pk.Encrypted = true
		pk.s2kParams, err = s2k.Parse(r)
		if err != nil {
			return
		}
		if pk.s2kUsage == uint8(S2KSHA1) {
			pk.sha1Checksum = true
		}
	default:
		// A bare symmetric algorithm id; the key material is encrypted
		// with a Simple MD5 S2K of the passphrase. See RFC 4880, section
		// 5.5.3.
		pk.s2kType = S2KCHECKSUM
		pk.cipher = CipherFunction(pk.s2kUsage)
		if pk.cipher.KeySize() == 0 {
			return errors.UnsupportedError("unsupported cipher in legacy S2K usage octet: " + strconv.Itoa(int(pk.s2kUsage)))
		}
		pk.Encrypted = true
		pk.s2kParams = &s2k.Params{Type: s2k.TypeSimple, Hash: crypto.MD5}
	}

	if pk.Encrypted {
		blockSize := pk.cipher.blockSize()
		if blockSize == 0 {
			return errors.UnsupportedError("unsupported cipher in S2K: " + strconv.Itoa(int(pk.cipher)))
		}
		pk.iv = make([]byte, blockSize)
		_, err = readFull(r, pk.iv)
		if err != nil {
			return
		}
	}

	pk.encryptedData, err = io.ReadAll(r)
	if err != nil {
		return
	}

	if !pk.Encrypted {
		return pk.parsePrivateKey(pk.encryptedData)
	}

	return
}

// Dummy returns true if the private key is a GNU dummy key, where the
// secret material is stored elsewhere (for example on a smartcard).
func (pk *PrivateKey) Dummy() bool {
	return pk.Encrypted && pk.s2kParams != nil && pk.s2kParams.Type == 101
}

func mod64kHash(d []byte) uint16 {
	var h uint16
	for _, b := range d {
		h += uint16(b)
	}
	return h
}

// Decrypt decrypts an encrypted private key using a passphrase. The
// plaintext key material buffer is zeroed before returning on every failure
// path.
func (pk *PrivateKey) Decrypt(passphrase []byte) error {
	if !pk.Encrypted {
		return nil
	}
	if pk.Dummy() {
		return errors.InvalidArgumentError("dummy key found")
	}

	key := make([]byte, pk.cipher.KeySize())
	if err := pk.s2kParams.Key(key, passphrase); err != nil {
		return err
	}
	block := pk.cipher.new(key)
	if block == nil {
		return errors.UnsupportedError("unsupported cipher: " + strconv.Itoa(int(pk.cipher)))
	}
	cfb := cipher.NewCFBDecrypter(block, pk.iv)

	data := make([]byte, len(pk.encryptedData))
	cfb.XORKeyStream(data, pk.encryptedData)

	if pk.sha1Checksum {
		if len(data) < sha1.Size {
			zeroSlice(data)
			return errors.StructuralError("truncated private key data")
		}
		h := sha1.New()
		h.Write(data[:len(data)-sha1.Size])
		sum := h.Sum(nil)
		if !bytes.Equal(sum, data[len(data)-sha1.Size:]) {
			zeroSlice(data)
			return errors.ErrInvalidChecksum
		}
		data = data[:len(data)-sha1.Size]
	} else {
		if len(data) < 2 {
			zeroSlice(data)
			return errors.StructuralError("truncated private key data")
		}
		var sum uint16
		for i := 0; i < len(data)-2; i++ {
			sum += uint16(data[i])
		}
		if data[len(data)-2] != uint8(sum>>8) ||
			data[len(data)-1] != uint8(sum) {
			zeroSlice(data)
			return errors.ErrInvalidChecksum
		}
		data = data[:len(data)-2]
	}

	err := pk.parsePrivateKey(data)
	if _, ok := err.(errors.UnsupportedError); ok {
		zeroSlice(data)
		return err
	}
	if err != nil {
		zeroSlice(data)
		return errors.StructuralError("private key checksum valid but material is invalid")
	}

	pk.Encrypted = false
	pk.encryptedData = nil
	return nil
}

// Unlock runs fn with the decrypted private key and re-locks afterwards: the
// plaintext representation is discarded when fn returns, on success and
// failure alike.
func (pk *PrivateKey) Unlock(passphrase []byte, fn func(*PrivateKey) error) error {
	if !pk.Encrypted {
		return fn(pk)
	}

	unlocked := *pk
	if err := unlocked.Decrypt(passphrase); err != nil {
		return err
	}
	defer unlocked.wipePrivateKey()
	return fn(&unlocked)
}

func (pk *PrivateKey) wipePrivateKey() {
	switch priv := pk.PrivateKey.(type) {
	case *rsa.PrivateKey:
		priv.D.SetInt64(0)
		for _, p := range priv.Primes {
			p.SetInt64(0)
		}
	case ed25519.PrivateKey:
		zeroSlice(priv)
	case *ecdh.PrivateKey:
		zeroSlice(priv.D)
	}
	pk.PrivateKey = nil
}

func zeroSlice(d []byte) {
	for i := range d {
		d[i] = 0
	}
}

// Serialize marshals the private key packet to w. For encrypted keys the
// stored ciphertext is re-emitted byte for byte.
func (pk *PrivateKey) Serialize(w io.Writer) (err error) {
	contents := bytes.NewBuffer(nil)
	err = pk.PublicKey.serializeWithoutHeaders(contents)
	if err != nil {
		return
	}
	if _, err = contents.Write([]byte{pk.s2kUsage}); err != nil {
		return
	}

	optional := bytes.NewBuffer(nil)
	if pk.Encrypted || pk.Dummy() {
		if pk.s2kUsage == uint8(S2KSHA1) || pk.s2kUsage == uint8(S2KCHECKSUM) {
			if _, err = optional.Write([]byte{uint8(pk.cipher)}); err != nil {
				return
			}
			if err = pk.serializeS2KParams(optional); err != nil {
				return
			}
		}
		if _, err = optional.Write(pk.iv); err != nil {
			return
		}
		if _, err = optional.Write(pk.encryptedData); err != nil {
			return
		}
	} else {
		privateKeyBuf := bytes.NewBuffer(nil)
		if err = pk.serializePrivateKey(privateKeyBuf); err != nil {
			return
		}
		priv := privateKeyBuf.Bytes()
		if _, err = optional.Write(priv); err != nil {
			return
		}
		checksum := mod64kHash(priv)
		if _, err = optional.Write([]byte{byte(checksum >> 8), byte(checksum)}); err != nil {
			return
		}
	}
	if _, err = io.Copy(contents, optional); err != nil {
		return
	}

	ptype := packetTypePrivateKey
	if pk.IsSubkey {
		ptype = packetTypePrivateSubkey
	}
	err = serializeHeader(w, ptype, contents.Len())
	if err != nil {
		return
	}
	_, err = io.Copy(w, contents)
	return
}

// serializeS2KParams re-emits the parsed S2K specifier.
func (pk *PrivateKey) serializeS2KParams(w io.Writer) error {
	params := pk.s2kParams
	if params.Type == s2k.TypeGNUDummy {
		if _, err := w.Write([]byte{uint8(params.Type), 0}); err != nil {
			return err
		}
		_, err := w.Write(params.Salt)
		return err
	}
	hashId, ok := s2k.HashToHashId(params.Hash)
	if !ok {
		return errors.UnsupportedError("no id for hash in S2K")
	}
	if _, err := w.Write([]byte{uint8(params.Type), hashId}); err != nil {
		return err
	}
	switch params.Type {
	case s2k.TypeSimple:
	case s2k.TypeSalted:
		if _, err := w.Write(params.Salt); err != nil {
			return err
		}
	case s2k.TypeIteratedSalted:
		if _, err := w.Write(params.Salt); err != nil {
			return err
		}
		if _, err := w.Write([]byte{params.CountByte}); err != nil {
			return err
		}
	default:
		return errors.UnsupportedError("S2K type in serialization")
	}
	return nil
}

// Encrypt locks the private key material under the given passphrase using
// an iterated and salted S2K with SHA-256 and AES-256 in CFB mode.
func (pk *PrivateKey) Encrypt(passphrase []byte, config *Config) error {
	if pk.Encrypted {
		return errors.InvalidArgumentError("private key is already encrypted")
	}
	priv := bytes.NewBuffer(nil)
	if err := pk.serializePrivateKey(priv); err != nil {
		return err
	}

	pk.cipher = CipherAES256
	key := make([]byte, pk.cipher.KeySize())

	s2kBuf := bytes.NewBuffer(nil)
	if err := s2k.Serialize(s2kBuf, key, config.Random(), passphrase, config.PasswordHashIterations()); err != nil {
		return err
	}
	spec := s2kBuf.Bytes()
	// Re-parse so the S2K round-trips through the stored params.
	params, err := s2k.Parse(bytes.NewReader(spec))
	if err != nil {
		return err
	}
	pk.s2kParams = params

	privateKeyBytes := priv.Bytes()
	h := sha1.New()
	h.Write(privateKeyBytes)
	privateKeyBytes = h.Sum(privateKeyBytes)

	block := pk.cipher.new(key)
	pk.iv = make([]byte, pk.cipher.blockSize())
	if _, err := io.ReadFull(config.Random(), pk.iv); err != nil {
		return err
	}
	cfb := cipher.NewCFBEncrypter(block, pk.iv)
	pk.encryptedData = make([]byte, len(privateKeyBytes))
	cfb.XORKeyStream(pk.encryptedData, privateKeyBytes)
	zeroSlice(privateKeyBytes)
	zeroSlice(key)

	pk.Encrypted = true
	pk.s2kUsage = uint8(S2KSHA1)
	pk.s2kType = S2KSHA1
	pk.sha1Checksum = true
	return nil
}

func (pk *PrivateKey) serializePrivateKey(w io.Writer) (err error) {
	switch priv := pk.PrivateKey.(type) {
	case *rsa.PrivateKey:
		err = serializeRSAPrivateKey(w, priv)
	case ed25519.PrivateKey:
		err = serializeEdDSAPrivateKey(w, priv)
	case *ecdh.PrivateKey:
		err = serializeECDHPrivateKey(w, priv)
	default:
		err = errors.InvalidArgumentError("unknown private key type")
	}
	return
}

func serializeRSAPrivateKey(w io.Writer, priv *rsa.PrivateKey) error {
	if _, err := w.Write(new(encoding.MPI).SetBig(priv.D).EncodedBytes()); err != nil {
		return err
	}
	if _, err := w.Write(new(encoding.MPI).SetBig(priv.Primes[0]).EncodedBytes()); err != nil {
		return err
	}
	if _, err := w.Write(new(encoding.MPI).SetBig(priv.Primes[1]).EncodedBytes()); err != nil {
		return err
	}
	// u = p^{-1} mod q, as stored by OpenPGP.
	u := new(big.Int).ModInverse(priv.Primes[0], priv.Primes[1])
	_, err := w.Write(new(encoding.MPI).SetBig(u).EncodedBytes())
	return err
}

func serializeEdDSAPrivateKey(w io.Writer, priv ed25519.PrivateKey) error {
	_, err := w.Write(encoding.NewMPI(priv.Seed()).EncodedBytes())
	return err
}

func serializeECDHPrivateKey(w io.Writer, priv *ecdh.PrivateKey) error {
	_, err := w.Write(encoding.NewMPI(priv.D).EncodedBytes())
	return err
}

// parsePrivateKey parses the algorithm specific secret key material.
func (pk *PrivateKey) parsePrivateKey(data []byte) (err error) {
	switch pk.PublicKey.PubKeyAlgo {
	case PubKeyAlgoRSA, PubKeyAlgoRSASignOnly, PubKeyAlgoRSAEncryptOnly:
		return pk.parseRSAPrivateKey(data)
	case PubKeyAlgoECDH:
		return pk.parseECDHPrivateKey(data)
	case PubKeyAlgoEdDSA:
		return pk.parseEdDSAPrivateKey(data)
	case PubKeyAlgoDSA, PubKeyAlgoElGamal, PubKeyAlgoElGamalBoth, PubKeyAlgoECDSA:
		return errors.UnsupportedError("secret key operations for algorithm " + strconv.Itoa(int(pk.PublicKey.PubKeyAlgo)))
	}
	panic("impossible")
}

func (pk *PrivateKey) parseRSAPrivateKey(data []byte) (err error) {
	rsaPub := pk.PublicKey.PublicKey.(*rsa.PublicKey)
	rsaPriv := new(rsa.PrivateKey)
	rsaPriv.PublicKey = *rsaPub

	buf := bytes.NewBuffer(data)
	d := new(encoding.MPI)
	if _, err := d.ReadFrom(buf); err != nil {
		return err
	}

	p := new(encoding.MPI)
	if _, err := p.ReadFrom(buf); err != nil {
		return err
	}

	q := new(encoding.MPI)
	if _, err := q.ReadFrom(buf); err != nil {
		return err
	}

	rsaPriv.D = new(big.Int).SetBytes(d.Bytes())
	rsaPriv.Primes = make([]*big.Int, 2)
	rsaPriv.Primes[0] = new(big.Int).SetBytes(p.Bytes())
	rsaPriv.Primes[1] = new(big.Int).SetBytes(q.Bytes())
	if err := rsaPriv.Validate(); err != nil {
		return errors.ErrKeyIncorrect
	}
	rsaPriv.Precompute()
	pk.PrivateKey = rsaPriv

	return nil
}

func (pk *PrivateKey) parseECDHPrivateKey(data []byte) (err error) {
	ecdhPub, ok := pk.PublicKey.PublicKey.(*ecdh.PublicKey)
	if !ok {
		return errors.UnsupportedError("ECDH secret key for unsupported curve")
	}

	buf := bytes.NewBuffer(data)
	d := new(encoding.MPI)
	if _, err := d.ReadFrom(buf); err != nil {
		return err
	}

	pk.PrivateKey = &ecdh.PrivateKey{
		PublicKey: *ecdhPub,
		D:         append([]byte(nil), d.Bytes()...),
	}
	return nil
}

func (pk *PrivateKey) parseEdDSAPrivateKey(data []byte) (err error) {
	eddsaPub, ok := pk.PublicKey.PublicKey.(ed25519.PublicKey)
	if !ok {
		return errors.UnsupportedError("EdDSA secret key for unsupported curve")
	}

	buf := bytes.NewBuffer(data)
	d := new(encoding.MPI)
	if _, err := d.ReadFrom(buf); err != nil {
		return err
	}

	if len(d.Bytes()) > ed25519.SeedSize {
		return errors.StructuralError("wrong EdDSA seed length")
	}
	seed := make([]byte, ed25519.SeedSize)
	copy(seed[ed25519.SeedSize-len(d.Bytes()):], d.Bytes())
	priv := ed25519.NewKeyFromSeed(seed)

	if !bytes.Equal(priv.Public().(ed25519.PublicKey), eddsaPub) {
		return errors.StructuralError("EdDSA secret key does not match public point")
	}
	pk.PrivateKey = priv
	return nil
}
