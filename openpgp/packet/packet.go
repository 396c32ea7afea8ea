// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package packet implements parsing and serialization of OpenPGP packets, as
// specified in RFC 4880.
package packet

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"io"

	"golang.org/x/crypto/cast5"

	"github.com/dignifiedquire/pgp/openpgp/errors"
)

// readFull is the same as io.ReadFull except that reading zero bytes returns
// ErrUnexpectedEOF rather than EOF.
func readFull(r io.Reader, buf []byte) (n int, err error) {
	n, err = io.ReadFull(r, buf)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return
}

// readLength reads an OpenPGP length from r. See RFC 4880, section 4.2.2.
func readLength(r io.Reader) (length int64, isPartial bool, err error) {
	var buf [4]byte
	_, err = readFull(r, buf[:1])
	if err != nil {
		return
	}
	switch {
	case buf[0] < 192:
		length = int64(buf[0])
	case buf[0] < 224:
		length = int64(buf[0]-192) << 8
		_, err = readFull(r, buf[0:1])
		if err != nil {
			return
		}
		length += int64(buf[0]) + 192
	case buf[0] < 255:
		length = int64(1) << (buf[0] & 0x1f)
		isPartial = true
	default:
		_, err = readFull(r, buf[0:4])
		if err != nil {
			return
		}
		length = int64(buf[0])<<24 |
			int64(buf[1])<<16 |
			int64(buf[2])<<8 |
			int64(buf[3])
	}
	return
}

// partialLengthReader wraps an io.Reader and handles OpenPGP partial body
// lengths. Only the first length of a packet may be partial; fragments are
// concatenated in arrival order until a non-partial length closes the packet.
type partialLengthReader struct {
	r         io.Reader
	remaining int64
	isPartial bool
}

func (r *partialLengthReader) Read(p []byte) (n int, err error) {
	for r.remaining == 0 {
		if !r.isPartial {
			return 0, io.EOF
		}
		r.remaining, r.isPartial, err = readLength(r.r)
		if err != nil {
			return 0, err
		}
	}

	toRead := int64(len(p))
	if toRead > r.remaining {
		toRead = r.remaining
	}

	n, err = r.r.Read(p[:int(toRead)])
	r.remaining -= int64(n)
	if n < int(toRead) && err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return
}

// partialLengthWriter writes a stream of data using OpenPGP partial lengths.
// See RFC 4880, section 4.2.2.4.
type partialLengthWriter struct {
	w          io.WriteCloser
	buf        bytes.Buffer
	lengthByte [1]byte
}

const partialLengthMinChunk = 512

func (w *partialLengthWriter) Write(p []byte) (n int, err error) {
	bufLen := w.buf.Len()
	if bufLen > partialLengthMinChunk {
		// power of two chunk no larger than the buffered data
		chunkSize := 1 << 30
		for chunkSize > bufLen {
			chunkSize >>= 1
		}
		var power uint8
		for 1<<power < chunkSize {
			power++
		}
		w.lengthByte[0] = 224 + power
		if _, err = w.w.Write(w.lengthByte[:]); err != nil {
			return
		}
		if _, err = w.w.Write(w.buf.Next(chunkSize)); err != nil {
			return
		}
	}
	return w.buf.Write(p)
}

func (w *partialLengthWriter) Close() (err error) {
	// The last chunk is written with a fixed length header.
	data := w.buf.Bytes()
	if err = serializeLength(w.w, len(data)); err != nil {
		return err
	}
	if _, err = w.w.Write(data); err != nil {
		return err
	}
	return w.w.Close()
}

// A spanReader is an io.LimitReader, but it returns ErrUnexpectedEOF if the
// underlying Reader returns EOF before the limit has been reached.
type spanReader struct {
	r io.Reader
	n int64
}

func (l *spanReader) Read(p []byte) (n int, err error) {
	if l.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.n {
		p = p[0:l.n]
	}
	n, err = l.r.Read(p)
	l.n -= int64(n)
	if l.n > 0 && err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return
}

// readHeader parses a packet header and returns an io.Reader which will
// return the contents of the packet. See RFC 4880, section 4.2.
func readHeader(r io.Reader) (tag packetType, length int64, contents io.Reader, err error) {
	var buf [4]byte
	_, err = io.ReadFull(r, buf[:1])
	if err != nil {
		return
	}
	if buf[0]&0x80 == 0 {
		err = errors.StructuralError("tag byte does not have MSB set")
		return
	}
	if buf[0]&0x40 == 0 {
		// Old format packet
		tag = packetType((buf[0] & 0x3f) >> 2)
		lengthType := buf[0] & 3
		if lengthType == 3 {
			length = -1
			contents = r
			return
		}
		lengthBytes := 1 << lengthType
		_, err = readFull(r, buf[0:lengthBytes])
		if err != nil {
			return
		}
		for i := 0; i < lengthBytes; i++ {
			length <<= 8
			length |= int64(buf[i])
		}
		contents = &spanReader{r, length}
		return
	}

	// New format packet
	tag = packetType(buf[0] & 0x3f)
	var isPartial bool
	length, isPartial, err = readLength(r)
	if err != nil {
		return
	}
	if isPartial {
		contents = &partialLengthReader{
			remaining: length,
			isPartial: true,
			r:         r,
		}
		length = -1
	} else {
		contents = &spanReader{r, length}
	}
	return
}

// serializeLength writes a new format length to w, covering the given number
// of bytes.
func serializeLength(w io.Writer, length int) (err error) {
	var buf [5]byte
	var n int

	switch {
	case length < 192:
		buf[0] = byte(length)
		n = 1
	case length < 8384:
		length -= 192
		buf[0] = 192 + byte(length>>8)
		buf[1] = byte(length)
		n = 2
	default:
		buf[0] = 255
		buf[1] = byte(length >> 24)
		buf[2] = byte(length >> 16)
		buf[3] = byte(length >> 8)
		buf[4] = byte(length)
		n = 5
	}

	_, err = w.Write(buf[:n])
	return
}

// serializeHeader writes an OpenPGP packet header to w. See RFC 4880,
// section 4.2.
func serializeHeader(w io.Writer, ptype packetType, length int) (err error) {
	var buf [1]byte
	buf[0] = 0x80 | 0x40 | byte(ptype)
	_, err = w.Write(buf[:])
	if err != nil {
		return
	}
	return serializeLength(w, length)
}

// serializeStreamHeader writes an OpenPGP packet header to w where the
// length of the packet is unknown. It returns a writer which can be used to
// write the contents of the packet and must be closed.
func serializeStreamHeader(w io.WriteCloser, ptype packetType) (out io.WriteCloser, err error) {
	var buf [1]byte
	buf[0] = 0x80 | 0x40 | byte(ptype)
	_, err = w.Write(buf[:])
	if err != nil {
		return
	}
	out = &partialLengthWriter{w: w}
	return
}

// Packet represents an OpenPGP packet. Users are expected to type switch on
// the objects returned by this package.
type Packet interface {
	parse(io.Reader) error
}

// consumeAll reads from the given Reader until error, returning the number
// of bytes read.
func consumeAll(r io.Reader) (n int64, err error) {
	var m int
	var buf [1024]byte

	for {
		m, err = r.Read(buf[:])
		n += int64(m)
		if err == io.EOF {
			err = nil
			return
		}
		if err != nil {
			return
		}
	}
}

// packetType represents the numeric ids of the different OpenPGP packet
// types. See https://www.iana.org/assignments/pgp-parameters
type packetType uint8

const (
	packetTypeEncryptedKey              packetType = 1
	packetTypeSignature                 packetType = 2
	packetTypeSymmetricKeyEncrypted     packetType = 3
	packetTypeOnePassSignature          packetType = 4
	packetTypePrivateKey                packetType = 5
	packetTypePublicKey                 packetType = 6
	packetTypePrivateSubkey             packetType = 7
	packetTypeCompressed                packetType = 8
	packetTypeSymmetricallyEncrypted    packetType = 9
	packetTypeMarker                    packetType = 10
	packetTypeLiteralData               packetType = 11
	packetTypeTrust                     packetType = 12
	packetTypeUserId                    packetType = 13
	packetTypePublicSubkey              packetType = 14
	packetTypeUserAttribute             packetType = 17
	packetTypeSymmetricallyEncryptedMDC packetType = 18
	packetTypeModificationDetectionCode packetType = 19
)

// Read reads a single OpenPGP packet from the given io.Reader. If there is
// an error parsing a packet, the whole packet is consumed from the input.
func Read(r io.Reader) (p Packet, err error) {
	tag, _, contents, err := readHeader(r)
	if err != nil {
		return
	}

	switch tag {
	case packetTypeEncryptedKey:
		p = new(EncryptedKey)
	case packetTypeSignature:
		p = new(Signature)
	case packetTypeSymmetricKeyEncrypted:
		p = new(SymmetricKeyEncrypted)
	case packetTypeOnePassSignature:
		p = new(OnePassSignature)
	case packetTypePrivateKey, packetTypePrivateSubkey:
		pk := new(PrivateKey)
		if tag == packetTypePrivateSubkey {
			pk.IsSubkey = true
		}
		p = pk
	case packetTypePublicKey, packetTypePublicSubkey:
		isSubkey := tag == packetTypePublicSubkey
		p = &PublicKey{IsSubkey: isSubkey}
	case packetTypeCompressed:
		p = new(Compressed)
	case packetTypeSymmetricallyEncrypted:
		p = new(SymmetricallyEncrypted)
	case packetTypeMarker:
		p = new(Marker)
	case packetTypeLiteralData:
		p = new(LiteralData)
	case packetTypeTrust:
		p = new(Trust)
	case packetTypeUserId:
		p = new(UserId)
	case packetTypeUserAttribute:
		p = new(UserAttribute)
	case packetTypeSymmetricallyEncryptedMDC:
		se := new(SymmetricallyEncrypted)
		se.MDC = true
		p = se
	case packetTypeModificationDetectionCode:
		p = new(ModificationDetectionCode)
	default:
		err = errors.UnknownPacketTypeError(tag)
	}
	if p != nil {
		err = p.parse(contents)
	}
	if err != nil {
		consumeAll(contents)
	}
	return
}

// SignatureType represents the different semantic meanings of an OpenPGP
// signature. See RFC 4880, section 5.2.1.
type SignatureType uint8

const (
	SigTypeBinary            SignatureType = 0x00
	SigTypeText              SignatureType = 0x01
	SigTypeStandalone        SignatureType = 0x02
	SigTypeGenericCert       SignatureType = 0x10
	SigTypePersonaCert       SignatureType = 0x11
	SigTypeCasualCert        SignatureType = 0x12
	SigTypePositiveCert      SignatureType = 0x13
	SigTypeSubkeyBinding     SignatureType = 0x18
	SigTypePrimaryKeyBinding SignatureType = 0x19
	SigTypeDirectSignature   SignatureType = 0x1F
	SigTypeKeyRevocation     SignatureType = 0x20
	SigTypeSubkeyRevocation  SignatureType = 0x28
	SigTypeCertRevocation    SignatureType = 0x30
	SigTypeTimestamp         SignatureType = 0x40
	SigTypeThirdParty        SignatureType = 0x50
)

// PublicKeyAlgorithm represents the different public key system specified
// for OpenPGP. See https://www.iana.org/assignments/pgp-parameters
type PublicKeyAlgorithm uint8

const (
	PubKeyAlgoRSA            PublicKeyAlgorithm = 1
	PubKeyAlgoRSAEncryptOnly PublicKeyAlgorithm = 2
	PubKeyAlgoRSASignOnly    PublicKeyAlgorithm = 3
	PubKeyAlgoElGamal        PublicKeyAlgorithm = 16
	PubKeyAlgoDSA            PublicKeyAlgorithm = 17
	PubKeyAlgoECDH           PublicKeyAlgorithm = 18
	PubKeyAlgoECDSA          PublicKeyAlgorithm = 19
	PubKeyAlgoElGamalBoth    PublicKeyAlgorithm = 20
	PubKeyAlgoEdDSA          PublicKeyAlgorithm = 22
)

// CanEncrypt returns true if it's possible to encrypt a message to a public
// key of the given type.
func (pka PublicKeyAlgorithm) CanEncrypt() bool {
	switch pka {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoElGamal, PubKeyAlgoElGamalBoth, PubKeyAlgoECDH:
		return true
	}
	return false
}

// CanSign returns true if it's possible for a public key of the given type
// to sign a message.
func (pka PublicKeyAlgorithm) CanSign() bool {
	switch pka {
	case PubKeyAlgoRSA, PubKeyAlgoRSASignOnly, PubKeyAlgoDSA, PubKeyAlgoECDSA, PubKeyAlgoEdDSA:
		return true
	}
	return false
}

// CipherFunction represents the different block ciphers specified for
// OpenPGP. See https://www.iana.org/assignments/pgp-parameters
type CipherFunction uint8

const (
	CipherPlaintext CipherFunction = 0
	CipherIDEA      CipherFunction = 1
	Cipher3DES      CipherFunction = 2
	CipherCAST5     CipherFunction = 3
	CipherBlowfish  CipherFunction = 4
	CipherAES128    CipherFunction = 7
	CipherAES192    CipherFunction = 8
	CipherAES256    CipherFunction = 9
	CipherTwofish   CipherFunction = 10
)

// KeySize returns the key size, in bytes, of cipher.
func (cipher CipherFunction) KeySize() int {
	switch cipher {
	case CipherIDEA, CipherCAST5, CipherBlowfish, CipherAES128:
		return 16
	case Cipher3DES, CipherAES192:
		return 24
	case CipherAES256, CipherTwofish:
		return 32
	}
	return 0
}

// blockSize returns the block size, in bytes, of cipher.
func (cipher CipherFunction) blockSize() int {
	switch cipher {
	case CipherIDEA, Cipher3DES, CipherCAST5, CipherBlowfish:
		return 8
	case CipherAES128, CipherAES192, CipherAES256, CipherTwofish:
		return 16
	}
	return 0
}

// new returns a fresh instance of the given cipher.
func (cipher CipherFunction) new(key []byte) (block cipher.Block) {
	switch cipher {
	case Cipher3DES:
		block, _ = des.NewTripleDESCipher(key)
	case CipherCAST5:
		block, _ = cast5.NewCipher(key)
	case CipherAES128, CipherAES192, CipherAES256:
		block, _ = aes.NewCipher(key)
	}
	return
}

// IsSupported reports whether the library can instantiate the cipher.
func (cipher CipherFunction) IsSupported() bool {
	return cipher.new(make([]byte, cipher.KeySize())) != nil
}

// CompressionAlgo represents the different compression algorithms specified
// for OpenPGP. See https://www.iana.org/assignments/pgp-parameters
type CompressionAlgo uint8

const (
	CompressionNone  CompressionAlgo = 0
	CompressionZIP   CompressionAlgo = 1
	CompressionZLIB  CompressionAlgo = 2
	CompressionBZip2 CompressionAlgo = 3
)
