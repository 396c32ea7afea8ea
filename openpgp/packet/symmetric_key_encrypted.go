// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"io"
	"strconv"

	"github.com/dignifiedquire/pgp/openpgp/errors"
	"github.com/dignifiedquire/pgp/openpgp/s2k"
)

// SymmetricKeyEncrypted represents a passphrase protected session key. See
// RFC 4880, section 5.3. The packet is parsed and reserialized; deriving the
// session key from a passphrase is not supported.
type SymmetricKeyEncrypted struct {
	CipherFunc   CipherFunction
	s2kParams    *s2k.Params
	encryptedKey []byte
	rawBody      []byte
}

const symmetricKeyEncryptedVersion = 4

func (ske *SymmetricKeyEncrypted) parse(r io.Reader) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	// Keep the raw bytes so the packet serializes back byte for byte.
	ske.rawBody = body
	if len(body) < 2 {
		return errors.StructuralError("SymmetricKeyEncrypted packet too short")
	}
	if body[0] != symmetricKeyEncryptedVersion {
		return errors.UnsupportedError("unknown SymmetricKeyEncrypted version " + strconv.Itoa(int(body[0])))
	}
	ske.CipherFunc = CipherFunction(body[1])
	if ske.CipherFunc.KeySize() == 0 {
		return errors.UnsupportedError("unknown cipher: " + strconv.Itoa(int(body[1])))
	}
	rest := newByteReader(body[2:])
	ske.s2kParams, err = s2k.Parse(rest)
	if err != nil {
		return err
	}
	ske.encryptedKey = rest.rest()
	return nil
}

// Decrypt is declared for interface symmetry with EncryptedKey; deriving a
// session key from a passphrase is not implemented.
func (ske *SymmetricKeyEncrypted) Decrypt(passphrase []byte) ([]byte, CipherFunction, error) {
	return nil, 0, errors.UnsupportedError("SKESK decryption")
}

// Serialize re-emits the packet verbatim.
func (ske *SymmetricKeyEncrypted) Serialize(w io.Writer) error {
	if err := serializeHeader(w, packetTypeSymmetricKeyEncrypted, len(ske.rawBody)); err != nil {
		return err
	}
	_, err := w.Write(ske.rawBody)
	return err
}

// byteReader is an io.Reader over a slice that exposes the unread remainder.
type byteReader struct {
	buf []byte
	off int
}

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

func (b *byteReader) Read(p []byte) (int, error) {
	if b.off >= len(b.buf) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.off:])
	b.off += n
	return n, nil
}

func (b *byteReader) rest() []byte {
	return b.buf[b.off:]
}
