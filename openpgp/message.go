// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package openpgp

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dignifiedquire/pgp/openpgp/armor"
	pgperrors "github.com/dignifiedquire/pgp/openpgp/errors"
	"github.com/dignifiedquire/pgp/openpgp/packet"
)

// MessageType is the armor type for a PGP message.
var MessageType = "PGP MESSAGE"

// A Message is a composed OpenPGP message: a literal, compressed, signed or
// encrypted composition of packets, nested per RFC 4880, section 11.3.
type Message interface {
	// Serialize writes the message packets to w.
	Serialize(w io.Writer) error

	isMessage()
}

// A LiteralMessage holds plain data.
type LiteralMessage struct {
	Literal *packet.LiteralData
	Data    []byte
}

// A CompressedMessage holds a compressed packet stream.
type CompressedMessage struct {
	Algo packet.CompressionAlgo
	// Data is the raw, compressed body.
	Data []byte
}

// A SignedMessage holds a signature and, unless detached, the nested message
// it signs.
type SignedMessage struct {
	Inner   Message // nil for a detached signature
	OnePass *packet.OnePassSignature
	Sig     *packet.Signature
}

// An EncryptedMessage holds encrypted session key packets and the encrypted
// data they decrypt.
type EncryptedMessage struct {
	ESK       []*packet.EncryptedKey
	SymESK    []*packet.SymmetricKeyEncrypted
	EData     []*packet.SymmetricallyEncrypted
	Protected bool
}

func (m *LiteralMessage) isMessage()    {}
func (m *CompressedMessage) isMessage() {}
func (m *SignedMessage) isMessage()     {}
func (m *EncryptedMessage) isMessage()  {}

// ReadArmoredMessage reads a single message from an armored stream.
func ReadArmoredMessage(r io.Reader) (Message, error) {
	block, err := armor.Decode(r)
	if err != nil {
		return nil, err
	}
	switch block.Kind {
	case armor.BlockMessage, armor.BlockMultipartMessage, armor.BlockFile, armor.BlockSignature:
	default:
		return nil, pgperrors.InvalidArgumentError("expected a message block, got: " + block.Type)
	}
	return ReadSingleMessage(block.Body)
}

// ReadSingleMessage reads exactly one message from the packet stream in r.
// It fails with ErrTooManyPackets or ErrNoMatchingPacket when the stream
// composes into any other number.
func ReadSingleMessage(r io.Reader) (Message, error) {
	msgs, err := ReadMessages(r)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 1 {
		return nil, pgperrors.ErrTooManyPackets
	}
	if len(msgs) == 0 {
		return nil, pgperrors.ErrNoMatchingPacket
	}
	return msgs[0], nil
}

// ReadMessages composes the flat packet stream in r into messages. See RFC
// 4880, section 11.3.
func ReadMessages(r io.Reader) ([]Message, error) {
	return readMessages(packet.NewReader(r))
}

// readMessages is a reducer over the packet stream with an explicit stack
// and one currently open composition.
func readMessages(packets *packet.Reader) ([]Message, error) {
	var stack []Message
	// index into stack of the currently open message, or -1
	cur := -1

	appendOrNest := func(m Message, nestable bool) error {
		if cur == -1 {
			stack = append(stack, m)
			return nil
		}
		signed, ok := stack[cur].(*SignedMessage)
		if !ok || !nestable {
			return pgperrors.StructuralError("unexpected packet in message")
		}
		if signed.Inner != nil {
			return pgperrors.StructuralError("signed message already has an inner message")
		}
		signed.Inner = m
		return nil
	}

	for {
		p, err := packets.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch pkt := p.(type) {
		case *packet.LiteralData:
			data, err := io.ReadAll(pkt.Body)
			if err != nil {
				return nil, errors.Wrap(err, "reading literal data")
			}
			if err := appendOrNest(&LiteralMessage{Literal: pkt, Data: data}, true); err != nil {
				return nil, err
			}
		case *packet.Compressed:
			data, err := io.ReadAll(pkt.Body)
			if err != nil {
				return nil, errors.Wrap(err, "reading compressed data")
			}
			if err := appendOrNest(&CompressedMessage{Algo: pkt.Algo, Data: data}, true); err != nil {
				return nil, err
			}
		case *packet.EncryptedKey:
			if cur != -1 {
				enc, ok := stack[cur].(*EncryptedMessage)
				if !ok {
					return nil, pgperrors.StructuralError("encrypted session key inside non-encrypted message")
				}
				if len(enc.EData) > 0 {
					return nil, pgperrors.StructuralError("edata should not be followed by esk")
				}
				enc.ESK = append(enc.ESK, pkt)
				continue
			}
			stack = append(stack, &EncryptedMessage{ESK: []*packet.EncryptedKey{pkt}})
			cur = len(stack) - 1
		case *packet.SymmetricKeyEncrypted:
			if cur != -1 {
				enc, ok := stack[cur].(*EncryptedMessage)
				if !ok {
					return nil, pgperrors.StructuralError("encrypted session key inside non-encrypted message")
				}
				if len(enc.EData) > 0 {
					return nil, pgperrors.StructuralError("edata should not be followed by esk")
				}
				enc.SymESK = append(enc.SymESK, pkt)
				continue
			}
			stack = append(stack, &EncryptedMessage{SymESK: []*packet.SymmetricKeyEncrypted{pkt}})
			cur = len(stack) - 1
		case *packet.SymmetricallyEncrypted:
			if err := pkt.Buffer(); err != nil {
				return nil, errors.Wrap(err, "buffering encrypted data")
			}
			if cur != -1 {
				switch open := stack[cur].(type) {
				case *EncryptedMessage:
					open.EData = append(open.EData, pkt)
					open.Protected = pkt.MDC
				case *SignedMessage:
					if open.Inner != nil {
						return nil, pgperrors.StructuralError("signed message already has an inner message")
					}
					open.Inner = &EncryptedMessage{
						EData:     []*packet.SymmetricallyEncrypted{pkt},
						Protected: pkt.MDC,
					}
				default:
					return nil, pgperrors.StructuralError("unexpected encrypted data packet")
				}
				continue
			}
			stack = append(stack, &EncryptedMessage{
				EData:     []*packet.SymmetricallyEncrypted{pkt},
				Protected: pkt.MDC,
			})
			cur = len(stack) - 1
		case *packet.OnePassSignature:
			stack = append(stack, &SignedMessage{OnePass: pkt})
			cur = len(stack) - 1
		case *packet.Signature:
			if cur != -1 {
				signed, ok := stack[cur].(*SignedMessage)
				if !ok {
					return nil, pgperrors.StructuralError("unexpected signature packet")
				}
				signed.Sig = pkt
				cur = -1
				continue
			}
			stack = append(stack, &SignedMessage{Sig: pkt})
		case *packet.Marker:
			// Marker packets are ignored. See RFC 4880, section 5.8.
		default:
			return nil, pgperrors.StructuralError("unexpected packet in message stream")
		}
	}

	return stack, nil
}

// Serialize writes the literal data packet.
func (m *LiteralMessage) Serialize(w io.Writer) error {
	pw, err := packet.SerializeLiteral(nopWriteCloser{w}, m.Literal.IsBinary, m.Literal.FileName, m.Literal.Time)
	if err != nil {
		return err
	}
	if _, err := pw.Write(m.Data); err != nil {
		return err
	}
	return pw.Close()
}

// Serialize re-emits the compressed packet with its raw body.
func (m *CompressedMessage) Serialize(w io.Writer) error {
	return packet.SerializeRawCompressed(w, m.Algo, m.Data)
}

// Serialize writes the one-pass signature, the nested message and the
// signature.
func (m *SignedMessage) Serialize(w io.Writer) error {
	if m.OnePass != nil {
		if err := m.OnePass.Serialize(w); err != nil {
			return err
		}
	}
	if m.Inner != nil {
		if err := m.Inner.Serialize(w); err != nil {
			return err
		}
	}
	if m.Sig != nil {
		if err := m.Sig.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Serialize writes the session key packets followed by the encrypted data
// packets.
func (m *EncryptedMessage) Serialize(w io.Writer) error {
	for _, esk := range m.ESK {
		if err := esk.Serialize(w); err != nil {
			return err
		}
	}
	for _, esk := range m.SymESK {
		if err := esk.Serialize(w); err != nil {
			return err
		}
	}
	for _, ed := range m.EData {
		if err := ed.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Literal returns the first literal in the message tree, descending through
// signed messages, or nil.
func Literal(m Message) *LiteralMessage {
	switch msg := m.(type) {
	case *LiteralMessage:
		return msg
	case *SignedMessage:
		if msg.Inner != nil {
			return Literal(msg.Inner)
		}
	}
	return nil
}

// Decrypt decrypts the message to the given keyring and returns the literal
// plaintext bytes. See RFC 4880, section 11.3 for how the decrypted packet
// stream is recomposed. The private keys in the keyring must have been
// decrypted beforehand, or passphrase is used to unlock the matching key for
// the duration of the call.
func (m *EncryptedMessage) Decrypt(keyring KeyRing, passphrase []byte, config *packet.Config) ([]byte, error) {
	// Find a public-key encrypted session key we can open.
	var matched []Key
	for _, esk := range m.ESK {
		for _, k := range keyring.KeysById(esk.KeyId) {
			if k.PrivateKey != nil {
				matched = append(matched, k)
			}
		}
	}
	if len(matched) == 0 {
		if len(m.SymESK) > 0 {
			return nil, pgperrors.UnsupportedError("SKESK decryption")
		}
		return nil, pgperrors.ErrMissingKey
	}

	var sessionKey []byte
	var cipherFunc packet.CipherFunction
	var lastErr error
	for _, esk := range m.ESK {
		for _, k := range matched {
			if esk.KeyId != k.PublicKey.KeyId {
				continue
			}
			err := k.PrivateKey.Unlock(passphrase, func(priv *packet.PrivateKey) error {
				if err := esk.Decrypt(priv, config); err != nil {
					return err
				}
				sessionKey = esk.Key
				cipherFunc = esk.CipherFunc
				return nil
			})
			if err != nil {
				lastErr = err
				continue
			}
			if sessionKey != nil {
				break
			}
		}
		if sessionKey != nil {
			break
		}
	}
	if sessionKey == nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, pgperrors.ErrMissingKey
	}

	return m.decryptEData(sessionKey, cipherFunc)
}

// decryptEData decrypts every encrypted data packet with the session key
// and recomposes the plaintext packet stream.
func (m *EncryptedMessage) decryptEData(key []byte, cipherFunc packet.CipherFunction) ([]byte, error) {
	if len(m.EData) == 0 {
		return nil, pgperrors.StructuralError("encrypted message without encrypted data")
	}

	var msgs []Message
	for _, ed := range m.EData {
		rc, err := ed.Decrypt(cipherFunc, key)
		if err != nil {
			return nil, err
		}
		plaintext, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		if err := rc.Close(); err != nil {
			// The MDC or the quick check did not validate.
			return nil, err
		}

		decrypted, err := ReadMessages(bytes.NewReader(plaintext))
		if err != nil {
			return nil, err
		}
		for _, msg := range decrypted {
			flat, err := flatten(msg)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, flat...)
		}
	}

	for _, msg := range msgs {
		if lit := Literal(msg); lit != nil {
			return lit.Data, nil
		}
	}
	return nil, pgperrors.StructuralError("no literal data found in decrypted message")
}

// flatten resolves compressed messages into their decompressed
// compositions. Nested encryption is rejected.
func flatten(m Message) ([]Message, error) {
	switch msg := m.(type) {
	case *CompressedMessage:
		logrus.WithField("algo", msg.Algo).Debug("openpgp: decompressing message")
		body, err := (&packet.Compressed{Algo: msg.Algo, Body: bytes.NewReader(msg.Data)}).Decompress()
		if err != nil {
			return nil, err
		}
		inner, err := ReadMessages(body)
		if err != nil {
			return nil, err
		}
		var out []Message
		for _, im := range inner {
			flat, err := flatten(im)
			if err != nil {
				return nil, err
			}
			out = append(out, flat...)
		}
		return out, nil
	case *EncryptedMessage:
		return nil, pgperrors.UnsupportedError("nested encryption")
	default:
		return []Message{m}, nil
	}
}

type nopWriteCloser struct {
	w io.Writer
}

func (c nopWriteCloser) Write(data []byte) (n int, err error) {
	return c.w.Write(data)
}

func (c nopWriteCloser) Close() error {
	return nil
}
