// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package openpgp implements high level operations on OpenPGP messages and
// transferable keys, as specified in RFC 4880.
package openpgp

import (
	"io"
	"time"

	goerrors "errors"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dignifiedquire/pgp/openpgp/armor"
	pgperrors "github.com/dignifiedquire/pgp/openpgp/errors"
	"github.com/dignifiedquire/pgp/openpgp/packet"
)

// PublicKeyType is the armor type for a PGP public key.
var PublicKeyType = "PGP PUBLIC KEY BLOCK"

// PrivateKeyType is the armor type for a PGP private key.
var PrivateKeyType = "PGP PRIVATE KEY BLOCK"

// An Entity represents the components of an OpenPGP key: a primary public
// key (which must be a signing key), one or more identities claimed by that
// key, and zero or more subkeys, which may be encryption keys. This is the
// transferable key format of RFC 4880, section 11.1 and 11.2.
type Entity struct {
	PrimaryKey       *packet.PublicKey
	PrivateKey       *packet.PrivateKey // nil if the entity holds only public material
	Identities       []*Identity        // in order of appearance in the packet stream
	Revocations      []*packet.Signature
	DirectSignatures []*packet.Signature
	Attributes       []*Attribute
	Subkeys          []Subkey
}

// An Identity represents an identity claimed by an Entity and zero or more
// assertions by other entities about that claim.
type Identity struct {
	Name          string // by convention, has the form "Full Name (comment) <email@example.com>"
	UserId        *packet.UserId
	SelfSignature *packet.Signature
	Signatures    []*packet.Signature
}

// An Attribute represents a user attribute packet together with its
// certification signatures.
type Attribute struct {
	Attribute  *packet.UserAttribute
	Signatures []*packet.Signature
}

// A Subkey is an additional public key in an Entity. Subkeys can be used for
// encryption.
type Subkey struct {
	PublicKey  *packet.PublicKey
	PrivateKey *packet.PrivateKey
	Sig        *packet.Signature // the binding signature, if any
	Signatures []*packet.Signature
}

// A Key identifies a specific public key in an Entity. This is either the
// Entity's primary key or a subkey.
type Key struct {
	Entity        *Entity
	PublicKey     *packet.PublicKey
	PrivateKey    *packet.PrivateKey
	SelfSignature *packet.Signature
}

// A KeyRing provides access to public and private keys.
type KeyRing interface {
	// KeysById returns the set of keys that have the given key id.
	KeysById(id uint64) []Key
	// DecryptionKeys returns all private keys that are valid for
	// decryption.
	DecryptionKeys() []Key
}

// An EntityList contains one or more Entities.
type EntityList []*Entity

// KeysById returns the set of keys that have the given key id.
func (el EntityList) KeysById(id uint64) (keys []Key) {
	for _, e := range el {
		if e.PrimaryKey.KeyId == id {
			var selfSig *packet.Signature
			if i := e.PrimaryIdentity(); i != nil {
				selfSig = i.SelfSignature
			}
			keys = append(keys, Key{e, e.PrimaryKey, e.PrivateKey, selfSig})
		}

		for i := range e.Subkeys {
			subKey := &e.Subkeys[i]
			if subKey.PublicKey.KeyId == id {
				keys = append(keys, Key{e, subKey.PublicKey, subKey.PrivateKey, subKey.Sig})
			}
		}
	}
	return
}

// DecryptionKeys returns all private keys that are valid for decryption.
func (el EntityList) DecryptionKeys() (keys []Key) {
	for _, e := range el {
		for i := range e.Subkeys {
			subKey := &e.Subkeys[i]
			if subKey.PrivateKey != nil && (subKey.Sig == nil || subKey.Sig.FlagsValid && (subKey.Sig.FlagEncryptStorage || subKey.Sig.FlagEncryptCommunications)) {
				keys = append(keys, Key{e, subKey.PublicKey, subKey.PrivateKey, subKey.Sig})
			}
		}
		if e.PrivateKey != nil && e.PrimaryKey.PubKeyAlgo.CanEncrypt() {
			var selfSig *packet.Signature
			if i := e.PrimaryIdentity(); i != nil {
				selfSig = i.SelfSignature
			}
			keys = append(keys, Key{e, e.PrimaryKey, e.PrivateKey, selfSig})
		}
	}
	return
}

// PrimaryIdentity returns the Identity marked as primary or the first
// identity if none are so marked.
func (e *Entity) PrimaryIdentity() *Identity {
	if len(e.Identities) == 0 {
		return nil
	}
	for _, ident := range e.Identities {
		if ident.SelfSignature != nil && ident.SelfSignature.IsPrimaryId != nil && *ident.SelfSignature.IsPrimaryId {
			return ident
		}
	}
	return e.Identities[0]
}

// EncryptionKey returns the best candidate Key for encrypting a message to
// the given Entity.
func (e *Entity) EncryptionKey(now time.Time) (Key, bool) {
	// Iterate the subkeys to find the newest one whose unexpired binding
	// signature allows encryption. Revocations are not consulted.
	candidateSubkey := -1
	var maxTime time.Time
	for i, subkey := range e.Subkeys {
		if subkey.Sig != nil &&
			subkey.Sig.FlagsValid &&
			subkey.Sig.FlagEncryptCommunications &&
			subkey.PublicKey.PubKeyAlgo.CanEncrypt() &&
			!subkey.Sig.SigExpired(now) &&
			(maxTime.IsZero() || subkey.Sig.CreationTime.After(maxTime)) {
			candidateSubkey = i
			maxTime = subkey.Sig.CreationTime
		}
	}

	if candidateSubkey != -1 {
		subkey := &e.Subkeys[candidateSubkey]
		return Key{e, subkey.PublicKey, subkey.PrivateKey, subkey.Sig}, true
	}

	// If we don't have any candidate subkeys for encryption and the
	// primary key doesn't have any usage metadata then we assume that the
	// primary key is ok. Or, if the primary key is marked as ok to
	// encrypt with, then we can obviously use it.
	i := e.PrimaryIdentity()
	if i != nil && (i.SelfSignature == nil || !i.SelfSignature.FlagsValid || i.SelfSignature.FlagEncryptCommunications) &&
		e.PrimaryKey.PubKeyAlgo.CanEncrypt() {
		return Key{e, e.PrimaryKey, e.PrivateKey, i.SelfSignature}, true
	}

	return Key{}, false
}

// SigningKey return the best candidate Key for signing a message with this
// Entity.
func (e *Entity) SigningKey(now time.Time) (Key, bool) {
	candidateSubkey := -1
	var maxTime time.Time
	for i, subkey := range e.Subkeys {
		if subkey.Sig != nil &&
			subkey.Sig.FlagsValid &&
			subkey.Sig.FlagSign &&
			subkey.PublicKey.PubKeyAlgo.CanSign() &&
			!subkey.Sig.SigExpired(now) &&
			subkey.PrivateKey != nil &&
			(maxTime.IsZero() || subkey.Sig.CreationTime.After(maxTime)) {
			candidateSubkey = i
			maxTime = subkey.Sig.CreationTime
		}
	}

	if candidateSubkey != -1 {
		subkey := &e.Subkeys[candidateSubkey]
		return Key{e, subkey.PublicKey, subkey.PrivateKey, subkey.Sig}, true
	}

	// If we have no candidate subkey then we assume that it's ok to sign
	// with the primary key.
	i := e.PrimaryIdentity()
	if i != nil && (i.SelfSignature == nil || !i.SelfSignature.FlagsValid || i.SelfSignature.FlagSign) &&
		e.PrimaryKey.PubKeyAlgo.CanSign() {
		return Key{e, e.PrimaryKey, e.PrivateKey, i.SelfSignature}, true
	}

	return Key{}, false
}

// ReadArmoredKeyRing reads one or more public/private keys from an armor
// keyring file.
func ReadArmoredKeyRing(r io.Reader) (EntityList, error) {
	block, err := armor.Decode(r)
	if err == io.EOF {
		return nil, pgperrors.InvalidArgumentError("no armored data found")
	}
	if err != nil {
		return nil, err
	}
	if block.Type != PublicKeyType && block.Type != PrivateKeyType {
		return nil, pgperrors.InvalidArgumentError("expected public or private key block, got: " + block.Type)
	}

	return ReadKeyRing(block.Body)
}

// ReadKeyRing reads one or more public/private keys. Unsupported keys are
// ignored as long as at least a single valid key is found.
func ReadKeyRing(r io.Reader) (el EntityList, err error) {
	packets := packet.NewReader(r)
	var lastUnsupportedError error

	for {
		var e *Entity
		e, err = ReadEntity(packets)
		if err != nil {
			// `UnsupportedError` and `StructuralError` skip ahead to the
			// start of the next key, on any read. All other errors are
			// fatal.
			if _, ok := err.(pgperrors.UnsupportedError); ok {
				lastUnsupportedError = err
				err = readToNextPublicKey(packets)
			} else if _, ok := err.(pgperrors.StructuralError); ok {
				lastUnsupportedError = err
				err = readToNextPublicKey(packets)
			}
			if err == io.EOF {
				err = nil
				break
			}
			if err != nil {
				el = nil
				break
			}
		} else {
			el = append(el, e)
		}
	}

	if len(el) == 0 && err == nil {
		err = lastUnsupportedError
		if err == nil {
			err = pgperrors.ErrNoMatchingPacket
		}
	}
	return
}

// readToNextPublicKey reads packets until the start of the entity and leaves
// the first packet of the new entity in the Reader.
func readToNextPublicKey(packets *packet.Reader) (err error) {
	var p packet.Packet
	for {
		p, err = packets.Next()
		if err == io.EOF {
			return
		} else if err != nil {
			if _, ok := err.(pgperrors.UnsupportedError); ok {
				err = nil
				continue
			}
			return
		}

		if pk, ok := p.(*packet.PublicKey); ok && !pk.IsSubkey {
			packets.Unread(p)
			return
		}
	}
}

// ReadEntity reads an entity (public key, identities, subkeys etc) from the
// given Reader. See RFC 4880, section 11.1 and 11.2.
func ReadEntity(packets *packet.Reader) (*Entity, error) {
	e := new(Entity)

	p, err := packets.Next()
	if err != nil {
		return nil, err
	}

	var ok bool
	if e.PrimaryKey, ok = p.(*packet.PublicKey); !ok {
		if e.PrivateKey, ok = p.(*packet.PrivateKey); !ok {
			packets.Unread(p)
			return nil, pgperrors.StructuralError("first packet was not a public/private key")
		}
		e.PrimaryKey = &e.PrivateKey.PublicKey
	}
	if e.PrimaryKey.IsSubkey {
		packets.Unread(p)
		return nil, pgperrors.StructuralError("first packet was a subkey")
	}
	isSecret := e.PrivateKey != nil

	if !e.PrimaryKey.PubKeyAlgo.CanSign() {
		return nil, pgperrors.StructuralError("primary key cannot be used for signatures")
	}

	// Zero or more revocation signatures, followed by zero or more direct
	// signatures.
	for {
		p, err := packets.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		sig, ok := p.(*packet.Signature)
		if !ok {
			packets.Unread(p)
			break
		}
		if sig.SigType == packet.SigTypeKeyRevocation {
			e.Revocations = append(e.Revocations, sig)
			continue
		}
		if e.PrimaryKey.Version < 4 {
			logrus.WithField("type", sig.SigType).
				Warn("openpgp: unexpected direct signature on v2/v3 key")
		}
		e.DirectSignatures = append(e.DirectSignatures, sig)
	}

	// Zero or more user id and user attribute packets, each followed by
	// their signatures.
	for {
		p, err := packets.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		switch pkt := p.(type) {
		case *packet.UserId:
			ident := &Identity{Name: pkt.Id, UserId: pkt}
			if err := readSignatures(packets, e, ident, nil); err != nil {
				return nil, err
			}
			if len(ident.Signatures) == 0 {
				logrus.WithField("uid", pkt.Id).Warn("openpgp: dropping unsigned user id")
				continue
			}
			e.Identities = append(e.Identities, ident)
		case *packet.UserAttribute:
			attr := &Attribute{Attribute: pkt}
			if err := readSignatures(packets, e, nil, attr); err != nil {
				return nil, err
			}
			if len(attr.Signatures) == 0 {
				logrus.Warn("openpgp: dropping unsigned user attribute")
				continue
			}
			e.Attributes = append(e.Attributes, attr)
		default:
			packets.Unread(p)
			goto EndOfUsers
		}
	}
EndOfUsers:

	if len(e.Identities) == 0 {
		return nil, pgperrors.StructuralError("entity without any identities")
	}

	// Zero or more subkey packets, each followed by their signatures.
	for {
		p, err := packets.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		switch pkt := p.(type) {
		case *packet.PublicKey:
			if !pkt.IsSubkey {
				packets.Unread(p)
				goto EndOfEntity
			}
			if isSecret {
				return nil, pgperrors.StructuralError("public subkey in private key ring")
			}
			if err = addSubkey(e, packets, pkt, nil); err != nil {
				return nil, err
			}
		case *packet.PrivateKey:
			if !pkt.IsSubkey {
				packets.Unread(p)
				goto EndOfEntity
			}
			if !isSecret {
				return nil, pgperrors.StructuralError("private subkey in public key ring")
			}
			if err = addSubkey(e, packets, &pkt.PublicKey, pkt); err != nil {
				return nil, err
			}
		default:
			packets.Unread(p)
			goto EndOfEntity
		}

		if e.PrimaryKey.Version < 4 {
			return nil, pgperrors.StructuralError("v2/v3 keys cannot have subkeys")
		}
	}
EndOfEntity:

	return e, nil
}

// readSignatures collects the signatures following a user id or attribute
// packet, recording the most recent self signature.
func readSignatures(packets *packet.Reader, e *Entity, ident *Identity, attr *Attribute) error {
	for {
		p, err := packets.Next()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "reading user signatures")
		}
		sig, ok := p.(*packet.Signature)
		if !ok {
			packets.Unread(p)
			return nil
		}

		isSelfSig := sig.IssuerKeyId != nil && *sig.IssuerKeyId == e.PrimaryKey.KeyId &&
			(sig.SigType == packet.SigTypePositiveCert || sig.SigType == packet.SigTypeGenericCert ||
				sig.SigType == packet.SigTypeCasualCert || sig.SigType == packet.SigTypePersonaCert)

		if ident != nil {
			if isSelfSig && (ident.SelfSignature == nil || sig.CreationTime.After(ident.SelfSignature.CreationTime)) {
				ident.SelfSignature = sig
			}
			ident.Signatures = append(ident.Signatures, sig)
		}
		if attr != nil {
			attr.Signatures = append(attr.Signatures, sig)
		}
	}
}

// addSubkey collects the subkey and its following signatures.
func addSubkey(e *Entity, packets *packet.Reader, pub *packet.PublicKey, priv *packet.PrivateKey) error {
	var subKey Subkey
	subKey.PublicKey = pub
	subKey.PrivateKey = priv

	for {
		p, err := packets.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "reading subkey signatures")
		}

		sig, ok := p.(*packet.Signature)
		if !ok {
			packets.Unread(p)
			break
		}

		if sig.SigType != packet.SigTypeSubkeyBinding && sig.SigType != packet.SigTypeSubkeyRevocation {
			logrus.WithField("type", sig.SigType).Warn("openpgp: unexpected signature type on subkey")
			subKey.Signatures = append(subKey.Signatures, sig)
			continue
		}

		if sig.SigType == packet.SigTypeSubkeyBinding &&
			(subKey.Sig == nil || sig.CreationTime.After(subKey.Sig.CreationTime)) {
			subKey.Sig = sig
		}
		subKey.Signatures = append(subKey.Signatures, sig)
	}

	if len(subKey.Signatures) == 0 {
		// Retained, matching what keyservers hand out; strict callers can
		// reject afterwards.
		logrus.WithField("keyid", pub.KeyIdString()).Warn("openpgp: subkey without signatures")
	}

	e.Subkeys = append(e.Subkeys, subKey)
	return nil
}

// Verify checks, against the primary key, every key revocation and direct
// signature, the most recent self signature of each identity, every
// attribute signature issued by the primary key and the most recent binding
// signature of each subkey. Signing subkey bindings must carry a valid
// cross-signature.
func (e *Entity) Verify() error {
	for _, sig := range e.Revocations {
		if err := e.PrimaryKey.VerifyRevocationSignature(sig); err != nil {
			return err
		}
	}
	for _, sig := range e.DirectSignatures {
		if err := e.PrimaryKey.VerifyRevocationSignature(sig); err != nil {
			return err
		}
	}
	for _, ident := range e.Identities {
		if ident.SelfSignature == nil {
			continue
		}
		if err := e.PrimaryKey.VerifyUserIdSignature(ident.Name, e.PrimaryKey, ident.SelfSignature); err != nil {
			return err
		}
	}
	for _, attr := range e.Attributes {
		for _, sig := range attr.Signatures {
			if sig.IssuerKeyId == nil || *sig.IssuerKeyId != e.PrimaryKey.KeyId {
				continue
			}
			if err := e.PrimaryKey.VerifyUserAttributeSignature(attr.Attribute, e.PrimaryKey, sig); err != nil {
				return err
			}
		}
	}
	for i := range e.Subkeys {
		sub := &e.Subkeys[i]
		if sub.Sig == nil {
			continue
		}
		if sub.Sig.IssuerKeyId != nil && *sub.Sig.IssuerKeyId != e.PrimaryKey.KeyId {
			return pgperrors.StructuralError("subkey binding issuer does not match primary key")
		}
		if err := e.PrimaryKey.VerifyKeySignature(sub.PublicKey, sub.Sig); err != nil {
			return err
		}
	}
	return nil
}

// Serialize writes the public part of the given Entity to w, including
// signatures from other entities. No private key material is output.
func (e *Entity) Serialize(w io.Writer) error {
	err := e.PrimaryKey.Serialize(w)
	if err != nil {
		return err
	}
	if err := e.serializeDetails(w); err != nil {
		return err
	}
	for i := range e.Subkeys {
		sub := &e.Subkeys[i]
		err = sub.PublicKey.Serialize(w)
		if err != nil {
			return err
		}
		for _, sig := range sub.Signatures {
			err = sig.Serialize(w)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// SerializePrivate serializes an Entity, including private key material, to
// the given Writer. For now, it must only be used on an Entity returned
// from NewEntity.
// If config is nil, sensible defaults will be used.
func (e *Entity) SerializePrivate(w io.Writer, config *packet.Config) (err error) {
	if e.PrivateKey == nil {
		return goerrors.New("openpgp: entity has no private key")
	}
	err = e.PrivateKey.Serialize(w)
	if err != nil {
		return
	}
	if err = e.serializeDetails(w); err != nil {
		return
	}
	for i := range e.Subkeys {
		sub := &e.Subkeys[i]
		if sub.PrivateKey == nil {
			return goerrors.New("openpgp: subkey has no private key")
		}
		err = sub.PrivateKey.Serialize(w)
		if err != nil {
			return
		}
		for _, sig := range sub.Signatures {
			err = sig.Serialize(w)
			if err != nil {
				return
			}
		}
	}
	return nil
}

// serializeDetails writes the revocations, direct signatures, identities
// and attributes, preserving packet stream order.
func (e *Entity) serializeDetails(w io.Writer) error {
	for _, sig := range e.Revocations {
		if err := sig.Serialize(w); err != nil {
			return err
		}
	}
	for _, sig := range e.DirectSignatures {
		if err := sig.Serialize(w); err != nil {
			return err
		}
	}
	for _, ident := range e.Identities {
		if err := ident.UserId.Serialize(w); err != nil {
			return err
		}
		for _, sig := range ident.Signatures {
			if err := sig.Serialize(w); err != nil {
				return err
			}
		}
	}
	for _, attr := range e.Attributes {
		if err := attr.Attribute.Serialize(w); err != nil {
			return err
		}
		for _, sig := range attr.Signatures {
			if err := sig.Serialize(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// SerializeArmored writes the armored public part of the entity to w.
func (e *Entity) SerializeArmored(w io.Writer, headers map[string]string) error {
	aw, err := armor.Encode(w, PublicKeyType, headers)
	if err != nil {
		return err
	}
	if err := e.Serialize(aw); err != nil {
		return err
	}
	return aw.Close()
}

// DecryptPrivateKeys decrypts the primary private key and all subkey
// private keys with the given passphrase.
func (e *Entity) DecryptPrivateKeys(passphrase []byte) error {
	if e.PrivateKey == nil {
		return errNoPrivateKey
	}
	if err := e.PrivateKey.Decrypt(passphrase); err != nil {
		return err
	}
	for i := range e.Subkeys {
		sub := &e.Subkeys[i]
		if sub.PrivateKey == nil {
			continue
		}
		if err := sub.PrivateKey.Decrypt(passphrase); err != nil {
			return err
		}
	}
	return nil
}

var errNoPrivateKey = pgperrors.InvalidArgumentError("entity has no private key")
