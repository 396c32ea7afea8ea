// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ecc provides information about the elliptic curves used by the
// other openpgp packages.
package ecc

import (
	"bytes"

	"github.com/dignifiedquire/pgp/openpgp/errors"
	"github.com/dignifiedquire/pgp/openpgp/internal/encoding"
)

// CurveInfo describes an elliptic curve and its DER encoded OID.
type CurveInfo struct {
	Name    string
	Alias   string
	BitSize int
	Oid     *encoding.OID
}

var Curves = []CurveInfo{
	{
		// Curve25519, only valid for ECDH
		Name:    "Curve25519",
		Alias:   "cv25519",
		BitSize: 255,
		Oid:     encoding.NewOID([]byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0x97, 0x55, 0x01, 0x05, 0x01}),
	},
	{
		// Ed25519, only valid for EdDSA
		Name:    "Ed25519",
		Alias:   "ed25519",
		BitSize: 255,
		Oid:     encoding.NewOID([]byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0xDA, 0x47, 0x0F, 0x01}),
	},
	{
		Name:    "NIST P-256",
		Alias:   "nistp256",
		BitSize: 256,
		Oid:     encoding.NewOID([]byte{0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x03, 0x01, 0x07}),
	},
	{
		Name:    "NIST P-384",
		Alias:   "nistp384",
		BitSize: 384,
		Oid:     encoding.NewOID([]byte{0x2B, 0x81, 0x04, 0x00, 0x22}),
	},
	{
		Name:    "NIST P-521",
		Alias:   "nistp521",
		BitSize: 521,
		Oid:     encoding.NewOID([]byte{0x2B, 0x81, 0x04, 0x00, 0x23}),
	},
	{
		Name:    "brainpoolP256r1",
		BitSize: 256,
		Oid:     encoding.NewOID([]byte{0x2B, 0x24, 0x03, 0x03, 0x02, 0x08, 0x01, 0x01, 0x07}),
	},
	{
		Name:    "brainpoolP384r1",
		BitSize: 384,
		Oid:     encoding.NewOID([]byte{0x2B, 0x24, 0x03, 0x03, 0x02, 0x08, 0x01, 0x01, 0x0B}),
	},
	{
		Name:    "brainpoolP512r1",
		BitSize: 512,
		Oid:     encoding.NewOID([]byte{0x2B, 0x24, 0x03, 0x03, 0x02, 0x08, 0x01, 0x01, 0x0D}),
	},
	{
		Name:    "secp256k1",
		BitSize: 256,
		Oid:     encoding.NewOID([]byte{0x2B, 0x81, 0x04, 0x00, 0x0A}),
	},
}

// FindByOid returns the curve info matching the given DER encoded OID.
func FindByOid(oid encoding.Field) (*CurveInfo, error) {
	for i := range Curves {
		if bytes.Equal(Curves[i].Oid.Bytes(), oid.Bytes()) {
			return &Curves[i], nil
		}
	}
	return nil, errors.UnsupportedError("unknown curve OID")
}

// FindByName returns the curve info with the given standard name.
func FindByName(name string) *CurveInfo {
	for i := range Curves {
		if Curves[i].Name == name {
			return &Curves[i]
		}
	}
	return nil
}

// Curve25519 reports whether the curve is Curve25519.
func (info *CurveInfo) Curve25519() bool {
	return info.Name == "Curve25519"
}

// Ed25519 reports whether the curve is Ed25519.
func (info *CurveInfo) Ed25519() bool {
	return info.Name == "Ed25519"
}
