// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package armor

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dignifiedquire/pgp/openpgp/errors"
)

const helloWorldArmor = "-----BEGIN PGP PUBLIC KEY BLOCK-----\n" +
	"Version: GnuPG v1\n" +
	"\n" +
	"aGVsbG8gd29ybGQ=\n" +
	"-----END PGP PUBLIC KEY BLOCK-----\n"

func TestDecode(t *testing.T) {
	block, err := Decode(strings.NewReader(helloWorldArmor))
	require.NoError(t, err)

	assert.Equal(t, "PGP PUBLIC KEY BLOCK", block.Type)
	assert.Equal(t, BlockPublicKey, block.Kind)
	assert.Equal(t, map[string]string{"Version": "GnuPG v1"}, block.Header)

	body, err := io.ReadAll(block.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), body)
}

func TestDecodeCRLF(t *testing.T) {
	in := strings.ReplaceAll(helloWorldArmor, "\n", "\r\n")
	block, err := Decode(strings.NewReader(in))
	require.NoError(t, err)

	body, err := io.ReadAll(block.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), body)
}

func TestDecodeStreaming(t *testing.T) {
	block, err := Decode(strings.NewReader(helloWorldArmor))
	require.NoError(t, err)

	// The type and headers are available before the body has been read.
	assert.Equal(t, BlockPublicKey, block.Kind)
	assert.Equal(t, "GnuPG v1", block.Header["Version"])

	var chunks []string
	buf := make([]byte, 5)
	for {
		n, err := block.Body.Read(buf)
		if n > 0 {
			chunks = append(chunks, string(buf[:n]))
		}
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, "hello world", strings.Join(chunks, ""))
}

func TestDecodeMultipart(t *testing.T) {
	tests := []struct {
		armorType   string
		part, total int
	}{
		{"PGP MESSAGE, PART 3/14", 3, 14},
		{"PGP MESSAGE, PART 14", 14, 0},
	}

	for _, test := range tests {
		in := "-----BEGIN " + test.armorType + "-----\n\naGVsbG8=\n-----END " + test.armorType + "-----\n"
		block, err := Decode(strings.NewReader(in))
		require.NoError(t, err, test.armorType)
		assert.Equal(t, BlockMultipartMessage, block.Kind)
		part, total := block.MultipartPart()
		assert.Equal(t, test.part, part)
		assert.Equal(t, test.total, total)
	}
}

func TestDecodeOpenSSLTypes(t *testing.T) {
	tests := map[string]BlockType{
		"RSA PRIVATE KEY":     BlockPrivateKeyPKCS1,
		"EC PUBLIC KEY":       BlockPublicKeyPKCS1,
		"PRIVATE KEY":         BlockPrivateKeyPKCS8,
		"OPENSSH PRIVATE KEY": BlockPrivateKeyOpenSSH,
	}
	for typ, kind := range tests {
		in := "-----BEGIN " + typ + "-----\n\naGVsbG8=\n-----END " + typ + "-----\n"
		block, err := Decode(strings.NewReader(in))
		require.NoError(t, err, typ)
		assert.Equal(t, kind, block.Kind, typ)
	}
}

func TestDecodeChecksum(t *testing.T) {
	// crc24 of "hello world" is 0xb03cb7.
	withCRC := "-----BEGIN PGP MESSAGE-----\n\naGVsbG8gd29ybGQ=\n=sDy3\n-----END PGP MESSAGE-----\n"
	block, err := Decode(strings.NewReader(withCRC))
	require.NoError(t, err)
	body, err := io.ReadAll(block.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), body)

	corrupt := strings.Replace(withCRC, "=sDy3", "=AAAA", 1)
	block, err = Decode(strings.NewReader(corrupt))
	require.NoError(t, err)
	_, err = io.ReadAll(block.Body)
	assert.Equal(t, errors.ErrInvalidChecksum, err)
}

func TestFooterMismatch(t *testing.T) {
	in := "-----BEGIN PGP MESSAGE-----\n\naGVsbG8=\n-----END PGP SIGNATURE-----\n"
	block, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	_, err = io.ReadAll(block.Body)
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("hello world"),
		bytes.Repeat([]byte{0x00, 0xff, 0x42}, 500),
		{},
	}

	for _, payload := range payloads {
		var buf bytes.Buffer
		w, err := Encode(&buf, "PGP MESSAGE", map[string]string{"Comment": "test"})
		require.NoError(t, err)
		_, err = w.Write(payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		out := buf.String()
		assert.True(t, strings.HasPrefix(out, "-----BEGIN PGP MESSAGE-----\n"))
		assert.True(t, strings.HasSuffix(out, "-----END PGP MESSAGE-----\n"))

		block, err := Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, "test", block.Header["Comment"])
		body, err := io.ReadAll(block.Body)
		require.NoError(t, err)
		if len(payload) == 0 {
			assert.Empty(t, body)
		} else {
			assert.Equal(t, payload, body)
		}
	}
}

func TestCRC24(t *testing.T) {
	crc := crc24(crc24Init, []byte("hello world"))
	assert.Equal(t, uint32(0xb03cb7), crc&crc24Mask)
}
