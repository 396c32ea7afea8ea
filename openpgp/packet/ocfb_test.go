// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOCFB(t *testing.T, resync OCFBResyncOption) {
	block, err := aes.NewCipher(testKey16)
	require.NoError(t, err)

	plaintext := []byte("this is the plaintext, which is long enough to span several blocks.")
	randData := make([]byte, block.BlockSize())
	rand.Reader.Read(randData)
	ocfb, prefix := NewOCFBEncrypter(block, randData, resync)
	ciphertext := make([]byte, len(plaintext))
	ocfb.XORKeyStream(ciphertext, plaintext)

	ocfbdecrypt := NewOCFBDecrypter(block, prefix, resync)
	require.NotNil(t, ocfbdecrypt)
	ocfbdecrypt.XORKeyStream(ciphertext, ciphertext)
	assert.Equal(t, plaintext, ciphertext)
}

var testKey16 = []byte("keykeykeykeykeyk")

func TestOCFBResync(t *testing.T) {
	testOCFB(t, OCFBResync)
}

func TestOCFBNoResync(t *testing.T) {
	testOCFB(t, OCFBNoResync)
}

func TestOCFBDecrypterBadPrefix(t *testing.T) {
	block, err := aes.NewCipher(testKey16)
	require.NoError(t, err)
	// A random prefix fails the quick check with overwhelming
	// probability.
	prefix := make([]byte, block.BlockSize()+2)
	var hit bool
	for i := 0; i < 8 && !hit; i++ {
		rand.Reader.Read(prefix)
		hit = NewOCFBDecrypter(block, prefix, OCFBNoResync) != nil
	}
	assert.False(t, hit)
}

func TestSymmetricallyEncryptedRoundTrip(t *testing.T) {
	key := make([]byte, 16)
	rand.Reader.Read(key)

	var buf bytes.Buffer
	w, err := SerializeSymmetricallyEncrypted(&buf, CipherAES128, key, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello, se packet"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	p, err := Read(&buf)
	require.NoError(t, err)
	se, ok := p.(*SymmetricallyEncrypted)
	require.True(t, ok)
	assert.True(t, se.MDC)

	rc, err := se.Decrypt(CipherAES128, key)
	require.NoError(t, err)
	contents := new(bytes.Buffer)
	_, err = contents.ReadFrom(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello, se packet", contents.String())
}

func TestSymmetricallyEncryptedWrongKey(t *testing.T) {
	key := make([]byte, 16)
	rand.Reader.Read(key)

	var buf bytes.Buffer
	w, err := SerializeSymmetricallyEncrypted(&buf, CipherAES128, key, nil)
	require.NoError(t, err)
	w.Write([]byte("some contents"))
	require.NoError(t, w.Close())

	p, err := Read(&buf)
	require.NoError(t, err)
	se := p.(*SymmetricallyEncrypted)

	wrongKey := make([]byte, 16)
	_, err = se.Decrypt(CipherAES128, wrongKey)
	assert.Error(t, err)
}
