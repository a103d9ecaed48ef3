package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	e, err := New("test-master-password", "test-salt")
	require.NoError(t, err)
	return e
}

func TestMasterRoundTrip(t *testing.T) {
	e := newEncryptor(t)

	ct, err := e.MasterEncrypt("hello world")
	require.NoError(t, err)
	assert.NotEqual(t, "hello world", ct)

	pt, err := e.MasterDecrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "hello world", pt)
}

func TestCiphertextFormat(t *testing.T) {
	e := newEncryptor(t)

	ct, err := e.MasterEncrypt("payload")
	require.NoError(t, err)

	parts := strings.SplitN(ct, ":", 2)
	require.Len(t, parts, 2)
	_, err = base64.StdEncoding.DecodeString(parts[0])
	assert.NoError(t, err)
	iv, err := base64.StdEncoding.DecodeString(parts[1])
	assert.NoError(t, err)
	assert.Len(t, iv, 16)
}

func TestChatKeyIsMasterEncrypted(t *testing.T) {
	e := newEncryptor(t)

	encKey, err := e.GenerateChatKey()
	require.NoError(t, err)

	rawKey, err := e.MasterDecrypt(encKey)
	require.NoError(t, err)
	kb, err := base64.StdEncoding.DecodeString(rawKey)
	require.NoError(t, err)
	assert.Len(t, kb, 32)

	// the decrypted key must work for message encryption
	body, err := Encrypt("secret message", rawKey)
	require.NoError(t, err)
	got, err := Decrypt(body, rawKey)
	require.NoError(t, err)
	assert.Equal(t, "secret message", got)
}

func TestChatKeysDiffer(t *testing.T) {
	e := newEncryptor(t)

	k1, err := e.GenerateChatKey()
	require.NoError(t, err)
	k2, err := e.GenerateChatKey()
	require.NoError(t, err)

	r1, err := e.MasterDecrypt(k1)
	require.NoError(t, err)
	r2, err := e.MasterDecrypt(k2)
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)
}

func TestDecryptMalformed(t *testing.T) {
	e := newEncryptor(t)

	_, err := e.MasterDecrypt("no-separator")
	assert.ErrorIs(t, err, ErrMalformedCiphertext)

	_, err = e.MasterDecrypt("!!!:???")
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}
