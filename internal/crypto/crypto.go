// Package crypto implements the encryption provider for chat content. Every
// chat owns a random symmetric key that is only ever persisted encrypted
// under the master key. Ciphertext format: base64(ciphertext) + ":" + base64(iv).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const keySize = 32

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

type Encryptor struct {
	masterKey string
}

// New derives the master key from the configured password and salt.
func New(masterPassword, masterSalt string) (*Encryptor, error) {
	if masterPassword == "" || masterSalt == "" {
		return nil, errors.New("master password and salt required")
	}
	key, err := scrypt.Key([]byte(masterPassword), []byte(masterSalt), 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, err
	}
	return &Encryptor{masterKey: base64.StdEncoding.EncodeToString(key)}, nil
}

// GenerateChatKey mints a fresh random chat key and returns it encrypted
// under the master key, ready to be stored on the chat entity.
func (e *Encryptor) GenerateChatKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return e.MasterEncrypt(base64.StdEncoding.EncodeToString(key))
}

func (e *Encryptor) MasterEncrypt(text string) (string, error) {
	return Encrypt(text, e.masterKey)
}

func (e *Encryptor) MasterDecrypt(text string) (string, error) {
	return Decrypt(text, e.masterKey)
}

// Encrypt runs AES-256-CTR with a random IV.
func Encrypt(text, base64Key string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}
	ct := make([]byte, len(text))
	cipher.NewCTR(block, iv).XORKeyStream(ct, []byte(text))
	return base64.StdEncoding.EncodeToString(ct) + ":" + base64.StdEncoding.EncodeToString(iv), nil
}

func Decrypt(text, base64Key string) (string, error) {
	parts := strings.SplitN(text, ":", 2)
	if len(parts) != 2 {
		return "", ErrMalformedCiphertext
	}
	ct, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	iv, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrMalformedCiphertext
	}
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	pt := make([]byte, len(ct))
	cipher.NewCTR(block, iv).XORKeyStream(pt, ct)
	return string(pt), nil
}
