// Package secrets protects sensitive configuration scalars at rest.
//
// Protected values carry the "ENC:" marker followed by base64(IV || ciphertext)
// produced with AES-256-CBC and PKCS#7 padding. Values without the marker are
// plaintext and pass through unchanged.
package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"

	apperrors "github.com/oformaniuk/fwda/internal/errors"
)

const (
	// Prefix marks an encrypted scalar.
	Prefix = "ENC:"
	// EnvKey is the environment variable holding the configuration key.
	EnvKey = "CONFIG_ENCRYPTION_KEY"

	// CurrentSalt is used for every new encryption.
	CurrentSalt = "fwda-forward-auth-salt"
	// LegacySalt is accepted on decryption only.
	LegacySalt = "nginx-forward-auth-salt"

	pbkdf2Iterations = 10000
	keySize          = 32
)

var (
	errInvalidPadding = errors.New("invalid padding")
	errNotUTF8        = errors.New("plaintext is not valid UTF-8")
)

// strategy derives a decryption key from the configured key input.
type strategy struct {
	name string
	salt string
}

// Order matters: new writes use the first entry.
var strategies = []strategy{
	{name: "current", salt: CurrentSalt},
	{name: "legacy", salt: LegacySalt},
}

// Codec encrypts and decrypts configuration scalars.
// A Codec without a key is a passthrough.
type Codec struct {
	keys [][]byte
}

// NewCodec builds a Codec for the given key input. An empty key disables
// encryption.
func NewCodec(key string) *Codec {
	c := &Codec{}
	if key == "" {
		return c
	}
	for _, s := range strategies {
		c.keys = append(c.keys, deriveKey(key, s.salt))
	}
	return c
}

// Enabled reports whether a key is configured.
func (c *Codec) Enabled() bool {
	return c != nil && len(c.keys) > 0
}

// IsEncrypted reports whether s carries the encryption marker.
func IsEncrypted(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// Encrypt protects plain with the current key. Without a key it returns plain.
func (c *Codec) Encrypt(plain string) (string, error) {
	if !c.Enabled() {
		return plain, nil
	}
	out, err := encryptCBC(c.keys[0], []byte(plain))
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return Prefix + base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt recovers the plaintext of s. Values are returned unchanged when no
// key is configured or the marker is missing. Every key-derivation strategy is
// tried in order; the first that yields valid padding and valid UTF-8 wins.
// A wrong key still unpads cleanly about once in 256 tries, so padding alone
// does not identify the right strategy.
func (c *Codec) Decrypt(s string) (string, error) {
	if !c.Enabled() || !IsEncrypted(s) {
		return s, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, Prefix))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeDecryptionFailed, "encrypted value is not valid base64")
	}

	var lastErr error
	for _, key := range c.keys {
		plain, err := decryptCBC(key, raw)
		if err == nil && !utf8.Valid(plain) {
			err = errNotUTF8
		}
		if err == nil {
			return string(plain), nil
		}
		lastErr = err
	}
	return "", apperrors.Wrap(lastErr, apperrors.ErrCodeDecryptionFailed, "no configured key could decrypt the value")
}

// DecryptValue decrypts s and wraps the result.
func (c *Codec) DecryptValue(s string) (Value, error) {
	plain, err := c.Decrypt(s)
	if err != nil {
		return Value{}, err
	}
	return NewValue(plain), nil
}

// deriveKey uses the key bytes directly when the input is base64 of exactly
// 32 bytes, otherwise PBKDF2-HMAC-SHA256 with the given salt.
func deriveKey(input, salt string) []byte {
	if raw, err := base64.StdEncoding.DecodeString(input); err == nil && len(raw) == keySize {
		return raw
	}
	return pbkdf2.Key([]byte(input), []byte(salt), pbkdf2Iterations, keySize, sha256.New)
}

func encryptCBC(key, plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plain, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	iv := out[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

func decryptCBC(key, raw []byte) ([]byte, error) {
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is invalid", len(raw))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv, ct := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)
	return pkcs7Unpad(plain, aes.BlockSize)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errInvalidPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, errInvalidPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errInvalidPadding
		}
	}
	return b[:len(b)-n], nil
}
