// Package cryptoutil provides purpose-scoped authenticated encryption for
// session data at rest.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the AES-256 key length.
const KeySize = 32

// Purposes separate keys derived from the shared master key.
const (
	PurposeTicketStore = "TicketStore"
	PurposeCookieHash  = "Cookie.Hash"
	PurposeCookieBlock = "Cookie.Block"
)

// Versioned prefix to allow future key/algorithm rotations without data migrations.
const protectedVersionV1 byte = 0x01

var (
	ErrUnknownVersion = errors.New("unknown ciphertext version")
	ErrTooShort       = errors.New("ciphertext too short")
)

// Protector encrypts and authenticates opaque payloads.
type Protector interface {
	Protect(plaintext []byte) ([]byte, error)
	Unprotect(protected []byte) ([]byte, error)
}

// AESGCMProtector implements Protector using AES-256-GCM.
type AESGCMProtector struct {
	aead cipher.AEAD
}

var _ Protector = (*AESGCMProtector)(nil)

// NewAESGCMProtector constructs a new AESGCMProtector. Key must be 32 bytes (AES-256).
func NewAESGCMProtector(key []byte) (*AESGCMProtector, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("aes-gcm key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCMProtector{aead: gcm}, nil
}

// ForPurpose derives a purpose key from master and returns its protector.
func ForPurpose(master []byte, purpose string) (*AESGCMProtector, error) {
	key, err := DeriveKey(master, purpose, KeySize)
	if err != nil {
		return nil, err
	}
	return NewAESGCMProtector(key)
}

// Protect returns version || nonce || ciphertext.
func (p *AESGCMProtector) Protect(plaintext []byte) ([]byte, error) {
	nonceSize := p.aead.NonceSize()
	out := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+p.aead.Overhead())
	out[0] = protectedVersionV1
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, err
	}
	return p.aead.Seal(out, out[1:], plaintext, nil), nil
}

// Unprotect reverses Protect. Any tampering surfaces as an error.
func (p *AESGCMProtector) Unprotect(protected []byte) ([]byte, error) {
	if len(protected) == 0 {
		return nil, ErrTooShort
	}
	if protected[0] != protectedVersionV1 {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownVersion, protected[0])
	}
	data := protected[1:]
	nonceSize := p.aead.NonceSize()
	if len(data) < nonceSize+p.aead.Overhead() {
		return nil, ErrTooShort
	}
	return p.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
}

// DeriveKey expands master into a size-byte key bound to purpose (HKDF-SHA256).
func DeriveKey(master []byte, purpose string, size int) ([]byte, error) {
	if len(master) == 0 {
		return nil, errors.New("master key is empty")
	}
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte("fwda:"+purpose)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}

// MasterKeyFromString decodes a base64 32-byte key, or hashes any other
// non-empty input into one.
func MasterKeyFromString(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("master key is required")
	}
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil && len(decoded) == KeySize {
		return decoded, nil
	}
	sum := sha256.Sum256([]byte(s))
	return sum[:], nil
}

// NewMasterKey returns KeySize random bytes.
func NewMasterKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}
