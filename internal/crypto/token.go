package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// Stored tokens use an authenticated-encryption envelope, hex-encoded:
// [version byte][12-byte nonce][AES-256-GCM ciphertext]. The version byte
// leaves room to rotate the scheme without re-encrypting everything at once.
const (
	envelopeVersion = 0x01
	nonceSize       = 12
	keySize         = 32
)

func newCipher(keyHex string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key format: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// EncryptToken seals a partner API token under the hex-encoded 256-bit key.
func EncryptToken(token, keyHex string) (string, error) {
	aead, err := newCipher(keyHex)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("unable to generate nonce: %w", err)
	}

	envelope := make([]byte, 0, 1+nonceSize+len(token)+aead.Overhead())
	envelope = append(envelope, envelopeVersion)
	envelope = append(envelope, nonce...)
	envelope = aead.Seal(envelope, nonce, []byte(token), nil)

	return hex.EncodeToString(envelope), nil
}

// DecryptToken opens an envelope produced by EncryptToken. Tampered or
// truncated envelopes fail authentication.
func DecryptToken(encryptedHex, keyHex string) (string, error) {
	envelope, err := hex.DecodeString(encryptedHex)
	if err != nil {
		return "", fmt.Errorf("invalid encrypted token format: %w", err)
	}
	if len(envelope) < 1+nonceSize {
		return "", fmt.Errorf("encrypted token too short")
	}
	if envelope[0] != envelopeVersion {
		return "", fmt.Errorf("unsupported envelope version %d", envelope[0])
	}

	aead, err := newCipher(keyHex)
	if err != nil {
		return "", err
	}

	nonce := envelope[1 : 1+nonceSize]
	ciphertext := envelope[1+nonceSize:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}

	return string(plaintext), nil
}
