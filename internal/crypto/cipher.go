package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"
)

// KeySize and IVSize fix the AES-256-CBC parameters used for every case key
// and storage key.
const (
	KeySize = 32
	IVSize  = aes.BlockSize
)

// KeyPair bundles an AES-256 key with its CBC initialisation vector.
type KeyPair struct {
	Key []byte
	IV  []byte
}

// GenerateKeyPair produces a fresh key and IV from the CSPRNG. Called exactly
// once per case and once per case storage, at first save.
func GenerateKeyPair() (KeyPair, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return KeyPair{}, fmt.Errorf("generate key: %w", err)
	}
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return KeyPair{}, fmt.Errorf("generate iv: %w", err)
	}
	return KeyPair{Key: key, IV: iv}, nil
}

// Cipher encrypts and decrypts with a single case's key material.
type Cipher struct {
	block  cipher.Block
	iv     []byte
	logger *zap.Logger
}

// NewCipher builds a cipher for the given key and IV.
func NewCipher(key, iv []byte, logger *zap.Logger) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", IVSize, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init aes cipher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cipher{block: block, iv: iv, logger: logger}, nil
}

// EncryptField encrypts a text field to base64 ciphertext. Empty input stays
// empty.
func (c *Cipher) EncryptField(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	encrypted, err := c.EncryptBytes([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// DecryptField reverses EncryptField. A value that cannot be decrypted, for
// whatever reason, is logged and returned unchanged; callers must treat a
// returned value that still looks like ciphertext as a decryption failure,
// never as valid content.
func (c *Cipher) DecryptField(encoded string) string {
	if encoded == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		c.logger.Error("field decryption failed", zap.String("stage", "base64"), zap.Error(err))
		return encoded
	}
	plaintext, err := c.DecryptBytes(raw)
	if err != nil {
		c.logger.Error("field decryption failed", zap.String("stage", "aes"), zap.Error(err))
		return encoded
	}
	return string(plaintext)
}

// EncryptBytes PKCS7-pads and encrypts arbitrary content with AES-CBC.
func (c *Cipher) EncryptBytes(data []byte) ([]byte, error) {
	padded := pkcs7Pad(data, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return out, nil
}

// DecryptBytes decrypts AES-CBC content and strips the PKCS7 padding.
func (c *Cipher) DecryptBytes(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(data))
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, data)
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padLen], nil
}
