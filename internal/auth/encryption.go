package auth

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidTokenContent is returned when a claim value cannot be decrypted.
var ErrInvalidTokenContent = errors.New("invalid token content")

// ClaimCipher encrypts individual token claim values with AES-CBC under a
// process-wide key and a fixed IV. Output is PKCS#7 padded and base64 encoded.
// A fixed IV makes the cipher deterministic: equal inputs give equal outputs.
type ClaimCipher struct {
	block cipher.Block
	iv    []byte
}

// NewClaimCipher builds a cipher from a 16, 24 or 32 byte key and a 16 byte IV.
func NewClaimCipher(key, iv string) (*ClaimCipher, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("encryption IV must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	return &ClaimCipher{block: block, iv: []byte(iv)}, nil
}

// Encrypt returns the base64 ciphertext of text. Empty input is returned as is.
func (c *ClaimCipher) Encrypt(text string) (string, error) {
	if text == "" {
		return "", nil
	}

	plaintext := pkcs7Pad([]byte(text), aes.BlockSize)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(ciphertext, plaintext)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Empty input is returned as is; anything that is not
// a ciphertext produced under this key fails with ErrInvalidTokenContent.
func (c *ClaimCipher) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTokenContent, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrInvalidTokenContent)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, fmt.Errorf("%w: bad padding", ErrInvalidTokenContent)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("%w: bad padding", ErrInvalidTokenContent)
		}
	}
	return data[:len(data)-padding], nil
}
