package storage

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Envelope magic numbers.
const (
	MagicCBC = "3NCR0PTD"
	MagicGCM = "GCM3NCR0"

	saltSize   = 16
	nonceSize  = 12
	hashSize   = sha256.Size
	kdfRounds  = 100000
	keySize    = 32
	lengthSize = 8
)

// ErrUnknownEnvelope is returned by Open for data without a known magic number.
var ErrUnknownEnvelope = errors.New("unknown encryption envelope")

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, kdfRounds, keySize, sha256.New)
}

// Seal encrypts data into the CBC envelope:
// magic(8) + sha256(32) + length(8) + salt(16) + iv(16) + ciphertext.
// The hash and length cover everything after the length field.
func Seal(data []byte, password string) ([]byte, error) {
	salt := make([]byte, saltSize)
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	padded := pkcs7Pad(data, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	body := make([]byte, 0, saltSize+aes.BlockSize+len(ciphertext))
	body = append(body, salt...)
	body = append(body, iv...)
	body = append(body, ciphertext...)

	hash := sha256.Sum256(body)
	var length [lengthSize]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(body)))

	out := make([]byte, 0, len(MagicCBC)+hashSize+lengthSize+len(body))
	out = append(out, MagicCBC...)
	out = append(out, hash[:]...)
	out = append(out, length[:]...)
	return append(out, body...), nil
}

// Open decrypts a CBC or GCM envelope and reports which one it was.
func Open(data []byte, password string) ([]byte, string, error) {
	if len(data) < 8 {
		return nil, "", fmt.Errorf("encrypted data too short: %d bytes", len(data))
	}
	switch magic := string(data[:8]); magic {
	case MagicCBC:
		out, err := openCBC(data[8:], password)
		return out, magic, err
	case MagicGCM:
		out, err := openGCM(data[8:], password)
		return out, magic, err
	default:
		return nil, "", ErrUnknownEnvelope
	}
}

func openCBC(data []byte, password string) ([]byte, error) {
	if len(data) < hashSize+lengthSize+saltSize+aes.BlockSize {
		return nil, fmt.Errorf("CBC data too short: %d bytes", len(data))
	}
	storedHash := data[:hashSize]
	length := binary.BigEndian.Uint64(data[hashSize : hashSize+lengthSize])
	body := data[hashSize+lengthSize:]

	if uint64(len(body)) != length {
		return nil, fmt.Errorf("length mismatch: expected %d, got %d", length, len(body))
	}
	sum := sha256.Sum256(body)
	if !bytes.Equal(storedHash, sum[:]) {
		return nil, errors.New("hash verification failed - data corrupted")
	}

	salt := body[:saltSize]
	iv := body[saltSize : saltSize+aes.BlockSize]
	ciphertext := body[saltSize+aes.BlockSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("ciphertext is not a multiple of block size")
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext)
}

// openGCM reads salt(16) + nonce(12) + ciphertext with tag.
func openGCM(data []byte, password string) ([]byte, error) {
	if len(data) < saltSize+nonceSize+16 {
		return nil, fmt.Errorf("GCM data too short: %d bytes", len(data))
	}
	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, data[saltSize+nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("GCM decryption failed: %w", err)
	}
	return plaintext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty data")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding length: %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
