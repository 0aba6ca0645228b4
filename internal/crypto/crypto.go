package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize     = 32     // Salt size in bytes
	KeySize      = 32     // AES-256 key size
	NonceSize    = 12     // GCM nonce size
	TagSize      = 16     // GCM authentication tag size
	DefaultIters = 210000 // Default PBKDF2 iterations (OWASP minimum)
	MinIters     = 10000  // Lowest iteration count accepted when opening
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrWeakKDF           = errors.New("key derivation parameters too weak")
)

// KDF handles key derivation from passwords
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF creates a new KDF with a random salt
func NewKDF() (*KDF, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &KDF{
		Salt:       salt,
		Iterations: DefaultIters,
	}, nil
}

// DeriveKey derives an encryption key from a password
func (k *KDF) DeriveKey(password []byte) []byte {
	key := pbkdf2.Key(password, k.Salt, k.Iterations, KeySize, sha256.New)
	return key
}

// Validate rejects parameters read back from disk that are unusable
func (k *KDF) Validate() error {
	if len(k.Salt) != SaltSize {
		return fmt.Errorf("%w: salt is %d bytes", ErrWeakKDF, len(k.Salt))
	}
	if k.Iterations < MinIters {
		return fmt.Errorf("%w: %d iterations", ErrWeakKDF, k.Iterations)
	}
	return nil
}

// Sealed is a secret encrypted under a password-derived key
type Sealed struct {
	Salt       []byte `json:"salt"`
	Iterations int    `json:"iterations"`
	Ciphertext []byte `json:"ciphertext"`
}

// Seal encrypts plaintext under a fresh salt
func Seal(password, plaintext []byte) (*Sealed, error) {
	kdf, err := NewKDF()
	if err != nil {
		return nil, err
	}

	key := kdf.DeriveKey(password)
	enc := NewEncryptor(key)
	defer enc.Destroy()

	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}

	return &Sealed{
		Salt:       kdf.Salt,
		Iterations: kdf.Iterations,
		Ciphertext: ciphertext,
	}, nil
}

// Open decrypts a sealed secret. A wrong password yields ErrAuthFailed.
func (s *Sealed) Open(password []byte) ([]byte, error) {
	kdf := &KDF{Salt: s.Salt, Iterations: s.Iterations}
	if err := kdf.Validate(); err != nil {
		return nil, err
	}

	key := kdf.DeriveKey(password)
	enc := NewEncryptor(key)
	defer enc.Destroy()

	return enc.Decrypt(s.Ciphertext)
}

// Encryptor provides authenticated encryption
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new encryptor with the given key
func NewEncryptor(key []byte) *Encryptor {
	return &Encryptor{
		key: key,
	}
}

// Encrypt encrypts plaintext using AES-256-GCM
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	// Generate random nonce
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Encrypt and authenticate
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	// Prepend nonce to ciphertext
	result := make([]byte, NonceSize+len(ciphertext))
	copy(result, nonce)
	copy(result[NonceSize:], ciphertext)

	return result, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM
func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize+TagSize {
		return nil, ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	// Extract nonce
	nonce := ciphertext[:NonceSize]
	ciphertext = ciphertext[NonceSize:]

	// Decrypt and verify
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

// Destroy clears the encryptor's key from memory
func (e *Encryptor) Destroy() {
	ClearBytes(e.key)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
