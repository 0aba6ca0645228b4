package keystore

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/illarion/lockvault/internal/crypto"
	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/pubkey"
	"github.com/illarion/lockvault/internal/security"
)

const (
	KeysDir        = "keys"
	keyExt         = ".key"
	keyFileVersion = 1
)

var (
	ErrKeyExists        = errors.New("key already exists")
	ErrKeyNotFound      = errors.New("key not found")
	ErrWrongPassword    = errors.New("wrong password")
	ErrPasswordRequired = errors.New("password required")
	ErrInvalidName      = errors.New("invalid key name")
	ErrCorruptKey       = errors.New("corrupt key file")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// keyFile is the on-disk form. Only the seed is sealed; the address stays
// readable so commands can resolve it without a password.
type keyFile struct {
	Version int              `json:"version"`
	Address pubkey.PublicKey `json:"address"`
	Created time.Time        `json:"created"`
	Sealed  crypto.Sealed    `json:"sealed"`
}

// Store manages key files inside a data directory
type Store struct {
	root *security.Root
}

// New creates a Store on an open data directory
func New(root *security.Root) *Store {
	return &Store{root: root}
}

func keyPath(name string) (string, error) {
	if !validName.MatchString(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return KeysDir + "/" + name + keyExt, nil
}

func (s *Store) read(name string) (*keyFile, error) {
	path, err := keyPath(name)
	if err != nil {
		return nil, err
	}
	data, err := s.root.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", name, err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptKey, name, err)
	}
	if kf.Version != keyFileVersion {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrCorruptKey, name, kf.Version)
	}
	return &kf, nil
}

func (s *Store) write(name string, kf *keyFile, replace bool) error {
	path, err := keyPath(name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}
	if err := s.root.MkdirAll(KeysDir); err != nil {
		return fmt.Errorf("failed to create keys directory: %w", err)
	}
	if replace {
		err = s.root.WriteFile(path, data)
	} else {
		err = s.root.CreateFile(path, data)
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrKeyExists, name)
	}
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", name, err)
	}
	return nil
}

// Generate creates a new identity sealed under password and returns its
// address
func (s *Store) Generate(name string, password []byte) (pubkey.PublicKey, error) {
	if len(password) == 0 {
		return pubkey.Zero, ErrPasswordRequired
	}
	key, err := GenerateKey()
	if err != nil {
		return pubkey.Zero, err
	}
	defer key.Destroy()

	sealed, err := crypto.Seal(password, key.private.Seed())
	if err != nil {
		return pubkey.Zero, fmt.Errorf("failed to seal key: %w", err)
	}
	kf := &keyFile{
		Version: keyFileVersion,
		Address: key.Address,
		Created: time.Now().UTC(),
		Sealed:  *sealed,
	}
	if err := s.write(name, kf, false); err != nil {
		return pubkey.Zero, err
	}
	return key.Address, nil
}

// Address returns the public address of a key without decrypting it
func (s *Store) Address(name string) (pubkey.PublicKey, error) {
	kf, err := s.read(name)
	if err != nil {
		return pubkey.Zero, err
	}
	return kf.Address, nil
}

// Open decrypts a key
func (s *Store) Open(name string, password []byte) (*Key, error) {
	kf, err := s.read(name)
	if err != nil {
		return nil, err
	}
	seed, err := kf.Sealed.Open(password)
	if errors.Is(err, crypto.ErrAuthFailed) {
		return nil, ErrWrongPassword
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open key %s: %w", name, err)
	}
	defer crypto.ClearBytes(seed)

	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: %s: seed is %d bytes", ErrCorruptKey, name, len(seed))
	}
	private := ed25519.NewKeyFromSeed(seed)
	address, err := pubkey.FromEd25519(private.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	if address != kf.Address {
		crypto.ClearBytes(private)
		return nil, fmt.Errorf("%w: %s: address does not match seed", ErrCorruptKey, name)
	}
	return &Key{Name: name, Address: address, private: private}, nil
}

// ChangePassword re-seals a key under a new password
func (s *Store) ChangePassword(name string, current, next []byte) error {
	if len(next) == 0 {
		return ErrPasswordRequired
	}
	key, err := s.Open(name, current)
	if err != nil {
		return err
	}
	defer key.Destroy()

	kf, err := s.read(name)
	if err != nil {
		return err
	}
	sealed, err := crypto.Seal(next, key.private.Seed())
	if err != nil {
		return fmt.Errorf("failed to seal key: %w", err)
	}
	kf.Sealed = *sealed
	return s.write(name, kf, true)
}

// List returns the names of all stored keys
func (s *Store) List() ([]string, error) {
	files, err := s.root.ReadDir(KeysDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	var names []string
	for _, f := range files {
		if name, ok := strings.CutSuffix(f, keyExt); ok && validName.MatchString(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// Key is a decrypted identity
type Key struct {
	Name    string
	Address pubkey.PublicKey
	private ed25519.PrivateKey
}

// GenerateKey creates an identity that lives only in memory
func GenerateKey() (*Key, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	address, err := pubkey.FromEd25519(public)
	if err != nil {
		return nil, err
	}
	return &Key{Address: address, private: private}, nil
}

// Sign signs msg with the private key
func (k *Key) Sign(msg []byte) []byte {
	return ed25519.Sign(k.private, msg)
}

// Authority proves possession of the private key with a fresh signature and
// returns the signer authority the ledger accepts
func (k *Key) Authority() (ledger.Authority, error) {
	challenge, err := crypto.GenerateRandom(32)
	if err != nil {
		return ledger.Authority{}, err
	}
	sig := k.Sign(challenge)
	public := k.private.Public().(ed25519.PublicKey)
	if !bytes.Equal(public, k.Address[:]) || !ed25519.Verify(public, challenge, sig) {
		return ledger.Authority{}, fmt.Errorf("%w: %s", ledger.ErrMissingSignature, k.Address)
	}
	return ledger.Signer(k.Address), nil
}

// Destroy clears the private key from memory
func (k *Key) Destroy() {
	crypto.ClearBytes(k.private)
}
