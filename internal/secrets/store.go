// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package secrets

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/contextcraft/contextcraft-tui/internal/util"
)

const (
	secretsFile   = "keys.enc"
	masterKeyFile = "master.key"
	saltFile      = "salt"

	// PassphraseEnv, when set, switches the store to a passphrase-derived
	// key instead of the on-disk master key.
	PassphraseEnv = "CONTEXTCRAFT_PASSPHRASE"
)

// ErrKeyNotFound indicates no API key is stored under the requested ID.
var ErrKeyNotFound = errors.New("api key not found")

// Store is the credential surface the rest of the application sees.
type Store interface {
	// APIKey returns the key stored for the endpoint ID.
	APIKey(endpointID string) (string, error)
	// Set stores or replaces the key for the endpoint ID.
	Set(endpointID, key string) error
	// Delete removes the key for the endpoint ID. Deleting an absent key is
	// not an error.
	Delete(endpointID string) error
	// IDs lists the endpoint IDs that have a stored key, sorted.
	IDs() ([]string, error)
}

// FileStore keeps all API keys in one AES-256-GCM sealed file. Writes go
// through the atomic writer so a crash never corrupts the key file.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  []byte
}

// NewFileStore opens (or initializes) the secret store under dir. With
// PassphraseEnv set the sealing key is derived from the passphrase and a
// per-installation salt; otherwise a random master key is kept next to the
// sealed file with 0600 permissions.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create secrets directory: %w", err)
	}

	var key []byte
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		salt, err := loadOrCreateSalt(filepath.Join(dir, saltFile))
		if err != nil {
			return nil, err
		}
		key = deriveKey(pass, salt)
	} else {
		var err error
		key, err = loadOrCreateMasterKey(filepath.Join(dir, masterKeyFile))
		if err != nil {
			return nil, err
		}
	}

	return &FileStore{
		path: filepath.Join(dir, secretsFile),
		key:  key,
	}, nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil && len(data) == saltSize {
		return data, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	if err := util.AtomicWriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("failed to persist salt: %w", err)
	}
	return salt, nil
}

func loadOrCreateMasterKey(path string) ([]byte, error) {
	encoded, err := os.ReadFile(path)
	if err == nil {
		key, decodeErr := base64.StdEncoding.DecodeString(string(encoded))
		if decodeErr != nil || len(key) != keySize {
			return nil, fmt.Errorf("master key file %s is corrupt", path)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read master key: %w", err)
	}

	key, err := newMasterKey()
	if err != nil {
		return nil, err
	}
	data := []byte(base64.StdEncoding.EncodeToString(key))
	if err := util.AtomicWriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to persist master key: %w", err)
	}
	return key, nil
}

// load decrypts the sealed file into a key map. A missing file is an empty
// store.
func (s *FileStore) load() (map[string]string, error) {
	blob, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secret store: %w", err)
	}

	plaintext, err := open(s.key, blob)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal secret store (wrong passphrase or corrupt file): %w", err)
	}
	defer zeroBytes(plaintext)

	keys := map[string]string{}
	if err := json.Unmarshal(plaintext, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse secret store: %w", err)
	}
	return keys, nil
}

func (s *FileStore) save(keys map[string]string) error {
	plaintext, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to encode secret store: %w", err)
	}
	defer zeroBytes(plaintext)

	blob, err := seal(s.key, plaintext)
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(s.path, blob, 0o600); err != nil {
		return fmt.Errorf("failed to write secret store: %w", err)
	}
	return nil
}

// APIKey implements Store and satisfies the chat credential interface.
func (s *FileStore) APIKey(endpointID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.load()
	if err != nil {
		return "", err
	}
	key, ok := keys[endpointID]
	if !ok || key == "" {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, endpointID)
	}
	return key, nil
}

// Set implements Store.
func (s *FileStore) Set(endpointID, key string) error {
	if endpointID == "" {
		return errors.New("endpoint ID must not be empty")
	}
	if key == "" {
		return errors.New("api key must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.load()
	if err != nil {
		return err
	}
	keys[endpointID] = key
	return s.save(keys)
}

// Delete implements Store.
func (s *FileStore) Delete(endpointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.load()
	if err != nil {
		return err
	}
	delete(keys, endpointID)
	return s.save(keys)
}

// IDs implements Store.
func (s *FileStore) IDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for id := range keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
