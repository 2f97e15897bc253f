package tokenstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/sentinel"
)

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32
)

// SecureFileStore keeps all secrets in one file sealed with NaCl secretbox.
// The key is derived from a passphrase with argon2id; the file layout is
// salt | nonce | sealed JSON object.
type SecureFileStore struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
}

// NewSecureFileStore returns sentinel.ErrUnavailable when the secure tier is
// not configured, which callers treat as "use the fallback tier".
func NewSecureFileStore(path, passphrase string) (*SecureFileStore, error) {
	if path == "" || passphrase == "" {
		return nil, fmt.Errorf("secure token file: %w", sentinel.ErrUnavailable)
	}
	return &SecureFileStore{path: path, passphrase: []byte(passphrase)}, nil
}

func (s *SecureFileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return v, nil
}

func (s *SecureFileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

func (s *SecureFileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

func (s *SecureFileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secure token file: %w: %w", sentinel.ErrUnavailable, err)
	}
	if len(raw) < saltSize+nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("secure token file truncated: %w", sentinel.ErrUnavailable)
	}

	salt := raw[:saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])
	key := s.deriveKey(salt)

	plain, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return nil, fmt.Errorf("secure token file cannot be decrypted: %w", sentinel.ErrUnavailable)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, fmt.Errorf("decode secure token file: %w: %w", sentinel.ErrUnavailable, err)
	}
	return values, nil
}

func (s *SecureFileStore) save(values map[string]string) error {
	plain, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode secure token file: %w", err)
	}

	buf := make([]byte, saltSize+nonceSize)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], buf[saltSize:])
	sealed := secretbox.Seal(buf, plain, &nonce, s.deriveKey(buf[:saltSize]))

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create secure token dir: %w: %w", sentinel.ErrUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create secure token file: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(sealed); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write secure token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close secure token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace secure token file: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *SecureFileStore) deriveKey(salt []byte) *[keySize]byte {
	var key [keySize]byte
	copy(key[:], argon2.IDKey(s.passphrase, salt, 1, 64*1024, 4, keySize))
	return &key
}
