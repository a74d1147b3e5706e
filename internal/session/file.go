package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const (
	fileAAD       = "keyless:session:v1"
	filePerm      = 0o600
	directoryPerm = 0o700
)

// FileStore persists the session as an encrypted JSON envelope, written atomically.
type FileStore struct {
	mu     sync.Mutex
	path   string
	secret []byte
	kdf    KDFParams
}

func NewFileStore(path string, secret []byte, kdf KDFParams) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("session file path is required")
	}
	if len(secret) == 0 {
		return nil, errors.New("session secret is required for the file backend")
	}

	return &FileStore{path: path, secret: append([]byte(nil), secret...), kdf: kdf}, nil
}

func (f *FileStore) Load(_ context.Context) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Session{}, nil
		}
		return nil, errors.Wrap(err, "failed to read session file")
	}

	return openSession(raw, f.secret, []byte(fileAAD))
}

func (f *FileStore) Save(_ context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := sealSession(s, f.secret, f.kdf, []byte(fileAAD))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), directoryPerm); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(f.path))
	}

	return atomicWriteFile(f.path, b, filePerm)
}

func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove session file")
	}

	return nil
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"

	_ = os.Remove(tmp)

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return errors.Wrap(err, "failed to write temporary session file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "failed to rename session file")
	}

	return nil
}
