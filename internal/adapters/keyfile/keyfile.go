// Package keyfile persists the shared master key on disk for deployments
// without Redis. Mount the directory on a shared volume to scale out.
package keyfile

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/oformaniuk/fwda/internal/data/cryptoutil"
	"github.com/oformaniuk/fwda/internal/ports"
)

// DefaultDir is used when DP_KEYS_PATH is unset.
const DefaultDir = "/keys/dataprotection"

const fileName = "key"

// Source reads the master key from dir/key, creating it on first use.
type Source struct {
	dir string
}

var _ ports.KeySource = (*Source)(nil)

// New returns a Source rooted at dir.
func New(dir string) *Source {
	if dir == "" {
		dir = DefaultDir
	}
	return &Source{dir: dir}
}

// Path is the key file location.
func (s *Source) Path() string {
	return filepath.Join(s.dir, fileName)
}

func (s *Source) MasterKey(_ context.Context) ([]byte, error) {
	if key, err := s.read(); err == nil {
		return key, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	key, err := cryptoutil.NewMasterKey()
	if err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}

	if err := s.publish(key); err != nil {
		if errors.Is(err, fs.ErrExist) {
			// Another instance won the race; its file is complete.
			return s.read()
		}
		return nil, err
	}
	return key, nil
}

// publish writes key to a temporary file and links it into place, so readers
// never observe a partially written key file.
func (s *Source) publish(key []byte) error {
	tmp, err := os.CreateTemp(s.dir, fileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod key file: %w", err)
	}
	if _, err := tmp.WriteString(base64.StdEncoding.EncodeToString(key) + "\n"); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write key file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close key file: %w", err)
	}
	if err := os.Link(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("install key file: %w", err)
	}
	return nil
}

func (s *Source) read() ([]byte, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, err
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil || len(key) != cryptoutil.KeySize {
		return nil, fmt.Errorf("key file %s is malformed", s.Path())
	}
	return key, nil
}
