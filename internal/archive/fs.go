/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// FSStore keeps archives under a local root directory. Keys map straight
// to relative paths.
type FSStore struct {
	rootDir string
	logger  zerolog.Logger
}

// NewFSStore creates the root directory if needed.
func NewFSStore(rootDir string, logger zerolog.Logger) (*FSStore, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive root: %w", err)
	}
	return &FSStore{
		rootDir: rootDir,
		logger:  logger.With().Str("component", "archive_fs").Logger(),
	}, nil
}

func (f *FSStore) Put(ctx context.Context, key string, data []byte) error {
	path, err := f.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write archive file: %w", err)
	}
	f.logger.Debug().Str("path", path).Msg("archive written")
	return nil
}

func (f *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := f.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive file: %w", err)
	}
	return data, nil
}

// resolve rejects keys that would escape the root.
func (f *FSStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	return filepath.Join(f.rootDir, clean), nil
}
