/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Filesystem reads local files. Relative locations are joined to rootDir
// when it is set.
type Filesystem struct {
	rootDir string
}

func NewFilesystem(rootDir string) *Filesystem {
	return &Filesystem{rootDir: rootDir}
}

func (f *Filesystem) Open(_ context.Context, location string) (io.ReadCloser, error) {
	path := location
	if f.rootDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.rootDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return file, nil
}
