// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keytypes.
//
// go-keytypes is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.


package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
)

const (
	keysPrefix      = "keys/"
	keySuffix       = ".key"
	passwordsPrefix = "passwords/"
	passwordSuffix  = ".pw"
)

// KeyPath returns the storage path for a keychain label: keys/{label}.key
func KeyPath(label string) string {
	return keysPrefix + label + keySuffix
}

// PasswordPath returns the storage path for a server's password record:
// passwords/{server}.pw
func PasswordPath(server string) string {
	return passwordsPrefix + server + passwordSuffix
}

// ListKeys returns the labels of every stored key.
func ListKeys(ctx context.Context, backend Backend) ([]string, error) {
	return listNamespace(ctx, backend, keysPrefix, keySuffix)
}

// ListPasswords returns the servers of every stored password record.
func ListPasswords(ctx context.Context, backend Backend) ([]string, error) {
	return listNamespace(ctx, backend, passwordsPrefix, passwordSuffix)
}

func listNamespace(ctx context.Context, backend Backend, prefix, suffix string) ([]string, error) {
	paths, err := backend.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.HasSuffix(p, suffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(p, prefix), suffix)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ValidateKey rejects empty keys, NUL bytes, absolute paths and any
// key that would escape its backend root.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case strings.ContainsRune(key, 0):
		return fmt.Errorf("%w: contains null byte", ErrInvalidKey)
	case strings.HasPrefix(key, "/"):
		return fmt.Errorf("%w: absolute path %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("%w: path traversal in %q", ErrInvalidKey, key)
		}
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: %q is not a clean path", ErrInvalidKey, key)
	}
	return nil
}
