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


package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	vault "github.com/hashicorp/vault/api"
	"github.com/jeremyhahn/go-keytypes/pkg/storage"
)

// LogicalClient is the subset of *vault.Logical used by Storage, so tests
// can substitute an in-memory KV engine.
type LogicalClient interface {
	ReadWithContext(ctx context.Context, path string) (*vault.Secret, error)
	WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*vault.Secret, error)
	DeleteWithContext(ctx context.Context, path string) (*vault.Secret, error)
	ListWithContext(ctx context.Context, path string) (*vault.Secret, error)
}

// Storage is a storage.Backend on Vault KV v2.
type Storage struct {
	config  *Config
	logical LogicalClient
}

var _ storage.Backend = (*Storage)(nil)

// New connects to the Vault server described by config.
func New(config *Config) (*Storage, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address
	if config.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("vault storage: failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("vault storage: failed to create client: %w", err)
	}
	client.SetToken(config.Token)
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}
	return &Storage{config: config, logical: client.Logical()}, nil
}

// NewWithClient creates a Storage on an existing logical client.
func NewWithClient(config *Config, logical LogicalClient) (*Storage, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Storage{config: config, logical: logical}, nil
}

func (s *Storage) dataPath(key string) string {
	return path.Join(s.config.Mount, "data", s.config.Prefix, key)
}

func (s *Storage) metadataPath(key string) string {
	return path.Join(s.config.Mount, "metadata", s.config.Prefix, key)
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	secret, err := s.logical.ReadWithContext(ctx, s.dataPath(key))
	if err != nil {
		return nil, fmt.Errorf("vault storage: failed to read %q: %w", key, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, storage.ErrNotFound
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok || data == nil {
		// Soft-deleted versions come back with null data
		return nil, storage.ErrNotFound
	}
	encoded, ok := data["value"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no value field", ErrInvalidResponse, key)
	}
	value, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidResponse, key, err)
	}
	return value, nil
}

// Put writes a new version. Options.Metadata is stored next to the value.
func (s *Storage) Put(ctx context.Context, key string, value []byte, opts *storage.Options) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	data := map[string]interface{}{
		"value": base64.StdEncoding.EncodeToString(value),
	}
	if opts != nil && len(opts.Metadata) > 0 {
		meta := make(map[string]interface{}, len(opts.Metadata))
		for k, v := range opts.Metadata {
			meta[k] = v
		}
		data["metadata"] = meta
	}
	_, err := s.logical.WriteWithContext(ctx, s.dataPath(key), map[string]interface{}{"data": data})
	if err != nil {
		return fmt.Errorf("vault storage: failed to write %q: %w", key, err)
	}
	return nil
}

// Delete removes every version of key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}
	if _, err := s.logical.DeleteWithContext(ctx, s.metadataPath(key)); err != nil {
		return fmt.Errorf("vault storage: failed to delete %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	}
	return false, err
}

// List walks the metadata tree below the directory part of prefix.
func (s *Storage) List(ctx context.Context, prefix string) ([]string, error) {
	dir := ""
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir = prefix[:i+1]
	}
	var keys []string
	if err := s.walk(ctx, dir, prefix, &keys); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Storage) walk(ctx context.Context, dir, prefix string, out *[]string) error {
	secret, err := s.logical.ListWithContext(ctx, s.metadataPath(dir))
	if err != nil {
		return fmt.Errorf("vault storage: failed to list %q: %w", dir, err)
	}
	if secret == nil || secret.Data == nil {
		return nil
	}
	entries, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return fmt.Errorf("%w: unexpected keys format", ErrInvalidResponse)
	}
	for _, e := range entries {
		name, ok := e.(string)
		if !ok {
			continue
		}
		full := dir + name
		if strings.HasSuffix(name, "/") {
			if strings.HasPrefix(full, prefix) || strings.HasPrefix(prefix, full) {
				if err := s.walk(ctx, full, prefix, out); err != nil {
					return err
				}
			}
			continue
		}
		if strings.HasPrefix(full, prefix) {
			*out = append(*out, full)
		}
	}
	return nil
}

// Close is a no-op; the Vault client holds no persistent connection.
func (s *Storage) Close() error {
	return nil
}
