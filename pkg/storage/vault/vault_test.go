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
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	vault "github.com/hashicorp/vault/api"
	"github.com/jeremyhahn/go-keytypes/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kvEngine emulates the KV v2 HTTP surface that *vault.Logical talks to.
type kvEngine struct {
	mu   sync.Mutex
	data map[string]map[string]interface{}
	err  error
}

func newKVEngine() *kvEngine {
	return &kvEngine{data: make(map[string]map[string]interface{})}
}

func split(p, kind string) (string, bool) {
	mount, rest, ok := strings.Cut(p, "/"+kind+"/")
	if !ok || mount != DefaultMount {
		return "", false
	}
	return rest, true
}

func (k *kvEngine) ReadWithContext(_ context.Context, p string) (*vault.Secret, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err != nil {
		return nil, k.err
	}
	key, ok := split(p, "data")
	if !ok {
		return nil, errors.New("bad path " + p)
	}
	data, ok := k.data[key]
	if !ok {
		return nil, nil
	}
	return &vault.Secret{Data: map[string]interface{}{"data": data}}, nil
}

func (k *kvEngine) WriteWithContext(_ context.Context, p string, body map[string]interface{}) (*vault.Secret, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err != nil {
		return nil, k.err
	}
	key, ok := split(p, "data")
	if !ok {
		return nil, errors.New("bad path " + p)
	}
	k.data[key] = body["data"].(map[string]interface{})
	return &vault.Secret{}, nil
}

func (k *kvEngine) DeleteWithContext(_ context.Context, p string) (*vault.Secret, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	key, ok := split(p, "metadata")
	if !ok {
		return nil, errors.New("bad path " + p)
	}
	delete(k.data, key)
	return nil, nil
}

func (k *kvEngine) ListWithContext(_ context.Context, p string) (*vault.Secret, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	dir, ok := split(p, "metadata")
	if !ok {
		return nil, errors.New("bad path " + p)
	}
	dir += "/"
	seen := map[string]bool{}
	for key := range k.data {
		rest, ok := strings.CutPrefix(key, dir)
		if !ok {
			continue
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i+1]
		}
		seen[rest] = true
	}
	if len(seen) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	entries := make([]interface{}, len(names))
	for i, n := range names {
		entries[i] = n
	}
	return &vault.Secret{Data: map[string]interface{}{"keys": entries}}, nil
}

func newStorage(t *testing.T) (*Storage, *kvEngine) {
	t.Helper()
	engine := newKVEngine()
	s, err := NewWithClient(&Config{Address: "http://127.0.0.1:8200", Token: "root"}, engine)
	require.NoError(t, err)
	return s, engine
}

func TestConfigValidate(t *testing.T) {
	c := &Config{Address: "http://vault:8200", Token: "t", Mount: "/kv/", Prefix: ""}
	require.NoError(t, c.Validate())
	assert.Equal(t, "kv", c.Mount)
	assert.Equal(t, DefaultPrefix, c.Prefix)

	assert.ErrorIs(t, (&Config{Token: "t"}).Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, (&Config{Address: "a"}).Validate(), ErrInvalidConfig)
}

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, engine := newStorage(t)

	value := []byte{0x00, 0xff, 0x10}
	require.NoError(t, s.Put(ctx, "keys/alice.key", value, &storage.Options{
		Metadata: map[string]string{"type": "P256Signing"},
	}))

	stored := engine.data["keytypes/keys/alice.key"]
	require.NotNil(t, stored)
	assert.Equal(t, "AP8Q", stored["value"])

	got, err := s.Get(ctx, "keys/alice.key")
	require.NoError(t, err)
	assert.Equal(t, value, got)

	ok, err := s.Exists(ctx, "keys/alice.key")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "keys/alice.key"))
	_, err = s.Get(ctx, "keys/alice.key")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "keys/alice.key"), storage.ErrNotFound)
}

func TestStorage_List(t *testing.T) {
	ctx := context.Background()
	s, _ := newStorage(t)

	for _, k := range []string{"keys/b.key", "keys/a.key", "passwords/host.pw", "keys/nested/c.key"} {
		require.NoError(t, s.Put(ctx, k, []byte("v"), nil))
	}

	keys, err := s.List(ctx, "keys/")
	require.NoError(t, err)
	assert.Equal(t, []string{"keys/a.key", "keys/b.key", "keys/nested/c.key"}, keys)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	labels, err := storage.ListPasswords(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"host"}, labels)

	empty, err := s.List(ctx, "certs/")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStorage_Errors(t *testing.T) {
	ctx := context.Background()
	s, engine := newStorage(t)

	_, err := s.Get(ctx, "../x")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)

	engine.data["keytypes/keys/bad.key"] = map[string]interface{}{"value": 7}
	_, err = s.Get(ctx, "keys/bad.key")
	assert.ErrorIs(t, err, ErrInvalidResponse)

	engine.err = errors.New("connection refused")
	_, err = s.Get(ctx, "keys/a.key")
	assert.ErrorContains(t, err, "connection refused")
}
