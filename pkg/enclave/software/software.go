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


// Package software provides an in-process keys.Enclave. Keys are held in a
// handle table and never exported, which makes it a stand-in for hardware
// isolation in tests and development. It offers no protection against a
// compromised process.
package software

import (
	"context"
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-keytypes/pkg/keys"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("software enclave: closed")

	// ErrKeyNotFound is returned for an unknown handle.
	ErrKeyNotFound = errors.New("software enclave: key not found")
)

// Enclave is a thread-safe in-memory keys.Enclave.
type Enclave struct {
	mu     sync.RWMutex
	keys   map[uuid.UUID]*ecdsa.PrivateKey
	closed bool
}

var _ keys.Enclave = (*Enclave)(nil)

// New returns an empty Enclave.
func New() *Enclave {
	return &Enclave{keys: make(map[uuid.UUID]*ecdsa.PrivateKey)}
}

func (e *Enclave) GenerateKey(ctx context.Context, t keys.KeyType) (keys.EnclaveKey, error) {
	if !t.IsSecureEnclave() {
		return nil, fmt.Errorf("%w: %s", keys.ErrNotSecureEnclaveType, t)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	id := uuid.New()
	e.keys[id] = priv
	return &key{id: id, priv: priv}, nil
}

func (e *Enclave) LoadKey(ctx context.Context, t keys.KeyType, handle []byte) (keys.EnclaveKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := uuid.ParseBytes(handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}
	priv, ok := e.keys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	}
	return &key{id: id, priv: priv}, nil
}

func (e *Enclave) DeleteKey(ctx context.Context, handle []byte) error {
	id, err := uuid.ParseBytes(handle)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyNotFound, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if _, ok := e.keys[id]; !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	}
	delete(e.keys, id)
	return nil
}

// Len returns the number of keys held.
func (e *Enclave) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.keys)
}

func (e *Enclave) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	clear(e.keys)
	return nil
}

type key struct {
	id   uuid.UUID
	priv *ecdsa.PrivateKey
}

func (k *key) Public() crypto.PublicKey { return &k.priv.PublicKey }

func (k *key) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return k.priv.Sign(rand, digest, opts)
}

func (k *key) Handle() []byte { return []byte(k.id.String()) }

func (k *key) ECDH(peer *ecdh.PublicKey) ([]byte, error) {
	priv, err := k.priv.ECDH()
	if err != nil {
		return nil, err
	}
	return priv.ECDH(peer)
}
