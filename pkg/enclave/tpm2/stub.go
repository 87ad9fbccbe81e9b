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


//go:build !tpm2

package tpm2

import (
	"context"

	"github.com/jeremyhahn/go-keytypes/pkg/keys"
)

// Enclave is unavailable without the tpm2 build tag.
type Enclave struct{}

var _ keys.Enclave = (*Enclave)(nil)

// Open fails with ErrNotCompiled.
func Open(config *Config) (*Enclave, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return nil, ErrNotCompiled
}

func (e *Enclave) GenerateKey(context.Context, keys.KeyType) (keys.EnclaveKey, error) {
	return nil, ErrNotCompiled
}

func (e *Enclave) LoadKey(context.Context, keys.KeyType, []byte) (keys.EnclaveKey, error) {
	return nil, ErrNotCompiled
}

func (e *Enclave) DeleteKey(context.Context, []byte) error {
	return ErrNotCompiled
}

func (e *Enclave) Close() error { return nil }
