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


// Package tpm2 provides a keys.Enclave backed by a TPM 2.0.
//
// Keys are ECC P-256 primaries under the owner hierarchy. The template's
// unique field carries the key's UUID, so recreating the primary from the
// same handle yields the same key and nothing has to be persisted in TPM
// NV memory.
//
// The implementation is compiled with the tpm2 build tag:
//
//	go build -tags tpm2 ./...
package tpm2

import (
	"errors"
	"fmt"
)

var (
	// ErrNotCompiled is returned by Open when built without the tpm2 tag.
	ErrNotCompiled = errors.New("tpm2: support not compiled, rebuild with -tags tpm2")

	// ErrInvalidConfig is returned for incomplete configuration.
	ErrInvalidConfig = errors.New("tpm2: invalid configuration")

	// ErrInvalidHandle is returned for a handle that is not a key UUID.
	ErrInvalidHandle = errors.New("tpm2: invalid key handle")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("tpm2: enclave closed")
)

// DefaultDevice is the kernel resource manager device.
const DefaultDevice = "/dev/tpmrm0"

// Config selects the TPM.
type Config struct {
	// Device is a character device path or a Unix socket ending in .sock.
	Device string `yaml:"device,omitempty" json:"device,omitempty"`

	// UseSimulator opens an in-process simulator instead of Device.
	UseSimulator bool `yaml:"use_simulator" json:"use_simulator"`

	// HierarchyAuth is the owner hierarchy password.
	HierarchyAuth string `yaml:"hierarchy_auth,omitempty" json:"hierarchy_auth,omitempty"`
}

// Validate checks that a TPM has been selected.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if !c.UseSimulator && c.Device == "" {
		return fmt.Errorf("%w: device or simulator is required", ErrInvalidConfig)
	}
	return nil
}
