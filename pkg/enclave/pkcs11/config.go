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


// Package pkcs11 provides a keys.Enclave backed by a PKCS#11 token such as an
// HSM, a smart card or SoftHSM.
//
// Signing goes through crypto11. Key agreement derives an ephemeral generic
// secret on the token with CKM_ECDH1_DERIVE and reads back its value, so the
// EC private key itself never leaves the token.
//
// The implementation requires cgo and is compiled with the pkcs11 build tag:
//
//	go build -tags pkcs11 ./...
package pkcs11

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNotCompiled is returned by Open when built without the pkcs11 tag.
	ErrNotCompiled = errors.New("pkcs11: support not compiled, rebuild with -tags pkcs11")

	// ErrInvalidConfig is returned for incomplete configuration.
	ErrInvalidConfig = errors.New("pkcs11: invalid configuration")

	// ErrKeyNotFound is returned when no key pair matches a handle.
	ErrKeyNotFound = errors.New("pkcs11: key not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("pkcs11: enclave closed")
)

// Config identifies the token and its credentials.
type Config struct {
	// Library is the path to the PKCS#11 module, for example
	// /usr/lib/softhsm/libsofthsm2.so.
	Library string `yaml:"library" json:"library"`

	// TokenLabel selects the token. Either TokenLabel or Slot is required.
	TokenLabel string `yaml:"label,omitempty" json:"label,omitempty"`

	// Slot selects the token by slot number.
	Slot *int `yaml:"slot,omitempty" json:"slot,omitempty"`

	// PIN is the user PIN.
	PIN string `yaml:"pin,omitempty" json:"pin,omitempty"`

	// KeyLabelPrefix is prepended to the label of generated key objects.
	KeyLabelPrefix string `yaml:"key_label_prefix,omitempty" json:"key_label_prefix,omitempty"`
}

// Validate checks that the configuration can open a session.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if c.Library == "" {
		return fmt.Errorf("%w: library path is required", ErrInvalidConfig)
	}
	if _, err := os.Stat(c.Library); err != nil {
		return fmt.Errorf("%w: library %s: %v", ErrInvalidConfig, c.Library, err)
	}
	if c.TokenLabel == "" && c.Slot == nil {
		return fmt.Errorf("%w: token label or slot is required", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) keyLabel(id string) string {
	if c.KeyLabelPrefix == "" {
		return "keytypes-" + id
	}
	return c.KeyLabelPrefix + id
}
