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


// Package vault provides a storage.Backend on a HashiCorp Vault KV version 2
// secrets engine. Values are stored base64 encoded under
// {mount}/data/{prefix}/{key}.
package vault

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("vault storage: invalid config")

	// ErrInvalidResponse is returned when Vault answers with an
	// unexpected payload shape.
	ErrInvalidResponse = errors.New("vault storage: invalid response")
)

const (
	DefaultMount  = "secret"
	DefaultPrefix = "keytypes"
)

// Config holds the configuration for the Vault storage backend.
type Config struct {
	// Address is the Vault server address (e.g., "http://127.0.0.1:8200")
	Address string `yaml:"address" json:"address"`

	// Token is the Vault authentication token
	Token string `yaml:"token" json:"-"`

	// Namespace is the Vault namespace (Enterprise feature, optional)
	Namespace string `yaml:"namespace" json:"namespace"`

	// Mount is the KV v2 mount path (default: "secret")
	Mount string `yaml:"mount" json:"mount"`

	// Prefix scopes every key below the mount (default: "keytypes")
	Prefix string `yaml:"prefix" json:"prefix"`

	// TLSSkipVerify disables TLS certificate verification
	TLSSkipVerify bool `yaml:"tls_skip_verify" json:"tls_skip_verify"`
}

// Validate checks required fields and fills in defaults.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidConfig)
	}
	if c.Token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidConfig)
	}
	c.Mount = strings.Trim(c.Mount, "/")
	if c.Mount == "" {
		c.Mount = DefaultMount
	}
	c.Prefix = strings.Trim(c.Prefix, "/")
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	return nil
}
