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


// Package config loads the keytypes CLI configuration from YAML with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeremyhahn/go-keytypes/pkg/enclave/pkcs11"
	"github.com/jeremyhahn/go-keytypes/pkg/enclave/tpm2"
	"github.com/jeremyhahn/go-keytypes/pkg/logging"
	"github.com/jeremyhahn/go-keytypes/pkg/sealedbox"
	"github.com/jeremyhahn/go-keytypes/pkg/storage/vault"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Storage backends
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageVault  = "vault"
)

// Enclave types
const (
	EnclaveNone     = "none"
	EnclaveSoftware = "software"
	EnclavePKCS11   = "pkcs11"
	EnclaveTPM2     = "tpm2"
)

// Config represents the complete keytypes configuration
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Storage StorageConfig `yaml:"storage"`
	Enclave EnclaveConfig `yaml:"enclave"`
	Sealing SealingConfig `yaml:"sealing"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig selects where keychain records live
type StorageConfig struct {
	Backend string        `yaml:"backend"`
	Path    string        `yaml:"path"`
	Vault   *vault.Config `yaml:"vault,omitempty"`
}

// EnclaveConfig selects the hardware isolation service for secure enclave
// key types
type EnclaveConfig struct {
	Type   string         `yaml:"type"`
	PKCS11 *pkcs11.Config `yaml:"pkcs11,omitempty"`
	TPM2   *tpm2.Config   `yaml:"tpm2,omitempty"`
}

// SealingConfig enables at-rest encryption of keychain records
type SealingConfig struct {
	// KeyFile holds a base64 symmetric key. Empty disables sealing.
	KeyFile string `yaml:"key_file"`

	// Type is aesgcm, chachapoly or auto.
	Type string `yaml:"type"`
}

// MetricsConfig toggles Prometheus recording
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a file-backed configuration rooted in the user's config
// directory.
func Default() *Config {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Storage: StorageConfig{Backend: StorageFile, Path: filepath.Join(dir, "keytypes")},
		Enclave: EnclaveConfig{Type: EnclaveNone},
		Sealing: SealingConfig{Type: "auto"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		// #nosec G304 - config file path is provided by the user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if level := os.Getenv("KEYTYPES_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("KEYTYPES_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if backend := os.Getenv("KEYTYPES_STORAGE"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dataDir := os.Getenv("KEYTYPES_DATA_DIR"); dataDir != "" {
		cfg.Storage.Path = dataDir
	}
	if enclave := os.Getenv("KEYTYPES_ENCLAVE"); enclave != "" {
		cfg.Enclave.Type = enclave
	}
	if keyFile := os.Getenv("KEYTYPES_SEALING_KEY_FILE"); keyFile != "" {
		cfg.Sealing.KeyFile = keyFile
	}

	// Vault settings use the variable names of the vault CLI
	addr, token, namespace := os.Getenv("VAULT_ADDR"), os.Getenv("VAULT_TOKEN"), os.Getenv("VAULT_NAMESPACE")
	if addr != "" || token != "" || namespace != "" {
		if cfg.Storage.Vault == nil {
			cfg.Storage.Vault = &vault.Config{}
		}
		if addr != "" {
			cfg.Storage.Vault.Address = addr
		}
		if token != "" {
			cfg.Storage.Vault.Token = token
		}
		if namespace != "" {
			cfg.Storage.Vault.Namespace = namespace
		}
	}

	if lib := os.Getenv("PKCS11_LIBRARY"); lib != "" && cfg.Enclave.PKCS11 != nil {
		cfg.Enclave.PKCS11.Library = lib
	}
	if pin := os.Getenv("PKCS11_PIN"); pin != "" && cfg.Enclave.PKCS11 != nil {
		cfg.Enclave.PKCS11.PIN = pin
	}
	if device := os.Getenv("TPM_DEVICE_PATH"); device != "" {
		if cfg.Enclave.TPM2 == nil {
			cfg.Enclave.TPM2 = &tpm2.Config{}
		}
		cfg.Enclave.TPM2.Device = device
	}
}

// Validate checks if the configuration is valid. Hardware sections are only
// checked for presence; opening the device reports anything else.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: log level %q (must be debug, info, warn or error)", ErrInvalidConfig, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q (must be text or json)", ErrInvalidConfig, c.Logging.Format)
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage path is required for the file backend", ErrInvalidConfig)
		}
	case StorageVault:
		if c.Storage.Vault == nil {
			return fmt.Errorf("%w: storage.vault is required for the vault backend", ErrInvalidConfig)
		}
		if err := c.Storage.Vault.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	switch c.Enclave.Type {
	case "", EnclaveNone, EnclaveSoftware:
	case EnclavePKCS11:
		if c.Enclave.PKCS11 == nil || c.Enclave.PKCS11.Library == "" {
			return fmt.Errorf("%w: enclave.pkcs11.library is required", ErrInvalidConfig)
		}
	case EnclaveTPM2:
		if c.Enclave.TPM2 == nil {
			c.Enclave.TPM2 = &tpm2.Config{Device: tpm2.DefaultDevice}
		}
		if err := c.Enclave.TPM2.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: unknown enclave type %q", ErrInvalidConfig, c.Enclave.Type)
	}

	if _, err := c.Sealing.SealType(); err != nil {
		return err
	}
	return nil
}

// SealType resolves the configured sealed box type; auto and empty select
// sealedbox.PreferredType().
func (s SealingConfig) SealType() (sealedbox.SealedBoxType, error) {
	switch strings.ToLower(s.Type) {
	case "", "auto":
		return sealedbox.PreferredType(), nil
	case "aesgcm":
		return sealedbox.AESGCM, nil
	case "chachapoly":
		return sealedbox.ChaChaPoly, nil
	}
	return 0, fmt.Errorf("%w: sealing type %q (must be aesgcm, chachapoly or auto)", ErrInvalidConfig, s.Type)
}
