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


package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jeremyhahn/go-keytypes/internal/config"
	"github.com/jeremyhahn/go-keytypes/pkg/enclave/pkcs11"
	"github.com/jeremyhahn/go-keytypes/pkg/enclave/software"
	"github.com/jeremyhahn/go-keytypes/pkg/enclave/tpm2"
	"github.com/jeremyhahn/go-keytypes/pkg/keychain"
	"github.com/jeremyhahn/go-keytypes/pkg/keys"
	"github.com/jeremyhahn/go-keytypes/pkg/storage"
	"github.com/jeremyhahn/go-keytypes/pkg/storage/file"
	"github.com/jeremyhahn/go-keytypes/pkg/storage/vault"
	"github.com/jeremyhahn/go-keytypes/pkg/symmetric"
)

// openKeychain builds a keychain.Service from the loaded configuration.
// The caller must Close it.
func (a *app) openKeychain(ctx context.Context) (*keychain.Service, error) {
	sealType, err := a.cfg.Sealing.SealType()
	if err != nil {
		return nil, err
	}
	backend, err := a.openStorage()
	if err != nil {
		return nil, err
	}
	enclave, err := a.openEnclave()
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	sealingKey, err := loadSealingKey(a.cfg.Sealing.KeyFile)
	if err != nil {
		_ = backend.Close()
		if enclave != nil {
			_ = enclave.Close()
		}
		return nil, err
	}

	kc, err := keychain.New(&keychain.Config{
		Backend:     backend,
		BackendName: a.cfg.Storage.Backend,
		Enclave:     enclave,
		SealingKey:  sealingKey,
		SealType:    sealType,
		Logger:      a.logger,
	})
	if err != nil {
		_ = backend.Close()
		if enclave != nil {
			_ = enclave.Close()
		}
		return nil, err
	}
	a.logger.Debug("keychain opened",
		"storage", a.cfg.Storage.Backend,
		"enclave", a.cfg.Enclave.Type,
		"sealed", sealingKey != nil)
	return kc, nil
}

func (a *app) openStorage() (storage.Backend, error) {
	switch a.cfg.Storage.Backend {
	case config.StorageMemory:
		return storage.NewMemory(), nil
	case config.StorageFile:
		backend, err := file.New(a.cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case config.StorageVault:
		backend, err := vault.New(a.cfg.Storage.Vault)
		if err != nil {
			return nil, err
		}
		return backend, nil
	}
	return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, a.cfg.Storage.Backend)
}

// openEnclave returns nil when no enclave is configured.
func (a *app) openEnclave() (keys.Enclave, error) {
	switch a.cfg.Enclave.Type {
	case "", config.EnclaveNone:
		return nil, nil
	case config.EnclaveSoftware:
		if a.cfg.Storage.Backend != config.StorageMemory {
			a.logger.Warn("software enclave keys do not survive the process; stored handles will not load again")
		}
		return software.New(), nil
	case config.EnclavePKCS11:
		enclave, err := pkcs11.Open(a.cfg.Enclave.PKCS11)
		if err != nil {
			return nil, err
		}
		return enclave, nil
	case config.EnclaveTPM2:
		enclave, err := tpm2.Open(a.cfg.Enclave.TPM2)
		if err != nil {
			return nil, err
		}
		return enclave, nil
	}
	return nil, fmt.Errorf("%w: unknown enclave type %q", config.ErrInvalidConfig, a.cfg.Enclave.Type)
}

// loadSealingKey reads a base64 symmetric key. An empty path disables sealing.
func loadSealingKey(path string) (*symmetric.Key, error) {
	if path == "" {
		return nil, nil
	}
	// #nosec G304 - sealing key path comes from configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sealing key: %w", err)
	}
	var key symmetric.Key
	if err := key.UnmarshalText(bytes.TrimSpace(data)); err != nil {
		return nil, fmt.Errorf("invalid sealing key in %s: %w", path, err)
	}
	return &key, nil
}

// withKeychain opens the keychain for the duration of fn.
func (a *app) withKeychain(ctx context.Context, fn func(kc *keychain.Service) error) (err error) {
	kc, err := a.openKeychain(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, kc.Close())
	}()
	return fn(kc)
}
