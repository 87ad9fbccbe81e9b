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


package keychain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jeremyhahn/go-keytypes/pkg/correlation"
	"github.com/jeremyhahn/go-keytypes/pkg/digest"
	"github.com/jeremyhahn/go-keytypes/pkg/keys"
	"github.com/jeremyhahn/go-keytypes/pkg/logging"
	"github.com/jeremyhahn/go-keytypes/pkg/metrics"
	"github.com/jeremyhahn/go-keytypes/pkg/sealedbox"
	"github.com/jeremyhahn/go-keytypes/pkg/storage"
	"github.com/jeremyhahn/go-keytypes/pkg/symmetric"
)

// Keychain stores private keys and passwords by label.
type Keychain interface {
	// GenerateAndStore creates a key of type t and stores it under label.
	// An occupied label fails with ErrAlreadyExists unless overwrite is set.
	GenerateAndStore(ctx context.Context, label string, t keys.KeyType, overwrite bool) (keys.PrivateKey, error)

	// Retrieve loads the key stored under label. A stored key of another
	// type fails with keys.ErrKeyTypeMismatch.
	Retrieve(ctx context.Context, label string, t keys.KeyType) (keys.PrivateKey, error)

	// RetrieveOrGenerate returns the stored key or generates and stores one.
	RetrieveOrGenerate(ctx context.Context, label string, t keys.KeyType) (keys.PrivateKey, error)

	// Store saves an existing key under label.
	Store(ctx context.Context, label string, key keys.PrivateKey, overwrite bool) error

	// Delete removes the key stored under label, destroying enclave keys.
	Delete(ctx context.Context, label string) error

	// List returns the stored key labels in sorted order.
	List(ctx context.Context) ([]string, error)

	StorePassword(ctx context.Context, server, account string, password []byte, overwrite bool) error
	RetrievePassword(ctx context.Context, server string) (*Credential, error)
	DeletePassword(ctx context.Context, server string) error
	ListPasswords(ctx context.Context) ([]string, error)

	NewSymmetricKey(bits int) (symmetric.Key, error)
	HMAC(t digest.DigestType, key symmetric.Key, data []byte) (symmetric.AuthenticationCode, error)

	Close() error
}

// Config configures a Service.
type Config struct {
	// Backend persists records. Required.
	Backend storage.Backend

	// BackendName labels metrics and log records (default "default").
	BackendName string

	// Enclave holds secure enclave key types. When nil those types fail
	// with keys.ErrSecureEnclaveUnavailable.
	Enclave keys.Enclave

	// SealingKey, when set, encrypts every record at rest.
	SealingKey *symmetric.Key

	// SealType selects the AEAD for sealed records. Zero selects
	// sealedbox.PreferredType().
	SealType sealedbox.SealedBoxType

	Logger *logging.Logger
}

// Service is the storage.Backend implementation of Keychain.
type Service struct {
	backend     storage.Backend
	backendName string
	enclave     keys.Enclave
	sealingKey  *symmetric.Key
	sealType    sealedbox.SealedBoxType
	logger      *logging.Logger
	locks       *labelLocks
	closed      atomic.Bool
}

var _ Keychain = (*Service)(nil)

// New creates a Service from config.
func New(config *Config) (*Service, error) {
	if config == nil || config.Backend == nil {
		return nil, fmt.Errorf("%w: backend is required", ErrInvalidConfig)
	}
	name := config.BackendName
	if name == "" {
		name = "default"
	}
	sealType := config.SealType
	if sealType == 0 {
		sealType = sealedbox.PreferredType()
	}
	if !sealType.Valid() {
		return nil, fmt.Errorf("%w: seal type %d", ErrInvalidConfig, sealType)
	}
	if config.SealingKey != nil {
		if err := checkSealingKey(sealType, *config.SealingKey); err != nil {
			return nil, err
		}
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Service{
		backend:     config.Backend,
		backendName: name,
		enclave:     config.Enclave,
		sealingKey:  config.SealingKey,
		sealType:    sealType,
		logger:      logger.With("component", "keychain", "backend", name),
		locks:       newLabelLocks(),
	}, nil
}

// Close closes the backend and the enclave, if any.
func (s *Service) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.backend.Close()
	if s.enclave != nil {
		err = errors.Join(err, s.enclave.Close())
	}
	return err
}

func (s *Service) NewSymmetricKey(bits int) (symmetric.Key, error) {
	return symmetric.New(bits)
}

func (s *Service) HMAC(t digest.DigestType, key symmetric.Key, data []byte) (symmetric.AuthenticationCode, error) {
	return symmetric.HMAC(t, key, data)
}

// observe records metrics for one operation and logs failures.
func (s *Service) observe(ctx context.Context, op, subject string, start time.Time, err error) {
	metrics.Observe(op, s.backendName, start, err, classify)
	logger := s.logger
	if id := correlation.ID(ctx); id != "" {
		logger = logger.With("correlation_id", id)
	}
	if err != nil {
		logger.Debug("keychain operation failed", "op", op, "label", subject, "error", err)
		return
	}
	logger.Debug("keychain operation", "op", op, "label", subject)
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, keys.ErrKeyTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, ErrInvalidLabel):
		return "invalid_label"
	case errors.Is(err, ErrCorruptRecord):
		return "corrupt_record"
	case errors.Is(err, keys.ErrSecureEnclaveUnavailable), errors.Is(err, keys.ErrSecureEnclaveFailure):
		return "enclave"
	}
	return "internal"
}

// validateLabel requires a single non-empty path element.
func validateLabel(label string) error {
	if label == "" || label == "." || label == ".." ||
		strings.ContainsAny(label, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}

func (s *Service) checkOpen() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}
