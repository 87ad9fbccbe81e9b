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
	"time"

	"github.com/jeremyhahn/go-keytypes/pkg/keys"
	"github.com/jeremyhahn/go-keytypes/pkg/metrics"
	"github.com/jeremyhahn/go-keytypes/pkg/storage"
)

func (s *Service) GenerateAndStore(ctx context.Context, label string, t keys.KeyType, overwrite bool) (priv keys.PrivateKey, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, metrics.OpGenerate, label, start, err) }()

	if err := s.checkOpen(); err != nil {
		return keys.PrivateKey{}, err
	}
	if err := validateLabel(label); err != nil {
		return keys.PrivateKey{}, err
	}
	unlock := s.locks.lock(storage.KeyPath(label))
	defer unlock()

	return s.generateAndStore(ctx, label, t, overwrite)
}

func (s *Service) generateAndStore(ctx context.Context, label string, t keys.KeyType, overwrite bool) (keys.PrivateKey, error) {
	path := storage.KeyPath(label)
	old, err := s.occupant(ctx, path, overwrite)
	if err != nil {
		return keys.PrivateKey{}, err
	}

	priv, err := s.generate(ctx, t)
	if err != nil {
		return keys.PrivateKey{}, err
	}
	if err := s.storeKey(ctx, path, priv, old); err != nil {
		s.discard(ctx, priv)
		return keys.PrivateKey{}, err
	}
	metrics.RecordKeyGenerated(t.String())
	s.logger.Info("generated key", "label", label, "type", t.String(), "enclave", priv.IsEnclave())
	return priv, nil
}

func (s *Service) generate(ctx context.Context, t keys.KeyType) (keys.PrivateKey, error) {
	if t.IsSecureEnclave() {
		return keys.GenerateInEnclave(ctx, s.enclave, t)
	}
	return keys.Generate(t)
}

// discard destroys an enclave key that could not be persisted.
func (s *Service) discard(ctx context.Context, priv keys.PrivateKey) {
	if handle, ok := priv.EnclaveHandle(); ok && s.enclave != nil {
		s.logger.MaybeError(s.enclave.DeleteKey(ctx, handle), "op", "discard")
	}
}

func (s *Service) Retrieve(ctx context.Context, label string, t keys.KeyType) (priv keys.PrivateKey, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, metrics.OpRetrieve, label, start, err) }()

	if err := s.checkOpen(); err != nil {
		return keys.PrivateKey{}, err
	}
	if err := validateLabel(label); err != nil {
		return keys.PrivateKey{}, err
	}
	unlock := s.locks.lock(storage.KeyPath(label))
	defer unlock()

	return s.retrieve(ctx, label, t)
}

func (s *Service) retrieve(ctx context.Context, label string, t keys.KeyType) (keys.PrivateKey, error) {
	var rec keyRecord
	if err := s.get(ctx, storage.KeyPath(label), &rec); err != nil {
		return keys.PrivateKey{}, err
	}
	if rec.Type != t {
		return keys.PrivateKey{}, &keys.KeyTypeMismatchError{A: t, B: rec.Type}
	}
	return s.restore(ctx, label, &rec)
}

func (s *Service) restore(ctx context.Context, label string, rec *keyRecord) (keys.PrivateKey, error) {
	if rec.Handle != nil {
		return keys.RestoreEnclaveKey(ctx, s.enclave, rec.Type, rec.Handle)
	}
	priv, err := keys.PrivateKeyFromTypedData(rec.Key)
	if err != nil {
		return keys.PrivateKey{}, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, label, err)
	}
	if priv.Type() != rec.Type {
		return keys.PrivateKey{}, fmt.Errorf("%w: %s: record type %s holds %s key",
			ErrCorruptRecord, label, rec.Type, priv.Type())
	}
	return priv, nil
}

func (s *Service) RetrieveOrGenerate(ctx context.Context, label string, t keys.KeyType) (priv keys.PrivateKey, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, metrics.OpRetrieve, label, start, err) }()

	if err := s.checkOpen(); err != nil {
		return keys.PrivateKey{}, err
	}
	if err := validateLabel(label); err != nil {
		return keys.PrivateKey{}, err
	}
	unlock := s.locks.lock(storage.KeyPath(label))
	defer unlock()

	priv, err = s.retrieve(ctx, label, t)
	if errors.Is(err, ErrNotFound) {
		return s.generateAndStore(ctx, label, t, false)
	}
	return priv, err
}

func (s *Service) Store(ctx context.Context, label string, key keys.PrivateKey, overwrite bool) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, metrics.OpStore, label, start, err) }()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := validateLabel(label); err != nil {
		return err
	}
	if !key.Type().Valid() {
		return fmt.Errorf("%w: zero private key", keys.ErrBadKeyData)
	}
	unlock := s.locks.lock(storage.KeyPath(label))
	defer unlock()

	path := storage.KeyPath(label)
	old, err := s.occupant(ctx, path, overwrite)
	if err != nil {
		return err
	}
	return s.storeKey(ctx, path, key, old)
}

// occupant returns the record currently at path, nil if the path is free,
// or ErrAlreadyExists when it is taken and overwrite is false. Unreadable
// records are treated as replaceable when overwriting.
func (s *Service) occupant(ctx context.Context, path string, overwrite bool) (*keyRecord, error) {
	exists, err := s.exists(ctx, path)
	if err != nil || !exists {
		return nil, err
	}
	if !overwrite {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	var rec keyRecord
	if err := s.get(ctx, path, &rec); err != nil {
		s.logger.Warn("replacing unreadable record", "path", path, "error", err)
		return nil, nil
	}
	return &rec, nil
}

// storeKey writes key to path and destroys the enclave key of the record it
// replaces, if any.
func (s *Service) storeKey(ctx context.Context, path string, key keys.PrivateKey, old *keyRecord) error {
	rec, err := newKeyRecord(key)
	if err != nil {
		return err
	}
	if err := s.put(ctx, path, rec); err != nil {
		return err
	}
	if old != nil && old.Handle != nil && string(old.Handle) != string(rec.Handle) && s.enclave != nil {
		s.logger.MaybeError(s.enclave.DeleteKey(ctx, old.Handle), "op", "replace", "path", path)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, label string) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, metrics.OpDelete, label, start, err) }()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := validateLabel(label); err != nil {
		return err
	}
	unlock := s.locks.lock(storage.KeyPath(label))
	defer unlock()

	path := storage.KeyPath(label)
	var rec keyRecord
	if err := s.get(ctx, path, &rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		// Still remove records that no longer decode
		s.logger.Warn("deleting unreadable record", "path", path, "error", err)
	}
	if rec.Handle != nil {
		if s.enclave == nil {
			return fmt.Errorf("%w: cannot destroy %s", keys.ErrSecureEnclaveUnavailable, label)
		}
		if err := s.enclave.DeleteKey(ctx, rec.Handle); err != nil {
			return fmt.Errorf("%w: %v", keys.ErrSecureEnclaveFailure, err)
		}
	}
	if err := s.backend.Delete(ctx, path); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return err
	}
	s.logger.Info("deleted key", "label", label)
	return nil
}

func (s *Service) List(ctx context.Context) (labels []string, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, metrics.OpList, "", start, err) }()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	labels, err = storage.ListKeys(ctx, s.backend)
	if err != nil {
		return nil, err
	}
	metrics.SetKeysTotal(s.backendName, len(labels))
	return labels, nil
}
