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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-keytypes/pkg/keys"
	"github.com/jeremyhahn/go-keytypes/pkg/sealedbox"
	"github.com/jeremyhahn/go-keytypes/pkg/storage"
	"github.com/jeremyhahn/go-keytypes/pkg/symmetric"
)

// keyRecord is the stored form of a private key. Exactly one of Key and
// Handle is set.
type keyRecord struct {
	Type    keys.KeyType `json:"type"`
	Key     []byte       `json:"key,omitempty"`
	Handle  []byte       `json:"handle,omitempty"`
	Created time.Time    `json:"created"`
}

type passwordRecord struct {
	Server   string    `json:"server"`
	Account  string    `json:"account"`
	Password []byte    `json:"password"`
	Created  time.Time `json:"created"`
}

func newKeyRecord(key keys.PrivateKey) (*keyRecord, error) {
	rec := &keyRecord{Type: key.Type(), Created: time.Now().UTC()}
	if handle, ok := key.EnclaveHandle(); ok {
		rec.Handle = handle
		return rec, nil
	}
	data, err := key.TypedData()
	if err != nil {
		return nil, err
	}
	rec.Key = data
	return rec, nil
}

func checkSealingKey(t sealedbox.SealedBoxType, key symmetric.Key) error {
	n, err := t.RandomNonce()
	if err != nil {
		return err
	}
	if _, err := sealedbox.Seal(t, n, key, nil); err != nil {
		return fmt.Errorf("%w: sealing key: %v", ErrInvalidConfig, err)
	}
	return nil
}

// put encodes v, seals it when configured and writes it to path.
func (s *Service) put(ctx context.Context, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if s.sealingKey != nil {
		n, err := s.sealType.RandomNonce()
		if err != nil {
			return err
		}
		box, err := sealedbox.SealWithAAD(s.sealType, n, *s.sealingKey, data, []byte(path))
		if err != nil {
			return err
		}
		data = box.TypedData()
	}
	return s.backend.Put(ctx, path, data, storage.DefaultOptions())
}

// get reads path, unseals it when configured and decodes it into v.
func (s *Service) get(ctx context.Context, path string, v any) error {
	data, err := s.backend.Get(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return err
	}
	if s.sealingKey != nil {
		box, err := sealedbox.FromTypedData(data)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptRecord, path, err)
		}
		if data, err = box.OpenWithAAD(*s.sealingKey, []byte(path)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptRecord, path, err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptRecord, path, err)
	}
	return nil
}

func (s *Service) exists(ctx context.Context, path string) (bool, error) {
	return s.backend.Exists(ctx, path)
}
