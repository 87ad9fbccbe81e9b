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
	"time"

	"github.com/jeremyhahn/go-keytypes/pkg/metrics"
	"github.com/jeremyhahn/go-keytypes/pkg/storage"
)

// Credential is a stored account and password for a server.
type Credential struct {
	Server   string
	Account  string
	Password []byte
	Created  time.Time
}

// Zeroize overwrites the password bytes.
func (c *Credential) Zeroize() {
	clear(c.Password)
}

// String omits the password.
func (c *Credential) String() string {
	return fmt.Sprintf("%s@%s", c.Account, c.Server)
}

func validateServer(server string) error {
	if strings.TrimSpace(server) == "" {
		return fmt.Errorf("%w: empty server", ErrInvalidLabel)
	}
	return validateLabel(server)
}

// StorePassword saves account and password for server.
func (s *Service) StorePassword(ctx context.Context, server, account string, password []byte, overwrite bool) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, metrics.OpStorePassword, server, start, err) }()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := validateServer(server); err != nil {
		return err
	}
	path := storage.PasswordPath(server)
	unlock := s.locks.lock(path)
	defer unlock()

	if !overwrite {
		exists, err := s.exists(ctx, path)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
	}
	return s.put(ctx, path, &passwordRecord{
		Server:   server,
		Account:  account,
		Password: password,
		Created:  time.Now().UTC(),
	})
}

// RetrievePassword loads the credential stored for server.
func (s *Service) RetrievePassword(ctx context.Context, server string) (cred *Credential, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, metrics.OpRetrievePassword, server, start, err) }()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := validateServer(server); err != nil {
		return nil, err
	}
	path := storage.PasswordPath(server)
	unlock := s.locks.lock(path)
	defer unlock()

	var rec passwordRecord
	if err := s.get(ctx, path, &rec); err != nil {
		return nil, err
	}
	return &Credential{
		Server:   rec.Server,
		Account:  rec.Account,
		Password: rec.Password,
		Created:  rec.Created,
	}, nil
}

// DeletePassword removes the credential stored for server.
func (s *Service) DeletePassword(ctx context.Context, server string) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, metrics.OpDeletePassword, server, start, err) }()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := validateServer(server); err != nil {
		return err
	}
	path := storage.PasswordPath(server)
	unlock := s.locks.lock(path)
	defer unlock()

	if err := s.backend.Delete(ctx, path); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return err
	}
	return nil
}

// ListPasswords returns the servers with stored credentials.
func (s *Service) ListPasswords(ctx context.Context) (servers []string, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, metrics.OpList, "", start, err) }()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return storage.ListPasswords(ctx, s.backend)
}
