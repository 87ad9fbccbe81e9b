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

import "errors"

var (
	// ErrAlreadyExists is returned when storing to an occupied label
	// without overwrite.
	ErrAlreadyExists = errors.New("keychain: already exists")

	// ErrNotFound is returned when no record exists for a label or server.
	ErrNotFound = errors.New("keychain: not found")

	// ErrInvalidLabel is returned for empty labels and labels that are not
	// a single path element.
	ErrInvalidLabel = errors.New("keychain: invalid label")

	// ErrCorruptRecord is returned when a stored record cannot be decoded
	// or unsealed.
	ErrCorruptRecord = errors.New("keychain: corrupt record")

	// ErrInvalidConfig is returned by New.
	ErrInvalidConfig = errors.New("keychain: invalid config")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("keychain: closed")
)
