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


// Package keychain persists go-keytypes private keys and passwords under
// caller chosen labels.
//
// A Service stores one JSON record per label in a storage.Backend:
//
//	keys/{label}.key        {"type":"P256Signing","key":"BgQ...","created":"..."}
//	passwords/{server}.pw   {"server":"...","account":"...","password":"...","created":"..."}
//
// Software keys are stored as their typed data. Secure enclave keys are
// stored as the opaque handle returned by the configured keys.Enclave and
// reloaded through it, so their private material never reaches the backend.
//
// When a sealing key is configured every record is wrapped in a sealed box
// whose associated data is the record's storage path, so a record copied to
// another label fails to open.
//
// Basic usage:
//
//	kc, err := keychain.New(&keychain.Config{Backend: storage.NewMemory()})
//	if err != nil {
//	    return err
//	}
//	priv, err := kc.RetrieveOrGenerate(ctx, "identity", keys.P256Signing)
package keychain
