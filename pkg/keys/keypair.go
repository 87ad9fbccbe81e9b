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


package keys

import "context"

// Keypair owns a private key and its public half.
type Keypair struct {
	Private PrivateKey
	Public  PublicKey
}

// NewKeypair generates a software key pair of type t.
func NewKeypair(t KeyType) (Keypair, error) {
	priv, err := Generate(t)
	if err != nil {
		return Keypair{}, err
	}
	return KeypairFrom(priv), nil
}

// NewEnclaveKeypair generates a key pair whose private half lives in enclave.
func NewEnclaveKeypair(ctx context.Context, enclave Enclave, t KeyType) (Keypair, error) {
	priv, err := GenerateInEnclave(ctx, enclave, t)
	if err != nil {
		return Keypair{}, err
	}
	return KeypairFrom(priv), nil
}

// KeypairFrom pairs priv with its derived public key.
func KeypairFrom(priv PrivateKey) Keypair {
	return Keypair{Private: priv, Public: priv.PublicKey()}
}
