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


//go:build pkcs11

package pkcs11

import (
	"context"
	"crypto"
	"crypto/ecdh"
	"crypto/elliptic"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ThalesGroup/crypto11"
	"github.com/google/uuid"
	"github.com/jeremyhahn/go-keytypes/pkg/keys"
	"github.com/miekg/pkcs11"
)

// sharedSecretSize is the P-256 ECDH output length.
const sharedSecretSize = 32

// Enclave is a keys.Enclave on a PKCS#11 token.
type Enclave struct {
	mu      sync.Mutex
	config  *Config
	ctx     *crypto11.Context
	p11     *pkcs11.Ctx
	session pkcs11.SessionHandle
	closed  bool
}

var _ keys.Enclave = (*Enclave)(nil)

// Open logs in to the token described by config.
func Open(config *Config) (*Enclave, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ctx, err := crypto11.Configure(&crypto11.Config{
		Path:       config.Library,
		TokenLabel: config.TokenLabel,
		SlotNumber: config.Slot,
		Pin:        config.PIN,
	})
	if err != nil {
		return nil, fmt.Errorf("pkcs11: failed to configure context: %w", err)
	}

	e := &Enclave{config: config, ctx: ctx}
	if err := e.openSession(); err != nil {
		_ = ctx.Close()
		return nil, err
	}
	return e, nil
}

// openSession opens the low-level session used for key derivation. crypto11
// has already initialized the module, so CKR_CRYPTOKI_ALREADY_INITIALIZED and
// CKR_USER_ALREADY_LOGGED_IN are expected.
func (e *Enclave) openSession() error {
	p := pkcs11.New(e.config.Library)
	if p == nil {
		return fmt.Errorf("pkcs11: failed to load library: %s", e.config.Library)
	}
	if err := p.Initialize(); err != nil && err != pkcs11.Error(pkcs11.CKR_CRYPTOKI_ALREADY_INITIALIZED) {
		p.Destroy()
		return fmt.Errorf("pkcs11: failed to initialize: %w", err)
	}

	slot, err := e.findSlot(p)
	if err != nil {
		p.Destroy()
		return err
	}

	session, err := p.OpenSession(slot, pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
	if err != nil {
		p.Destroy()
		return fmt.Errorf("pkcs11: failed to open session: %w", err)
	}
	if e.config.PIN != "" {
		if err := p.Login(session, pkcs11.CKU_USER, e.config.PIN); err != nil &&
			err != pkcs11.Error(pkcs11.CKR_USER_ALREADY_LOGGED_IN) {
			_ = p.CloseSession(session)
			p.Destroy()
			return fmt.Errorf("pkcs11: failed to login: %w", err)
		}
	}
	e.p11 = p
	e.session = session
	return nil
}

func (e *Enclave) findSlot(p *pkcs11.Ctx) (uint, error) {
	if e.config.Slot != nil {
		return uint(*e.config.Slot), nil
	}
	slots, err := p.GetSlotList(true)
	if err != nil {
		return 0, fmt.Errorf("pkcs11: failed to get slot list: %w", err)
	}
	for _, slot := range slots {
		info, err := p.GetTokenInfo(slot)
		if err != nil {
			continue
		}
		if strings.TrimRight(info.Label, " \x00") == e.config.TokenLabel {
			return slot, nil
		}
	}
	return 0, fmt.Errorf("pkcs11: token %q not found", e.config.TokenLabel)
}

func (e *Enclave) GenerateKey(ctx context.Context, t keys.KeyType) (keys.EnclaveKey, error) {
	if !t.IsSecureEnclave() {
		return nil, fmt.Errorf("%w: %s", keys.ErrNotSecureEnclaveType, t)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	id := uuid.New()
	label := e.config.keyLabel(id.String())
	signer, err := e.ctx.GenerateECDSAKeyPairWithLabel(id[:], []byte(label), elliptic.P256())
	if err != nil {
		return nil, fmt.Errorf("pkcs11: failed to generate key pair: %w", err)
	}
	return &key{enclave: e, id: id, signer: signer}, nil
}

func (e *Enclave) LoadKey(ctx context.Context, t keys.KeyType, handle []byte) (keys.EnclaveKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := uuid.ParseBytes(handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	signer, err := e.ctx.FindKeyPair(id[:], nil)
	if err != nil {
		return nil, fmt.Errorf("pkcs11: failed to find key pair: %w", err)
	}
	if signer == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	}
	return &key{enclave: e, id: id, signer: signer}, nil
}

func (e *Enclave) DeleteKey(ctx context.Context, handle []byte) error {
	k, err := e.LoadKey(ctx, keys.P256SecureEnclaveSigning, handle)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := k.(*key).signer.Delete(); err != nil {
		return fmt.Errorf("pkcs11: failed to delete key pair: %w", err)
	}
	return nil
}

func (e *Enclave) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.p11 != nil {
		_ = e.p11.CloseSession(e.session)
		e.p11.Destroy()
	}
	return e.ctx.Close()
}

// derive runs CKM_ECDH1_DERIVE against the private key with CKA_ID id and
// returns the value of the derived secret.
func (e *Enclave) derive(id uuid.UUID, peer *ecdh.PublicKey) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	priv, err := e.findPrivateKey(id)
	if err != nil {
		return nil, err
	}

	params := pkcs11.NewECDH1DeriveParams(pkcs11.CKD_NULL, nil, peer.Bytes())
	mech := []*pkcs11.Mechanism{pkcs11.NewMechanism(pkcs11.CKM_ECDH1_DERIVE, params)}
	template := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_SECRET_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, pkcs11.CKK_GENERIC_SECRET),
		pkcs11.NewAttribute(pkcs11.CKA_TOKEN, false),
		pkcs11.NewAttribute(pkcs11.CKA_SENSITIVE, false),
		pkcs11.NewAttribute(pkcs11.CKA_EXTRACTABLE, true),
		pkcs11.NewAttribute(pkcs11.CKA_VALUE_LEN, sharedSecretSize),
	}

	secret, err := e.p11.DeriveKey(e.session, mech, priv, template)
	if err != nil {
		return nil, fmt.Errorf("pkcs11: ECDH derivation failed: %w", err)
	}
	defer func() { _ = e.p11.DestroyObject(e.session, secret) }()

	attrs, err := e.p11.GetAttributeValue(e.session, secret, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_VALUE, nil),
	})
	if err != nil {
		return nil, fmt.Errorf("pkcs11: failed to read derived secret: %w", err)
	}
	if len(attrs) == 0 || len(attrs[0].Value) != sharedSecretSize {
		return nil, fmt.Errorf("pkcs11: unexpected derived secret length")
	}
	return attrs[0].Value, nil
}

func (e *Enclave) findPrivateKey(id uuid.UUID) (pkcs11.ObjectHandle, error) {
	template := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PRIVATE_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_ID, id[:]),
	}
	if err := e.p11.FindObjectsInit(e.session, template); err != nil {
		return 0, fmt.Errorf("pkcs11: failed to search objects: %w", err)
	}
	handles, _, err := e.p11.FindObjects(e.session, 1)
	_ = e.p11.FindObjectsFinal(e.session)
	if err != nil {
		return 0, fmt.Errorf("pkcs11: failed to search objects: %w", err)
	}
	if len(handles) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	}
	return handles[0], nil
}

type key struct {
	enclave *Enclave
	id      uuid.UUID
	signer  crypto11.Signer
}

func (k *key) Public() crypto.PublicKey { return k.signer.Public() }

func (k *key) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return k.signer.Sign(rand, digest, opts)
}

func (k *key) Handle() []byte { return []byte(k.id.String()) }

func (k *key) ECDH(peer *ecdh.PublicKey) ([]byte, error) {
	return k.enclave.derive(k.id, peer)
}
