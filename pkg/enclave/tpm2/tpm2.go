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


//go:build tpm2

package tpm2

import (
	"context"
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/google/go-tpm-tools/simulator"
	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
	"github.com/google/go-tpm/tpm2/transport/linuxudstpm"
	"github.com/google/uuid"
	"github.com/jeremyhahn/go-keytypes/pkg/keys"
	"github.com/jeremyhahn/go-keytypes/pkg/signature"
)

const coordinateSize = 32

// simulatorSeed keeps simulator primaries stable for the life of a process.
const simulatorSeed = 1234567890

// Enclave is a keys.Enclave on a TPM 2.0. Commands are serialized.
type Enclave struct {
	mu     sync.Mutex
	tpm    transport.TPM
	closer io.Closer
	auth   []byte
	closed bool
}

var _ keys.Enclave = (*Enclave)(nil)

// Open connects to the TPM selected by config.
func Open(config *Config) (*Enclave, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		tpm    transport.TPM
		closer io.Closer
	)
	switch {
	case config.UseSimulator:
		sim, err := simulator.GetWithFixedSeedInsecure(simulatorSeed)
		if err != nil {
			return nil, fmt.Errorf("tpm2: failed to open simulator: %w", err)
		}
		tpm, closer = transport.FromReadWriter(sim), sim
	case strings.HasSuffix(config.Device, ".sock"):
		t, err := linuxudstpm.Open(config.Device)
		if err != nil {
			return nil, fmt.Errorf("tpm2: failed to open %s: %w", config.Device, err)
		}
		tpm, closer = t, t
	default:
		f, err := os.OpenFile(config.Device, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("tpm2: failed to open %s: %w", config.Device, err)
		}
		tpm, closer = transport.FromReadWriter(f), f
	}
	return &Enclave{tpm: tpm, closer: closer, auth: []byte(config.HierarchyAuth)}, nil
}

// template returns the P-256 primary template for id. Signing keys get
// sign, agreement keys get decrypt; the scheme is left open so the caller
// chooses the hash per signature.
func template(t keys.KeyType, id uuid.UUID) tpm2.TPMTPublic {
	unique := sha256.Sum256(id[:])
	return tpm2.TPMTPublic{
		Type:    tpm2.TPMAlgECC,
		NameAlg: tpm2.TPMAlgSHA256,
		ObjectAttributes: tpm2.TPMAObject{
			FixedTPM:            true,
			FixedParent:         true,
			SensitiveDataOrigin: true,
			UserWithAuth:        true,
			SignEncrypt:         t.IsSigning(),
			Decrypt:             t.IsKeyAgreement(),
		},
		Parameters: tpm2.NewTPMUPublicParms(
			tpm2.TPMAlgECC,
			&tpm2.TPMSECCParms{
				Symmetric: tpm2.TPMTSymDefObject{Algorithm: tpm2.TPMAlgNull},
				Scheme:    tpm2.TPMTECCScheme{Scheme: tpm2.TPMAlgNull},
				CurveID:   tpm2.TPMECCNistP256,
				KDF:       tpm2.TPMTKDFScheme{Scheme: tpm2.TPMAlgNull},
			},
		),
		Unique: tpm2.NewTPMUPublicID(
			tpm2.TPMAlgECC,
			&tpm2.TPMSECCPoint{
				X: tpm2.TPM2BECCParameter{Buffer: unique[:]},
				Y: tpm2.TPM2BECCParameter{Buffer: make([]byte, coordinateSize)},
			},
		),
	}
}

// createPrimary loads the primary for id. The caller must flush the handle.
func (e *Enclave) createPrimary(t keys.KeyType, id uuid.UUID) (*tpm2.CreatePrimaryResponse, error) {
	rsp, err := tpm2.CreatePrimary{
		PrimaryHandle: tpm2.AuthHandle{
			Handle: tpm2.TPMRHOwner,
			Auth:   tpm2.PasswordAuth(e.auth),
		},
		InPublic: tpm2.New2B(template(t, id)),
	}.Execute(e.tpm)
	if err != nil {
		return nil, fmt.Errorf("tpm2: failed to create primary key: %w", err)
	}
	return rsp, nil
}

func (e *Enclave) flush(handle tpm2.TPMHandle) {
	_, _ = tpm2.FlushContext{FlushHandle: handle}.Execute(e.tpm)
}

func (e *Enclave) load(t keys.KeyType, id uuid.UUID) (keys.EnclaveKey, error) {
	if !t.IsSecureEnclave() {
		return nil, fmt.Errorf("%w: %s", keys.ErrNotSecureEnclaveType, t)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	rsp, err := e.createPrimary(t, id)
	if err != nil {
		return nil, err
	}
	defer e.flush(rsp.ObjectHandle)

	pub, err := rsp.OutPublic.Contents()
	if err != nil {
		return nil, fmt.Errorf("tpm2: failed to read public area: %w", err)
	}
	point, err := pub.Unique.ECC()
	if err != nil {
		return nil, fmt.Errorf("tpm2: failed to read public point: %w", err)
	}
	public, err := ecdsa.ParseUncompressedPublicKey(elliptic.P256(), uncompressed(point))
	if err != nil {
		return nil, fmt.Errorf("tpm2: invalid public point: %w", err)
	}
	return &key{enclave: e, typ: t, id: id, public: public}, nil
}

func (e *Enclave) GenerateKey(ctx context.Context, t keys.KeyType) (keys.EnclaveKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.load(t, uuid.New())
}

func (e *Enclave) LoadKey(ctx context.Context, t keys.KeyType, handle []byte) (keys.EnclaveKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := uuid.ParseBytes(handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}
	return e.load(t, id)
}

// DeleteKey only validates the handle. Primaries are derived on demand from
// the hierarchy seed, so there is no stored object to destroy.
func (e *Enclave) DeleteKey(ctx context.Context, handle []byte) error {
	if _, err := uuid.ParseBytes(handle); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHandle, err)
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
	return e.closer.Close()
}

func (e *Enclave) sign(k *key, digest []byte, hash crypto.Hash) ([]byte, error) {
	alg, err := hashAlg(hash, len(digest))
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	rsp, err := e.createPrimary(k.typ, k.id)
	if err != nil {
		return nil, err
	}
	defer e.flush(rsp.ObjectHandle)

	signRsp, err := tpm2.Sign{
		KeyHandle: tpm2.AuthHandle{
			Handle: rsp.ObjectHandle,
			Name:   rsp.Name,
			Auth:   tpm2.PasswordAuth(nil),
		},
		Digest: tpm2.TPM2BDigest{Buffer: digest},
		InScheme: tpm2.TPMTSigScheme{
			Scheme: tpm2.TPMAlgECDSA,
			Details: tpm2.NewTPMUSigScheme(
				tpm2.TPMAlgECDSA,
				&tpm2.TPMSSchemeHash{HashAlg: alg},
			),
		},
		Validation: tpm2.TPMTTKHashCheck{Tag: tpm2.TPMSTHashCheck},
	}.Execute(e.tpm)
	if err != nil {
		return nil, fmt.Errorf("tpm2: signing failed: %w", err)
	}

	sig, err := signRsp.Signature.Signature.ECDSA()
	if err != nil {
		return nil, fmt.Errorf("tpm2: failed to read signature: %w", err)
	}
	rs, err := signature.FromRS(signature.P256,
		new(big.Int).SetBytes(sig.SignatureR.Buffer),
		new(big.Int).SetBytes(sig.SignatureS.Buffer))
	if err != nil {
		return nil, err
	}
	return rs.DER()
}

func (e *Enclave) ecdh(k *key, peer *ecdh.PublicKey) ([]byte, error) {
	raw := peer.Bytes()
	if len(raw) != 1+2*coordinateSize {
		return nil, fmt.Errorf("tpm2: peer is not a P-256 point")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	rsp, err := e.createPrimary(k.typ, k.id)
	if err != nil {
		return nil, err
	}
	defer e.flush(rsp.ObjectHandle)

	zgen, err := tpm2.ECDHZGen{
		KeyHandle: tpm2.AuthHandle{
			Handle: rsp.ObjectHandle,
			Name:   rsp.Name,
			Auth:   tpm2.PasswordAuth(nil),
		},
		InPoint: tpm2.New2B(tpm2.TPMSECCPoint{
			X: tpm2.TPM2BECCParameter{Buffer: raw[1 : 1+coordinateSize]},
			Y: tpm2.TPM2BECCParameter{Buffer: raw[1+coordinateSize:]},
		}),
	}.Execute(e.tpm)
	if err != nil {
		return nil, fmt.Errorf("tpm2: ECDH failed: %w", err)
	}
	point, err := zgen.OutPoint.Contents()
	if err != nil {
		return nil, fmt.Errorf("tpm2: failed to read shared point: %w", err)
	}
	return leftPad(point.X.Buffer), nil
}

func hashAlg(hash crypto.Hash, digestLen int) (tpm2.TPMAlgID, error) {
	if hash == 0 {
		switch digestLen {
		case 32:
			hash = crypto.SHA256
		case 48:
			hash = crypto.SHA384
		case 64:
			hash = crypto.SHA512
		}
	}
	switch hash {
	case crypto.SHA256:
		return tpm2.TPMAlgSHA256, nil
	case crypto.SHA384:
		return tpm2.TPMAlgSHA384, nil
	case crypto.SHA512:
		return tpm2.TPMAlgSHA512, nil
	}
	return 0, fmt.Errorf("tpm2: unsupported hash %v", hash)
}

func uncompressed(point *tpm2.TPMSECCPoint) []byte {
	out := make([]byte, 0, 1+2*coordinateSize)
	out = append(out, 0x04)
	out = append(out, leftPad(point.X.Buffer)...)
	return append(out, leftPad(point.Y.Buffer)...)
}

func leftPad(b []byte) []byte {
	if len(b) >= coordinateSize {
		return b
	}
	out := make([]byte, coordinateSize)
	copy(out[coordinateSize-len(b):], b)
	return out
}

type key struct {
	enclave *Enclave
	typ     keys.KeyType
	id      uuid.UUID
	public  *ecdsa.PublicKey
}

func (k *key) Public() crypto.PublicKey { return k.public }

func (k *key) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	var hash crypto.Hash
	if opts != nil {
		hash = opts.HashFunc()
	}
	return k.enclave.sign(k, digest, hash)
}

func (k *key) Handle() []byte { return []byte(k.id.String()) }

func (k *key) ECDH(peer *ecdh.PublicKey) ([]byte, error) {
	return k.enclave.ecdh(k, peer)
}
