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
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-keytypes/internal/config"
	"github.com/jeremyhahn/go-keytypes/pkg/digest"
	"github.com/jeremyhahn/go-keytypes/pkg/keychain"
	"github.com/jeremyhahn/go-keytypes/pkg/keys"
	"github.com/jeremyhahn/go-keytypes/pkg/sealedbox"
	"github.com/jeremyhahn/go-keytypes/pkg/signature"
	"github.com/jeremyhahn/go-keytypes/pkg/symmetric"
	"github.com/spf13/cobra"
)

// ErrVerificationFailed is returned by verify when the signature or
// authentication code does not match.
var ErrVerificationFailed = errors.New("verification failed")

func newSignCmd(a *app) *cobra.Command {
	var (
		in      input
		key     string
		label   string
		keyType string
		prehash string
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a message or digest",
		Long: `Sign input with a private key given inline (--key) or stored in the
keychain (--label with --type). With --digest the value is a digest display
string that is signed as is.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signFn := func(priv keys.PrivateKey) (signature.Signature, error) {
				if prehash != "" {
					d, err := digest.ParseString(prehash)
					if err != nil {
						return signature.Signature{}, err
					}
					return priv.SignDigest(d)
				}
				message, err := in.read(cmd)
				if err != nil {
					return signature.Signature{}, err
				}
				return priv.Sign(message)
			}

			var sig signature.Signature
			switch {
			case key != "":
				priv, err := parsePrivateKey(key)
				if err != nil {
					return err
				}
				if sig, err = signFn(priv); err != nil {
					return err
				}
			case label != "":
				t, err := keys.ParseKeyType(keyType)
				if err != nil {
					return err
				}
				err = a.withKeychain(cmd.Context(), func(kc *keychain.Service) error {
					priv, err := kc.Retrieve(cmd.Context(), label, t)
					if err != nil {
						return err
					}
					sig, err = signFn(priv)
					return err
				})
				if err != nil {
					return err
				}
			default:
				return errors.New("one of --key or --label is required")
			}
			return a.printer(cmd).PrintFields(
				Field{"type", sig.Type().String()},
				Field{"signature", sig.String()},
			)
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&key, "key", "k", "", "private key (display form or @file)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "keychain label of the signing key")
	cmd.Flags().StringVarP(&keyType, "type", "t", keys.P256Signing.String(), "key type stored under --label")
	cmd.Flags().StringVar(&prehash, "digest", "", "sign this digest instead of the input")
	cmd.MarkFlagsMutuallyExclusive("key", "label")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var (
		in      input
		public  string
		sigText string
		prehash string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := parsePublicKey(public)
			if err != nil {
				return err
			}
			s, err := readValue(sigText)
			if err != nil {
				return err
			}
			sig, err := signature.ParseString(s)
			if err != nil {
				return err
			}

			var valid bool
			if prehash != "" {
				d, err := digest.ParseString(prehash)
				if err != nil {
					return err
				}
				valid = pub.VerifyDigest(sig, d)
			} else {
				message, err := in.read(cmd)
				if err != nil {
					return err
				}
				valid = pub.Verify(sig, message)
			}
			if err := a.printer(cmd).PrintFields(Field{"valid", valid}); err != nil {
				return err
			}
			if !valid {
				return ErrVerificationFailed
			}
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&public, "public", "p", "", "public key (display form or @file)")
	cmd.Flags().StringVarP(&sigText, "signature", "s", "", "signature (display form or @file)")
	cmd.Flags().StringVar(&prehash, "digest", "", "verify against this digest instead of the input")
	_ = cmd.MarkFlagRequired("public")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func newDigestCmd(a *app) *cobra.Command {
	var (
		in         input
		digestType string
	)
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Hash input into a typed digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := digest.ParseType(digestType)
			if err != nil {
				return err
			}
			data, err := in.read(cmd)
			if err != nil {
				return err
			}
			d, err := digest.Compute(t, data)
			if err != nil {
				return err
			}
			return a.printer(cmd).PrintFields(Field{"digest", d.String()})
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&digestType, "type", "t", digest.SHA256.String(), "digest type (SHA256, SHA384, SHA512)")
	return cmd
}

func newHMACCmd(a *app) *cobra.Command {
	var (
		in         input
		key        string
		digestType string
		expect     string
	)
	cmd := &cobra.Command{
		Use:   "hmac",
		Short: "Authenticate input with a symmetric key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseSymmetricKey(key)
			if err != nil {
				return err
			}
			t, err := digest.ParseType(digestType)
			if err != nil {
				return err
			}
			data, err := in.read(cmd)
			if err != nil {
				return err
			}
			if expect != "" {
				mac, err := base64.StdEncoding.DecodeString(expect)
				if err != nil {
					return fmt.Errorf("invalid --verify value: %w", err)
				}
				valid := symmetric.VerifyHMAC(symmetric.AuthenticationCode{Type: t, MAC: mac}, k, data)
				if err := a.printer(cmd).PrintFields(Field{"valid", valid}); err != nil {
					return err
				}
				if !valid {
					return ErrVerificationFailed
				}
				return nil
			}
			code, err := symmetric.HMAC(t, k, data)
			if err != nil {
				return err
			}
			return a.printer(cmd).PrintFields(Field{"mac", base64.StdEncoding.EncodeToString(code.MAC)})
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&key, "key", "k", "", "symmetric key (base64 or @file)")
	cmd.Flags().StringVarP(&digestType, "type", "t", digest.SHA256.String(), "digest type (SHA256, SHA384, SHA512)")
	cmd.Flags().StringVar(&expect, "verify", "", "compare against this base64 code instead of printing one")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newSealCmd(a *app) *cobra.Command {
	var (
		in      input
		key     string
		boxType string
		aad     string
	)
	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Encrypt input into a typed sealed box",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseSymmetricKey(key)
			if err != nil {
				return err
			}
			t, err := config.SealingConfig{Type: boxType}.SealType()
			if err != nil {
				return err
			}
			plaintext, err := in.read(cmd)
			if err != nil {
				return err
			}
			n, err := t.RandomNonce()
			if err != nil {
				return err
			}
			box, err := sealedbox.SealWithAAD(t, n, k, plaintext, []byte(aad))
			if err != nil {
				return err
			}
			return a.printer(cmd).PrintFields(
				Field{"type", t.String()},
				Field{"box", box.String()},
			)
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&key, "key", "k", "", "symmetric key (base64 or @file)")
	cmd.Flags().StringVarP(&boxType, "type", "t", "auto", "box type (aesgcm, chachapoly, auto)")
	cmd.Flags().StringVar(&aad, "aad", "", "additional authenticated data")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newOpenCmd(a *app) *cobra.Command {
	var (
		key string
		aad string
	)
	cmd := &cobra.Command{
		Use:   "open <box|@file>",
		Short: "Decrypt a typed sealed box",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseSymmetricKey(key)
			if err != nil {
				return err
			}
			s, err := readValue(args[0])
			if err != nil {
				return err
			}
			box, err := sealedbox.ParseString(s)
			if err != nil {
				return err
			}
			plaintext, err := box.OpenWithAAD(k, []byte(aad))
			if err != nil {
				return err
			}
			return a.printer(cmd).PrintRaw("plaintext", plaintext)
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "symmetric key (base64 or @file)")
	cmd.Flags().StringVar(&aad, "aad", "", "additional authenticated data")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
