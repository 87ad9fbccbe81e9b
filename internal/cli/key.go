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
	"fmt"

	"github.com/jeremyhahn/go-keytypes/pkg/digest"
	"github.com/jeremyhahn/go-keytypes/pkg/keys"
	"github.com/jeremyhahn/go-keytypes/pkg/symmetric"
	"github.com/spf13/cobra"
)

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Generate and inspect typed keys",
	}
	cmd.AddCommand(
		newKeyTypesCmd(a),
		newKeyGenerateCmd(a),
		newKeyPublicCmd(a),
		newKeyAgreeCmd(a),
		newKeySymmetricCmd(a),
	)
	return cmd
}

func newKeyTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the supported key types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := make([]string, 0, len(keys.Types))
			for _, t := range keys.Types {
				role := "key-agreement"
				if t.IsSigning() {
					role = "signing"
				}
				if t.IsSecureEnclave() {
					role += ",enclave"
				}
				if a.output == string(OutputFormatJSON) {
					names = append(names, t.String())
					continue
				}
				names = append(names, fmt.Sprintf("%-2d %-30s %s", uint8(t), t, role))
			}
			return a.printer(cmd).PrintList("types", names)
		},
	}
}

func newKeyGenerateCmd(a *app) *cobra.Command {
	var keyType string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a software private key",
		Long: `Generate a private key and print its display form with the matching
public key. Enclave key types cannot be exported; use "keychain generate".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := keys.ParseKeyType(keyType)
			if err != nil {
				return err
			}
			priv, err := keys.Generate(t)
			if err != nil {
				return err
			}
			text, err := priv.MarshalText()
			if err != nil {
				return err
			}
			a.logger.Debug("key generated", "type", t)
			return a.printer(cmd).PrintFields(
				Field{"type", t.String()},
				Field{"private", string(text)},
				Field{"public", priv.PublicKey().String()},
			)
		},
	}
	cmd.Flags().StringVarP(&keyType, "type", "t", keys.P256Signing.String(), "key type")
	return cmd
}

func newKeyPublicCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "public <private-key|@file>",
		Short: "Print the public key of a private key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := parsePrivateKey(args[0])
			if err != nil {
				return err
			}
			pub := priv.PublicKey()
			fields := []Field{
				{"type", pub.Type().String()},
				{"public", pub.String()},
			}
			if pkix, err := pub.PKIX(); err == nil {
				fields = append(fields, Field{"pkix", base64.StdEncoding.EncodeToString(pkix)})
			}
			return a.printer(cmd).PrintFields(fields...)
		},
	}
}

func newKeyAgreeCmd(a *app) *cobra.Command {
	var (
		private string
		public  string
		hkdf    string
		salt    string
		info    string
		length  int
	)
	cmd := &cobra.Command{
		Use:   "agree",
		Short: "Compute a shared secret with a peer public key",
		Long: `Compute the key agreement shared secret between a private key and a
peer public key of the same curve. With --hkdf the secret is expanded into a
symmetric key instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := parsePrivateKey(private)
			if err != nil {
				return err
			}
			pub, err := parsePublicKey(public)
			if err != nil {
				return err
			}
			secret, err := priv.SharedSecret(pub)
			if err != nil {
				return err
			}
			var key symmetric.Key
			if hkdf == "" {
				key = secret.SymmetricKey()
			} else {
				dt, err := digest.ParseType(hkdf)
				if err != nil {
					return err
				}
				key, err = secret.HKDFSymmetricKey(dt, []byte(salt), []byte(info), length)
				if err != nil {
					return err
				}
			}
			text, err := key.MarshalText()
			if err != nil {
				return err
			}
			return a.printer(cmd).PrintFields(Field{"key", string(text)})
		},
	}
	cmd.Flags().StringVar(&private, "private", "", "private key (display form or @file)")
	cmd.Flags().StringVar(&public, "public", "", "peer public key (display form or @file)")
	cmd.Flags().StringVar(&hkdf, "hkdf", "", "derive with HKDF using this digest (SHA256, SHA384, SHA512)")
	cmd.Flags().StringVar(&salt, "salt", "", "HKDF salt")
	cmd.Flags().StringVar(&info, "info", "", "HKDF info")
	cmd.Flags().IntVar(&length, "length", 32, "HKDF output length in bytes")
	_ = cmd.MarkFlagRequired("private")
	_ = cmd.MarkFlagRequired("public")
	return cmd
}

func newKeySymmetricCmd(a *app) *cobra.Command {
	var bits int
	cmd := &cobra.Command{
		Use:   "symmetric",
		Short: "Generate a random symmetric key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := symmetric.New(bits)
			if err != nil {
				return err
			}
			text, err := key.MarshalText()
			if err != nil {
				return err
			}
			return a.printer(cmd).PrintFields(Field{"key", string(text)})
		},
	}
	cmd.Flags().IntVar(&bits, "bits", 256, "key size in bits (128, 192 or 256)")
	return cmd
}

func parsePrivateKey(v string) (keys.PrivateKey, error) {
	s, err := readValue(v)
	if err != nil {
		return keys.PrivateKey{}, err
	}
	return keys.ParsePrivateKey(s)
}

func parsePublicKey(v string) (keys.PublicKey, error) {
	s, err := readValue(v)
	if err != nil {
		return keys.PublicKey{}, err
	}
	return keys.ParsePublicKey(s)
}

func parseSymmetricKey(v string) (symmetric.Key, error) {
	s, err := readValue(v)
	if err != nil {
		return symmetric.Key{}, err
	}
	var key symmetric.Key
	if err := key.UnmarshalText([]byte(s)); err != nil {
		return symmetric.Key{}, err
	}
	return key, nil
}
