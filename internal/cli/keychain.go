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
	"github.com/jeremyhahn/go-keytypes/pkg/keychain"
	"github.com/jeremyhahn/go-keytypes/pkg/keys"
	"github.com/spf13/cobra"
)

func newKeychainCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keychain",
		Short: "Manage private keys stored by label",
		Long: `Manage private keys in the configured keychain storage (memory, file or
vault). Enclave key types keep their private material in the configured
enclave and only a handle is stored.`,
	}
	cmd.AddCommand(
		newKeychainGenerateCmd(a),
		newKeychainGetCmd(a),
		newKeychainStoreCmd(a),
		newKeychainDeleteCmd(a),
		newKeychainListCmd(a),
	)
	return cmd
}

func newKeychainGenerateCmd(a *app) *cobra.Command {
	var (
		keyType   string
		overwrite bool
		existing  bool
	)
	cmd := &cobra.Command{
		Use:   "generate <label>",
		Short: "Generate a key and store it under label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := keys.ParseKeyType(keyType)
			if err != nil {
				return err
			}
			return a.withKeychain(cmd.Context(), func(kc *keychain.Service) error {
				var priv keys.PrivateKey
				var err error
				if existing {
					priv, err = kc.RetrieveOrGenerate(cmd.Context(), args[0], t)
				} else {
					priv, err = kc.GenerateAndStore(cmd.Context(), args[0], t, overwrite)
				}
				if err != nil {
					return err
				}
				return a.printer(cmd).PrintFields(keyFields(args[0], priv, false)...)
			})
		},
	}
	cmd.Flags().StringVarP(&keyType, "type", "t", keys.P256Signing.String(), "key type")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace a key already stored under label")
	cmd.Flags().BoolVar(&existing, "if-missing", false, "return the stored key when label is occupied")
	cmd.MarkFlagsMutuallyExclusive("overwrite", "if-missing")
	return cmd
}

func newKeychainGetCmd(a *app) *cobra.Command {
	var (
		keyType string
		private bool
	)
	cmd := &cobra.Command{
		Use:   "get <label>",
		Short: "Print the key stored under label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := keys.ParseKeyType(keyType)
			if err != nil {
				return err
			}
			return a.withKeychain(cmd.Context(), func(kc *keychain.Service) error {
				priv, err := kc.Retrieve(cmd.Context(), args[0], t)
				if err != nil {
					return err
				}
				return a.printer(cmd).PrintFields(keyFields(args[0], priv, private)...)
			})
		},
	}
	cmd.Flags().StringVarP(&keyType, "type", "t", keys.P256Signing.String(), "expected key type")
	cmd.Flags().BoolVar(&private, "private", false, "also print the private key (software keys only)")
	return cmd
}

func newKeychainStoreCmd(a *app) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "store <label> <private-key|@file>",
		Short: "Store an existing software private key under label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := parsePrivateKey(args[1])
			if err != nil {
				return err
			}
			return a.withKeychain(cmd.Context(), func(kc *keychain.Service) error {
				if err := kc.Store(cmd.Context(), args[0], priv, overwrite); err != nil {
					return err
				}
				return a.printer(cmd).PrintFields(keyFields(args[0], priv, false)...)
			})
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace a key already stored under label")
	return cmd
}

func newKeychainDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <label>",
		Short: "Delete the key stored under label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKeychain(cmd.Context(), func(kc *keychain.Service) error {
				if err := kc.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.printer(cmd).PrintSuccess("Deleted key " + args[0])
			})
		},
	}
}

func newKeychainListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored key labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKeychain(cmd.Context(), func(kc *keychain.Service) error {
				labels, err := kc.List(cmd.Context())
				if err != nil {
					return err
				}
				return a.printer(cmd).PrintList("keys", labels)
			})
		},
	}
}

func keyFields(label string, priv keys.PrivateKey, withPrivate bool) []Field {
	fields := []Field{
		{"label", label},
		{"type", priv.Type().String()},
		{"public", priv.PublicKey().String()},
	}
	if handle, ok := priv.EnclaveHandle(); ok {
		fields = append(fields, Field{"handle", string(handle)})
	}
	if withPrivate {
		if text, err := priv.MarshalText(); err == nil {
			fields = append(fields, Field{"private", string(text)})
		}
	}
	return fields
}
