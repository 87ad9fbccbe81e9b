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
	"bytes"
	"errors"
	"time"

	"github.com/jeremyhahn/go-keytypes/pkg/keychain"
	"github.com/spf13/cobra"
)

func newPasswordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Manage server passwords",
	}
	cmd.AddCommand(
		newPasswordStoreCmd(a),
		newPasswordGetCmd(a),
		newPasswordDeleteCmd(a),
		newPasswordListCmd(a),
	)
	return cmd
}

func newPasswordStoreCmd(a *app) *cobra.Command {
	var (
		account   string
		password  string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "store <server>",
		Short: "Store an account and password for server",
		Long: `Store an account and password for server. The password is read from
stdin unless --password is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := []byte(password)
			if password == "" {
				in := input{file: "-"}
				data, err := in.read(cmd)
				if err != nil {
					return err
				}
				secret = bytes.TrimRight(data, "\r\n")
			}
			if len(secret) == 0 {
				return errors.New("password is empty")
			}
			defer clear(secret)
			return a.withKeychain(cmd.Context(), func(kc *keychain.Service) error {
				if err := kc.StorePassword(cmd.Context(), args[0], account, secret, overwrite); err != nil {
					return err
				}
				return a.printer(cmd).PrintSuccess("Stored password for " + account + "@" + args[0])
			})
		},
	}
	cmd.Flags().StringVarP(&account, "account", "a", "", "account name")
	cmd.Flags().StringVar(&password, "password", "", "password (default: read from stdin)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing password")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newPasswordGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <server>",
		Short: "Print the account and password stored for server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKeychain(cmd.Context(), func(kc *keychain.Service) error {
				cred, err := kc.RetrievePassword(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				defer cred.Zeroize()
				return a.printer(cmd).PrintFields(
					Field{"server", cred.Server},
					Field{"account", cred.Account},
					Field{"password", string(cred.Password)},
					Field{"created", cred.Created.Format(time.RFC3339)},
				)
			})
		},
	}
}

func newPasswordDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <server>",
		Short: "Delete the password stored for server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKeychain(cmd.Context(), func(kc *keychain.Service) error {
				if err := kc.DeletePassword(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.printer(cmd).PrintSuccess("Deleted password for " + args[0])
			})
		},
	}
}

func newPasswordListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List servers with stored passwords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKeychain(cmd.Context(), func(kc *keychain.Service) error {
				servers, err := kc.ListPasswords(cmd.Context())
				if err != nil {
					return err
				}
				return a.printer(cmd).PrintList("servers", servers)
			})
		},
	}
}
