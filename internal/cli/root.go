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


// Package cli implements the keytypes command line interface.
package cli

import (
	"context"
	"os"

	"github.com/jeremyhahn/go-keytypes/internal/config"
	"github.com/jeremyhahn/go-keytypes/pkg/correlation"
	"github.com/jeremyhahn/go-keytypes/pkg/logging"
	"github.com/jeremyhahn/go-keytypes/pkg/metrics"
	"github.com/spf13/cobra"
)

// app holds state shared by every subcommand of one invocation.
type app struct {
	configFile string
	output     string
	verbose    bool

	cfg    *config.Config
	logger *logging.Logger
}

// Execute runs the root command
func Execute() error {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		printer := NewPrinter(root.PersistentFlags().Lookup("output").Value.String(), os.Stderr)
		_ = printer.PrintError(err)
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "keytypes",
		Short: "Typed keys, signatures, digests and sealed boxes",
		Long: `keytypes works with the typed key formats shared with other platforms:
every value is a type byte followed by its payload, displayed as standard
base64.

Key types:
  Curve25519KeyAgreement  P256KeyAgreement  P384KeyAgreement  P521KeyAgreement
  Curve25519Signing       P256Signing       P384Signing       P521Signing
  P256SecureEnclaveKeyAgreement  P256SecureEnclaveSigning (require an enclave)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(correlation.Ensure(cmd.Context()))
			return a.init(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", os.Getenv("KEYTYPES_CONFIG"),
		"config file (default: built-in defaults)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text",
		"output format (text, json)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"verbose output")

	root.AddCommand(
		newVersionCmd(a),
		newKeyCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newDigestCmd(a),
		newHMACCmd(a),
		newSealCmd(a),
		newOpenCmd(a),
		newKeychainCmd(a),
		newPasswordCmd(a),
	)
	return root
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	if a.verbose {
		level = logging.DebugLevel
	}
	a.cfg = cfg
	a.logger = logging.New(level, cfg.Logging.Format, os.Stderr)
	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}
	a.logger.Debug("configuration loaded",
		"correlation_id", correlation.ID(ctx),
		"storage", cfg.Storage.Backend, "enclave", cfg.Enclave.Type)
	return nil
}

func (a *app) printer(cmd *cobra.Command) *Printer {
	return NewPrinter(a.output, cmd.OutOrStdout())
}
