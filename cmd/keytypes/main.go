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


// Command keytypes generates, stores and uses typed keys from the shell.
package main

import (
	"errors"
	"os"

	"github.com/jeremyhahn/go-keytypes/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if errors.Is(err, cli.ErrVerificationFailed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
