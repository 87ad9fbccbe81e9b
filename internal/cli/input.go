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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// input names where a command reads its data: --message, --in or stdin.
type input struct {
	message string
	file    string
}

func (in *input) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&in.message, "message", "m", "", "input as a literal string")
	cmd.Flags().StringVarP(&in.file, "in", "i", "", "read input from file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("message", "in")
}

func (in *input) read(cmd *cobra.Command) ([]byte, error) {
	switch {
	case in.message != "":
		return []byte(in.message), nil
	case in.file != "" && in.file != "-":
		// #nosec G304 - path is provided by the user
		data, err := os.ReadFile(in.file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", in.file, err)
		}
		return data, nil
	}
	return io.ReadAll(cmd.InOrStdin())
}

// readValue returns a display string given inline or as @file.
func readValue(v string) (string, error) {
	path, ok := strings.CutPrefix(v, "@")
	if !ok {
		return strings.TrimSpace(v), nil
	}
	// #nosec G304 - path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
