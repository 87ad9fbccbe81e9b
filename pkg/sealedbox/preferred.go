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


package sealedbox

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// HasAESHardware reports whether the CPU has AES instructions.
func HasAESHardware() bool {
	switch runtime.GOARCH {
	case "amd64":
		return cpu.X86.HasAES
	case "arm64":
		return cpu.ARM64.HasAES
	default:
		return false
	}
}

// PreferredType returns AESGCM when AES is hardware accelerated and
// ChaChaPoly otherwise.
func PreferredType() SealedBoxType {
	if HasAESHardware() {
		return AESGCM
	}
	return ChaChaPoly
}
