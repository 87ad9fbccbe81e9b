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

// Package typed implements the "type byte || payload" encoding shared by every
// object family in go-keytypes (keys, digests, nonces, signatures and sealed
// boxes).
//
// The first byte of typed data identifies the variant within its family and
// the remaining bytes are the algorithm specific payload. Each family owns its
// own tag space, so the same byte value may mean different things in different
// families.
//
// The display (string) form of typed data is standard base64 with padding,
// which is what encoding/json produces for a []byte value. Families implement
// encoding.TextMarshaler using MarshalText so that JSON encoding yields exactly
// the quoted base64 token exchanged with other platforms.
package typed

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrBadTypeData is returned when typed data is too short or carries a tag
// byte that is not assigned in the target family.
var ErrBadTypeData = errors.New("typed: bad type data")

// Tag is the constraint satisfied by every family's tag enumeration.
type Tag interface {
	~uint8

	// Valid reports whether the tag is assigned within its family.
	Valid() bool
}

// Encode returns tag || payload as a newly allocated slice.
func Encode[T Tag](tag T, payload []byte) []byte {
	out := make([]byte, 1+len(payload))
	out[0] = byte(tag)
	copy(out[1:], payload)
	return out
}

// Decode splits typed data into its tag and payload.
//
// The input must be longer than one byte and the first byte must be a valid
// tag for T. The returned payload is a copy and may be retained by the caller.
func Decode[T Tag](data []byte) (T, []byte, error) {
	var zero T
	if len(data) <= 1 {
		return zero, nil, fmt.Errorf("%w: length %d", ErrBadTypeData, len(data))
	}
	tag := T(data[0])
	if !tag.Valid() {
		return zero, nil, fmt.Errorf("%w: unknown type %d", ErrBadTypeData, data[0])
	}
	payload := make([]byte, len(data)-1)
	copy(payload, data[1:])
	return tag, payload, nil
}

// MarshalText returns the display form of typed data: standard base64 with
// padding.
func MarshalText(typedData []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(typedData)))
	base64.StdEncoding.Encode(out, typedData)
	return out
}

// UnmarshalText reverses MarshalText. A surrounding pair of double quotes is
// tolerated so that the raw JSON form of a value can be passed directly.
func UnmarshalText(text []byte) ([]byte, error) {
	text = Unquote(text)
	out := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(out, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTypeData, err)
	}
	return out[:n], nil
}

// Unquote strips one surrounding pair of double quotes, if present.
func Unquote(text []byte) []byte {
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		return text[1 : len(text)-1]
	}
	return text
}

// Equal compares two typed encodings. Absent (nil) encodings are never equal,
// not even to each other.
func Equal(a, b []byte) bool {
	if a == nil || b == nil {
		return false
	}
	return bytes.Equal(a, b)
}
