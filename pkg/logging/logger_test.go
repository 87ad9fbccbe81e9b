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


package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(InfoLevel, &buf)

	l.Debug("hidden")
	l.Debugf("hidden %d", 1)
	l.Info("generated key", "label", "alice")
	l.Infof("stored %d keys", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "label=alice")
	assert.Contains(t, out, "stored 2 keys")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(DebugLevel, "json", &buf).With("component", "keychain")

	l.Debugf("opened %s", "vault")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "opened vault", rec["msg"])
	assert.Equal(t, "keychain", rec["component"])
}

func TestMaybeError(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(InfoLevel, &buf)

	l.MaybeError(nil)
	assert.Empty(t, buf.String())

	l.MaybeError(errors.New("boom"), "op", "seal")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "op=seal")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]any{
		"debug": DebugLevel, "INFO": InfoLevel, "warn": WarnLevel, "error": ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().Error("nothing", "k", "v")
	})
}
