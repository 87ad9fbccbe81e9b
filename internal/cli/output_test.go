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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterText(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter("text", &buf)

	require.NoError(t, p.PrintFields(Field{"a", 1}, Field{"long", "x"}))
	assert.Equal(t, "a:     1\nlong:  x\n", buf.String())

	buf.Reset()
	require.NoError(t, p.PrintList("keys", []string{"one", "two"}))
	assert.Equal(t, "one\ntwo\n", buf.String())

	buf.Reset()
	require.NoError(t, p.PrintRaw("plaintext", []byte("raw")))
	assert.Equal(t, "raw", buf.String())
}

func TestPrinterJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter("json", &buf)

	require.NoError(t, p.PrintList("keys", nil))
	assert.JSONEq(t, `{"keys":[]}`, buf.String())

	buf.Reset()
	require.NoError(t, p.PrintError(errors.New("boom")))
	assert.JSONEq(t, `{"status":"error","error":"boom"}`, buf.String())

	buf.Reset()
	require.NoError(t, p.PrintRaw("plaintext", []byte("raw")))
	assert.JSONEq(t, `{"plaintext":"cmF3"}`, buf.String())
}

func TestPrinterUnknownFormat(t *testing.T) {
	p := NewPrinter("yaml", &bytes.Buffer{})
	assert.Error(t, p.PrintFields(Field{"a", 1}))
	assert.Error(t, p.PrintSuccess("ok"))
}
