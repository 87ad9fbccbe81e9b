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


package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsEnabled(t *testing.T) {
	assert.True(t, IsEnabled())

	Disable()
	assert.False(t, IsEnabled())

	Enable()
	assert.True(t, IsEnabled())
}

func TestRecordOperation(t *testing.T) {
	Enable()
	OperationsTotal.Reset()
	OperationDuration.Reset()

	RecordOperation(OpGenerate, "memory", StatusSuccess, 0.01)
	RecordOperation(OpRetrieve, "file", StatusError, 0.02)

	assert.Equal(t, 2, testutil.CollectAndCount(OperationsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(OperationDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(OperationsTotal.WithLabelValues(OpGenerate, "memory", StatusSuccess)))
}

func TestRecordOperationWhenDisabled(t *testing.T) {
	Disable()
	defer Enable()
	OperationsTotal.Reset()

	RecordOperation(OpSign, "memory", StatusSuccess, 0.1)
	assert.Equal(t, 0, testutil.CollectAndCount(OperationsTotal))
}

func TestObserve(t *testing.T) {
	Enable()
	OperationsTotal.Reset()
	ErrorsTotal.Reset()

	Observe(OpStore, "memory", time.Now(), nil, nil)
	Observe(OpStore, "memory", time.Now(), errors.New("taken"), func(error) string { return "already_exists" })
	Observe(OpDelete, "memory", time.Now(), errors.New("io"), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(OperationsTotal.WithLabelValues(OpStore, "memory", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(OperationsTotal.WithLabelValues(OpStore, "memory", StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpStore, "memory", "already_exists")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpDelete, "memory", "internal")))
}

func TestKeyGauges(t *testing.T) {
	Enable()
	KeysGenerated.Reset()
	KeysTotal.Reset()

	RecordKeyGenerated("P256Signing")
	RecordKeyGenerated("P256Signing")
	SetKeysTotal("file", 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(KeysGenerated.WithLabelValues("P256Signing")))
	assert.Equal(t, 7.0, testutil.ToFloat64(KeysTotal.WithLabelValues("file")))
}
