package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitoring-service/internal/models"
)

func TestDecodeSnapshot(t *testing.T) {
	snap, label, err := DecodeSnapshot([]byte(`{"source_id":"remote-pbx","status":"down","detail":"no SIP response","label":"pbx-cluster","latency_ms":1200}`))
	require.NoError(t, err)
	assert.Equal(t, "remote-pbx", snap.SourceID)
	assert.Equal(t, models.StatusDown, snap.Status)
	assert.Equal(t, "no SIP response", snap.Detail)
	assert.Equal(t, "pbx-cluster", label)
	assert.Equal(t, int64(1200), snap.LatencyMs)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestDecodeSnapshotUnknownStatus(t *testing.T) {
	snap, _, err := DecodeSnapshot([]byte(`{"source_id":"agent-1","status":"weird"}`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, snap.Status, "unrecognized status degrades to UNKNOWN")
}

func TestDecodeSnapshotRejectsBadPayloads(t *testing.T) {
	_, _, err := DecodeSnapshot([]byte(`{"status":"down"}`))
	assert.Error(t, err, "missing source_id")

	_, _, err = DecodeSnapshot([]byte(`not json`))
	assert.Error(t, err)
}
