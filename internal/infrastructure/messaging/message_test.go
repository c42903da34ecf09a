package messaging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBackoffGrowsAndCaps(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(1))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(2))
	assert.Equal(t, 8*time.Second, cfg.CalculateBackoff(3))
	// 超过上限后封顶
	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(4))
	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(100))
}

func TestDLQStreamName(t *testing.T) {
	assert.Equal(t, "dlq:stream:query:audit", StreamQueryAudit.DLQStream())
}

func TestMessagePayloadRoundTrip(t *testing.T) {
	type auditPayload struct {
		Query   string `json:"query"`
		Outcome string `json:"outcome"`
	}

	msg, err := NewMessage("id-1", MsgTypeQueryAudit, "acme", auditPayload{
		Query:   "how do refunds work",
		Outcome: "answered",
	})
	require.NoError(t, err)
	msg.SetMetadata(MetaOutcome, "answered")

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(raw, &decoded))

	var payload auditPayload
	require.NoError(t, decoded.UnmarshalPayload(&payload))
	assert.Equal(t, "how do refunds work", payload.Query)
	assert.Equal(t, "acme", decoded.TenantID)

	assert.Equal(t, "answered", decoded.GetMetadata(MetaOutcome))
}
