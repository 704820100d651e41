package events

import (
	"testing"

	"github.com/EO-DataHub/eodhp-agent-runner/models"
	"github.com/stretchr/testify/assert"
)

func TestDecodeEvent(t *testing.T) {
	var event models.AgentRunEvent
	err := DecodeEvent([]byte(`{"invocationId": "inv-1", "threadId": "thread_1", "runId": "run_1",
		"agentId": "asst_1", "status": "completed", "timedOut": false, "timestamp": 1700000000}`), &event)

	assert.NoError(t, err)
	assert.Equal(t, "thread_1", event.ThreadID)
	assert.Equal(t, "completed", event.Status)
	assert.Equal(t, int64(1700000000), event.Timestamp)
}

func TestDecodeEvent_Invalid(t *testing.T) {
	var event models.AgentRunEvent
	assert.Error(t, DecodeEvent([]byte(`not json`), &event))
	assert.Error(t, DecodeEvent([]byte(`{"status": "completed"}`), &event))
}
