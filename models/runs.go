package models

import (
	"time"

	"github.com/google/uuid"
)

// AgentRun is the audit record persisted for every agent run.
type AgentRun struct {
	ID           uuid.UUID `json:"id"`
	InvocationID string    `json:"invocationId"`
	ThreadID     string    `json:"threadId"`
	RunID        string    `json:"runId"`
	AgentID      string    `json:"agentId"`
	Status       string    `json:"status"`
	TimedOut     bool      `json:"timedOut"`
	Warning      string    `json:"warning,omitempty"`
	Error        string    `json:"error,omitempty"`
	MessageCount int       `json:"messageCount"`
	StartedAt    time.Time `json:"startedAt"`
	DurationMs   int64     `json:"durationMs"`
}

// AgentRunEvent is published once a run has finished or been abandoned.
type AgentRunEvent struct {
	InvocationID string `json:"invocationId"`
	ThreadID     string `json:"threadId"`
	RunID        string `json:"runId"`
	AgentID      string `json:"agentId"`
	Status       string `json:"status"` // completed, failed, cancelled, expired, or last seen
	TimedOut     bool   `json:"timedOut"`
	Timestamp    int64  `json:"timestamp"`
}
