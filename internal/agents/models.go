package agents

import (
	"encoding/json"
	"fmt"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusExpired        RunStatus = "expired"
)

// IsTerminal reports whether no further transitions are expected.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

// ListOrder sorts list results by creation time.
type ListOrder string

const (
	OrderAscending  ListOrder = "asc"
	OrderDescending ListOrder = "desc"
)

// Thread is a conversation session between an agent and a user.
type Thread struct {
	ID        string            `json:"id"`
	Object    string            `json:"object"`
	CreatedAt int64             `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Message is a single message within a thread.
type Message struct {
	ID          string           `json:"id"`
	Object      string           `json:"object"`
	ThreadID    string           `json:"thread_id"`
	Role        string           `json:"role"`
	Content     []MessageContent `json:"content"`
	CreatedAt   int64            `json:"created_at"`
	AssistantID *string          `json:"assistant_id"`
	RunID       *string          `json:"run_id"`
}

// LastText returns the value of the message's last text content item.
func (m Message) LastText() (string, bool) {
	for i := len(m.Content) - 1; i >= 0; i-- {
		c := m.Content[i]
		if c.Type == "text" && c.Text != nil {
			return c.Text.Value, true
		}
	}
	return "", false
}

// MessageContent is one item of a message's content.
type MessageContent struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

// MessageText holds the text of a text content item. The service sends an
// object with a value, older payloads a bare string.
type MessageText struct {
	Value       string            `json:"value"`
	Annotations []json.RawMessage `json:"annotations,omitempty"`
}

func (t *MessageText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Value = s
		return nil
	}

	type plain MessageText
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to decode message text: %w", err)
	}
	*t = MessageText(p)
	return nil
}

// RunError describes why a run failed.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run is an invocation of an agent on a thread.
type Run struct {
	ID          string    `json:"id"`
	Object      string    `json:"object"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Status      RunStatus `json:"status"`
	LastError   *RunError `json:"last_error"`
	CreatedAt   int64     `json:"created_at"`
	StartedAt   *int64    `json:"started_at"`
	CompletedAt *int64    `json:"completed_at"`
	FailedAt    *int64    `json:"failed_at"`
	CancelledAt *int64    `json:"cancelled_at"`
	ExpiresAt   *int64    `json:"expires_at"`
}

// MessageList is one page of messages.
type MessageList struct {
	Object  string    `json:"object"`
	Data    []Message `json:"data"`
	FirstID string    `json:"first_id"`
	LastID  string    `json:"last_id"`
	HasMore bool      `json:"has_more"`
}

type createMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type createRunRequest struct {
	AssistantID string `json:"assistant_id"`
}
