package agents

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredential struct{}

func (fakeCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "fake-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewTLSServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL+"/api/projects/demo", fakeCredential{}, &ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: server.Client(),
			Retry:     policy.RetryOptions{MaxRetries: -1},
		},
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_MissingEndpoint(t *testing.T) {
	_, err := NewClient("", fakeCredential{}, nil)
	assert.ErrorIs(t, err, ErrMissingEndpoint)
}

func TestCreateThread(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/projects/demo/threads", r.URL.Path)
		assert.Equal(t, "v1", r.URL.Query().Get("api-version"))
		assert.Equal(t, "Bearer fake-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"id": "thread_1", "object": "thread", "created_at": 1700000000}`))
	})

	thread, err := client.CreateThread(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "thread_1", thread.ID)
	assert.Equal(t, int64(1700000000), thread.CreatedAt)
}

func TestCreateMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/demo/threads/thread_1/messages", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"role": "user", "content": "Hello"}`, string(body))
		_, _ = w.Write([]byte(`{"id": "msg_1", "thread_id": "thread_1", "role": "user",
			"content": [{"type": "text", "text": {"value": "Hello", "annotations": []}}]}`))
	})

	msg, err := client.CreateMessage(context.Background(), "thread_1", "user", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "msg_1", msg.ID)

	text, ok := msg.LastText()
	assert.True(t, ok)
	assert.Equal(t, "Hello", text)
}

func TestCreateRun(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/demo/threads/thread_1/runs", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"assistant_id": "asst_1"}`, string(body))
		_, _ = w.Write([]byte(`{"id": "run_1", "thread_id": "thread_1", "assistant_id": "asst_1", "status": "queued"}`))
	})

	run, err := client.CreateRun(context.Background(), "thread_1", "asst_1")
	require.NoError(t, err)
	assert.Equal(t, "run_1", run.ID)
	assert.Equal(t, RunStatusQueued, run.Status)
	assert.False(t, run.Status.IsTerminal())
}

func TestGetRun_WithLastError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/projects/demo/threads/thread_1/runs/run_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": "run_1", "status": "failed",
			"last_error": {"code": "rate_limit_exceeded", "message": "Too many requests"}}`))
	})

	run, err := client.GetRun(context.Background(), "thread_1", "run_1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.True(t, run.Status.IsTerminal())
	require.NotNil(t, run.LastError)
	assert.Equal(t, "rate_limit_exceeded", run.LastError.Code)
}

func TestCancelRun(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/projects/demo/threads/thread_1/runs/run_1/cancel", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": "run_1", "status": "cancelling"}`))
	})

	run, err := client.CancelRun(context.Background(), "thread_1", "run_1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusCancelling, run.Status)
}

func TestListMessages_FollowsPages(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/projects/demo/threads/thread_1/messages", r.URL.Path)
		assert.Equal(t, "asc", r.URL.Query().Get("order"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))

		switch r.URL.Query().Get("after") {
		case "":
			_, _ = w.Write([]byte(`{"object": "list", "data": [{"id": "msg_1", "role": "user"}],
				"first_id": "msg_1", "last_id": "msg_1", "has_more": true}`))
		case "msg_1":
			_, _ = w.Write([]byte(`{"object": "list", "data": [{"id": "msg_2", "role": "assistant"}],
				"first_id": "msg_2", "last_id": "msg_2", "has_more": false}`))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("after"))
		}
	})

	messages, err := client.ListMessages(context.Background(), "thread_1", OrderAscending)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "msg_1", messages[0].ID)
	assert.Equal(t, "msg_2", messages[1].ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestErrorResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"code": "NotFound", "message": "No assistant found with id 'asst_x'."}}`))
	})

	_, err := client.CreateRun(context.Background(), "thread_1", "asst_x")
	require.Error(t, err)

	var respErr *azcore.ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusNotFound, respErr.StatusCode)
	assert.Equal(t, "NotFound", respErr.ErrorCode)
}

func TestMessageText_AcceptsStringOrObject(t *testing.T) {
	var content []MessageContent
	err := json.Unmarshal([]byte(`[
		{"type": "text", "text": "plain"},
		{"type": "image_file"},
		{"type": "text", "text": {"value": "structured"}}
	]`), &content)
	require.NoError(t, err)

	require.Len(t, content, 3)
	assert.Equal(t, "plain", content[0].Text.Value)
	assert.Nil(t, content[1].Text)
	assert.Equal(t, "structured", content[2].Text.Value)

	text, ok := Message{Content: content}.LastText()
	assert.True(t, ok)
	assert.Equal(t, "structured", text)

	_, ok = Message{Content: content[1:2]}.LastText()
	assert.False(t, ok)
}
