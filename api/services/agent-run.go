package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/EO-DataHub/eodhp-agent-runner/api/middleware"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/agents"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/validation"
	"github.com/EO-DataHub/eodhp-agent-runner/models"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Error messages returned to callers
const (
	MsgMissingEndpoint = "Server missing AZURE_AI_ENDPOINT"
	MsgMissingAgentID  = "Server missing AZURE_AI_AGENT_ID"
	MsgInvalidBody     = "Invalid JSON body."
	MsgInvalidRequest  = "Invalid request."
	MsgBodyTooLarge    = "Request body too large."
	MsgClientInit      = "Failed to initialize agents client."
	MsgRunFailed       = "Agent run failed."
)

var (
	ErrInvalidBody = errors.New("invalid JSON body")
	ErrClientInit  = errors.New("failed to initialize agents client")
)

// Milliseconds accepts a JSON number or a numeric string. Fractions are
// truncated.
type Milliseconds int64

// maxMilliseconds is the largest value that fits in a time.Duration.
const maxMilliseconds = Milliseconds(math.MaxInt64 / int64(time.Millisecond))

func (m *Milliseconds) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*m = Milliseconds(v)
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v >= math.MaxInt64 || v <= math.MinInt64 {
		return fmt.Errorf("%s is not a number of milliseconds", data)
	}
	*m = Milliseconds(int64(v))
	return nil
}

// Duration converts m, saturating at the largest representable duration.
func (m Milliseconds) Duration() time.Duration {
	switch {
	case m > maxMilliseconds:
		return time.Duration(math.MaxInt64)
	case m < -maxMilliseconds:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(m) * time.Millisecond
}

// RunBody is the JSON body accepted by the function. Absent fields take the
// configured defaults.
type RunBody struct {
	Input          *string       `json:"input" validate:"omitnil,min=1"`
	AgentID        *string       `json:"agentId" validate:"omitnil,min=1"`
	PollIntervalMs *Milliseconds `json:"pollIntervalMs" validate:"omitnil,gte=0"`
	TimeoutMs      *Milliseconds `json:"timeoutMs" validate:"omitnil,gte=0"`
}

// RunRequest is a fully resolved agent run.
type RunRequest struct {
	Input        string
	AgentID      string
	PollInterval time.Duration
	Timeout      time.Duration
	InvocationID string
}

// RunResult is returned to the caller once polling stops.
type RunResult struct {
	ThreadID string           `json:"threadId"`
	Run      RunSummary       `json:"run"`
	Messages []MessageSummary `json:"messages"`
	Warning  string           `json:"warning,omitempty"`
}

type RunSummary struct {
	ID        string           `json:"id"`
	Status    agents.RunStatus `json:"status"`
	LastError *agents.RunError `json:"lastError"`
}

type MessageSummary struct {
	ID   string  `json:"id"`
	Role string  `json:"role"`
	Text *string `json:"text"`
}

type runStepError struct {
	Step string
	Err  error
}

func (e *runStepError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Step, e.Err)
}

func (e *runStepError) Unwrap() error {
	return e.Err
}

// DecodeRunBody reads a single JSON object from r.
func DecodeRunBody(r io.Reader) (*RunBody, error) {
	dec := json.NewDecoder(r)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", ErrInvalidBody)
	}
	if !bytes.HasPrefix(raw, []byte("{")) {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrInvalidBody)
	}

	var body RunBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return &body, nil
}

// NewRunRequest resolves the body against the configured defaults and limits.
// Limits are applied in milliseconds so out-of-range values cannot overflow
// the durations.
func (s *Service) NewRunRequest(body *RunBody, invocationID string) RunRequest {
	cfg := s.Config.Run

	req := RunRequest{
		Input:        cfg.DefaultInput,
		AgentID:      s.Config.Agents.AgentID,
		InvocationID: invocationID,
	}
	if body.Input != nil {
		req.Input = *body.Input
	}
	if body.AgentID != nil {
		req.AgentID = *body.AgentID
	}

	pollMs := Milliseconds(cfg.PollIntervalMs)
	if body.PollIntervalMs != nil {
		pollMs = *body.PollIntervalMs
	}
	timeoutMs := Milliseconds(cfg.TimeoutMs)
	if body.TimeoutMs != nil {
		timeoutMs = *body.TimeoutMs
	}

	pollMs = max(pollMs, Milliseconds(cfg.MinPollIntervalMs))
	if cfg.MaxTimeoutMs > 0 {
		// No single wait is longer than the longest allowed run
		limit := Milliseconds(cfg.MaxTimeoutMs)
		timeoutMs = min(timeoutMs, limit)
		pollMs = min(pollMs, limit)
	}

	req.PollInterval = pollMs.Duration()
	req.Timeout = timeoutMs.Duration()
	return req
}

// RunAgentService handles the function's HTTP trigger.
func RunAgentService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())

	// Preflight requests only need the CORS headers
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if svc.Config.Agents.Endpoint == "" {
		logger.Error().Msg("Agents endpoint is not configured")
		WriteError(w, http.StatusInternalServerError, MsgMissingEndpoint, "")
		return
	}
	if svc.Config.Agents.AgentID == "" {
		logger.Error().Msg("Default agent is not configured")
		WriteError(w, http.StatusInternalServerError, MsgMissingAgentID, "")
		return
	}

	body, err := DecodeRunBody(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn().Int64("limit", tooLarge.Limit).Msg("Request payload too large")
			WriteError(w, http.StatusRequestEntityTooLarge, MsgBodyTooLarge, "")
			return
		}
		logger.Warn().Err(err).Msg("Invalid request payload")
		WriteError(w, http.StatusBadRequest, MsgInvalidBody, "")
		return
	}

	if errs := svc.validator().ValidateStruct(body); errs != nil {
		details := validation.Summary(errs)
		logger.Warn().Str("details", details).Msg("Request payload failed validation")
		WriteError(w, http.StatusBadRequest, MsgInvalidRequest, details)
		return
	}

	invocationID, _ := r.Context().Value(middleware.InvocationIDKey).(string)
	req := svc.NewRunRequest(body, invocationID)

	result, err := svc.RunAgent(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrClientInit) {
			logger.Error().Err(err).Msg("Failed to initialize agents client")
			WriteError(w, http.StatusInternalServerError, MsgClientInit, errors.Unwrap(err).Error())
			return
		}
		logger.Error().Err(err).Msg("Agent run failed")
		WriteError(w, http.StatusInternalServerError, MsgRunFailed, errorDetails(err))
		return
	}

	logger.Info().Str("thread_id", result.ThreadID).Str("run_id", result.Run.ID).
		Str("status", string(result.Run.Status)).Int("message_count", len(result.Messages)).
		Msg("Agent run finished")
	WriteResponse(w, http.StatusOK, result)
}

// RunAgent runs one conversation turn: it creates a thread with the user's
// message, starts the agent and polls the run until it reaches a terminal
// status or the timeout passes, then returns the thread's messages.
func (s *Service) RunAgent(ctx context.Context, req RunRequest) (result *RunResult, err error) {
	logger := zerolog.Ctx(ctx).With().Str("agent_id", req.AgentID).Logger()

	client, err := s.Agents()
	if err != nil {
		return nil, &clientInitError{err: err}
	}

	record := &models.AgentRun{
		InvocationID: req.InvocationID,
		AgentID:      req.AgentID,
		StartedAt:    time.Now().UTC(),
	}
	polls := 0
	defer func() {
		s.finishRun(ctx, record, err, polls)
	}()

	thread, err := client.CreateThread(ctx)
	if err != nil {
		return nil, &runStepError{Step: "create thread", Err: err}
	}
	record.ThreadID = thread.ID
	logger = logger.With().Str("thread_id", thread.ID).Logger()

	if _, err = client.CreateMessage(ctx, thread.ID, "user", req.Input); err != nil {
		return nil, &runStepError{Step: "create message", Err: err}
	}

	run, err := client.CreateRun(ctx, thread.ID, req.AgentID)
	if err != nil {
		return nil, &runStepError{Step: "create run", Err: err}
	}
	record.RunID = run.ID
	logger.Debug().Str("run_id", run.ID).Str("status", string(run.Status)).Msg("Run created")

	// Poll until terminal status or timeout
	deadline := time.Now().Add(req.Timeout)
	timedOut := false
	for !run.Status.IsTerminal() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			timedOut = true
			break
		}

		if err = sleep(ctx, min(req.PollInterval, remaining)); err != nil {
			return nil, &runStepError{Step: "wait for run", Err: err}
		}

		polls++
		run, err = client.GetRun(ctx, thread.ID, run.ID)
		if err != nil {
			return nil, &runStepError{Step: "get run", Err: err}
		}
		logger.Debug().Str("status", string(run.Status)).Int("poll", polls).Msg("Run polled")
	}

	result = &RunResult{ThreadID: thread.ID}
	if timedOut {
		result.Warning = fmt.Sprintf("Timed out after %d ms; last known status=%s", req.Timeout.Milliseconds(), run.Status)
		logger.Warn().Str("status", string(run.Status)).Msg("Run did not finish before the timeout")

		if s.Config.Run.CancelOnTimeout {
			cancelled, cancelErr := client.CancelRun(ctx, thread.ID, run.ID)
			if cancelErr != nil {
				logger.Warn().Err(cancelErr).Msg("Failed to cancel timed out run")
			} else {
				run = cancelled
			}
		}
	}

	result.Run = RunSummary{ID: run.ID, Status: run.Status, LastError: run.LastError}
	record.Status = string(run.Status)
	record.TimedOut = timedOut
	record.Warning = result.Warning

	messages, err := client.ListMessages(ctx, thread.ID, agents.OrderAscending)
	if err != nil {
		return nil, &runStepError{Step: "list messages", Err: err}
	}

	result.Messages = make([]MessageSummary, 0, len(messages))
	for _, m := range messages {
		summary := MessageSummary{ID: m.ID, Role: m.Role}
		if text, ok := m.LastText(); ok {
			summary.Text = &text
		}
		result.Messages = append(result.Messages, summary)
	}
	record.MessageCount = len(result.Messages)

	return result, nil
}

// finishRun records the audit row, publishes the run event and updates the
// metrics. Failures here are logged and never change the response.
func (s *Service) finishRun(ctx context.Context, record *models.AgentRun, runErr error, polls int) {
	logger := zerolog.Ctx(ctx)

	elapsed := time.Since(record.StartedAt)
	record.DurationMs = elapsed.Milliseconds()
	if runErr != nil {
		record.Status = "error"
		record.Error = errorDetails(runErr)
	}

	s.Metrics.ObserveRun(record.Status, elapsed.Seconds(), polls)

	// Persist even if the caller has gone away
	ctx = context.WithoutCancel(ctx)

	if s.Store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.Store.RecordRun(storeCtx, record); err != nil {
			logger.Error().Err(err).Msg("Failed to record agent run")
		}
		cancel()
	}

	if s.Publisher != nil && record.ThreadID != "" {
		event := models.AgentRunEvent{
			InvocationID: record.InvocationID,
			ThreadID:     record.ThreadID,
			RunID:        record.RunID,
			AgentID:      record.AgentID,
			Status:       record.Status,
			TimedOut:     record.TimedOut,
			Timestamp:    time.Now().UTC().Unix(),
		}
		if err := s.Publisher.Publish(event); err != nil {
			logger.Error().Err(err).Msg("Failed to publish agent run event")
		}
	}
}

type clientInitError struct {
	err error
}

func (e *clientInitError) Error() string {
	return fmt.Sprintf("%s: %v", ErrClientInit, e.err)
}

func (e *clientInitError) Is(target error) bool {
	return target == ErrClientInit
}

func (e *clientInitError) Unwrap() error {
	return e.err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
