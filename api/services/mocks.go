package services

import (
	"context"

	"github.com/EO-DataHub/eodhp-agent-runner/internal/agents"
	"github.com/EO-DataHub/eodhp-agent-runner/models"
	"github.com/stretchr/testify/mock"
)

type MockAgentsClient struct {
	mock.Mock
}

type MockRunRecorder struct {
	mock.Mock
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockAgentsClient) CreateThread(ctx context.Context) (*agents.Thread, error) {
	args := m.Called(ctx)
	thread, _ := args.Get(0).(*agents.Thread)
	return thread, args.Error(1)
}

func (m *MockAgentsClient) CreateMessage(ctx context.Context, threadID, role, content string) (*agents.Message, error) {
	args := m.Called(ctx, threadID, role, content)
	msg, _ := args.Get(0).(*agents.Message)
	return msg, args.Error(1)
}

func (m *MockAgentsClient) CreateRun(ctx context.Context, threadID, agentID string) (*agents.Run, error) {
	args := m.Called(ctx, threadID, agentID)
	run, _ := args.Get(0).(*agents.Run)
	return run, args.Error(1)
}

func (m *MockAgentsClient) GetRun(ctx context.Context, threadID, runID string) (*agents.Run, error) {
	args := m.Called(ctx, threadID, runID)
	run, _ := args.Get(0).(*agents.Run)
	return run, args.Error(1)
}

func (m *MockAgentsClient) CancelRun(ctx context.Context, threadID, runID string) (*agents.Run, error) {
	args := m.Called(ctx, threadID, runID)
	run, _ := args.Get(0).(*agents.Run)
	return run, args.Error(1)
}

func (m *MockAgentsClient) ListMessages(ctx context.Context, threadID string, order agents.ListOrder) ([]agents.Message, error) {
	args := m.Called(ctx, threadID, order)
	messages, _ := args.Get(0).([]agents.Message)
	return messages, args.Error(1)
}

func (m *MockRunRecorder) RecordRun(ctx context.Context, run *models.AgentRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockEventPublisher) Publish(event models.AgentRunEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() {
	m.Called()
}
