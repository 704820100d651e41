package services

import (
	"context"
	"sync"

	"github.com/EO-DataHub/eodhp-agent-runner/internal/agents"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/appconfig"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/events"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/metrics"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/validation"
	"github.com/EO-DataHub/eodhp-agent-runner/models"
)

// AgentsClient is the subset of the Agent Service used to run an agent.
type AgentsClient interface {
	CreateThread(ctx context.Context) (*agents.Thread, error)
	CreateMessage(ctx context.Context, threadID, role, content string) (*agents.Message, error)
	CreateRun(ctx context.Context, threadID, agentID string) (*agents.Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*agents.Run, error)
	CancelRun(ctx context.Context, threadID, runID string) (*agents.Run, error)
	ListMessages(ctx context.Context, threadID string, order agents.ListOrder) ([]agents.Message, error)
}

// ClientFactory builds the agents client on first use.
type ClientFactory func() (AgentsClient, error)

// RunRecorder persists the audit record of a run.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.AgentRun) error
}

// Service contains all shared dependencies for handlers.
// Store, Publisher and Metrics are optional.
type Service struct {
	Config    *appconfig.Config
	NewClient ClientFactory
	Store     RunRecorder
	Publisher events.Notifier
	Metrics   *metrics.Metrics
	Validator *validation.Validator

	mu     sync.Mutex
	client AgentsClient
}

// Agents returns the cached client, creating it if needed. A failed
// creation is retried on the next call.
func (s *Service) Agents() (AgentsClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	client, err := s.NewClient()
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}

func (s *Service) validator() *validation.Validator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Validator == nil {
		s.Validator = validation.New()
	}
	return s.Validator
}
