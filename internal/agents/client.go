// Package agents is a client for the Azure AI Foundry Agent Service data
// plane: threads, messages and runs.
package agents

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

const (
	moduleName    = "eodhp-agent-runner/agents"
	moduleVersion = "v0.1.0"

	DefaultAPIVersion = "v1"
	DefaultScope      = "https://ai.azure.com/.default"
)

// ErrMissingEndpoint is returned when the project endpoint is not set.
var ErrMissingEndpoint = errors.New("agents: project endpoint is required")

// ClientOptions configures the client's pipeline and service version.
type ClientOptions struct {
	azcore.ClientOptions

	// APIVersion defaults to DefaultAPIVersion.
	APIVersion string
	// Scopes defaults to DefaultScope.
	Scopes []string
}

// Client calls the Agent Service of one AI Foundry project.
type Client struct {
	endpoint   string
	apiVersion string
	pl         runtime.Pipeline
}

// NewClient creates a client for the project endpoint, e.g.
// https://<resource>.services.ai.azure.com/api/projects/<project>.
func NewClient(endpoint string, cred azcore.TokenCredential, options *ClientOptions) (*Client, error) {
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, err
	}
	if options == nil {
		options = &ClientOptions{}
	}

	apiVersion := options.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	scopes := options.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}

	authPolicy := runtime.NewBearerTokenPolicy(cred, scopes, nil)
	pl := runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
		PerRetry: []policy.Policy{authPolicy},
	}, &options.ClientOptions)

	return &Client{
		endpoint:   endpoint,
		apiVersion: apiVersion,
		pl:         pl,
	}, nil
}

// CreateThread creates an empty thread.
func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	req, err := c.newRequest(ctx, http.MethodPost, nil, "threads")
	if err != nil {
		return nil, err
	}
	if err := runtime.MarshalAsJSON(req, map[string]any{}); err != nil {
		return nil, err
	}

	var thread Thread
	if err := c.do(req, &thread, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	return &thread, nil
}

// CreateMessage appends a message to the thread.
func (c *Client) CreateMessage(ctx context.Context, threadID, role, content string) (*Message, error) {
	req, err := c.newRequest(ctx, http.MethodPost, nil, "threads", threadID, "messages")
	if err != nil {
		return nil, err
	}
	if err := runtime.MarshalAsJSON(req, createMessageRequest{Role: role, Content: content}); err != nil {
		return nil, err
	}

	var msg Message
	if err := c.do(req, &msg, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CreateRun starts the agent on the thread.
func (c *Client) CreateRun(ctx context.Context, threadID, agentID string) (*Run, error) {
	req, err := c.newRequest(ctx, http.MethodPost, nil, "threads", threadID, "runs")
	if err != nil {
		return nil, err
	}
	if err := runtime.MarshalAsJSON(req, createRunRequest{AssistantID: agentID}); err != nil {
		return nil, err
	}

	var run Run
	if err := c.do(req, &run, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun retrieves the current state of a run.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	req, err := c.newRequest(ctx, http.MethodGet, nil, "threads", threadID, "runs", runID)
	if err != nil {
		return nil, err
	}

	var run Run
	if err := c.do(req, &run, http.StatusOK); err != nil {
		return nil, err
	}
	return &run, nil
}

// CancelRun asks the service to cancel an in-progress run.
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) (*Run, error) {
	req, err := c.newRequest(ctx, http.MethodPost, nil, "threads", threadID, "runs", runID, "cancel")
	if err != nil {
		return nil, err
	}

	var run Run
	if err := c.do(req, &run, http.StatusOK); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListMessagesOptions filters a message listing.
type ListMessagesOptions struct {
	Order ListOrder
	// Limit is the page size, 1 to 100. Zero leaves the service default.
	Limit int
	RunID string
}

// NewListMessagesPager pages through the thread's messages.
func (c *Client) NewListMessagesPager(threadID string, options *ListMessagesOptions) *runtime.Pager[MessageList] {
	if options == nil {
		options = &ListMessagesOptions{}
	}

	return runtime.NewPager(runtime.PagingHandler[MessageList]{
		More: func(page MessageList) bool {
			return page.HasMore && page.LastID != ""
		},
		Fetcher: func(ctx context.Context, page *MessageList) (MessageList, error) {
			query := url.Values{}
			if options.Order != "" {
				query.Set("order", string(options.Order))
			}
			if options.Limit > 0 {
				query.Set("limit", strconv.Itoa(options.Limit))
			}
			if options.RunID != "" {
				query.Set("run_id", options.RunID)
			}
			if page != nil {
				query.Set("after", page.LastID)
			}

			req, err := c.newRequest(ctx, http.MethodGet, query, "threads", threadID, "messages")
			if err != nil {
				return MessageList{}, err
			}

			var list MessageList
			if err := c.do(req, &list, http.StatusOK); err != nil {
				return MessageList{}, err
			}
			return list, nil
		},
	})
}

// ListMessages returns every message of the thread in the given order.
func (c *Client) ListMessages(ctx context.Context, threadID string, order ListOrder) ([]Message, error) {
	pager := c.NewListMessagesPager(threadID, &ListMessagesOptions{Order: order, Limit: 100})

	var messages []Message
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		messages = append(messages, page.Data...)
	}
	return messages, nil
}

func (c *Client) newRequest(ctx context.Context, method string, query url.Values, segments ...string) (*policy.Request, error) {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}

	req, err := runtime.NewRequest(ctx, method, runtime.JoinPaths(c.endpoint, escaped...))
	if err != nil {
		return nil, err
	}

	q := req.Raw().URL.Query()
	q.Set("api-version", c.apiVersion)
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	req.Raw().URL.RawQuery = q.Encode()
	req.Raw().Header.Set("Accept", "application/json")

	return req, nil
}

// do sends the request and decodes the body into out. Any status outside
// statusCodes is returned as an *azcore.ResponseError.
func (c *Client) do(req *policy.Request, out any, statusCodes ...int) error {
	resp, err := c.pl.Do(req)
	if err != nil {
		return err
	}
	if !runtime.HasStatusCode(resp, statusCodes...) {
		return runtime.NewResponseError(resp)
	}
	if out == nil {
		return nil
	}
	return runtime.UnmarshalAsJSON(resp, out)
}
