package assistant

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"

	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"

	cognitiveServicesScope = "https://cognitiveservices.azure.com/.default"
)

var ErrNotConfigured = stderrors.New("assistant is not configured")

// Message is one chat-completions message in the OpenAI wire format.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ChatClient performs a single chat completion.
type ChatClient interface {
	Complete(ctx context.Context, messages []Message, tools []Tool) (*Message, error)
}

type completionRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

type ClientConfig struct {
	Provider                string
	Endpoint                string
	Deployment              string
	APIVersion              string
	APIKey                  string
	ManagedIdentityClientID string
	Timeout                 time.Duration
}

// CompletionClient talks to Azure OpenAI deployments or the OpenAI API through an azcore pipeline.
type CompletionClient struct {
	pipeline runtime.Pipeline
	url      string
	model    string
	timeout  time.Duration
}

type ClientOption func(*policy.ClientOptions)

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(t policy.Transporter) ClientOption {
	return func(o *policy.ClientOptions) { o.Transport = t }
}

func WithMaxRetries(n int32) ClientOption {
	return func(o *policy.ClientOptions) { o.Retry.MaxRetries = n }
}

func NewCompletionClient(cfg ClientConfig, opts ...ClientOption) (*CompletionClient, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}

	endpointURL, model, err := completionURL(cfg)
	if err != nil {
		return nil, err
	}

	authPolicy, err := authPolicyFor(cfg)
	if err != nil {
		return nil, err
	}

	clientOpts := &policy.ClientOptions{
		Retry: policy.RetryOptions{MaxRetries: 2},
	}
	for _, opt := range opts {
		opt(clientOpts)
	}

	pipeline := runtime.NewPipeline("expense-assistant", "v1.0.0", runtime.PipelineOptions{
		PerRetry: []policy.Policy{authPolicy},
	}, clientOpts)

	return &CompletionClient{
		pipeline: pipeline,
		url:      endpointURL,
		model:    model,
		timeout:  cfg.Timeout,
	}, nil
}

func completionURL(cfg ClientConfig) (string, string, error) {
	base := strings.TrimRight(cfg.Endpoint, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return "", "", fmt.Errorf("invalid assistant endpoint: %w", err)
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return base + "/chat/completions", cfg.Deployment, nil
	case ProviderAzure, "":
		q := url.Values{}
		q.Set("api-version", cfg.APIVersion)
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?%s", base, url.PathEscape(cfg.Deployment), q.Encode()), "", nil
	default:
		return "", "", fmt.Errorf("unknown assistant provider %q", cfg.Provider)
	}
}

// authPolicyFor prefers an api key. Without one, Azure deployments use an Entra ID token:
// the configured managed identity, or the default credential chain.
func authPolicyFor(cfg ClientConfig) (policy.Policy, error) {
	if cfg.APIKey != "" {
		if cfg.Provider == ProviderOpenAI {
			return headerPolicy{name: "Authorization", value: "Bearer " + cfg.APIKey}, nil
		}
		return headerPolicy{name: "api-key", value: cfg.APIKey}, nil
	}
	if cfg.Provider == ProviderOpenAI {
		return nil, fmt.Errorf("openai provider requires an api key")
	}

	var (
		cred azcore.TokenCredential
		err  error
	)
	if cfg.ManagedIdentityClientID != "" {
		cred, err = azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(cfg.ManagedIdentityClientID),
		})
	} else {
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create azure credential: %w", err)
	}
	return runtime.NewBearerTokenPolicy(cred, []string{cognitiveServicesScope}, nil), nil
}

type headerPolicy struct {
	name  string
	value string
}

func (p headerPolicy) Do(req *policy.Request) (*http.Response, error) {
	req.Raw().Header.Set(p.name, p.value)
	return req.Next()
}

func (c *CompletionClient) Complete(ctx context.Context, messages []Message, tools []Tool) (*Message, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := runtime.NewRequest(ctx, http.MethodPost, c.url)
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	if err := runtime.MarshalAsJSON(req, completionRequest{Model: c.model, Messages: messages, Tools: tools}); err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, runtime.NewResponseError(resp)
	}

	var out completionResponse
	if err := runtime.UnmarshalAsJSON(resp, &out); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("completion response has no choices")
	}
	msg := out.Choices[0].Message
	return &msg, nil
}

// UnavailableClient stands in when no endpoint is configured.
type UnavailableClient struct{}

func (UnavailableClient) Complete(context.Context, []Message, []Tool) (*Message, error) {
	return nil, ErrNotConfigured
}
