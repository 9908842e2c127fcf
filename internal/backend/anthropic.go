package backend

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"EagleChat/internal/config"
)

const (
	AnthropicBaseURL      = "https://api.anthropic.com"
	AnthropicDefaultModel = "claude-sonnet-4-20250514"
	anthropicVersion      = "2023-06-01"
)

// AnthropicRequest represents the request body for Anthropic API
type AnthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []AnthropicMessage `json:"messages"`
}

// AnthropicMessage represents a message in the conversation
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicContent is one block of a response; only text blocks carry a reply.
type AnthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// AnthropicResponse represents the response from Anthropic API
type AnthropicResponse struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	Role         string             `json:"role"`
	Content      []AnthropicContent `json:"content"`
	Model        string             `json:"model"`
	StopReason   string             `json:"stop_reason"`
	StopSequence string             `json:"stop_sequence"`
	Usage        map[string]any     `json:"usage"`
}

// Anthropic calls the Messages API.
type Anthropic struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
	auth       signInState
}

var _ Service = (*Anthropic)(nil)

// NewAnthropic creates an Anthropic service from cfg.
func NewAnthropic(cfg config.BackendConfig, httpClient *http.Client, logger *slog.Logger) *Anthropic {
	a := &Anthropic{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: httpClient,
		logger:     logger,
	}
	if a.baseURL == "" {
		a.baseURL = AnthropicBaseURL
	}
	if a.model == "" {
		a.model = AnthropicDefaultModel
	}
	if a.maxTokens <= 0 {
		a.maxTokens = 1024
	}
	return a
}

func (a *Anthropic) Name() string {
	return config.BackendAnthropic
}

func (a *Anthropic) headers() map[string]string {
	return map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}
}

func (a *Anthropic) verify(ctx context.Context) error {
	if a.apiKey == "" {
		return ErrMissingAPIKey
	}
	return doJSON(ctx, a.httpClient, http.MethodGet, a.baseURL+"/v1/models", a.headers(), nil, nil)
}

func (a *Anthropic) IsSignedIn(ctx context.Context) bool {
	return a.auth.isSignedIn(ctx, a.verify)
}

func (a *Anthropic) SignIn(ctx context.Context) error {
	return a.auth.signIn(ctx, a.verify)
}

// Chat lifts system entries into the top-level system field, which is
// where the Messages API expects them.
func (a *Anthropic) Chat(ctx context.Context, history []ChatMessage) (string, error) {
	if a.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	var system []string
	reqMessages := make([]AnthropicMessage, 0, len(history))
	for _, msg := range history {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		reqMessages = append(reqMessages, AnthropicMessage{Role: msg.Role, Content: msg.Content})
	}

	reqBody := AnthropicRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    strings.Join(system, "\n\n"),
		Messages:  reqMessages,
	}

	var apiResp AnthropicResponse
	if err := doJSON(ctx, a.httpClient, http.MethodPost, a.baseURL+"/v1/messages", a.headers(), reqBody, &apiResp); err != nil {
		return "", err
	}

	a.logger.Debug("anthropic reply", "model", apiResp.Model, "stop_reason", apiResp.StopReason, "usage", apiResp.Usage)

	for _, content := range apiResp.Content {
		if content.Type == "text" && content.Text != "" {
			return content.Text, nil
		}
	}
	return "", ErrEmptyReply
}
