package backend

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"EagleChat/internal/config"
)

const (
	OpenAIDefaultModel = "gpt-4o-mini"
	GrokBaseURL        = "https://api.x.ai/v1"
	GrokDefaultModel   = "grok-2-latest"
)

// OpenAI calls the OpenAI chat completion API or any compatible endpoint.
type OpenAI struct {
	name   string
	apiKey string
	model  string
	client *openai.Client
	logger *slog.Logger
	auth   signInState
}

var _ Service = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI-compatible service from cfg.
func NewOpenAI(cfg config.BackendConfig, httpClient *http.Client, logger *slog.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpClient

	model := cfg.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	return &OpenAI{
		name:   config.BackendOpenAI,
		apiKey: cfg.APIKey,
		model:  model,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

func (o *OpenAI) Name() string {
	return o.name
}

func (o *OpenAI) verify(ctx context.Context) error {
	if o.apiKey == "" {
		return ErrMissingAPIKey
	}
	_, err := o.client.ListModels(ctx)
	return err
}

func (o *OpenAI) IsSignedIn(ctx context.Context) bool {
	return o.auth.isSignedIn(ctx, o.verify)
}

func (o *OpenAI) SignIn(ctx context.Context) error {
	return o.auth.signIn(ctx, o.verify)
}

func (o *OpenAI) Chat(ctx context.Context, history []ChatMessage) (string, error) {
	if o.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	messages := make([]openai.ChatCompletionMessage, len(history))
	for i, msg := range history {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}

	o.logger.Debug("openai reply", "backend", o.name, "model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}
