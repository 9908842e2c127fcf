package backend

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"EagleChat/internal/config"
)

const (
	OllamaBaseURL      = "http://localhost:11434"
	OllamaDefaultModel = "llama3:latest"
)

// OllamaRequest represents the request body for Ollama API
type OllamaRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// OllamaResponse represents the response from Ollama API
type OllamaResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Message   struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// OllamaTagsResponse represents the response from Ollama /api/tags endpoint
type OllamaTagsResponse struct {
	Models []OllamaModel `json:"models"`
}

// OllamaModel represents a single model in the Ollama tags response
type OllamaModel struct {
	Name       string `json:"name"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
}

// Ollama calls a local Ollama server. It needs no credentials, so signing
// in only checks that the server answers.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
	auth       signInState
}

var _ Service = (*Ollama)(nil)

// NewOllama creates an Ollama service from cfg.
func NewOllama(cfg config.BackendConfig, httpClient *http.Client, logger *slog.Logger) *Ollama {
	o := &Ollama{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: httpClient,
		logger:     logger,
	}
	if o.baseURL == "" {
		o.baseURL = OllamaBaseURL
	}
	if o.model == "" {
		o.model = OllamaDefaultModel
	}
	return o
}

func (o *Ollama) Name() string {
	return config.BackendOllama
}

// ListModels returns the models installed on the server.
func (o *Ollama) ListModels(ctx context.Context) ([]OllamaModel, error) {
	var tags OllamaTagsResponse
	if err := doJSON(ctx, o.httpClient, http.MethodGet, o.baseURL+"/api/tags", nil, nil, &tags); err != nil {
		return nil, err
	}
	return tags.Models, nil
}

func (o *Ollama) verify(ctx context.Context) error {
	models, err := o.ListModels(ctx)
	if err != nil {
		return err
	}
	o.logger.Debug("ollama reachable", "models", len(models))
	return nil
}

func (o *Ollama) IsSignedIn(ctx context.Context) bool {
	return o.auth.isSignedIn(ctx, o.verify)
}

func (o *Ollama) SignIn(ctx context.Context) error {
	return o.auth.signIn(ctx, o.verify)
}

func (o *Ollama) Chat(ctx context.Context, history []ChatMessage) (string, error) {
	reqBody := OllamaRequest{
		Model:    o.model,
		Messages: history,
		Stream:   false,
	}

	var apiResp OllamaResponse
	if err := doJSON(ctx, o.httpClient, http.MethodPost, o.baseURL+"/api/chat", nil, reqBody, &apiResp); err != nil {
		return "", err
	}

	if apiResp.Message.Content == "" {
		return "", ErrEmptyReply
	}
	return apiResp.Message.Content, nil
}
