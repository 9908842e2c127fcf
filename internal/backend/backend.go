// Package backend talks to the external assistant services that provide
// sign-in and chat completion.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"EagleChat/internal/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrMissingAPIKey is returned by SignIn when the provider needs a key
	// and none is configured.
	ErrMissingAPIKey = errors.New("api key not set")

	// ErrEmptyReply is returned when the service answered without text.
	ErrEmptyReply = errors.New("empty reply")
)

// ChatMessage is one entry of a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service is the external AI/auth collaborator.
type Service interface {
	// Name identifies the provider in logs and traces.
	Name() string

	// IsSignedIn reports whether the service currently accepts requests.
	IsSignedIn(ctx context.Context) bool

	// SignIn verifies the configured credentials against the service.
	SignIn(ctx context.Context) error

	// Chat sends the ordered history and returns the reply text.
	Chat(ctx context.Context, history []ChatMessage) (string, error)
}

// New returns the Service selected by cfg.Provider.
func New(cfg config.BackendConfig, httpClient *http.Client, logger *slog.Logger) (Service, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Provider {
	case config.BackendOpenAI:
		return NewOpenAI(cfg, httpClient, logger), nil
	case config.BackendGrok:
		if cfg.BaseURL == "" {
			cfg.BaseURL = GrokBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = GrokDefaultModel
		}
		o := NewOpenAI(cfg, httpClient, logger)
		o.name = config.BackendGrok
		return o, nil
	case config.BackendAnthropic:
		return NewAnthropic(cfg, httpClient, logger), nil
	case config.BackendOllama:
		return NewOllama(cfg, httpClient, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Provider)
	}
}

// signInState remembers a successful sign-in and verifies the service when
// none happened yet.
type signInState struct {
	ok atomic.Bool
}

func (s *signInState) isSignedIn(ctx context.Context, verify func(context.Context) error) bool {
	if s.ok.Load() {
		return true
	}
	if err := verify(ctx); err != nil {
		return false
	}
	s.ok.Store(true)
	return true
}

func (s *signInState) signIn(ctx context.Context, verify func(context.Context) error) error {
	if err := verify(ctx); err != nil {
		s.ok.Store(false)
		return err
	}
	s.ok.Store(true)
	return nil
}

// doJSON sends body (when non-nil) as JSON and decodes a 200 response into out.
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error: %s - %s", resp.Status, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
