// Package chatbot is the chat session manager: it owns the conversation
// state, gates and dispatches inference requests, folds replies back into
// the session list and drives speech output.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"EagleChat/internal/backend"
	"EagleChat/internal/config"
	"EagleChat/internal/session"
	"EagleChat/internal/speech"
	"EagleChat/internal/telemetry"
)

// ErrorReply replaces the assistant reply when a request fails.
const ErrorReply = "⚠️ Error."

// ErrConnect wraps every sign-in failure.
var ErrConnect = errors.New("sign-in failed")

// State is a snapshot of everything the UI renders.
type State struct {
	Transcript []session.Message
	Sessions   session.List
	ActiveID   int64
	Waiting    bool
	Connected  bool
	Muted      bool
	// Warning is set while the last persistence write failed.
	Warning string
}

// Options configures a ChatBot. Zero values fall back to defaults.
type Options struct {
	SystemPrompt string
	Logger       *slog.Logger
	Telemetry    telemetry.Providers
	Now          func() time.Time
}

// ChatBot represents the main application
type ChatBot struct {
	store        *session.Store
	service      backend.Service
	speech       *speech.Output
	systemPrompt string
	now          func() time.Time

	logger          *slog.Logger
	tracer          trace.Tracer
	requests        metric.Int64Counter
	failures        metric.Int64Counter
	persistFailures metric.Int64Counter
	duration        metric.Float64Histogram

	mu        sync.Mutex
	waiting   bool
	connected bool
	warning   string
	listeners []func(State)
}

// NewChatBot creates a new ChatBot instance
func NewChatBot(store *session.Store, service backend.Service, out *speech.Output, opts Options) *ChatBot {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = config.DefaultSystemPrompt
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Telemetry.Tracer == nil || opts.Telemetry.Meter == nil {
		opts.Telemetry = telemetry.Noop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if out == nil {
		out = speech.NewOutput(nil, speech.DefaultRate, true, opts.Logger)
	}

	cb := &ChatBot{
		store:        store,
		service:      service,
		speech:       out,
		systemPrompt: opts.SystemPrompt,
		now:          opts.Now,
		logger:       opts.Logger,
		tracer:       opts.Telemetry.Tracer,
	}
	cb.initMetrics(opts.Telemetry.Meter)
	return cb
}

func (cb *ChatBot) initMetrics(meter metric.Meter) {
	var err error
	if cb.requests, err = meter.Int64Counter("chat.requests",
		metric.WithDescription("Chat completion requests dispatched")); err != nil {
		cb.logger.Warn("failed to create counter", "name", "chat.requests", "error", err)
		cb.requests = metricnoop.Int64Counter{}
	}
	if cb.failures, err = meter.Int64Counter("chat.failures",
		metric.WithDescription("Chat completion requests that failed")); err != nil {
		cb.logger.Warn("failed to create counter", "name", "chat.failures", "error", err)
		cb.failures = metricnoop.Int64Counter{}
	}
	if cb.persistFailures, err = meter.Int64Counter("storage.persist.failures",
		metric.WithDescription("Session list writes that failed")); err != nil {
		cb.logger.Warn("failed to create counter", "name", "storage.persist.failures", "error", err)
		cb.persistFailures = metricnoop.Int64Counter{}
	}
	if cb.duration, err = meter.Float64Histogram("chat.request.duration",
		metric.WithDescription("Chat completion duration in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		cb.logger.Warn("failed to create histogram", "name", "chat.request.duration", "error", err)
		cb.duration = metricnoop.Float64Histogram{}
	}
}

// OnChange registers fn to be called after every state change. Callbacks
// run on the goroutine that made the change, outside any lock.
func (cb *ChatBot) OnChange(fn func(State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.listeners = append(cb.listeners, fn)
}

// Initialize loads the saved sessions and asks the service whether the user
// is already signed in.
func (cb *ChatBot) Initialize(ctx context.Context) {
	cb.store.Initialize(ctx)
	connected := cb.service.IsSignedIn(ctx)

	cb.mu.Lock()
	cb.connected = connected
	cb.mu.Unlock()

	cb.logger.Info("chatbot initialized", "backend", cb.service.Name(), "connected", connected,
		"sessions", len(cb.store.Sessions()))
	cb.notify()
}

// State returns a snapshot of the current state.
func (cb *ChatBot) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *ChatBot) stateLocked() State {
	return State{
		Transcript: cb.store.Transcript(),
		Sessions:   cb.store.Sessions(),
		ActiveID:   cb.store.ActiveID(),
		Waiting:    cb.waiting,
		Connected:  cb.connected,
		Muted:      cb.speech.Muted(),
		Warning:    cb.warning,
	}
}

func (cb *ChatBot) notify() {
	cb.mu.Lock()
	state := cb.stateLocked()
	listeners := append([]func(State){}, cb.listeners...)
	cb.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// changed persists the session list and notifies listeners.
func (cb *ChatBot) changed(ctx context.Context) {
	cb.persist(ctx)
	cb.notify()
}

// persist never fails the caller: write errors become a warning.
func (cb *ChatBot) persist(ctx context.Context) {
	err := cb.store.Persist(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.logger.Warn("failed to save sessions", "error", err)
		cb.persistFailures.Add(ctx, 1)
		cb.warning = "Could not save chats: " + err.Error()
		return
	}
	cb.warning = ""
}

// StartNewChat clears the transcript and the active session.
func (cb *ChatBot) StartNewChat() {
	cb.store.StartNewChat()
	cb.logger.Debug("started new chat")
	cb.changed(context.Background())
}

// LoadSession makes a saved session the active conversation.
func (cb *ChatBot) LoadSession(s session.Session) {
	cb.store.LoadSession(s)
	cb.logger.Debug("loaded session", "session_id", s.ID, "messages", len(s.History))
	cb.changed(context.Background())
}

// DeleteSession removes a saved session.
func (cb *ChatBot) DeleteSession(id int64) {
	if !cb.store.Delete(id) {
		return
	}
	cb.logger.Info("deleted session", "session_id", id)
	cb.changed(context.Background())
}

// CanSend reports whether SendMessage would accept text right now.
func (cb *ChatBot) CanSend(text string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.canSendLocked(text)
}

func (cb *ChatBot) canSendLocked(text string) bool {
	return strings.TrimSpace(text) != "" && !cb.waiting && cb.connected
}

// SendMessage appends text to the transcript, asks the service for a reply
// and folds the reply (or ErrorReply) back in. It blocks until the request
// settles and returns false without doing anything when text is blank, a
// request is already in flight, or the user is not connected.
func (cb *ChatBot) SendMessage(ctx context.Context, text string) bool {
	cb.mu.Lock()
	if !cb.canSendLocked(text) {
		cb.mu.Unlock()
		return false
	}
	cb.waiting = true
	transcript := cb.store.Append(session.Message{Text: text, IsBot: false})
	chatID := cb.store.EnsureActiveID(cb.now())
	cb.mu.Unlock()
	cb.changed(ctx)

	reply, err := cb.complete(ctx, chatID, transcript)

	cb.mu.Lock()
	if err != nil {
		cb.store.AppendTo(chatID, session.Message{Text: ErrorReply, IsBot: true})
	} else {
		botMsg := session.Message{Text: reply, IsBot: true}
		final := append(transcript, botMsg)
		cb.store.AppendTo(chatID, botMsg)
		cb.store.Upsert(session.Session{
			ID:      chatID,
			Title:   session.Title(final),
			History: final,
		})
	}
	cb.waiting = false
	cb.mu.Unlock()

	if err == nil {
		cb.speech.Speak(reply)
	}
	cb.changed(ctx)
	return true
}

// complete sends the system preamble plus transcript to the service.
func (cb *ChatBot) complete(ctx context.Context, chatID int64, transcript []session.Message) (string, error) {
	requestID := uuid.NewString()
	history := cb.buildHistory(transcript)

	ctx, span := cb.tracer.Start(ctx, "chat.completion", trace.WithAttributes(
		attribute.String("backend", cb.service.Name()),
		attribute.Int64("session_id", chatID),
		attribute.String("request_id", requestID),
		attribute.Int("messages", len(history)),
	))
	defer span.End()

	backendAttr := metric.WithAttributes(attribute.String("backend", cb.service.Name()))
	cb.requests.Add(ctx, 1, backendAttr)

	cb.logger.Info("sending chat request", "request_id", requestID, "session_id", chatID,
		"backend", cb.service.Name(), "messages", len(history))

	start := time.Now()
	reply, err := cb.service.Chat(ctx, history)
	cb.duration.Record(ctx, float64(time.Since(start).Milliseconds()), backendAttr)

	if err == nil && reply == "" {
		err = backend.ErrEmptyReply
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		cb.failures.Add(ctx, 1, backendAttr)
		cb.logger.Error("chat request failed", "request_id", requestID, "session_id", chatID, "error", err)
		return "", err
	}

	cb.logger.Info("chat reply received", "request_id", requestID, "session_id", chatID,
		"duration", time.Since(start), "chars", len(reply))
	return reply, nil
}

func (cb *ChatBot) buildHistory(transcript []session.Message) []backend.ChatMessage {
	history := make([]backend.ChatMessage, 0, len(transcript)+1)
	history = append(history, backend.ChatMessage{Role: backend.RoleSystem, Content: cb.systemPrompt})
	for _, msg := range transcript {
		role := backend.RoleUser
		if msg.IsBot {
			role = backend.RoleAssistant
		}
		history = append(history, backend.ChatMessage{Role: role, Content: msg.Text})
	}
	return history
}

// Connect signs in to the service. Failures leave the user disconnected
// and are returned wrapped in ErrConnect.
func (cb *ChatBot) Connect(ctx context.Context) error {
	if err := cb.service.SignIn(ctx); err != nil {
		cb.logger.Warn("sign-in failed", "backend", cb.service.Name(), "error", err)
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}

	cb.mu.Lock()
	cb.connected = true
	cb.mu.Unlock()

	cb.logger.Info("signed in", "backend", cb.service.Name())
	cb.notify()
	return nil
}

// ToggleMute flips the speech mute flag and silences any utterance.
func (cb *ChatBot) ToggleMute() bool {
	muted := cb.speech.ToggleMute()
	cb.logger.Debug("mute toggled", "muted", muted)
	cb.notify()
	return muted
}

// Close silences speech. Storage is closed by its owner.
func (cb *ChatBot) Close() {
	cb.speech.Cancel()
}
