package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EagleChat/internal/backend"
	"EagleChat/internal/chatbot"
	"EagleChat/internal/config"
	"EagleChat/internal/session"
	"EagleChat/internal/speech"
	"EagleChat/internal/storage"
)

type stubService struct {
	signedIn  bool
	signInErr error
	reply     string
}

func (s *stubService) Name() string                    { return "stub" }
func (s *stubService) IsSignedIn(context.Context) bool { return s.signedIn }

func (s *stubService) SignIn(context.Context) error {
	if s.signInErr != nil {
		return s.signInErr
	}
	s.signedIn = true
	return nil
}

func (s *stubService) Chat(context.Context, []backend.ChatMessage) (string, error) {
	return s.reply, nil
}

func newModel(t *testing.T, svc *stubService) (Model, *chatbot.ChatBot) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bot := chatbot.NewChatBot(
		session.NewStore(storage.NewMemory(), config.DefaultSessionsKey, logger),
		svc,
		speech.NewOutput(speech.Silent{}, speech.DefaultRate, false, logger),
		chatbot.Options{Logger: logger, Now: tick()},
	)
	bot.Initialize(context.Background())

	m := New(context.Background(), bot, "Eagle AI")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), bot
}

// tick returns a clock that advances one millisecond per call so session
// ids never collide.
func tick() func() time.Time {
	now := time.UnixMilli(1700000000000)
	return func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestView_EmptyState(t *testing.T) {
	m, _ := newModel(t, &stubService{})
	view := m.View()

	assert.Contains(t, view, "Eagle AI")
	assert.Contains(t, view, "+ New Chat")
	assert.Contains(t, view, "Recent Chats")
	assert.Contains(t, view, "How can I help?")
	assert.Contains(t, view, "Connect AI (ctrl+k)")
	assert.Contains(t, view, "Message Eagle AI...")
	assert.Contains(t, view, speakerOn)

	// no saved chats means no sidebar entries
	sidebar := m.viewSidebar()
	assert.NotContains(t, sidebar, "...")
	assert.Contains(t, sidebar, "Recent Chats")
}

func TestView_AssistantName(t *testing.T) {
	_, bot := newModel(t, &stubService{})
	m := New(context.Background(), bot, "Falcon")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	view := m.View()
	assert.Contains(t, view, "Falcon")
	assert.Contains(t, view, "Message Falcon...")
	assert.NotContains(t, view, "Eagle AI")
}

func TestSend_LongMessageWraps(t *testing.T) {
	m, _ := newModel(t, &stubService{signedIn: true, reply: "ok"})
	m = run(t, m, m.refresh())

	long := strings.Repeat("word ", 40) + "ENDMARKER"
	m = typeText(t, m, long)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)

	rendered := m.renderTranscript()
	assert.Contains(t, rendered, "ENDMARKER")
	assert.Equal(t, 40, strings.Count(rendered, "word"))
	for _, line := range strings.Split(rendered, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), m.viewport.Width)
	}
}

func TestView_BeforeResize(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bot := chatbot.NewChatBot(
		session.NewStore(storage.NewMemory(), config.DefaultSessionsKey, logger),
		&stubService{}, nil, chatbot.Options{Logger: logger},
	)
	assert.Equal(t, "Loading...", New(context.Background(), bot, "Eagle AI").View())
}

func TestSend_RendersReplyAndSidebar(t *testing.T) {
	m, bot := newModel(t, &stubService{signedIn: true, reply: "Hi there!"})
	m = run(t, m, m.refresh())
	assert.Contains(t, m.View(), "Pro Active")

	m = typeText(t, m, "Hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.input.Value())

	m = run(t, m, cmd)
	view := m.View()
	assert.Contains(t, view, "Hello")
	assert.Contains(t, view, "Hi there!")
	assert.Contains(t, view, "Hello...")
	assert.NotContains(t, view, "How can I help?")
	assert.Len(t, bot.State().Sessions, 1)
}

func TestSend_IgnoredWhenDisconnected(t *testing.T) {
	m, bot := newModel(t, &stubService{reply: "nope"})

	m = typeText(t, m, "Hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "Hello", m.input.Value())
	assert.Empty(t, bot.State().Transcript)
}

func TestSend_IgnoredWhenBlank(t *testing.T) {
	m, _ := newModel(t, &stubService{signedIn: true})

	m = typeText(t, m, "   ")
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestView_Thinking(t *testing.T) {
	m, _ := newModel(t, &stubService{signedIn: true})

	m, _ = update(t, m, StateMsg(chatbot.State{
		Transcript: []session.Message{{Text: "question"}},
		Waiting:    true,
		Connected:  true,
	}))
	view := m.View()
	assert.Contains(t, view, "Thinking...")
	assert.Contains(t, view, "question")
}

func TestConnect_FailureShowsAlert(t *testing.T) {
	m, _ := newModel(t, &stubService{signInErr: errors.New("bad key")})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlK})
	m = run(t, m, cmd)
	assert.Contains(t, m.View(), AlertSignInFailed)

	// input is blocked while the alert is up
	m = typeText(t, m, "x")
	assert.Empty(t, m.input.Value())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotContains(t, m.View(), AlertSignInFailed)
}

func TestConnect_Success(t *testing.T) {
	m, bot := newModel(t, &stubService{})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlK})
	m = run(t, m, cmd)
	m = run(t, m, m.refresh())

	assert.True(t, bot.State().Connected)
	assert.Contains(t, m.View(), "Pro Active")
}

func TestSidebar_NavigateOpenDelete(t *testing.T) {
	m, bot := newModel(t, &stubService{signedIn: true, reply: "ok"})
	ctx := context.Background()

	require.True(t, bot.SendMessage(ctx, "first"))
	bot.StartNewChat()
	require.True(t, bot.SendMessage(ctx, "second"))
	bot.StartNewChat()
	m = run(t, m, m.refresh())
	require.Len(t, m.state.Sessions, 2)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlDown})
	assert.Equal(t, 1, m.cursor)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlDown})
	assert.Equal(t, 1, m.cursor)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	m = run(t, m, cmd)
	assert.Equal(t, "first", m.state.Transcript[0].Text)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlUp})
	assert.Equal(t, 0, m.cursor)

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	m = run(t, m, cmd)
	require.Len(t, m.state.Sessions, 1)
	assert.Equal(t, "first", m.state.Sessions[0].Title)
}

func TestNewChat(t *testing.T) {
	m, bot := newModel(t, &stubService{signedIn: true, reply: "ok"})
	require.True(t, bot.SendMessage(context.Background(), "hello"))
	m = run(t, m, m.refresh())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	m = run(t, m, cmd)
	assert.Empty(t, m.state.Transcript)
	assert.Contains(t, m.View(), "How can I help?")
}

func TestMuteToggle(t *testing.T) {
	m, _ := newModel(t, &stubService{})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	m = run(t, m, cmd)
	assert.Contains(t, m.View(), speakerOff)

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	m = run(t, m, cmd)
	assert.Contains(t, m.View(), speakerOn)
}

func TestView_Warning(t *testing.T) {
	m, _ := newModel(t, &stubService{})
	m, _ = update(t, m, StateMsg(chatbot.State{Warning: "Could not save chats: disk full"}))
	assert.Contains(t, m.View(), "Could not save chats: disk full")
}

func TestQuit(t *testing.T) {
	m, _ := newModel(t, &stubService{})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short...", truncate("short...", 27))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "ñandú ç...", truncate("ñandú çava bien...", 10))
}
