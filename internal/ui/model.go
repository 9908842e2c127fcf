// Package ui is the terminal surface of the chat client: a sidebar of saved
// conversations, the active transcript and an input footer.
package ui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"EagleChat/internal/chatbot"
	"EagleChat/internal/session"
)

const (
	sidebarWidth = 30
	footerHeight = 3

	// DefaultName is the assistant name shown when none is configured.
	DefaultName = "Eagle AI"

	// AlertSignInFailed is shown when connecting to the assistant fails.
	AlertSignInFailed = "Sign-in failed. Check your API credentials."
)

// StateMsg carries a ChatBot snapshot into the event loop.
type StateMsg chatbot.State

type connectMsg struct{ err error }

// Model is the Bubble Tea model of the chat screen. All mutations go
// through the ChatBot inside commands; the model only renders snapshots.
type Model struct {
	ctx  context.Context
	bot  *chatbot.ChatBot
	name string
	keys KeyMap

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	state  chatbot.State
	cursor int
	alert  string

	width  int
	height int
}

// New creates the chat screen model for the assistant called name. ctx is
// the root context passed to every request and is only cancelled on quit.
func New(ctx context.Context, bot *chatbot.ChatBot, name string) Model {
	if name == "" {
		name = DefaultName
	}
	input := textinput.New()
	input.Placeholder = "Message " + name + "..."
	input.Prompt = "› "
	input.CharLimit = 4000
	input.Focus()

	return Model{
		ctx:      ctx,
		bot:      bot,
		name:     name,
		keys:     DefaultKeyMap(),
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		state:    bot.State(),
	}
}

// Run starts the program and forwards every ChatBot change into it.
func Run(ctx context.Context, bot *chatbot.ChatBot, name string, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(ctx, bot, name), opts...)

	bot.OnChange(func(s chatbot.State) {
		p.Send(StateMsg(s))
	})

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.refresh())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case StateMsg:
		m.state = chatbot.State(msg)
		m.clampCursor()
		m.syncViewport()
		return m, nil

	case connectMsg:
		if msg.err != nil {
			m.alert = AlertSignInFailed
		}
		return m, m.refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Waiting {
			m.syncViewport()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	// the alert blocks everything until dismissed
	if m.alert != "" {
		if key.Matches(msg, m.keys.Dismiss) {
			m.alert = ""
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Send):
		text := m.input.Value()
		if !m.bot.CanSend(text) {
			return m, nil
		}
		m.input.Reset()
		return m, m.send(text)

	case key.Matches(msg, m.keys.NewChat):
		return m, m.do(m.bot.StartNewChat)

	case key.Matches(msg, m.keys.Prev):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Next):
		if m.cursor < len(m.state.Sessions)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if s, ok := m.selected(); ok {
			return m, m.do(func() { m.bot.LoadSession(s) })
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if s, ok := m.selected(); ok {
			return m, m.do(func() { m.bot.DeleteSession(s.ID) })
		}
		return m, nil

	case key.Matches(msg, m.keys.Connect):
		if m.state.Connected {
			return m, nil
		}
		return m, m.connect()

	case key.Matches(msg, m.keys.Mute):
		return m, m.do(func() { m.bot.ToggleMute() })

	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send runs the request off the event loop. Intermediate states arrive via
// OnChange; the final snapshot is returned as well.
func (m Model) send(text string) tea.Cmd {
	bot, ctx := m.bot, m.ctx
	return func() tea.Msg {
		bot.SendMessage(ctx, text)
		return StateMsg(bot.State())
	}
}

func (m Model) connect() tea.Cmd {
	bot, ctx := m.bot, m.ctx
	return func() tea.Msg {
		return connectMsg{err: bot.Connect(ctx)}
	}
}

func (m Model) do(fn func()) tea.Cmd {
	bot := m.bot
	return func() tea.Msg {
		fn()
		return StateMsg(bot.State())
	}
}

func (m Model) refresh() tea.Cmd {
	bot := m.bot
	return func() tea.Msg {
		return StateMsg(bot.State())
	}
}

func (m Model) selected() (session.Session, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Sessions) {
		return session.Session{}, false
	}
	return m.state.Sessions[m.cursor], true
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.state.Sessions) {
		m.cursor = len(m.state.Sessions) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	mainWidth := max(width-sidebarWidth, 20)
	m.viewport.Width = mainWidth
	m.viewport.Height = max(height-footerHeight, 3)
	m.input.Width = max(mainWidth-14, 10)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(mainWidth*3/4, 20)),
	)
	if err == nil {
		m.renderer = renderer
	}
	m.syncViewport()
}

// syncViewport re-renders the transcript and scrolls to the latest message.
func (m *Model) syncViewport() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}
