package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	userAvatar = "👤"
	botAvatar  = "🦅"

	speakerOn  = "🔊"
	speakerOff = "🔇"
)

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.alert != "" {
		return m.viewAlert()
	}

	main := lipgloss.JoinVertical(lipgloss.Left, m.viewMain(), m.viewFooter())
	return lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(), main)
}

func (m Model) viewSidebar() string {
	inner := sidebarWidth - 3

	lines := []string{
		brandStyle.Render(botAvatar + " " + m.name),
		"",
		newChatStyle.Render("+ New Chat") + hintStyle.Render("  ctrl+n"),
		sectionStyle.Render("Recent Chats"),
	}
	for i, s := range m.state.Sessions {
		label := truncate(s.Title+"...", inner)
		style := itemStyle
		if s.ID == m.state.ActiveID {
			style = activeStyle
		}
		if i == m.cursor {
			style = style.Inherit(selectStyle).Width(inner)
		}
		lines = append(lines, style.Render(label))
	}
	top := lipgloss.JoinVertical(lipgloss.Left, lines...)

	status := connectStyle.Render("Connect AI (ctrl+k)")
	if m.state.Connected {
		status = connectedStyle.Render("● Pro Active")
	}

	if gap := m.height - lipgloss.Height(top) - lipgloss.Height(status); gap > 0 {
		top += strings.Repeat("\n", gap)
	}
	return sidebarStyle.Height(m.height).Render(top + "\n" + status)
}

func (m Model) viewMain() string {
	if len(m.state.Transcript) == 0 && !m.state.Waiting {
		return lipgloss.Place(m.viewport.Width, m.viewport.Height,
			lipgloss.Center, lipgloss.Center,
			greetingStyle.Render("How can I help?"))
	}
	return m.viewport.View()
}

func (m Model) viewFooter() string {
	icon := speakerOn
	if m.state.Muted {
		icon = speakerOff
	}
	row := m.input.View() + "  " + icon + " " + hintStyle.Render("enter ↵")

	status := hintStyle.Render("ctrl+t mute · ctrl+o open · ctrl+d delete · ctrl+c quit")
	if m.state.Warning != "" {
		status = warningStyle.Render("⚠ " + m.state.Warning)
	}
	return footerStyle.Width(m.viewport.Width).Render(row + "\n" + status)
}

func (m Model) viewAlert() string {
	box := alertStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		alertTitleStyle.Render(m.alert),
		"",
		hintStyle.Render("Press enter to dismiss"),
	))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderTranscript() string {
	width := m.viewport.Width
	parts := make([]string, 0, len(m.state.Transcript)+1)

	for _, msg := range m.state.Transcript {
		if msg.IsBot {
			parts = append(parts, m.renderBot(msg.Text))
		} else {
			parts = append(parts, renderUser(msg.Text, width))
		}
	}
	if m.state.Waiting {
		parts = append(parts, botAvatar+" "+m.spinner.View()+thinkingStyle.Render("Thinking..."))
	}
	return strings.Join(parts, "\n\n")
}

// renderUser right-aligns the message with the avatar on the outside.
func renderUser(text string, width int) string {
	style := userBubbleStyle
	// Width wraps; short messages keep their natural width
	if limit := max(width*3/4, 10); lipgloss.Width(text)+userBubbleStyle.GetHorizontalFrameSize() > limit {
		style = style.Width(limit)
	}
	bubble := style.Render(text)
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble+" "+userAvatar)
}

func (m Model) renderBot(text string) string {
	body := text
	if m.renderer != nil {
		if out, err := m.renderer.Render(text); err == nil {
			body = strings.Trim(out, "\n")
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, botAvatar+" ", body)
}

// truncate shortens s to at most n runes, keeping a trailing ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
