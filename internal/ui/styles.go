package ui

import "github.com/charmbracelet/lipgloss"

// Colors adapt to light and dark terminals.
var (
	colorBrand   = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	colorDanger  = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}
	colorUserBg  = lipgloss.AdaptiveColor{Light: "#DBEAFE", Dark: "#1E3A8A"}
	colorUserFg  = lipgloss.AdaptiveColor{Light: "#1E3A8A", Dark: "#EFF6FF"}
	colorSelect  = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#313244"}
	colorSurface = lipgloss.AdaptiveColor{Light: "#F9FAFB", Dark: "#181825"}
)

var (
	sidebarStyle = lipgloss.NewStyle().
			Width(sidebarWidth-1).
			Padding(0, 1).
			Background(colorSurface).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(colorBorder)

	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorBrand)
	newChatStyle = lipgloss.NewStyle().Foreground(colorAccent)
	sectionStyle = lipgloss.NewStyle().Foreground(colorMuted).Bold(true).MarginTop(1)
	itemStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	activeStyle  = lipgloss.NewStyle().Bold(true)
	selectStyle  = lipgloss.NewStyle().Background(colorSelect)

	connectStyle   = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	connectedStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(colorUserFg).
			Background(colorUserBg).
			Padding(0, 1)
	thinkingStyle = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	greetingStyle = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)

	footerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(colorBorder)
	hintStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarn)

	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDanger).
			Padding(1, 3)
	alertTitleStyle = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
)
