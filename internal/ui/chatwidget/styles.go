package chatwidget

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/coursehub/internal/model/chat"
)

type styles struct {
	title     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	failed    lipgloss.Style
	input     lipgloss.Style
	help      lipgloss.Style
	status    map[chat.ConnectionState]lipgloss.Style
}

func defaultStyles() styles {
	badge := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		user:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true),
		failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Italic(true),
		input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		help: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		status: map[chat.ConnectionState]lipgloss.Style{
			chat.StateClosed:          badge.Foreground(lipgloss.Color("245")),
			chat.StateConnecting:      badge.Foreground(lipgloss.Color("214")),
			chat.StateOpen:            badge.Foreground(lipgloss.Color("42")),
			chat.StateClosedWithError: badge.Foreground(lipgloss.Color("196")),
		},
	}
}

func stateLabel(state chat.ConnectionState) string {
	switch state {
	case chat.StateConnecting:
		return "connecting"
	case chat.StateOpen:
		return "online"
	case chat.StateClosedWithError:
		return "disconnected"
	default:
		return "closed"
	}
}
