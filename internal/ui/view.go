package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/maximbilan/orchat/internal/openrouter"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("6")).
			Padding(0, 1)

	modelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("13"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("10"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(1, 2)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("6"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11"))
)

func (m Model) View() string {
	if m.width == 0 {
		m.width = 80
	}
	if m.height == 0 {
		m.height = 24
	}

	switch m.mode {
	case ModeHelp:
		return m.renderHelp()
	case ModeAPIKey:
		return m.renderAPIKeyPrompt()
	case ModeSettings:
		return m.renderSettings()
	}

	var s strings.Builder
	s.WriteString(m.renderHeader())
	s.WriteString("\n")
	s.WriteString(m.viewport.View())
	s.WriteString("\n")
	s.WriteString(inputBoxStyle.Render(m.input.View()))
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	return s.String()
}

func (m Model) renderHeader() string {
	header := headerStyle.Render("orchat") + " " + modelStyle.Render("["+openrouter.DisplayName(m.model)+"]")
	if m.streaming {
		header += " " + m.spinner.View()
	}
	return header
}

func (m Model) renderStatus() string {
	if m.error != "" {
		return errorStyle.Render("✗ " + m.error)
	}
	return statusStyle.Render(m.status)
}

// renderTranscript lays out every turn followed by the reply in progress.
func (m Model) renderTranscript() string {
	width := m.viewport.Width - 2
	if width < 20 {
		width = 20
	}
	body := lipgloss.NewStyle().Width(width)
	assistantName := openrouter.DisplayName(m.model)

	var s strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			s.WriteString("\n\n")
		}
		switch {
		case t.msg.Role == openrouter.RoleUser:
			s.WriteString(userLabelStyle.Render("You"))
			s.WriteString("\n")
			s.WriteString(body.Render(t.msg.Content))
		case t.failed:
			s.WriteString(assistantLabelStyle.Render(assistantName))
			s.WriteString("\n")
			s.WriteString(failedStyle.Width(width).Render(t.msg.Content))
		default:
			s.WriteString(assistantLabelStyle.Render(assistantName))
			s.WriteString("\n")
			s.WriteString(m.markdown.Render(t.msg.Content))
		}
	}

	if m.streaming {
		if len(m.turns) > 0 {
			s.WriteString("\n\n")
		}
		s.WriteString(assistantLabelStyle.Render(assistantName))
		s.WriteString("\n")
		if m.partial == "" {
			s.WriteString(m.spinner.View() + " thinking")
		} else {
			s.WriteString(body.Render(m.partial))
		}
	}

	if s.Len() == 0 {
		return statusStyle.Render("Start a conversation by typing below.")
	}
	return s.String()
}

func (m Model) renderAPIKeyPrompt() string {
	var content strings.Builder
	content.WriteString(sectionStyle.Render("OpenRouter API key"))
	content.WriteString("\n\n")
	content.WriteString("Get a key at https://openrouter.ai/keys\n\n")
	content.WriteString(m.keyInput.View())
	content.WriteString("\n\n")
	if m.store.Has() {
		content.WriteString(statusStyle.Render("Enter: save  Esc: back"))
	} else {
		content.WriteString(statusStyle.Render("Enter: save  Ctrl+C: quit"))
	}

	out := panelStyle.Width(m.width - 4).Render(content.String())
	return out + "\n" + m.renderStatus()
}

func (m Model) renderSettings() string {
	rows := []string{
		fmt.Sprintf("Temperature  %s %.1f", temperatureBar(m.config.Temperature), m.config.Temperature),
		"Change API key",
		"Sign out",
	}

	var content strings.Builder
	content.WriteString(sectionStyle.Render("Settings"))
	content.WriteString("\n\n")
	for i, row := range rows {
		if i == m.settingsCursor {
			content.WriteString(selectedStyle.Render("› " + row))
		} else {
			content.WriteString("  " + row)
		}
		content.WriteString("\n")
	}
	content.WriteString("\n")
	content.WriteString(statusStyle.Render("↑/↓: select  ←/→: adjust  Enter: choose  Esc: close"))

	out := panelStyle.Width(m.width - 4).Render(content.String())
	return out + "\n" + m.renderStatus()
}

// temperatureBar draws t on a ten-cell slider.
func temperatureBar(t float64) string {
	filled := int(t*10 + 0.5)
	filled = max(0, min(10, filled))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", 10-filled) + "]"
}

func (m Model) renderHelp() string {
	helpStyle := panelStyle.
		Width(m.width - 4).
		Height(m.height - 4)

	var content strings.Builder

	content.WriteString(headerStyle.Render("orchat - Keyboard Shortcuts"))
	content.WriteString("\n\n")

	content.WriteString(sectionStyle.Render("Chat:"))
	content.WriteString("\n")
	content.WriteString("  Enter      Send message\n")
	content.WriteString("  Ctrl+J     Insert newline\n")
	content.WriteString("  Esc        Stop the reply in progress\n")
	content.WriteString("  Ctrl+N/P   Next / previous model\n")
	content.WriteString("  Ctrl+L     Clear chat\n")
	content.WriteString("  Ctrl+Y     Copy last reply\n")
	content.WriteString("  PgUp/PgDn  Scroll transcript\n")
	content.WriteString("  Ctrl+S     Settings\n")
	content.WriteString("  F1         Show this help\n")
	content.WriteString("  Ctrl+C     Quit\n\n")

	content.WriteString(sectionStyle.Render("Settings:"))
	content.WriteString("\n")
	content.WriteString("  ↑/↓        Select\n")
	content.WriteString("  ←/→        Adjust temperature\n")
	content.WriteString("  Enter      Change key / sign out\n")
	content.WriteString("  Esc        Save and close\n")

	return helpStyle.Render(content.String())
}
