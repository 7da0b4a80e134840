package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/binaryworks/medilink/domain/entities"
	"github.com/binaryworks/medilink/usecase"
)

const maxTranscriptLines = 12

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	idleOrbStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	listenOrbStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	talkOrbStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	statsStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	panelStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
)

type tickMsg time.Time

type toggleResultMsg struct{ err error }

type model struct {
	svc     *usecase.AssistantService
	lastErr string
}

func newModel(svc *usecase.AssistantService) model {
	return model{svc: svc}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tick()

	case toggleResultMsg:
		if msg.err != nil && !errors.Is(msg.err, usecase.ErrToggleInFlight) {
			m.lastErr = msg.err.Error()
		} else if msg.err == nil {
			m.lastErr = ""
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			svc := m.svc
			return m, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
				defer cancel()
				return toggleResultMsg{err: svc.Toggle(ctx)}
			}
		case "r":
			m.svc.ResetConversation()
			m.lastErr = ""
			return m, nil
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Frida, asistente de farmacia"))
	b.WriteString("\n\n")
	b.WriteString(m.orbLine())
	b.WriteString("\n\n")
	b.WriteString(m.transcriptLines())
	b.WriteString("\n")

	if warning := m.svc.Warning(); warning != "" {
		b.WriteString(warningStyle.Render("⚠ " + warning))
		b.WriteString("\n")
	}
	if m.lastErr != "" {
		b.WriteString(warningStyle.Render("✗ " + m.lastErr))
		b.WriteString("\n")
	}

	stats := m.svc.Stats()
	b.WriteString(statsStyle.Render(fmt.Sprintf(
		"mensajes %d · tokens %d · %ds",
		stats.Messages, stats.TokensUsed, stats.DurationSeconds)))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("espacio: hablar/colgar · r: reiniciar · q: salir"))

	return panelStyle.Render(b.String())
}

func (m model) orbLine() string {
	if !m.svc.Active() {
		return idleOrbStyle.Render("○ inactiva") + helpStyle.Render("  pulsa espacio para hablar")
	}
	if m.svc.State() == usecase.AssistantTalking {
		return talkOrbStyle.Render("● hablando")
	}
	return listenOrbStyle.Render("● escuchando")
}

func (m model) transcriptLines() string {
	entries := m.svc.Transcript()
	if len(entries) == 0 {
		return helpStyle.Render("(sin conversación)")
	}
	if len(entries) > maxTranscriptLines {
		entries = entries[len(entries)-maxTranscriptLines:]
	}

	var b strings.Builder
	for _, entry := range entries {
		if entry.Role == entities.TranscriptRoleUser {
			b.WriteString(userStyle.Render("tú  ") + entry.Text)
		} else {
			b.WriteString(assistantStyle.Render("frida  ") + entry.Text)
		}
		b.WriteString("\n")
	}
	return b.String()
}
