// Package ui is a terminal chat pane: the feed on top, an input line below.
package ui

import (
	"context"
	"fmt"
	"strings"

	"folio-chat/domain"
	"folio-chat/errors"
	"folio-chat/feed"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Pane is implemented by *services.ChatPane.
type Pane interface {
	Updates() <-chan feed.Update
	Send(ctx context.Context, text string) error
	Identity() *domain.Identity
	Channel() string
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	authorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	stateStyles = map[domain.ConnectionState]lipgloss.Style{
		domain.StateConnecting: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		domain.StateLive:       lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		domain.StateError:      errorStyle,
	}
)

type updateMsg feed.Update

type closedMsg struct{}

type sentMsg struct{ err error }

type Model struct {
	ctx    context.Context
	pane   Pane
	input  textinput.Model
	update feed.Update
	notice string
	height int
}

// New builds the model. ctx is handed to every Send, it carries the author's token.
func New(ctx context.Context, pane Pane) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Write a message"
	if pane.Identity() == nil {
		input.Placeholder = "Sign in to post"
	}
	input.Focus()
	return Model{ctx: ctx, pane: pane, input: input, update: feed.Update{State: domain.StateConnecting}}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitUpdate())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := m.input.Value()
			m.input.Reset()
			return m, m.send(text)
		}
	case updateMsg:
		m.update = feed.Update(msg)
		return m, m.waitUpdate()
	case closedMsg:
		return m, tea.Quit
	case sentMsg:
		m.notice = ""
		if msg.err != nil {
			m.notice = errors.Code(msg.err)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	state := stateStyles[m.update.State].Render("● " + m.update.State.String())
	fmt.Fprintf(&b, "%s  %s\n\n", titleStyle.Render("#"+m.pane.Channel()), state)

	items := m.update.Items
	if m.height > 0 {
		// header, blank line, notice and input take four rows
		if visible := m.height - 4; visible > 0 && len(items) > visible {
			items = items[len(items)-visible:]
		}
	}
	if len(items) == 0 {
		b.WriteString(timeStyle.Render("No messages yet") + "\n")
	}
	for _, message := range items {
		at := "--:--"
		if message.CreatedAt != nil {
			at = message.CreatedAt.Local().Format("15:04")
		}
		fmt.Fprintf(&b, "%s %s %s\n", timeStyle.Render(at), authorStyle.Render(message.AuthorName+":"), message.Text)
	}

	switch {
	case m.notice != "":
		b.WriteString(errorStyle.Render(m.notice) + "\n")
	case m.update.Err != nil:
		b.WriteString(errorStyle.Render(errors.Code(m.update.Err)) + "\n")
	default:
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) waitUpdate() tea.Cmd {
	updates := m.pane.Updates()
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return updateMsg(update)
	}
}

func (m Model) send(text string) tea.Cmd {
	ctx, pane := m.ctx, m.pane
	return func() tea.Msg {
		return sentMsg{err: pane.Send(ctx, text)}
	}
}
