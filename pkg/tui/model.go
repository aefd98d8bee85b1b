// Package tui is the interactive terminal client for a chat session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/llm"
)

const (
	// ClearCommand clears the chat history.
	ClearCommand = "/clear"

	thinkingText = "Thinking..."
	headerHeight = 2
	footerHeight = 3
)

// replyMsg carries the result of a submission back to the update loop.
type replyMsg struct {
	reply *chat.Reply
	err   error
}

// Model is the bubbletea model of the chat client. Input is ignored while the
// session awaits a response.
type Model struct {
	ctx     context.Context
	session *chat.Session

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	awaiting bool
	pending  string
	lastErr  error
	width    int
	ready    bool
}

// New creates the client model for session.
func New(ctx context.Context, session *chat.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message, " + ClearCommand + " to clear history"
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle

	return Model{
		ctx:      ctx,
		session:  session,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.awaiting {
				return m, nil
			}
			return m.submit()
		}
		if m.awaiting {
			// Keep scrolling available while waiting.
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case replyMsg:
		m.awaiting = false
		m.pending = ""
		m.lastErr = msg.err
		m.input.Focus()
		m.refresh()
		return m, textinput.Blink

	case spinner.TickMsg:
		if !m.awaiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit handles Enter while idle.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	m.input.Reset()

	if strings.TrimSpace(text) == ClearCommand {
		m.session.ClearHistory()
		m.lastErr = nil
		m.refresh()
		return m, nil
	}
	if text == "" {
		return m, nil
	}

	m.awaiting = true
	m.pending = text
	m.input.Blur()
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.submitCmd(text))
}

func (m Model) submitCmd(text string) tea.Cmd {
	session := m.session
	ctx := m.ctx
	return func() tea.Msg {
		reply, err := session.Submit(ctx, text)
		return replyMsg{reply: reply, err: err}
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.viewport.Width = width
	m.viewport.Height = max(height-headerHeight-footerHeight, 1)
	m.input.Width = max(width-4, 10)

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-6, 20)),
	)
	if err == nil {
		m.renderer = r
	}
	m.ready = true
}

// refresh re-renders the transcript into the viewport.
func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) transcript() string {
	turns := m.session.Turns()
	if m.awaiting && m.pending != "" {
		if n := len(turns); n == 0 || turns[n-1] != llm.UserTurn(m.pending) {
			turns = append(turns, llm.UserTurn(m.pending))
		}
	}

	var b strings.Builder
	for _, t := range turns {
		if t.Role == llm.RoleUser {
			fmt.Fprintf(&b, "%s %s\n\n", userStyle.Render("You:"), t.Content)
			continue
		}
		fmt.Fprintf(&b, "%s %s\n\n", botStyle.Render("Bot:"), m.render(t.Content))
	}
	return b.String()
}

func (m Model) render(content string) string {
	if m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(out)
}

func (m Model) View() string {
	settings := m.session.Settings()
	header := titleStyle.Render("parley") + " " + settingsStyle.Render(fmt.Sprintf(
		"mode=%s temperature=%.2f max_tokens=%d", settings.Mode, settings.Temperature, settings.MaxTokens))

	status := helpStyle.Render("enter: send • " + ClearCommand + ": clear history • esc: quit")
	if m.awaiting {
		status = m.spinner.View() + statusStyle.Render(" "+thinkingText)
	} else if m.lastErr != nil {
		status = statusStyle.Render(m.lastErr.Error())
	}

	return strings.Join([]string{header, "", m.viewport.View(), status, m.input.View()}, "\n")
}

// Awaiting reports whether a submission is in flight.
func (m Model) Awaiting() bool {
	return m.awaiting
}

// Run starts the client on the terminal and blocks until the user quits.
func Run(ctx context.Context, session *chat.Session) error {
	p := tea.NewProgram(New(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
