// Package tui is the terminal chat front end of the CLI.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gopherai-docqa/internal/app"
)

const askTimeout = 2 * time.Minute

// Asker is the part of RAGService the chat screen needs.
type Asker interface {
	Ask(ctx context.Context, input app.AskInput) (*app.AnswerResult, error)
}

type turn struct {
	question string
	result   *app.AnswerResult
	err      error
}

type answerMsg turn

type Model struct {
	asker     Asker
	sessionID string
	nResults  int
	title     string

	input    textinput.Model
	viewport viewport.Model
	turns    []turn
	pending  string
	status   string
	ready    bool
}

func New(asker Asker, sessionID, title string, nResults int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the document and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		asker:     asker,
		sessionID: sessionID,
		nResults:  nResults,
		title:     title,
		input:     ti,
		viewport:  viewport.New(0, 0),
		status:    "Ready. Ctrl+C to quit.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := boxStyle.GetFrameSize()
		reserved := 2 + 1 + bh + 1 // header, status, input box, spacer
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = maxInt(3, msg.Height-reserved-bh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.turns = append(m.turns, turn(msg))
		m.pending = ""
		m.status = statusLine(msg.result, msg.err)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter && m.pending == "" {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.input.Reset()
			m.pending = q
			m.status = "Thinking..."
			m.refresh()
			return m, m.ask(q)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	asker, sessionID, n := m.asker, m.sessionID, m.nResults
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		defer cancel()
		res, err := asker.Ask(ctx, app.AskInput{SessionID: sessionID, Question: question, NResults: n})
		return answerMsg{question: question, result: res, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(m.title)
	return header + "\n" +
		boxStyle.Render(m.viewport.View()) + "\n" +
		boxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(m.status)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) transcript() string {
	if len(m.turns) == 0 && m.pending == "" {
		return dimStyle.Render("Hello! I've loaded your document and I'm ready to help. Ask me anything about its contents!")
	}
	var b strings.Builder
	for _, t := range m.turns {
		b.WriteString(userStyle.Render("You: ") + t.question + "\n")
		b.WriteString(renderAnswer(t) + "\n\n")
	}
	if m.pending != "" {
		b.WriteString(userStyle.Render("You: ") + m.pending + "\n")
		b.WriteString(dimStyle.Render("..."))
	}
	return b.String()
}

func renderAnswer(t turn) string {
	if t.err != nil {
		return errorStyle.Render("Error: " + t.err.Error())
	}
	out := botStyle.Render("Assistant: ") + t.result.Answer
	if len(t.result.Sources) > 0 {
		out += "\n" + dimStyle.Render(fmt.Sprintf("(%d sources)", len(t.result.Sources)))
	}
	return out
}

func statusLine(res *app.AnswerResult, err error) string {
	if err != nil {
		return "Last question failed."
	}
	return "Status: " + res.Status
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
