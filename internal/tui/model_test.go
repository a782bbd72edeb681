package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/app"
)

type stubAsker struct {
	got app.AskInput
	err error
}

func (s *stubAsker) Ask(_ context.Context, in app.AskInput) (*app.AnswerResult, error) {
	s.got = in
	if s.err != nil {
		return &app.AnswerResult{Status: app.StatusError}, s.err
	}
	return &app.AnswerResult{Answer: "They dig.", Status: app.StatusSuccess, Sources: []string{"a"}}, nil
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func TestAskRoundTrip(t *testing.T) {
	asker := &stubAsker{}
	m := sized(New(asker, "s1", "gophers.txt", 3))
	assert.Contains(t, m.View(), "ready to help")

	m.input.SetValue("what do gophers do?")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, "what do gophers do?", m.pending)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	assert.Equal(t, app.AskInput{SessionID: "s1", Question: "what do gophers do?", NResults: 3}, asker.got)

	next, _ = m.Update(msg)
	m = next.(Model)
	assert.Empty(t, m.pending)
	require.Len(t, m.turns, 1)
	assert.Equal(t, "Status: success", m.status)
	assert.Contains(t, m.transcript(), "They dig.")
}

func TestAskError(t *testing.T) {
	m := sized(New(&stubAsker{err: errors.New("no llm")}, "s1", "t", 3))
	m.input.SetValue("hi")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, "Last question failed.", m.status)
	assert.Contains(t, m.transcript(), "Error: no llm")
}

func TestBlankInputIgnored(t *testing.T) {
	m := sized(New(&stubAsker{}, "s1", "t", 3))
	m.input.SetValue("   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}
