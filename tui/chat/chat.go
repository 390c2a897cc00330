// Package chat implements the terminal chat surface: a bubbletea program
// that sends questions to the answerer and renders answers from its event
// stream.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"docent/llm/answer"
	"docent/pubsub"
)

// Model is the bubbletea model for the chat screen.
type Model struct {
	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	answerer *answer.Answerer
	sub      <-chan pubsub.Event[answer.Event]
	ctx      context.Context

	transcript []string
	waiting    bool
	ready      bool
	width      int
	height     int
}

// InitialModel creates the chat model bound to an answerer.
func InitialModel(a *answer.Answerer) Model {
	ctx := context.Background()

	input := textinput.New()
	input.Placeholder = "Ask a question..."
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = spinnerStyle

	return Model{
		input:    input,
		spin:     spin,
		answerer: a,
		sub:      a.Events().Subscribe(ctx),
		ctx:      ctx,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent())
}

// waitForEvent blocks on the answerer's event stream and feeds the next
// event into Update.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.sub
		if !ok {
			return tea.Quit()
		}
		return event
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		inputHeight := 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight
		}
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.waiting {
				break
			}
			m.input.Reset()
			m.waiting = true

			// The turn runs off the UI loop; its outcome arrives as a
			// broker event.
			a := m.answerer
			ctx := m.ctx
			go func() {
				_, _ = a.Ask(ctx, question)
			}()
			cmds = append(cmds, m.spin.Tick)
		}

	case pubsub.Event[answer.Event]:
		switch msg.Type {
		case pubsub.QuestionEvent:
			m.transcript = append(m.transcript, questionStyle.Render("you")+" "+msg.Payload.Question)
		case pubsub.AnswerEvent:
			m.waiting = false
			m.transcript = append(m.transcript,
				answerStyle.Render("docent")+"\n"+m.renderMarkdown(msg.Payload.Answer)+renderSources(msg.Payload.Sources))
		case pubsub.ErrorEvent:
			m.waiting = false
			m.transcript = append(m.transcript, errorStyle.Render("error")+" "+msg.Payload.Err)
		}
		m.refresh()
		cmds = append(cmds, m.waitForEvent())

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// refresh re-renders the transcript into the viewport, pinned to the
// bottom.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.transcript, "\n\n"))
	m.viewport.GotoBottom()
}

// renderMarkdown pretty-prints an answer with glamour, falling back to the
// raw text when rendering fails.
func (m *Model) renderMarkdown(text string) string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func renderSources(sources []answer.Source) string {
	if len(sources) == 0 {
		return ""
	}
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = fmt.Sprintf("%s (%s)", s.Title, s.DocType)
	}
	return "\n" + sourceStyle.Render("sources: "+strings.Join(names, ", "))
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	status := ""
	if m.waiting {
		status = m.spin.View() + " thinking"
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		status,
		inputStyle.Render(m.input.View()),
	)
}
