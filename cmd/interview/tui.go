package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/koscakluka/ema-interview/core"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/interview"
	"github.com/koscakluka/ema-interview/core/speech"
)

// controller is the part of the orchestrator the UI drives.
type controller interface {
	StartAnswer() error
	StopAnswer() error
	AskNext() error
	RepeatQuestion() error
	Cancel() error
}

type eventMsg struct{ event events.Event }
type opErrMsg struct{ err error }

type keyMap struct {
	Record key.Binding
	Next   key.Binding
	Repeat key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Record, k.Next, k.Repeat, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func newKeyMap() keyMap {
	return keyMap{
		Record: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "record / finish answer")),
		Next:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next question")),
		Repeat: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat question")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	recordingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	scoreStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	unscoredStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	panelStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

type model struct {
	ctrl      controller
	typed     *speech.TextCapture
	questions []interview.Question

	state         interview.State
	questionIndex int
	lastAnswer    *interview.Answer
	errText       string
	suggestion    string
	completed     bool
	aggregate     interview.Aggregate
	answers       []interview.Answer
	cancelled     bool

	spinner spinner.Model
	input   textinput.Model
	help    help.Model
	keys    keyMap
	width   int
}

func newModel(ctrl controller, session interview.Session, typed *speech.TextCapture) model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	input := textinput.New()
	input.Placeholder = "Type your answer and press enter"
	input.CharLimit = 4000

	return model{
		ctrl:      ctrl,
		typed:     typed,
		questions: session.Questions,
		state:     interview.StateIdle,
		spinner:   s,
		input:     input,
		help:      help.New(),
		keys:      newKeyMap(),
		width:     80,
	}
}

// call runs an orchestrator operation off the UI loop. Operations deliver
// their events synchronously and those events are sent back to the program.
func call(op func() error) tea.Cmd {
	return func() tea.Msg {
		if err := op(); err != nil {
			return opErrMsg{err: err}
		}
		return nil
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-6, 10)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		return m.handleEvent(msg.event)

	case opErrMsg:
		if errors.Is(msg.err, orchestration.ErrSessionCancelled) {
			return m, tea.Quit
		}
		// transition errors are also raised as events
		if !errors.Is(msg.err, orchestration.ErrInvalidStateTransition) && !errors.Is(msg.err, orchestration.ErrAlreadyComplete) {
			m.errText, m.suggestion = msg.err.Error(), ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleEvent(event events.Event) (tea.Model, tea.Cmd) {
	switch e := event.(type) {
	case events.StateChanged:
		m.state, m.questionIndex = e.State, e.QuestionIndex
		if e.State == interview.StateAsking {
			m.errText, m.suggestion = "", ""
		}
		if e.State == interview.StateListening && m.typed != nil {
			m.input.Reset()
			cmd := m.input.Focus()
			return m, cmd
		}
		m.input.Blur()
	case events.AnswerRecorded:
		answer := e.Answer
		m.lastAnswer = &answer
	case events.ErrorRaised:
		m.errText, m.suggestion = e.Message, e.Suggestion
	case events.SessionCompleted:
		m.completed = true
		m.answers, m.aggregate = e.Answers, e.Aggregate
	case events.SessionCancelled:
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.completed || m.cancelled {
			return m, tea.Quit
		}
		return m, call(m.ctrl.Cancel)
	}
	if m.completed {
		if msg.String() == "q" || key.Matches(msg, m.keys.Record) {
			return m, tea.Quit
		}
		return m, nil
	}

	typing := m.typed != nil && m.state == interview.StateListening
	switch {
	case key.Matches(msg, m.keys.Record):
		switch m.state {
		case interview.StateReadyToRecord:
			return m, call(m.ctrl.StartAnswer)
		case interview.StateListening:
			if typing {
				typed, text := m.typed, m.input.Value()
				return m, call(func() error {
					if err := typed.Write(text); err != nil {
						return err
					}
					return m.ctrl.StopAnswer()
				})
			}
			return m, call(m.ctrl.StopAnswer)
		}
		return m, nil
	case typing:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	case key.Matches(msg, m.keys.Next):
		return m, call(m.ctrl.AskNext)
	case key.Matches(msg, m.keys.Repeat):
		return m, call(m.ctrl.RepeatQuestion)
	}
	return m, nil
}

func (m model) View() string {
	width := max(m.width-4, 20)
	var b strings.Builder

	if m.completed {
		b.WriteString(titleStyle.Render("Interview complete") + "\n\n")
		b.WriteString(renderSummary(m.answers, m.aggregate, width))
		b.WriteString("\n" + statusStyle.Render("Press enter to exit."))
		return b.String()
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf("Question %d of %d", min(m.questionIndex+1, len(m.questions)), len(m.questions))) + "\n\n")
	if m.questionIndex < len(m.questions) {
		b.WriteString(questionStyle.Render(wordwrap.String(m.questions[m.questionIndex].Text, width)) + "\n\n")
	}

	b.WriteString(m.statusLine() + "\n")
	if m.typed != nil && m.state == interview.StateListening {
		b.WriteString(m.input.View() + "\n")
	}

	if m.lastAnswer != nil && m.state != interview.StateListening && m.state != interview.StateEvaluating {
		b.WriteString("\n" + panelStyle.Render(renderAnswer(*m.lastAnswer, width-4)) + "\n")
	}

	if m.errText != "" {
		b.WriteString("\n" + errorStyle.Render(wordwrap.String(m.errText, width)) + "\n")
		if m.suggestion != "" {
			b.WriteString(suggestionStyle.Render(wordwrap.String(m.suggestion, width)) + "\n")
		}
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m model) statusLine() string {
	switch m.state {
	case interview.StateIdle:
		return statusStyle.Render(m.spinner.View() + " Starting...")
	case interview.StateAsking:
		return statusStyle.Render(m.spinner.View() + " Asking...")
	case interview.StateReadyToRecord:
		return statusStyle.Render("Press enter to start answering.")
	case interview.StateListening:
		if m.typed != nil {
			return recordingStyle.Render("● Answering")
		}
		return recordingStyle.Render("● Recording, press enter when done")
	case interview.StateEvaluating:
		return statusStyle.Render(m.spinner.View() + " Evaluating your answer...")
	case interview.StateReadyForNext:
		return statusStyle.Render("Press n for the next question.")
	}
	return ""
}

func renderAnswer(answer interview.Answer, width int) string {
	var b strings.Builder
	if answer.Evaluation.IsUnscored() {
		b.WriteString(unscoredStyle.Render("Not scored") + "\n")
	} else {
		b.WriteString(scoreStyle.Render(fmt.Sprintf("Score %d/%d", answer.Evaluation.Score, interview.MaxScore)) + "\n")
	}
	writeList(&b, "Strengths", answer.Evaluation.Strengths, width)
	writeList(&b, "Weaknesses", answer.Evaluation.Weaknesses, width)
	writeList(&b, "Suggestions", answer.Evaluation.Suggestions, width)
	return strings.TrimRight(b.String(), "\n")
}

func renderSummary(answers []interview.Answer, aggregate interview.Aggregate, width int) string {
	var b strings.Builder
	for _, answer := range answers {
		score := unscoredStyle.Render("not scored")
		if !answer.Evaluation.IsUnscored() {
			score = scoreStyle.Render(fmt.Sprintf("%d/%d", answer.Evaluation.Score, interview.MaxScore))
		}
		line := fmt.Sprintf("%d. %s", answer.QuestionIndex+1, answer.Question)
		b.WriteString(wordwrap.String(line, width) + "\n   " + score + "\n")
	}
	b.WriteString(fmt.Sprintf("\nAverage score: %.1f (%d of %d scored)\n", aggregate.MeanScore, aggregate.ScoredCount, aggregate.Count))
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string, width int) {
	if len(items) == 0 {
		return
	}
	b.WriteString(statusStyle.Render(title) + "\n")
	for _, item := range items {
		b.WriteString(wordwrap.String("- "+item, width) + "\n")
	}
}
