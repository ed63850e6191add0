// Package ui provides the terminal progress view using Bubble Tea and the
// run summary.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-planetarium/internal/planetarium"
	"github.com/litescript/ls-planetarium/internal/version"
)

// ErrInterrupted is returned when the user aborts the run from the view.
var ErrInterrupted = errors.New("interrupted")

// Msg types for Bubble Tea
type (
	// StageStartedMsg signals a pipeline stage began.
	StageStartedMsg struct {
		Stage planetarium.Stage
	}

	// StageFinishedMsg signals a pipeline stage completed.
	StageFinishedMsg struct {
		Stage   planetarium.Stage
		Summary string
	}

	// DoneMsg carries the outcome of the run.
	DoneMsg struct {
		Result planetarium.Result
		Err    error
	}

	// spinTickMsg advances the spinner.
	spinTickMsg time.Time
)

type stageState int

const (
	statePending stageState = iota
	stateRunning
	stateDone
	stateFailed
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Progress shows each pipeline stage and its outcome.
type Progress struct {
	title     string
	stages    []planetarium.Stage
	states    map[planetarium.Stage]stageState
	summaries map[planetarium.Stage]string

	frame       int
	done        bool
	interrupted bool
	result      planetarium.Result
	err         error
}

// NewProgress creates a view listing stages in order.
func NewProgress(title string, stages []planetarium.Stage) Progress {
	m := Progress{
		title:     title,
		stages:    stages,
		states:    make(map[planetarium.Stage]stageState, len(stages)),
		summaries: make(map[planetarium.Stage]string, len(stages)),
	}
	for _, s := range stages {
		m.states[s] = statePending
	}
	return m
}

func spinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return spinTickMsg(t)
	})
}

// Init implements tea.Model.
func (m Progress) Init() tea.Cmd {
	return spinTick()
}

// Update implements tea.Model.
func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.interrupted = true
			return m, tea.Quit
		}

	case spinTickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, spinTick()

	case StageStartedMsg:
		m.states[msg.Stage] = stateRunning

	case StageFinishedMsg:
		m.states[msg.Stage] = stateDone
		m.summaries[msg.Stage] = msg.Summary

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		if msg.Err != nil {
			for s, st := range m.states {
				if st == stateRunning {
					m.states[s] = stateFailed
				}
			}
		}
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m Progress) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString(dimStyle.Render("  v" + version.Version))
	b.WriteString("\n\n")

	for _, s := range m.stages {
		b.WriteString(m.renderStage(s))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	case m.done:
		b.WriteString("\n")
		b.WriteString(doneStyle.Render(fmt.Sprintf("done in %s", m.result.Duration.Round(time.Millisecond))))
		b.WriteString("\n")
	default:
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("q to abort"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Progress) renderStage(s planetarium.Stage) string {
	name := fmt.Sprintf("%-9s", s.String())
	switch m.states[s] {
	case stateRunning:
		return runningStyle.Render(spinnerFrames[m.frame]) + " " + stageStyle.Render(name)
	case stateDone:
		return doneStyle.Render("✓") + " " + stageStyle.Render(name) + " " + dimStyle.Render(m.summaries[s])
	case stateFailed:
		return errorStyle.Render("✗") + " " + stageStyle.Render(name)
	default:
		return pendingStyle.Render("· " + name)
	}
}

// Reporter forwards pipeline progress to a running program.
type Reporter struct {
	send func(tea.Msg)
}

// NewReporter creates a Reporter that sends to p.
func NewReporter(p *tea.Program) *Reporter {
	return &Reporter{send: p.Send}
}

// StageStarted implements planetarium.Reporter.
func (r *Reporter) StageStarted(s planetarium.Stage) {
	r.send(StageStartedMsg{Stage: s})
}

// StageFinished implements planetarium.Reporter.
func (r *Reporter) StageFinished(s planetarium.Stage, summary string) {
	r.send(StageFinishedMsg{Stage: s, Summary: summary})
}

// Job is the work shown by Run.
type Job func(ctx context.Context, rep planetarium.Reporter) (planetarium.Result, error)

// Run shows the progress view while job runs in a background goroutine.
// Quitting the view cancels the job's context.
func Run(ctx context.Context, title string, stages []planetarium.Stage, job Job) (planetarium.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgress(title, stages))

	var (
		res planetarium.Result
		err error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		res, err = job(ctx, NewReporter(p))
		p.Send(DoneMsg{Result: res, Err: err})
	}()

	final, runErr := p.Run()
	cancel()
	<-finished

	if runErr != nil {
		return res, fmt.Errorf("progress view: %w", runErr)
	}
	if m, ok := final.(Progress); ok && m.interrupted && errors.Is(err, context.Canceled) {
		return res, ErrInterrupted
	}
	return res, err
}
