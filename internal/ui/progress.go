package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// StepStatus is the state of one progress step.
type StepStatus int

const (
	StatusPending StepStatus = iota
	StatusRunning
	StatusComplete
	StatusFailed
)

// Step is one line of the progress display.
type Step struct {
	Name    string
	Status  StepStatus
	Message string // shown once the step is complete or failed
}

// ProgressModel is the Bubble Tea model behind ProgressTracker.
type ProgressModel struct {
	spinner  spinner.Model
	title    string
	steps    []Step
	done     bool
	err      error
	quitting bool
}

// NewProgressModel creates a model with one pending step per name.
func NewProgressModel(title string, steps []string) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	m := ProgressModel{spinner: s, title: title, steps: make([]Step, len(steps))}
	for i, name := range steps {
		m.steps[i] = Step{Name: name}
	}
	return m
}

// ProgressMsg updates one step.
type ProgressMsg struct {
	StepIndex int
	Status    StepStatus
	Message   string
}

// DoneMsg ends the display.
type DoneMsg struct {
	Err error
}

// Init starts the spinner.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case ProgressMsg:
		if msg.StepIndex >= 0 && msg.StepIndex < len(m.steps) {
			m.steps[msg.StepIndex].Status = msg.Status
			m.steps[msg.StepIndex].Message = msg.Message
		}
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// View renders the steps.
func (m ProgressModel) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}
	return tea.NewView(m.render())
}

func (m ProgressModel) render() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(Title.Render(m.title))
		b.WriteString("\n\n")
	}
	completed := 0
	for i, step := range m.steps {
		var icon string
		var style styleWrapper
		switch step.Status {
		case StatusRunning:
			icon, style = m.spinner.View(), StepRunning
		case StatusComplete:
			icon, style = GetCheckMark(), StepComplete
			completed++
		case StatusFailed:
			icon, style = GetCrossMark(), StepFailed
		default:
			icon, style = Muted.Render("○"), StepPending
		}
		b.WriteString(icon + " " + style.Render(step.Name))
		if step.Message != "" && (step.Status == StatusFailed || step.Status == StatusComplete) {
			b.WriteString(Dim.Render(" → " + step.Message))
		}
		if i < len(m.steps)-1 {
			b.WriteString("\n")
		}
	}
	if m.done {
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(ErrorBox.Render(GetCrossMark() + " " + m.err.Error()))
		} else {
			b.WriteString(Success.Render(fmt.Sprintf("✓ Completed %d/%d steps", completed, len(m.steps))))
		}
	}
	return b.String()
}

// ProgressTracker drives a ProgressModel from plain method calls. A nil
// tracker ignores every call, so quiet runs can pass nil.
type ProgressTracker struct {
	program *tea.Program
	title   string
	steps   []string
	output  io.Writer

	mu       sync.Mutex
	running  bool
	finished chan struct{}
}

// NewProgressTracker creates a tracker writing to w.
func NewProgressTracker(w io.Writer, title string, steps []string) *ProgressTracker {
	return &ProgressTracker{output: w, title: title, steps: steps}
}

// Start begins the display.
func (pt *ProgressTracker) Start() {
	if pt == nil {
		return
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if pt.running {
		return
	}
	model := NewProgressModel(pt.title, pt.steps)
	pt.program = tea.NewProgram(model, tea.WithOutput(pt.output), tea.WithInput(nil), tea.WithoutSignalHandler())
	pt.running = true
	pt.finished = make(chan struct{})
	go func() {
		defer close(pt.finished)
		_, _ = pt.program.Run()
	}()
}

// UpdateStep sets a step's status and message.
func (pt *ProgressTracker) UpdateStep(index int, status StepStatus, message string) {
	if pt == nil {
		return
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if !pt.running {
		return
	}
	pt.program.Send(ProgressMsg{StepIndex: index, Status: status, Message: message})
}

// Complete renders the final state and waits for the display to exit.
func (pt *ProgressTracker) Complete(err error) {
	if pt == nil {
		return
	}
	pt.mu.Lock()
	if !pt.running {
		pt.mu.Unlock()
		return
	}
	pt.running = false
	pt.program.Send(DoneMsg{Err: err})
	pt.mu.Unlock()

	select {
	case <-pt.finished:
	case <-time.After(2 * time.Second):
		pt.program.Kill()
	}
}
