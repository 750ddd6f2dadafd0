package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// TaskStatus is the state of one workflow task.
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskRunning
	TaskDone
	TaskFailed
	TaskSkipped
)

// Task is one line of a workflow.
type Task struct {
	Name    string
	Status  TaskStatus
	Message string
	Details string // shown once the task is done
}

// Workflow renders a list of tasks with a spinner next to the running one.
// Every method is safe for concurrent use, so parallel builds can report
// progress on their own task lines.
type Workflow struct {
	writer io.Writer
	title  string

	mu        sync.Mutex
	tasks     []*Task
	frame     int
	lines     int
	running   bool
	stop      chan struct{}
	done      chan struct{}
	startTime time.Time
}

// NewWorkflow creates a workflow writing to w.
func NewWorkflow(w io.Writer, title string) *Workflow {
	return &Workflow{writer: w, title: title}
}

// AddTask appends a pending task and returns its index.
func (wf *Workflow) AddTask(name string) int {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	wf.tasks = append(wf.tasks, &Task{Name: name})
	return len(wf.tasks) - 1
}

// Len returns the number of tasks.
func (wf *Workflow) Len() int {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	return len(wf.tasks)
}

func (wf *Workflow) update(idx int, fn func(*Task)) {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	if idx >= 0 && idx < len(wf.tasks) {
		fn(wf.tasks[idx])
	}
}

// StartTask marks a task as running.
func (wf *Workflow) StartTask(idx int, message string) {
	wf.update(idx, func(t *Task) { t.Status, t.Message = TaskRunning, message })
}

// UpdateMessage replaces a task's message.
func (wf *Workflow) UpdateMessage(idx int, message string) {
	wf.update(idx, func(t *Task) { t.Message = message })
}

// CompleteTask marks a task as done.
func (wf *Workflow) CompleteTask(idx int, details string) {
	wf.update(idx, func(t *Task) { t.Status, t.Details = TaskDone, details })
}

// FailTask marks a task as failed.
func (wf *Workflow) FailTask(idx int, errMsg string) {
	wf.update(idx, func(t *Task) { t.Status, t.Message = TaskFailed, errMsg })
}

// SkipTask marks a task as skipped.
func (wf *Workflow) SkipTask(idx int, reason string) {
	wf.update(idx, func(t *Task) { t.Status, t.Message = TaskSkipped, reason })
}

// Start begins animating the task list.
func (wf *Workflow) Start() {
	wf.mu.Lock()
	if wf.running {
		wf.mu.Unlock()
		return
	}
	wf.running = true
	wf.startTime = time.Now()
	wf.stop = make(chan struct{})
	wf.done = make(chan struct{})
	if wf.title != "" {
		fmt.Fprintln(wf.writer, Title.Render(wf.title))
	}
	wf.mu.Unlock()

	go func() {
		defer close(wf.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-wf.stop:
				return
			case <-ticker.C:
				wf.mu.Lock()
				wf.frame = (wf.frame + 1) % len(spinnerFrames)
				wf.renderLocked(false)
				wf.mu.Unlock()
			}
		}
	}()
}

// Stop ends the animation and prints the final state of every task.
func (wf *Workflow) Stop() {
	wf.mu.Lock()
	if !wf.running {
		wf.mu.Unlock()
		return
	}
	wf.running = false
	wf.mu.Unlock()

	close(wf.stop)
	<-wf.done

	wf.mu.Lock()
	defer wf.mu.Unlock()
	wf.renderLocked(true)
}

// Elapsed returns the time since Start.
func (wf *Workflow) Elapsed() time.Duration {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	if wf.startTime.IsZero() {
		return 0
	}
	return time.Since(wf.startTime)
}

func (wf *Workflow) renderLocked(final bool) {
	var b strings.Builder
	for i := 0; i < wf.lines; i++ {
		b.WriteString("\033[A\033[K")
	}
	for _, t := range wf.tasks {
		b.WriteString(wf.renderTask(t, final))
		b.WriteString("\n")
	}
	wf.lines = len(wf.tasks)
	if final {
		wf.lines = 0
	}
	fmt.Fprint(wf.writer, b.String())
}

func (wf *Workflow) renderTask(t *Task, final bool) string {
	var icon string
	var nameStyle, msgStyle styleWrapper
	switch t.Status {
	case TaskRunning:
		if final {
			icon, nameStyle, msgStyle = Muted.Render("○"), StepPending, Dim
		} else {
			icon, nameStyle, msgStyle = Secondary.Render(spinnerFrames[wf.frame]), StepRunning, Secondary
		}
	case TaskDone:
		icon, nameStyle, msgStyle = GetCheckMark(), StepComplete, Dim
	case TaskFailed:
		icon, nameStyle, msgStyle = GetCrossMark(), StepFailed, Error
	case TaskSkipped:
		icon, nameStyle, msgStyle = Warning.Render("⊘"), StepSkipped, Warning
	default:
		icon, nameStyle, msgStyle = Muted.Render("○"), StepPending, Dim
	}

	line := icon + " " + nameStyle.Render(t.Name)
	switch {
	case !final && t.Message != "":
		line += " " + msgStyle.Render(t.Message)
	case final && t.Status == TaskDone && t.Details != "":
		line += " " + Dim.Render("→ "+t.Details)
	case final && (t.Status == TaskFailed || t.Status == TaskSkipped) && t.Message != "":
		line += " " + msgStyle.Render("→ "+t.Message)
	}
	return line
}
