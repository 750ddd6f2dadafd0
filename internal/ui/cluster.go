package ui

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ClusterUI renders the cluster command: a task per stage and a task per
// cluster request. Every method is a no-op when quiet.
type ClusterUI struct {
	writer    io.Writer
	quiet     bool
	workflow  *Workflow
	startTime time.Time

	settingsTask int
	groupsTask   int
	firstRequest int
	profileTask  int
	writeTask    int
}

// NewClusterUI creates a UI for the cluster command.
func NewClusterUI(w io.Writer, quiet bool) *ClusterUI {
	return &ClusterUI{writer: w, quiet: quiet, startTime: time.Now()}
}

// StartWorkflow lays out the stages and one line per request label.
func (c *ClusterUI) StartWorkflow(requests []string) {
	if c.quiet {
		return
	}
	c.startTime = time.Now()
	c.workflow = NewWorkflow(c.writer, "Building renewable clusters")
	c.settingsTask = c.workflow.AddTask("Loading settings")
	c.groupsTask = c.workflow.AddTask("Loading resource groups")
	c.firstRequest = c.workflow.Len()
	for _, r := range requests {
		c.workflow.AddTask("Clustering " + r)
	}
	c.profileTask = c.workflow.AddTask("Processing profiles")
	c.writeTask = c.workflow.AddTask("Writing outputs")
	c.workflow.Start()
}

func (c *ClusterUI) active() bool { return !c.quiet && c.workflow != nil }

// SettingsLoaded completes the settings stage.
func (c *ClusterUI) SettingsLoaded(path string, requests int) {
	if !c.active() {
		return
	}
	c.workflow.CompleteTask(c.settingsTask, fmt.Sprintf("%d request(s) from %s", requests, path))
}

// StartGroups marks group loading as running.
func (c *ClusterUI) StartGroups(dir string) {
	if !c.active() {
		return
	}
	c.workflow.StartTask(c.groupsTask, Dim.Render(dir))
}

// GroupsLoaded completes the group stage.
func (c *ClusterUI) GroupsLoaded(count int) {
	if !c.active() {
		return
	}
	c.workflow.CompleteTask(c.groupsTask, fmt.Sprintf("%d group(s)", count))
}

// StartRequest marks request i as running.
func (c *ClusterUI) StartRequest(i int) {
	if !c.active() {
		return
	}
	c.workflow.StartTask(c.firstRequest+i, "selecting resources...")
}

// FinishRequest completes or fails request i.
func (c *ClusterUI) FinishRequest(i int, clusters int, capacity float64, err error) {
	if !c.active() {
		return
	}
	if err != nil {
		c.workflow.FailTask(c.firstRequest+i, err.Error())
		return
	}
	c.workflow.CompleteTask(c.firstRequest+i, fmt.Sprintf("%d cluster(s), %.1f MW", clusters, capacity))
}

// StartProfiles marks profile processing as running.
func (c *ClusterUI) StartProfiles() {
	if !c.active() {
		return
	}
	c.workflow.StartTask(c.profileTask, "")
}

// ProfilesDone completes profile processing.
func (c *ClusterUI) ProfilesDone(profiles, hours int) {
	if !c.active() {
		return
	}
	c.workflow.CompleteTask(c.profileTask, fmt.Sprintf("%d profile(s) × %d hours", profiles, hours))
}

// StartWriting marks output writing as running.
func (c *ClusterUI) StartWriting() {
	if !c.active() {
		return
	}
	c.workflow.StartTask(c.writeTask, "")
}

// WritingDone completes output writing.
func (c *ClusterUI) WritingDone(files int, dir string) {
	if !c.active() {
		return
	}
	c.workflow.CompleteTask(c.writeTask, fmt.Sprintf("%d file(s) → %s", files, dir))
}

// Fail fails the first stage that has not finished and skips the rest.
func (c *ClusterUI) Fail(err error) {
	if !c.active() {
		return
	}
	c.workflow.mu.Lock()
	failed := false
	for _, t := range c.workflow.tasks {
		if t.Status == TaskDone || t.Status == TaskFailed {
			continue
		}
		if !failed {
			t.Status, t.Message = TaskFailed, err.Error()
			failed = true
			continue
		}
		t.Status, t.Message = TaskSkipped, "skipped"
	}
	c.workflow.mu.Unlock()
}

// FinishWorkflow stops the task display.
func (c *ClusterUI) FinishWorkflow() {
	if !c.active() {
		return
	}
	c.workflow.Stop()
}

// ClusterSummary is one row of the final summary.
type ClusterSummary struct {
	Region     string
	Group      string
	Clusters   int
	CapacityMW float64
}

// PrintSummary prints the built clusters and where outputs went.
func (c *ClusterUI) PrintSummary(session, outputDir string, rows []ClusterSummary) {
	if c.quiet {
		return
	}
	total := 0
	capacity := 0.0
	for _, r := range rows {
		total += r.Clusters
		capacity += r.CapacityMW
	}

	var sb strings.Builder
	sb.WriteString(Success.Bold(true).Render("Clustering Complete"))
	sb.WriteString("\n\n")
	sb.WriteString(RenderClusterTable(rows))
	sb.WriteString("\n\n")
	sb.WriteString(FormatKeyValue("Clusters", fmt.Sprintf("%d (%.1f MW)", total, capacity)))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Output directory", outputDir))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Session", session))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Duration", time.Since(c.startTime).Round(time.Millisecond).String()))

	fmt.Fprintln(c.writer)
	fmt.Fprintln(c.writer, SuccessBox.Render(sb.String()))
}

// PrintWarning prints a warning line.
func (c *ClusterUI) PrintWarning(msg string) {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.writer, FormatStatus("warning", Warning.Render(msg)))
}
