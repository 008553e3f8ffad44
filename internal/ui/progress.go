// Package ui renders build progress in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"cssident/internal/buildpipeline"
)

// maxRows bounds the file list. Projects easily hold hundreds of CSS
// modules; finished files leave the list first.
const maxRows = 12

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	queuedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// stageShare is the fraction of a file's work finished once a stage is
// under way and once it is done.
var stageShare = map[buildpipeline.Stage][2]float64{
	buildpipeline.StageScan:    {0.1, 0.4},
	buildpipeline.StageRewrite: {0.6, 0.9},
	buildpipeline.StageEmit:    {0.95, 1},
}

type fileState struct {
	path   string
	stage  buildpipeline.Stage
	status buildpipeline.Status
	err    error
}

func (f fileState) finished() bool {
	return f.status == buildpipeline.StatusError ||
		(f.stage == buildpipeline.StageEmit && f.status == buildpipeline.StatusDone)
}

// label is the word shown next to the file.
func (f fileState) label() string {
	switch f.status {
	case buildpipeline.StatusWorking:
		return stageVerb(f.stage)
	case buildpipeline.StatusDone:
		if f.stage == buildpipeline.StageEmit {
			return "done"
		}
		return stageVerb(f.stage) + " ok"
	case buildpipeline.StatusError:
		return "error"
	default:
		return "queued"
	}
}

func (f fileState) share() float64 {
	if f.finished() {
		return 1
	}
	s, ok := stageShare[f.stage]
	switch {
	case !ok:
		return 0
	case f.status == buildpipeline.StatusDone:
		return s[1]
	case f.status == buildpipeline.StatusWorking:
		return s[0]
	}
	return 0
}

type progressModel struct {
	title  string
	events <-chan buildpipeline.Event

	spinner spinner.Model
	bar     progress.Model

	files []fileState
	index map[string]int
	// stage is the latest pipeline-wide stage reported
	stage    buildpipeline.Stage
	stageErr error
	width    int
	done     bool
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model fed from a pipeline event
// channel. files may be empty; queued events announce the rest.
func NewProgressModel(title string, files []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = workingStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		index:   make(map[string]int, len(files)),
		width:   80,
	}
	for _, f := range files {
		m.add(f)
	}
	return m
}

func (m *progressModel) add(path string) int {
	m.files = append(m.files, fileState{path: path, status: buildpipeline.StatusQueued})
	m.index[path] = len(m.files) - 1
	return len(m.files) - 1
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.applyEvent(buildpipeline.Event(msg)), m.listen())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = max(msg.Width-4, 10)
		}
		return m, nil
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	if ev.File == "" {
		m.stage = ev.Stage
		if ev.Status == buildpipeline.StatusError {
			m.stageErr = ev.Err
		}
		return nil
	}
	idx, ok := m.index[ev.File]
	if !ok {
		if ev.Status != buildpipeline.StatusQueued {
			return nil
		}
		idx = m.add(ev.File)
	}
	f := &m.files[idx]
	if f.finished() {
		return nil
	}
	f.stage, f.status, f.err = ev.Stage, ev.Status, ev.Err
	return m.bar.SetPercent(m.percent())
}

// percent averages the per-file progress.
func (m *progressModel) percent() float64 {
	if len(m.files) == 0 {
		return 0
	}
	total := 0.0
	for _, f := range m.files {
		total += f.share()
	}
	return total / float64(len(m.files))
}

// counts returns the number of finished and failed files.
func (m *progressModel) counts() (finished, failed int) {
	for _, f := range m.files {
		if f.finished() {
			finished++
		}
		if f.status == buildpipeline.StatusError {
			failed++
		}
	}
	return finished, failed
}

// visible picks the rows to draw: failures, then files in progress, then
// queued ones, then finished ones, each group in discovery order.
func (m *progressModel) visible() (rows []fileState, hidden int) {
	rank := func(f fileState) int {
		switch {
		case f.status == buildpipeline.StatusError:
			return 0
		case f.finished():
			return 3
		case f.status == buildpipeline.StatusQueued:
			return 2
		default:
			return 1
		}
	}
	for r := 0; r <= 3 && len(rows) < maxRows; r++ {
		for _, f := range m.files {
			if rank(f) != r {
				continue
			}
			if len(rows) == maxRows {
				break
			}
			rows = append(rows, f)
		}
	}
	return rows, len(m.files) - len(rows)
}

func (m *progressModel) View() string {
	var b strings.Builder
	header := m.title
	if verb := stageVerb(m.stage); verb != "" && !m.done {
		header += ": " + verb
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}
	b.WriteString(titleStyle.Render(header))
	if len(m.files) > 0 {
		finished, failed := m.counts()
		summary := fmt.Sprintf("  %d/%d files", finished, len(m.files))
		if failed > 0 {
			summary += fmt.Sprintf(", %d failed", failed)
		}
		b.WriteString(countStyle.Render(summary))
	}
	b.WriteString("\n")
	if m.stageErr != nil {
		b.WriteString(errorStyle.Render(truncate(m.stageErr.Error(), m.width)))
		b.WriteString("\n")
	}
	if len(m.files) == 0 {
		return b.String()
	}
	b.WriteString("\n")

	const statusWidth = 14
	nameWidth := max(m.width-statusWidth-4, 20)
	rows, hidden := m.visible()
	for _, f := range rows {
		status := fmt.Sprintf("%*s", statusWidth, f.label())
		fmt.Fprintf(&b, "  %s %s\n", statusStyle(f).Render(status), truncate(f.path, nameWidth))
	}
	if hidden > 0 {
		b.WriteString(countStyle.Render(fmt.Sprintf("  ... %d more", hidden)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

func stageVerb(stage buildpipeline.Stage) string {
	switch stage {
	case buildpipeline.StageLoad:
		return "loading map"
	case buildpipeline.StageScan:
		return "scanning"
	case buildpipeline.StageAllocate:
		return "allocating"
	case buildpipeline.StageRewrite:
		return "rewriting"
	case buildpipeline.StageEmit:
		return "emitting"
	default:
		return ""
	}
}

func statusStyle(f fileState) lipgloss.Style {
	switch {
	case f.status == buildpipeline.StatusError:
		return errorStyle
	case f.finished(), f.status == buildpipeline.StatusDone:
		return doneStyle
	case f.status == buildpipeline.StatusWorking:
		return workingStyle
	default:
		return queuedStyle
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
