package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"mcgen/internal/lowerpipeline"
)

type progressModel struct {
	title      string
	events     <-chan lowerpipeline.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []funcItem
	index      map[string]int
	passes     map[string]int
	stageLabel string
	width      int
	done       bool
}

type funcItem struct {
	name   string
	status string
	passes int // finished passes
}

type eventMsg lowerpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders lowering progress
// with one row per function. passes is the pipeline in execution order.
func NewProgressModel(title string, funcs, passes []string, events <-chan lowerpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]funcItem, 0, len(funcs))
	index := make(map[string]int, len(funcs))
	for i, fn := range funcs {
		items = append(items, funcItem{name: fn, status: "queued"})
		index[fn] = i
	}
	order := make(map[string]int, len(passes))
	for i, p := range passes {
		order[p] = i + 1
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		passes:  order,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.applyEvent(lowerpipeline.Event(msg))
		return m, m.listenForEvent()
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
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	header := m.title
	if m.stageLabel != "" {
		header += " (" + m.stageLabel + ")"
	}
	lead := m.spinner.View()
	if m.done {
		lead = doneStyle.Render("done:")
	}

	var b strings.Builder
	b.WriteString(lead + " " + titleStyle.Render(header) + "\n\n")

	const statusWidth, countWidth = 24, 7
	nameWidth := max(m.width-statusWidth-countWidth-6, 20)
	for _, item := range m.items {
		status := runewidth.FillLeft(truncate(item.status, statusWidth), statusWidth)
		count := fmt.Sprintf("%d/%d", item.passes, len(m.passes))
		fmt.Fprintf(&b, "  %s %s %s\n",
			statusStyle(item.status).Render(status),
			runewidth.FillRight(truncate(item.name, nameWidth), nameWidth),
			countStyle.Render(runewidth.FillLeft(count, countWidth)))
	}

	percent := m.fraction()
	if m.done {
		percent = 1
	}
	b.WriteString("\n" + m.prog.ViewAs(percent) + "\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev lowerpipeline.Event) {
	if ev.Function == "" {
		m.stageLabel = stageLabel(ev.Stage, ev.Status)
		return
	}
	idx, ok := m.index[ev.Function]
	if !ok {
		return
	}
	item := &m.items[idx]
	switch ev.Status {
	case lowerpipeline.StatusQueued:
		item.status = "queued"
	case lowerpipeline.StatusDone:
		item.status, item.passes = "done", len(m.passes)
	case lowerpipeline.StatusError:
		item.status = "error"
	case lowerpipeline.StatusWorking:
		item.status = ev.Pass
		if n := m.passes[ev.Pass]; n > item.passes {
			item.passes = n
		}
	}
}

// fraction is the share of finished function passes.
func (m *progressModel) fraction() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		switch {
		case item.status == "done" || item.status == "error":
			total++
		case len(m.passes) > 0:
			total += float64(item.passes) / float64(len(m.passes))
		}
	}
	return total / float64(len(m.items))
}

func stageLabel(stage lowerpipeline.Stage, status lowerpipeline.Status) string {
	switch status {
	case lowerpipeline.StatusError:
		return string(stage) + " failed"
	case lowerpipeline.StatusWorking:
		switch stage {
		case lowerpipeline.StageLoad:
			return "loading"
		case lowerpipeline.StageConfigure:
			return "configuring"
		case lowerpipeline.StageLower:
			return "lowering"
		case lowerpipeline.StageEmit:
			return "emitting"
		}
	}
	return ""
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	countStyle  = lipgloss.NewStyle().Faint(true)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	queuedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// statusStyle colours a row by status; a pass name means the row is busy.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "done":
		return doneStyle
	case "error":
		return errorStyle
	case "queued":
		return queuedStyle
	}
	return passStyle
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
