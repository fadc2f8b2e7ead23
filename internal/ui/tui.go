package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer provides rich terminal UI using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *buildModel
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. Returns an error if the
// output is not a TTY.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	model := newBuildModel()
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:   cfg,
		model: model,
		done:  make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()

	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Send(progressUpdateMsg(event))
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Quit()

		// Bounded wait so Ctrl+C never hangs on an unresponsive TUI.
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
		}
	}

	return nil
}

// Message types for bubbletea.
type progressUpdateMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats

// buildModel is the bubbletea model for build progress.
type buildModel struct {
	stage       Stage
	current     int
	total       int
	currentDoc  string
	errors      []ErrorEvent
	complete    bool
	quitting    bool
	stats       CompletionStats
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles
	width       int
}

func newBuildModel() *buildModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorCyan))

	p := progress.New(
		progress.WithSolidFill(ColorCyan),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return &buildModel{
		spinner:     s,
		progressBar: p,
		styles:      DefaultStyles(),
		width:       80,
	}
}

// Init implements tea.Model.
func (m *buildModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *buildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case progressUpdateMsg:
		m.stage = msg.Stage
		m.current = msg.Current
		m.total = msg.Total
		m.currentDoc = msg.CurrentDoc
		return m, nil

	case errorMsg:
		m.errors = append(m.errors, ErrorEvent(msg))
		return m, nil

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *buildModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.styles.Header.Render("medsearch index"))
	b.WriteString("\n\n")

	if m.complete {
		b.WriteString(m.styles.Success.Render(fmt.Sprintf(
			"Complete: %d documents, %d chunks in %s",
			m.stats.Documents, m.stats.Chunks, m.stats.Duration.Round(100*time.Millisecond))))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), m.styles.Active.Render(m.stage.String())))
	if m.total > 0 {
		b.WriteString(fmt.Sprintf(" %d/%d\n", m.current, m.total))
		b.WriteString(m.progressBar.ViewAs(float64(m.current) / float64(m.total)))
		b.WriteString("\n")
	} else {
		b.WriteString("\n")
	}

	if m.currentDoc != "" {
		b.WriteString(m.styles.Label.Render(truncateDoc(m.currentDoc, m.width-4)))
		b.WriteString("\n")
	}

	if n := len(m.errors); n > 0 {
		last := m.errors[n-1]
		style := m.styles.Error
		if last.IsWarn {
			style = m.styles.Warning
		}
		b.WriteString("\n")
		b.WriteString(style.Render(fmt.Sprintf("%d problem(s), last: %v", n, last.Err)))
		b.WriteString("\n")
	}

	return b.String()
}

func truncateDoc(doc string, max int) string {
	if max <= 3 || len(doc) <= max {
		return doc
	}
	return doc[:max-3] + "..."
}
