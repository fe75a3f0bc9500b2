// Package tui provides a Bubble Tea terminal user interface for assetsync.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/assetsync/internal/assets"
	"github.com/handiism/assetsync/internal/config"
	"github.com/handiism/assetsync/internal/download"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	versionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// errCanceled is shown when the user aborts a batch.
var errCanceled = errors.New("cancelled by user")

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	pkg       *assets.Package
	logs      []LogEntry
	version   string
	unpacked  int
	err       error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	// Batch reference, polled on every tick
	batch  *download.Batch
	events chan download.ProgressEvent

	// Batch progress
	current download.Progress

	// Options
	unpack  bool
	offline bool
	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model for pkg.
func NewModel(settings *config.Settings, pkg *assets.Package) Model {
	ti := textinput.New()
	ti.Placeholder = "dlc, hd (blank downloads everything)"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		pkg:       pkg,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan download.ProgressEvent, 64),
		unpack:    true,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// InitDoneMsg is sent when the manifest is active and the batch is built.
	InitDoneMsg struct {
		Version  string
		Unpacked int
		Batch    *download.Batch
		Err      error
	}

	// DownloadDoneMsg is sent when the batch settles.
	DownloadDoneMsg struct {
		Progress download.Progress
		Err      error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.stop()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateInitializing {
				m.stop()
				m.state = StateError
				m.err = errCanceled
			}

		case "enter":
			if m.state == StateInput {
				m.state = StateInitializing
				return m, tea.Batch(m.initializeDownload(), m.spinner.Tick, m.tickProgress())
			}

		case "ctrl+u":
			if m.state == StateInput {
				m.unpack = !m.unpack
			}

		case "ctrl+o":
			if m.state == StateInput {
				m.offline = !m.offline
			}

		case "ctrl+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for a new batch
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.version = ""
				m.unpacked = 0
				m.current = download.Progress{}
				m.batch = nil
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.SetValue("")
				m.textInput.Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case InitDoneMsg:
		m.drainEvents()
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.version = msg.Version
			m.unpacked = msg.Unpacked
			m.batch = msg.Batch
			m.state = StateDownloading
			cmds = append(cmds, m.startDownload())
		}

	case DownloadDoneMsg:
		m.drainEvents()
		m.current = msg.Progress
		switch {
		case m.ctx.Err() != nil || errors.Is(msg.Err, download.ErrBatchCanceled):
			m.state = StateError
			m.err = errCanceled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.state != StateInitializing && m.state != StateDownloading {
			return m, nil
		}
		m.drainEvents()
		if m.batch != nil {
			m.current = m.batch.Progress()
			cmds = append(cmds, m.progress.SetPercent(m.current.Fraction()))
		}
		cmds = append(cmds, m.tickProgress())

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// stop cancels the running lifecycle step and batch.
func (m *Model) stop() {
	m.cancel()
	if m.batch != nil {
		m.batch.Cancel()
	}
}

// drainEvents moves queued progress events into the log pane.
func (m *Model) drainEvents() {
	for {
		select {
		case event := <-m.events:
			if event.Level == download.LevelVerbose && !m.verbose {
				continue
			}
			m.logs = append(m.logs, LogEntry{Message: event.Message, Level: event.Level})
			// Keep only last 10 logs
			if len(m.logs) > 10 {
				m.logs = m.logs[len(m.logs)-10:]
			}
		default:
			return
		}
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("assetsync"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Sync asset bundles for package %q", m.settings.PackageName)))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Tags to download:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Unpack built-in bundles first (ctrl+u)\n", check(m.unpack)))
	b.WriteString(fmt.Sprintf("  %s Offline, use the saved manifest (ctrl+o)\n", check(m.offline)))
	b.WriteString(fmt.Sprintf("  %s Verbose/debug output (ctrl+v)\n", check(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Host: %s", m.settings.DefaultHostServer)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Cache: %s", m.settings.PackageCacheRoot())))
	b.WriteString("\n")

	return b.String()
}

func check(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Updating manifest..."))
	b.WriteString("\n\n")

	// Show logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(versionStyle.Render(fmt.Sprintf("Manifest %s", m.version)))
	b.WriteString("\n")
	if m.unpacked > 0 {
		b.WriteString(successStyle.Render(fmt.Sprintf("Unpacked %d built-in bundle(s)", m.unpacked)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// Progress bar
	b.WriteString(m.progress.ViewAs(m.current.Fraction()))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Bundles: %d/%d | Downloaded: %.2f/%.2f MB",
		m.current.ItemsDone,
		m.current.ItemsTotal,
		float64(m.current.BytesDone)/1024/1024,
		float64(m.current.BytesTotal)/1024/1024,
	)))
	b.WriteString("\n\n")

	// Logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	box := boxStyle.Render(fmt.Sprintf(
		"Sync complete\n\n"+
			"Manifest: %s\n"+
			"Unpacked: %d\n"+
			"Downloaded: %d\n"+
			"Size: %.2f MB",
		m.version,
		m.unpacked,
		m.current.ItemsDone,
		float64(m.current.BytesDone)/1024/1024,
	))
	b.WriteString(box)

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ctrl+u: unpack • ctrl+o: offline • ctrl+v: verbose • esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new sync • q: quit"
	}
	return ""
}

// ParseTags splits a comma or space separated tag list. Blank input
// yields nil, which selects every bundle.
func ParseTags(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// initializeDownload activates a manifest, unpacks built-in bundles and
// creates the download batch.
func (m Model) initializeDownload() tea.Cmd {
	ctx, pkg, events := m.ctx, m.pkg, m.events
	tags := ParseTags(m.textInput.Value())
	unpack, offline := m.unpack, m.offline

	onProgress := func(event download.ProgressEvent) {
		select {
		case events <- event:
		default:
		}
	}

	return func() tea.Msg {
		if offline {
			if _, err := pkg.LoadLocalManifest(ctx); err != nil {
				return InitDoneMsg{Err: err}
			}
		} else if _, err := pkg.Update(ctx); err != nil {
			onProgress(download.ProgressEvent{Message: fmt.Sprintf("Update failed: %v", err), Level: download.LevelWarning})
			if _, lerr := pkg.LoadLocalManifest(ctx); lerr != nil {
				return InitDoneMsg{Err: err}
			}
		}
		onProgress(download.ProgressEvent{Message: fmt.Sprintf("Manifest %s active", pkg.PackageVersion()), Level: download.LevelInfo})

		unpacked := 0
		if unpack {
			u, err := pkg.CreateUnpackerByAll(onProgress)
			if err != nil {
				return InitDoneMsg{Err: err}
			}
			if err := u.Run(ctx); err != nil {
				return InitDoneMsg{Err: err}
			}
			unpacked = u.Progress().ItemsDone
		}

		var batch *download.Batch
		var err error
		if tags == nil {
			batch, err = pkg.CreateDownloaderByAll(onProgress)
		} else {
			batch, err = pkg.CreateDownloaderByTags(tags, onProgress)
		}
		if err != nil {
			return InitDoneMsg{Err: err}
		}

		return InitDoneMsg{
			Version:  pkg.PackageVersion(),
			Unpacked: unpacked,
			Batch:    batch,
		}
	}
}

// startDownload runs the batch in background.
func (m Model) startDownload() tea.Cmd {
	ctx, batch := m.ctx, m.batch
	return func() tea.Msg {
		if batch == nil {
			return DownloadDoneMsg{Err: fmt.Errorf("no batch")}
		}

		err := batch.Run(ctx)
		return DownloadDoneMsg{
			Progress: batch.Progress(),
			Err:      err,
		}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings, pkg *assets.Package) error {
	p := tea.NewProgram(NewModel(settings, pkg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
