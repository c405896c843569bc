package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musicvault/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListView ViewState = iota
	RefreshView
	ResultView
)

// Refresher is the part of [tasks.NoteEngine] the browser drives.
type Refresher interface {
	RefreshAll(ctx context.Context, folder string, progress chan<- tasks.ProgressUpdate) (*tasks.RefreshResult, error)
	RefreshDocument(ctx context.Context, path string) (tasks.DocumentHandle, error)
}

// ModelOpts contains the dependencies of the browser.
type ModelOpts struct {
	Folder    string
	Refresher Refresher
	Load      func(ctx context.Context) ([]Note, error) // lists and decodes the folder's notes
	Open      func(path string) error                   // opens a note in Obsidian
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	opts         ModelOpts
	view         ViewState
	width        int
	height       int
	notes        list.Model
	progressChan chan tasks.ProgressUpdate
	done         chan refreshCompleteMsg
	progress     tasks.ProgressUpdate
	result       *tasks.RefreshResult
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	notes := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	notes.Title = fmt.Sprintf("Song notes in %s", opts.Folder)
	return &Model{
		ctx:   ctx,
		opts:  opts,
		view:  ListView,
		notes: notes,
		help:  help.New(),
		keys:  newKeyMap(),
	}
}

// Init loads the notes.
func (m *Model) Init() tea.Cmd {
	return m.loadNotes()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.notes.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ListView:
			return m.handleListKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case RefreshView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}

	case notesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		items := make([]list.Item, len(msg.notes))
		for i, n := range msg.notes {
			items[i] = noteItem{note: n}
		}
		return m, m.notes.SetItems(items)

	case noteRefreshedMsg:
		if msg.err != nil {
			m.status = Err("✗ %v", msg.err)
			return m, nil
		}
		if msg.handle.Updated {
			m.status = OK("✓ updated %s", msg.handle.Path)
		} else {
			m.status = Help("= %s already up to date", msg.handle.Path)
		}
		return m, m.loadNotes()

	case openedMsg:
		if msg.err != nil {
			m.status = Err("✗ could not open %s: %v", msg.path, msg.err)
		} else {
			m.status = Help("opened %s", msg.path)
		}
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case refreshCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.progressChan = nil
		m.done = nil
		m.view = ResultView
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == ListView {
		m.notes, cmd = m.notes.Update(msg)
	}
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return Err("Error: %v\n\nPress q to quit", m.err)
	}

	switch m.view {
	case ListView:
		return m.renderList()
	case RefreshView:
		return m.renderRefresh()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// ViewState returns the active view.
func (m *Model) ViewState() ViewState { return m.view }

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.notes.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refreshAll):
		m.view = RefreshView
		m.progress = tasks.ProgressUpdate{}
		return m, m.startRefresh()
	case key.Matches(msg, m.keys.refresh):
		if n, ok := m.selected(); ok {
			m.status = Help("refreshing %s...", n.Path)
			return m, m.refreshNote(n.Path)
		}
		return m, nil
	case key.Matches(msg, m.keys.open):
		if n, ok := m.selected(); ok {
			return m, m.openNote(n.Path)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.notes, cmd = m.notes.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ListView
		m.result = nil
		m.err = nil
		return m, m.loadNotes()
	}
	return m, nil
}

func (m *Model) selected() (Note, bool) {
	item, ok := m.notes.SelectedItem().(noteItem)
	if !ok {
		return Note{}, false
	}
	return item.note, true
}

func (m *Model) loadNotes() tea.Cmd {
	return func() tea.Msg {
		notes, err := m.opts.Load(m.ctx)
		return notesLoadedMsg{notes: notes, err: err}
	}
}

func (m *Model) refreshNote(path string) tea.Cmd {
	return func() tea.Msg {
		handle, err := m.opts.Refresher.RefreshDocument(m.ctx, path)
		return noteRefreshedMsg{handle: handle, err: err}
	}
}

func (m *Model) openNote(path string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg{path: path, err: m.opts.Open(path)}
	}
}

// startRefresh runs RefreshAll in the background and streams its progress.
func (m *Model) startRefresh() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan refreshCompleteMsg, 1)
	m.progressChan = progress
	m.done = done

	go func() {
		result, err := m.opts.Refresher.RefreshAll(m.ctx, m.opts.Folder, progress)
		done <- refreshCompleteMsg{result: result, err: err}
		close(progress)
	}()

	return m.waitForProgress()
}

// waitForProgress yields one progress update at a time, then the final result
// once the progress channel is closed.
func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		if progress == nil {
			return refreshCompleteMsg{result: m.result, err: m.err}
		}
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderList() string {
	view := m.notes.View()
	if m.status != "" {
		view += "\n" + m.status
	}
	return fmt.Sprintf("%s\n\n%s", view, m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m *Model) renderRefresh() string {
	title := styles.title.Render("Refreshing song notes")

	var phase string
	switch m.progress.Phase {
	case tasks.ScanNotes:
		phase = "Scanning notes..."
	case tasks.FetchTracks:
		phase = fmt.Sprintf("Fetching tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.FetchGenres:
		phase = "Looking up genres..."
	case tasks.WriteNotes:
		phase = fmt.Sprintf("Writing notes (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", Err("Refresh failed: %v", m.err), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", Err("No result available"), helpView)
	}

	title := OK("✓ Refresh complete")
	info := fmt.Sprintf("\nUpdated: %d (%d changed)\nFailed: %d\nSkipped: %d",
		m.result.Updated, m.result.Written, m.result.Failed, m.result.Skipped)

	var failed string
	if m.result.Failed > 0 {
		failed = "\n\n" + Warn("Failed notes:")
		for path, err := range m.result.Errors {
			failed += fmt.Sprintf("\n  • %s: %v", path, err)
		}
	}
	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
