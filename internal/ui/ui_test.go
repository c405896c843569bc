package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musicvault/internal/models"
	"github.com/desertthunder/musicvault/internal/tasks"
)

type fakeRefresher struct {
	refreshed []string
	updates   []tasks.ProgressUpdate
	result    *tasks.RefreshResult
	err       error
}

func (f *fakeRefresher) RefreshAll(ctx context.Context, folder string, progress chan<- tasks.ProgressUpdate) (*tasks.RefreshResult, error) {
	for _, u := range f.updates {
		progress <- u
	}
	return f.result, f.err
}

func (f *fakeRefresher) RefreshDocument(ctx context.Context, path string) (tasks.DocumentHandle, error) {
	f.refreshed = append(f.refreshed, path)
	if f.err != nil {
		return tasks.DocumentHandle{}, f.err
	}
	return tasks.DocumentHandle{Path: path, Updated: true}, nil
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testNotes() []Note {
	return []Note{
		{Path: "Songs/Song A.md", Song: models.Song{TrackID: "a", Name: "Song A", Artists: []models.Artist{{ID: "1", Name: "Artist A"}}}},
		{Path: "Songs/Song B.md", Song: models.Song{TrackID: "b", Name: "Song B"}},
	}
}

// loaded returns a model whose note list has been populated.
func loaded(t *testing.T, r *fakeRefresher, opened *[]string) *Model {
	t.Helper()
	m := NewModel(context.Background(), ModelOpts{
		Folder:    "Songs",
		Refresher: r,
		Load:      func(context.Context) ([]Note, error) { return testNotes(), nil },
		Open: func(path string) error {
			*opened = append(*opened, path)
			return nil
		},
	})
	msg := m.Init()()
	m.Update(msg)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	return m
}

func TestModel(t *testing.T) {
	t.Run("Init loads notes into the list", func(t *testing.T) {
		var opened []string
		m := loaded(t, &fakeRefresher{}, &opened)

		if got := len(m.notes.Items()); got != 2 {
			t.Fatalf("expected 2 items, got %d", got)
		}
		if !strings.Contains(m.View(), "Song A") {
			t.Errorf("expected list view to contain Song A, got %q", m.View())
		}
	})

	t.Run("load error is rendered", func(t *testing.T) {
		m := NewModel(context.Background(), ModelOpts{
			Folder: "Songs",
			Load:   func(context.Context) ([]Note, error) { return nil, errors.New("vault missing") },
		})
		m.Update(m.Init()())
		if !strings.Contains(m.View(), "vault missing") {
			t.Errorf("expected error in view, got %q", m.View())
		}
	})

	t.Run("enter opens the selected note", func(t *testing.T) {
		var opened []string
		m := loaded(t, &fakeRefresher{}, &opened)

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if cmd == nil {
			t.Fatal("expected open command")
		}
		m.Update(cmd())

		if len(opened) != 1 || opened[0] != "Songs/Song A.md" {
			t.Errorf("expected Song A to be opened, got %v", opened)
		}
		if !strings.Contains(m.status, "opened") {
			t.Errorf("expected status to mention opened, got %q", m.status)
		}
	})

	t.Run("r refreshes the selected note", func(t *testing.T) {
		var opened []string
		r := &fakeRefresher{}
		m := loaded(t, r, &opened)

		_, cmd := m.Update(keyRunes("r"))
		if cmd == nil {
			t.Fatal("expected refresh command")
		}
		m.Update(cmd())

		if len(r.refreshed) != 1 || r.refreshed[0] != "Songs/Song A.md" {
			t.Errorf("expected Song A to be refreshed, got %v", r.refreshed)
		}
		if !strings.Contains(m.status, "updated") {
			t.Errorf("expected updated status, got %q", m.status)
		}
	})

	t.Run("r reports refresh errors in the status line", func(t *testing.T) {
		var opened []string
		r := &fakeRefresher{err: errors.New("rate limited")}
		m := loaded(t, r, &opened)

		_, cmd := m.Update(keyRunes("r"))
		m.Update(cmd())

		if !strings.Contains(m.status, "rate limited") {
			t.Errorf("expected error status, got %q", m.status)
		}
		if m.ViewState() != ListView {
			t.Errorf("expected to stay in list view, got %v", m.ViewState())
		}
	})

	t.Run("R streams progress then shows the result", func(t *testing.T) {
		var opened []string
		r := &fakeRefresher{
			updates: []tasks.ProgressUpdate{
				{Phase: tasks.ScanNotes, Step: 2, Total: 2, Message: "Found 2 notes"},
				{Phase: tasks.WriteNotes, Step: 1, Total: 2, Message: "[1/2] ✓ Songs/Song A.md"},
			},
			result: &tasks.RefreshResult{
				Updated: 1,
				Written: 1,
				Failed:  1,
				Errors:  map[string]error{"Songs/Song B.md": errors.New("remote fetch failed")},
			},
		}
		m := loaded(t, r, &opened)

		_, cmd := m.Update(keyRunes("R"))
		if m.ViewState() != RefreshView {
			t.Fatalf("expected refresh view, got %v", m.ViewState())
		}

		var phases []tasks.Phase
		for i := 0; cmd != nil && i < 10; i++ {
			msg := cmd()
			if u, ok := msg.(progressUpdateMsg); ok {
				phases = append(phases, u.Phase)
			}
			_, cmd = m.Update(msg)
		}

		if len(phases) != 2 || phases[0] != tasks.ScanNotes || phases[1] != tasks.WriteNotes {
			t.Errorf("unexpected phases: %v", phases)
		}
		if m.ViewState() != ResultView {
			t.Fatalf("expected result view, got %v", m.ViewState())
		}

		view := m.View()
		for _, want := range []string{"Refresh complete", "Updated: 1", "Failed: 1", "Songs/Song B.md"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected result view to contain %q, got %q", want, view)
			}
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.ViewState() != ListView {
			t.Errorf("expected esc to return to list view, got %v", m.ViewState())
		}
	})

	t.Run("R failure is shown in the result view", func(t *testing.T) {
		var opened []string
		m := loaded(t, &fakeRefresher{err: errors.New("not authenticated")}, &opened)

		_, cmd := m.Update(keyRunes("R"))
		for i := 0; cmd != nil && i < 10; i++ {
			_, cmd = m.Update(cmd())
		}

		if m.ViewState() != ResultView {
			t.Fatalf("expected result view, got %v", m.ViewState())
		}
		if !strings.Contains(m.View(), "not authenticated") {
			t.Errorf("expected failure in view, got %q", m.View())
		}
	})

	t.Run("q quits", func(t *testing.T) {
		var opened []string
		m := loaded(t, &fakeRefresher{}, &opened)

		_, cmd := m.Update(keyRunes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("expected tea.QuitMsg")
		}
	})
}
