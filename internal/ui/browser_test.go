package ui

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func tempDir(t *testing.T, files map[string]string, dirs ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func itemNames(m BrowserModel) []string {
	var names []string
	for _, item := range m.list.Items() {
		switch it := item.(type) {
		case fileItem:
			names = append(names, it.name+it.ext)
		case dirItem:
			names = append(names, it.name+"/")
		}
	}
	return names
}

func selectIndex(t *testing.T, m BrowserModel, name string) BrowserModel {
	t.Helper()
	for i, item := range m.list.Items() {
		switch it := item.(type) {
		case fileItem:
			if it.name+it.ext == name {
				m.list.Select(i)
				return m
			}
		case dirItem:
			if it.name+"/" == name {
				m.list.Select(i)
				return m
			}
		}
	}
	t.Fatalf("item %s not listed in %v", name, itemNames(m))
	return m
}

func TestBrowserListsOpenableFilesAndFolders(t *testing.T) {
	dir := tempDir(t, map[string]string{
		"song.mp3":    "data",
		"clip.mkv":    "data",
		"list.m3u":    "data",
		"notes.txt":   "data",
		".hidden.mp3": "data",
		"track.M4A":   "data",
	}, "albums")

	m := NewBrowser(dir)
	got := map[string]bool{}
	for _, n := range itemNames(m) {
		got[n] = true
	}
	for _, want := range []string{"albums/", "../", "song.mp3", "clip.mkv", "list.m3u", "track.M4A"} {
		if !got[want] {
			t.Fatalf("expected %s in %v", want, itemNames(m))
		}
	}
	for _, unwanted := range []string{"notes.txt", ".hidden.mp3"} {
		if got[unwanted] {
			t.Fatalf("did not expect %s in listing", unwanted)
		}
	}
}

func TestBrowserFileSelectionReturnsMessage(t *testing.T) {
	dir := tempDir(t, map[string]string{"song.mp3": "data"})
	m := selectIndex(t, NewBrowser(dir), "song.mp3")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected selection command")
	}
	selected, ok := cmd().(BrowserSelectedMsg)
	if !ok {
		t.Fatalf("expected BrowserSelectedMsg, got %T", cmd())
	}
	if selected.Path != filepath.Join(dir, "song.mp3") {
		t.Fatalf("unexpected path %q", selected.Path)
	}
}

func TestBrowserEntersFolders(t *testing.T) {
	dir := tempDir(t, map[string]string{"albums/inner.flac": "data"}, "albums")
	m := selectIndex(t, NewBrowser(dir), "albums/")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("expected no command when entering a folder")
	}
	if m.Dir() != filepath.Join(dir, "albums") {
		t.Fatalf("expected to be inside albums, got %q", m.Dir())
	}
	m = selectIndex(t, m, "inner.flac")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	if m.Dir() != dir {
		t.Fatalf("expected backspace to return to %q, got %q", dir, m.Dir())
	}
}

func TestBrowserURLSelectionReturnsMessage(t *testing.T) {
	m := NewBrowser(t.TempDir())
	m.urlMode = true
	m.input.SetValue("  https://example.com/live.mp3 ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected URL selection command")
	}
	selected, ok := cmd().(BrowserSelectedMsg)
	if !ok || selected.Path != "https://example.com/live.mp3" {
		t.Fatalf("unexpected message %#v", cmd())
	}
}

func TestBrowserCancelReturnsMessage(t *testing.T) {
	m := NewBrowser(t.TempDir())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected cancel command")
	}
	if _, ok := cmd().(BrowserCancelledMsg); !ok {
		t.Fatalf("expected BrowserCancelledMsg, got %T", cmd())
	}
}

func TestBrowserReportsUnreadableDirectory(t *testing.T) {
	m := NewBrowser(filepath.Join(t.TempDir(), "missing"))
	if m.Err() == nil {
		t.Fatal("expected read error")
	}
}
