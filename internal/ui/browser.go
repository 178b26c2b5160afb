package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/plyr/internal/media"
)

// BrowserSelectedMsg reports a picked file or URL.
type BrowserSelectedMsg struct {
	Path string
}

// BrowserCancelledMsg reports that the picker was closed without a choice.
type BrowserCancelledMsg struct{}

type fileItem struct {
	name string
	ext  string
}

func (i fileItem) Title() string       { return i.name }
func (i fileItem) Description() string { return i.ext }
func (i fileItem) FilterValue() string { return i.name }

type dirItem struct {
	name string
}

func (i dirItem) Title() string       { return i.name + "/" }
func (i dirItem) Description() string { return "folder" }
func (i dirItem) FilterValue() string { return i.name }

type urlItem struct{}

func (i urlItem) Title() string       { return "Play from URL..." }
func (i urlItem) Description() string { return "enter a URL to stream" }
func (i urlItem) FilterValue() string { return "url" }

// BrowserModel is the open-file picker. It lists folders and the files the
// player can open, starting from a directory.
type BrowserModel struct {
	dir     string
	list    list.Model
	input   textinput.Model
	urlMode bool
	err     error
}

// NewBrowser creates a picker showing dir.
func NewBrowser(dir string) BrowserModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"}).
		BorderLeftForeground(accent)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}).
		BorderLeftForeground(accent)

	l := list.New(nil, delegate, 80, 20)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = headerStyle

	ti := textinput.New()
	ti.Placeholder = "https://..."
	ti.CharLimit = 2048
	ti.Width = 60

	m := BrowserModel{list: l, input: ti}
	m.open(dir)
	return m
}

// open replaces the listing with the contents of dir.
func (m *BrowserModel) open(dir string) {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		m.err = fmt.Errorf("cannot read directory: %w", err)
		return
	}
	m.err = nil
	m.dir = dir

	items := []list.Item{urlItem{}}
	if parent := filepath.Dir(dir); parent != dir {
		items = append(items, dirItem{name: ".."})
	}
	var files []list.Item
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			items = append(items, dirItem{name: name})
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !media.IsSupportedExt(ext) && !media.IsPlaylistExt(ext) {
			continue
		}
		files = append(files, fileItem{name: strings.TrimSuffix(name, filepath.Ext(name)), ext: filepath.Ext(name)})
	}
	m.list.SetItems(append(items, files...))
	m.list.ResetSelected()
	m.list.Title = dir
}

// Dir returns the directory being shown.
func (m BrowserModel) Dir() string {
	return m.dir
}

// Err returns the last directory read error, if any.
func (m BrowserModel) Err() error {
	return m.err
}

// SetSize fits the picker into w×h cells.
func (m *BrowserModel) SetSize(w, h int) {
	m.list.SetWidth(w)
	m.list.SetHeight(h)
}

func (m BrowserModel) Update(msg tea.Msg) (BrowserModel, tea.Cmd) {
	if m.urlMode {
		return m.updateURLInput(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch msg.String() {
		case "enter":
			switch item := m.list.SelectedItem().(type) {
			case urlItem:
				m.urlMode = true
				m.input.Focus()
				return m, textinput.Blink
			case dirItem:
				m.open(filepath.Join(m.dir, item.name))
				return m, nil
			case fileItem:
				path := filepath.Join(m.dir, item.name+item.ext)
				return m, func() tea.Msg { return BrowserSelectedMsg{Path: path} }
			}
		case "backspace":
			m.open(filepath.Dir(m.dir))
			return m, nil
		case "q", "esc", "ctrl+c":
			return m, func() tea.Msg { return BrowserCancelledMsg{} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m BrowserModel) updateURLInput(msg tea.Msg) (BrowserModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			url := strings.TrimSpace(m.input.Value())
			if url != "" {
				return m, func() tea.Msg { return BrowserSelectedMsg{Path: url} }
			}
		case "esc":
			m.urlMode = false
			m.input.Reset()
			m.input.Blur()
			return m, nil
		case "ctrl+c":
			return m, func() tea.Msg { return BrowserCancelledMsg{} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m BrowserModel) View() string {
	if m.urlMode {
		s := "\n"
		s += "  " + headerStyle.Render("plyr") + "\n"
		s += "\n"
		s += "  " + statusStyle.Render("Enter URL:") + "\n"
		s += "  " + m.input.View() + "\n"
		s += "\n"
		s += "  " + helpStyle.Render("enter confirm  esc back  ctrl+c close") + "\n"
		return s
	}
	view := m.list.View()
	if m.err != nil {
		view += "\n  " + helpStyle.Render(m.err.Error())
	}
	return view
}
