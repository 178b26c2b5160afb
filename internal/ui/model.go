package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/olivier-w/plyr/internal/host"
	"github.com/olivier-w/plyr/internal/media"
	"github.com/olivier-w/plyr/internal/player"
	"github.com/olivier-w/plyr/internal/store"
	"github.com/olivier-w/plyr/internal/util"
	"github.com/olivier-w/plyr/internal/visualizer"
)

const (
	seekStep    = 10 * time.Second
	volumeStep  = 0.05
	noticeTTL   = 5 * time.Second
	saveTimeout = 5 * time.Second
)

// SettingsSaver persists presentation settings.
type SettingsSaver interface {
	SaveSettings(ctx context.Context, s store.Settings) error
}

// Options wires a Model to the rest of the player.
type Options struct {
	Controller *player.Controller
	Events     <-chan player.Event
	Host       Host
	Visualizer *visualizer.Engine
	FPS        int
	Settings   store.Settings
	Saver      SettingsSaver
	Logger     zerolog.Logger

	// Files are added once the program starts. Remote expands URLs picked
	// in the browser.
	Files  []host.FileEntry
	Dir    string
	Remote host.Expander

	// Video draws video tracks in the visualizer pane, following VideoClock.
	Video      ScreenOpener
	VideoClock Clock
}

// Model is the Bubbletea model for the plyr TUI.
type Model struct {
	ctrl     *player.Controller
	events   <-chan player.Event
	host     Host
	viz      *visualizer.Engine
	fps      int
	settings store.Settings
	saver    SettingsSaver
	initial  []host.FileEntry
	remote   host.Expander
	log      zerolog.Logger

	openScreen  ScreenOpener
	clock       Clock
	screen      VideoScreen
	screenID    string
	screenFrame string
	screenBusy  bool

	spinner spinner.Model
	help    help.Model

	browser    *BrowserModel
	browseDir  string
	panel      *settingsPanel
	cursor     int
	width      int
	height     int
	notice     string
	noticeTime time.Time
	quitting   bool
}

type filesResolvedMsg struct {
	entries []host.FileEntry
	skipped int
}

// New creates a Model.
func New(opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	m := Model{
		ctrl:       opts.Controller,
		events:     opts.Events,
		host:       opts.Host,
		viz:        opts.Visualizer,
		fps:        opts.FPS,
		settings:   opts.Settings,
		saver:      opts.Saver,
		initial:    opts.Files,
		remote:     opts.Remote,
		browseDir:  opts.Dir,
		openScreen: opts.Video,
		clock:      opts.VideoClock,
		log:        opts.Logger.With().Str("component", "ui").Logger(),
		spinner:    s,
		help:       help.New(),
	}
	if m.fps <= 0 {
		m.fps = visualizer.DefaultFPS
	}
	if m.browseDir == "" {
		m.browseDir = "."
	}
	if m.viz != nil {
		m.viz.SetBars(m.settings.Bars)
		m.viz.SetPeakHold(m.settings.PeakHold)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.SetWindowTitle("plyr"),
		waitForEvent(m.events),
		frameCmd(m.fps),
		m.spinner.Tick,
		m.sendHost(host.Message{Type: host.TypeRequestConfig}),
	}
	if len(m.initial) > 0 {
		entries := m.initial
		cmds = append(cmds, func() tea.Msg { return HostMsg{Message: host.AddFiles(entries)} })
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.handleMsg(msg)
}

func (m Model) handleMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		m.ctrl.HandleEvent(player.Event(msg))
		cmd := m.sync()
		return m, tea.Batch(waitForEvent(m.events), cmd)

	case eventsClosedMsg:
		return m, nil

	case HostMsg:
		if msg.Message.Type == host.TypeOpenSettings {
			m.panel = &settingsPanel{settings: m.settings}
			return m, nil
		}
		if !host.Dispatch(m.ctrl, msg.Message) {
			m.log.Debug().Str("type", string(msg.Message.Type)).Msg("Unhandled host message")
		}
		m.clampCursor()
		cmd := m.sync()
		return m, cmd

	case ShowBrowserMsg:
		b := NewBrowser(m.browseDir)
		b.SetSize(m.width, m.height)
		m.browser = &b
		return m, nil

	case BrowserSelectedMsg:
		if m.browser != nil {
			m.browseDir = m.browser.Dir()
		}
		m.browser = nil
		return m, resolveFiles(msg.Path, m.remote)

	case BrowserCancelledMsg:
		m.browser = nil
		return m, nil

	case filesResolvedMsg:
		if msg.skipped > 0 {
			m.setNotice(fmt.Sprintf("Skipped %d unsupported entries", msg.skipped))
		}
		if len(msg.entries) == 0 {
			if msg.skipped == 0 {
				m.setNotice("Nothing to play")
			}
			return m, nil
		}
		return m.handleMsg(HostMsg{Message: host.AddFiles(msg.entries)})

	case WindowTitleMsg:
		return m, tea.SetWindowTitle(string(msg))

	case settingsSavedMsg:
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("Failed to save settings")
			m.setNotice("Could not save settings")
		}
		return m, nil

	case hostErrMsg:
		m.log.Error().Err(msg.err).Msg("Host send failed")
		return m, nil

	case frameMsg:
		if m.viz != nil && m.settings.Visualizer {
			m.viz.Frame(time.Time(msg))
		}
		if m.notice != "" && time.Since(m.noticeTime) > noticeTTL {
			m.notice = ""
		}
		cmd := m.nextScreenFrame()
		return m, tea.Batch(frameCmd(m.fps), cmd)

	case screenOpenedMsg:
		return m.handleScreenOpened(msg)

	case screenFrameMsg:
		return m.handleScreenFrame(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width - 4
		m.resizeVisualizer()
		if m.browser != nil {
			m.browser.SetSize(msg.Width, msg.Height)
		}
		cmd := m.sync()
		return m, cmd
	}

	if m.browser != nil {
		b, cmd := m.browser.Update(msg)
		m.browser = &b
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.browser != nil {
		b, cmd := m.browser.Update(msg)
		m.browser = &b
		return m, cmd
	}
	if m.panel != nil {
		return m.handleSettingsKey(msg)
	}

	st := m.ctrl.State()
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		m.closeScreen()
		m.ctrl.Close()
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	case key.Matches(msg, keys.TogglePlay):
		m.ctrl.TogglePlay()
	case key.Matches(msg, keys.SeekBack):
		m.ctrl.SeekBy(-seekStep)
	case key.Matches(msg, keys.SeekFwd):
		m.ctrl.SeekBy(seekStep)
	case key.Matches(msg, keys.VolumeUp):
		m.ctrl.SetVolume(st.Volume + volumeStep)
	case key.Matches(msg, keys.VolumeDown):
		m.ctrl.SetVolume(st.Volume - volumeStep)
	case key.Matches(msg, keys.Mute):
		m.ctrl.ToggleMute()
	case key.Matches(msg, keys.Next):
		m.ctrl.Next()
	case key.Matches(msg, keys.Prev):
		m.ctrl.Prev()
	case key.Matches(msg, keys.Shuffle):
		m.ctrl.ToggleShuffle()
	case key.Matches(msg, keys.Repeat):
		m.ctrl.CycleRepeat()
	case key.Matches(msg, keys.Slower):
		m.ctrl.SetSpeed(player.PrevSpeed(st.Speed))
	case key.Matches(msg, keys.Faster):
		m.ctrl.SetSpeed(player.NextSpeed(st.Speed))
	case key.Matches(msg, keys.Up):
		m.cursor--
	case key.Matches(msg, keys.Down):
		m.cursor++
	case key.Matches(msg, keys.MoveUp):
		if m.cursor > 0 && m.cursor < len(st.Playlist) {
			m.ctrl.ReorderPlaylist(m.cursor, m.cursor-1)
			m.cursor--
		}
	case key.Matches(msg, keys.MoveDown):
		if m.cursor+1 < len(st.Playlist) {
			m.ctrl.ReorderPlaylist(m.cursor, m.cursor+1)
			m.cursor++
		}
	case key.Matches(msg, keys.PlayRow):
		m.ctrl.GoToIndex(m.cursor)
	case key.Matches(msg, keys.Remove):
		if m.cursor >= 0 && m.cursor < len(st.Playlist) {
			m.ctrl.RemoveTrack(st.Playlist[m.cursor].ID)
		}
	case key.Matches(msg, keys.Open):
		return m, m.sendHost(host.Message{Type: host.TypeOpenFile})
	case key.Matches(msg, keys.Settings):
		m.panel = &settingsPanel{settings: m.settings}
		return m, nil
	case msg.String() == "?":
		m.help.ShowAll = !m.help.ShowAll
	default:
		return m, nil
	}
	m.clampCursor()
	cmd := m.sync()
	return m, cmd
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	p, changed, closed := m.panel.update(msg)
	if closed {
		m.panel = nil
		return m, nil
	}
	m.panel = &p
	if !changed {
		return m, nil
	}
	cmd := m.applySettings(p.settings)
	return m, tea.Batch(cmd, m.saveSettings(p.settings))
}

func (m *Model) applySettings(s store.Settings) tea.Cmd {
	m.settings = s
	if m.viz != nil {
		if m.viz.Bars() != s.Bars {
			m.viz.SetBars(s.Bars)
		}
		if m.viz.PeakHold() != s.PeakHold {
			m.viz.SetPeakHold(s.PeakHold)
		}
	}
	m.resizeVisualizer()
	return m.sync()
}

func (m Model) saveSettings(s store.Settings) tea.Cmd {
	if m.saver == nil {
		return nil
	}
	saver := m.saver
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		return settingsSavedMsg{settings: s, err: saver.SaveSettings(ctx, s)}
	}
}

func (m Model) sendHost(msg host.Message) tea.Cmd {
	if m.host == nil {
		return nil
	}
	h := m.host
	return func() tea.Msg {
		if err := h.Send(msg); err != nil {
			return hostErrMsg{err: err}
		}
		return nil
	}
}

func resolveFiles(path string, exp host.Expander) tea.Cmd {
	return func() tea.Msg {
		entries, skipped := host.FileEntries(context.Background(), []string{path}, exp)
		return filesResolvedMsg{entries: entries, skipped: skipped}
	}
}

func (m *Model) setNotice(s string) {
	m.notice = s
	m.noticeTime = time.Now()
}

func (m *Model) clampCursor() {
	n := len(m.ctrl.State().Playlist)
	m.cursor = min(max(m.cursor, 0), max(n-1, 0))
}

// sync brings the visualizer and the video screen in line with the
// current track.
func (m *Model) sync() tea.Cmd {
	m.syncVisualizer()
	return m.syncScreen()
}

// syncVisualizer animates the bars only while audio is actually playing.
func (m *Model) syncVisualizer() {
	if m.viz == nil {
		return
	}
	st := m.ctrl.State()
	t, ok := st.CurrentTrack()
	m.viz.SetAnimating(m.settings.Visualizer && st.Playing && ok && t.Kind == media.Audio)
}

func (m Model) visualizerRows() int {
	if !m.settings.Visualizer || m.height < 16 {
		return 0
	}
	if m.height >= 30 {
		return 8
	}
	return 4
}

func (m Model) paneWidth() int {
	return max(m.width-4, 0)
}

func (m *Model) resizeVisualizer() {
	if m.screen != nil {
		m.screen.Resize(m.paneWidth(), m.visualizerRows())
		m.screenFrame = ""
	}
	if m.viz == nil {
		return
	}
	m.viz.Resize(m.paneWidth(), m.visualizerRows())
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.browser != nil {
		return m.browser.View()
	}

	w := m.width
	if w < 30 {
		w = 50
	}
	st := m.ctrl.State()

	var b strings.Builder
	b.WriteString("\n")
	header := headerStyle.Render("plyr")
	if st.Loading {
		header += " " + m.spinner.View()
	}
	b.WriteString("  " + header + "\n\n")

	if t, ok := st.CurrentTrack(); ok {
		b.WriteString("  " + titleStyle.Render(t.Title()) + "\n")
		if t.Meta.Artist != "" {
			b.WriteString("  " + artistStyle.Render(t.Meta.Artist) + "\n")
		}
	} else {
		b.WriteString("  " + artistStyle.Render("No track loaded. Press o to open a file.") + "\n")
	}
	b.WriteString("\n")

	elapsed := time.Duration(st.Position * float64(time.Second))
	total := time.Duration(st.Duration * float64(time.Second))
	elapsedStr := util.FormatDuration(elapsed)
	totalStr := util.FormatDuration(total)
	barWidth := w - len(elapsedStr) - len(totalStr) - 6
	b.WriteString(fmt.Sprintf("  %s %s %s\n\n",
		timeStyle.Render(elapsedStr),
		renderProgressBar(st.Position, st.Duration, barWidth),
		timeStyle.Render(totalStr)))

	b.WriteString("  " + m.statusLine(st, w) + "\n")
	if m.notice != "" {
		b.WriteString("  " + helpStyle.Render(m.notice) + "\n")
	}
	b.WriteString("\n")

	if pane := m.paneView(); pane != "" {
		for _, line := range strings.Split(pane, "\n") {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}

	if m.panel != nil {
		for _, line := range strings.Split(m.panel.View(), "\n") {
			b.WriteString("  " + line + "\n")
		}
	} else {
		b.WriteString(m.playlistView(st, w))
	}

	b.WriteString("\n  " + m.help.View(keys) + "\n")
	return b.String()
}

// paneView is the video picture for video tracks and the spectrum otherwise.
func (m Model) paneView() string {
	if m.visualizerRows() == 0 {
		return ""
	}
	if m.screen != nil {
		if m.screenFrame == "" {
			return strings.Repeat("\n", m.visualizerRows()-1)
		}
		return m.screenFrame
	}
	if m.viz == nil {
		return ""
	}
	return m.viz.View()
}

func (m Model) statusLine(st player.State, w int) string {
	icon, text := host.PlayingIcon, "playing"
	if !st.Playing {
		icon, text = host.PausedIcon, "paused"
	}
	left := icon + "  " + text
	if icons := transportIcons(st); icons != "" {
		left += "  " + icons
	}
	right := renderVolume(st.Volume, st.Muted)
	gap := max(w-lipgloss.Width(left)-lipgloss.Width(right)-4, 2)
	return statusStyle.Render(left) + strings.Repeat(" ", gap) + statusStyle.Render(right)
}

// playlistView renders a window of rows around the cursor.
func (m Model) playlistView(st player.State, w int) string {
	if len(st.Playlist) == 0 {
		return ""
	}
	rows := len(st.Playlist)
	if m.height > 0 {
		used := 14 + m.visualizerRows()
		rows = min(rows, max(m.height-used, 3))
	}
	start := min(max(m.cursor-rows/2, 0), max(len(st.Playlist)-rows, 0))

	var b strings.Builder
	for i := start; i < start+rows && i < len(st.Playlist); i++ {
		t := st.Playlist[i]
		marker := "  "
		if i == st.CurrentIndex {
			marker = "♪ "
		}
		line := fmt.Sprintf("%s%d. %s", marker, i+1, host.TruncateTrackName(t.Title(), max(w-12, 10)))
		if t.Kind == media.Video {
			line += " [video]"
		}
		switch {
		case i == m.cursor:
			line = selectedStyle.Render(line)
		case i == st.CurrentIndex:
			line = currentStyle.Render(line)
		default:
			line = trackStyle.Render(line)
		}
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}
