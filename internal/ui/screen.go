package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/plyr/internal/media"
	"github.com/olivier-w/plyr/internal/player"
	"github.com/olivier-w/plyr/internal/playlist"
)

const screenOpenTimeout = 10 * time.Second

// VideoScreen paints the frames of a video track.
type VideoScreen interface {
	Frame(pos time.Duration) (string, error)
	Resize(cols, rows int)
	Close() error
}

// ScreenOpener opens a VideoScreen of at most cols x rows cells.
type ScreenOpener func(ctx context.Context, input string, cols, rows int) (VideoScreen, error)

// Clock reports the playback position of the video back-end.
type Clock interface {
	Position() time.Duration
}

type screenOpenedMsg struct {
	id     string
	screen VideoScreen
	err    error
}

type screenFrameMsg struct {
	id    string
	frame string
	err   error
}

func openScreenCmd(open ScreenOpener, id, input string, cols, rows int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), screenOpenTimeout)
		defer cancel()
		s, err := open(ctx, input, cols, rows)
		return screenOpenedMsg{id: id, screen: s, err: err}
	}
}

func screenFrameCmd(s VideoScreen, id string, pos time.Duration) tea.Cmd {
	return func() tea.Msg {
		frame, err := s.Frame(pos)
		return screenFrameMsg{id: id, frame: frame, err: err}
	}
}

// screenTrack returns the current track when it should be drawn as video.
func (m Model) screenTrack() (playlist.Track, bool) {
	if m.openScreen == nil || m.clock == nil || m.visualizerRows() == 0 {
		return playlist.Track{}, false
	}
	t, ok := m.ctrl.State().CurrentTrack()
	if !ok || t.Kind != media.Video {
		return playlist.Track{}, false
	}
	return t, true
}

// syncScreen opens or drops the video screen as the current track changes.
func (m *Model) syncScreen() tea.Cmd {
	t, ok := m.screenTrack()
	if ok && t.ID == m.screenID {
		return nil
	}
	m.closeScreen()
	if !ok {
		return nil
	}
	m.screenID = t.ID
	input, _ := player.ResolveLocator(t.Locator)
	return openScreenCmd(m.openScreen, t.ID, input, m.paneWidth(), m.visualizerRows())
}

// dropScreen releases the screen but keeps its track so it is not reopened.
func (m *Model) dropScreen() {
	if m.screen != nil {
		_ = m.screen.Close()
	}
	m.screen = nil
	m.screenFrame = ""
	m.screenBusy = false
}

func (m *Model) closeScreen() {
	m.dropScreen()
	m.screenID = ""
}

func (m Model) handleScreenOpened(msg screenOpenedMsg) (Model, tea.Cmd) {
	if msg.id != m.screenID || m.screen != nil {
		if msg.screen != nil {
			_ = msg.screen.Close()
		}
		return m, nil
	}
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("Video preview unavailable")
		return m, nil
	}
	m.screen = msg.screen
	return m, nil
}

func (m Model) handleScreenFrame(msg screenFrameMsg) (Model, tea.Cmd) {
	if msg.id != m.screenID || m.screen == nil {
		return m, nil
	}
	m.screenBusy = false
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("Video decoding failed")
		m.dropScreen()
		return m, nil
	}
	m.screenFrame = msg.frame
	return m, nil
}

// nextScreenFrame asks for the frame at the video clock unless one is
// already being decoded.
func (m *Model) nextScreenFrame() tea.Cmd {
	if m.screen == nil || m.screenBusy {
		return nil
	}
	m.screenBusy = true
	return screenFrameCmd(m.screen, m.screenID, m.clock.Position())
}
