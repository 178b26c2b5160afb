package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/plyr/internal/host"
	"github.com/olivier-w/plyr/internal/player"
	"github.com/olivier-w/plyr/internal/store"
)

// HostMsg delivers a host message into the program.
type HostMsg struct {
	Message host.Message
}

// ShowBrowserMsg opens the file browser. The local host sends it in reply
// to openFile.
type ShowBrowserMsg struct{}

// WindowTitleMsg sets the terminal title.
type WindowTitleMsg string

type eventMsg player.Event
type eventsClosedMsg struct{}
type frameMsg time.Time
type settingsSavedMsg struct {
	settings store.Settings
	err      error
}
type hostErrMsg struct{ err error }

// waitForEvent blocks on the next back-end event so the controller only ever
// sees events on the program loop.
func waitForEvent(ch <-chan player.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func frameCmd(fps int) tea.Cmd {
	return tea.Tick(time.Second/time.Duration(max(fps, 1)), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}
