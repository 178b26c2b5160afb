package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/olivier-w/plyr/internal/host"
	"github.com/olivier-w/plyr/internal/player"
)

// Host receives the messages the player surface sends outward.
type Host interface {
	Send(m host.Message) error
}

// LocalHost plays the host role in-process for the terminal UI. It answers
// requestConfig, presents the file browser for openFile and mirrors status
// updates into the terminal title.
type LocalHost struct {
	mu   sync.Mutex
	cfg  player.Config
	send func(tea.Msg)
	log  zerolog.Logger
}

// NewLocalHost creates a host that replies with cfg.
func NewLocalHost(cfg player.Config, log zerolog.Logger) *LocalHost {
	return &LocalHost{cfg: cfg, log: log.With().Str("component", "host").Logger()}
}

// Attach sets the function used to post messages into the program,
// normally (*tea.Program).Send.
func (h *LocalHost) Attach(send func(tea.Msg)) {
	h.mu.Lock()
	h.send = send
	h.mu.Unlock()
}

// SetConfig replaces the configuration and pushes it to the UI.
func (h *LocalHost) SetConfig(cfg player.Config) {
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	h.post(HostMsg{Message: host.ConfigMessage(cfg)})
}

// Deliver posts a host→UI message.
func (h *LocalHost) Deliver(m host.Message) {
	h.post(HostMsg{Message: m})
}

func (h *LocalHost) Send(m host.Message) error {
	switch m.Type {
	case host.TypeRequestConfig:
		h.mu.Lock()
		cfg := h.cfg
		h.mu.Unlock()
		h.post(HostMsg{Message: host.ConfigMessage(cfg)})
	case host.TypeOpenFile:
		h.post(ShowBrowserMsg{})
	case host.TypeStatusUpdate:
		title := "plyr"
		if text := host.StatusText(m.Status()); text != "" {
			title = text + " · plyr"
		}
		h.post(WindowTitleMsg(title))
	default:
		h.log.Debug().Str("type", string(m.Type)).Msg("Ignoring message")
	}
	return nil
}

// post never blocks the caller: Send may be called from inside Update.
func (h *LocalHost) post(msg tea.Msg) {
	h.mu.Lock()
	send := h.send
	h.mu.Unlock()
	if send == nil {
		return
	}
	go send(msg)
}
