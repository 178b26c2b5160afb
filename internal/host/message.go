package host

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/olivier-w/plyr/internal/media"
	"github.com/olivier-w/plyr/internal/player"
)

// Type names a message in either direction.
type Type string

// Host to player.
const (
	TypeAddFiles     Type = "addFiles"
	TypeTogglePlay   Type = "togglePlay"
	TypeNext         Type = "next"
	TypePrev         Type = "prev"
	TypeConfig       Type = "config"
	TypeOpenSettings Type = "openSettings"
)

// Player to host.
const (
	TypeStatusUpdate  Type = "statusUpdate"
	TypeRequestConfig Type = "requestConfig"
	TypeOpenFile      Type = "openFile"
)

// FileEntry is a file reference delivered with addFiles.
type FileEntry struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Artwork string `json:"artwork,omitempty"`
	Title   string `json:"title,omitempty"`
	Artist  string `json:"artist,omitempty"`
}

// Message is the flat {type, ...payload} envelope.
type Message struct {
	Type Type `json:"type"`

	Files []FileEntry `json:"files,omitempty"`

	DefaultVolume *float64 `json:"defaultVolume,omitempty"`
	DefaultSpeed  *float64 `json:"defaultSpeed,omitempty"`
	Autoplay      *bool    `json:"autoplay,omitempty"`

	Playing   *bool  `json:"playing,omitempty"`
	TrackName string `json:"trackName,omitempty"`
}

// Decode parses one encoded message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("decoding message: missing type")
	}
	return m, nil
}

// Encode serialises m.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// AddFiles builds an addFiles message.
func AddFiles(files []FileEntry) Message {
	return Message{Type: TypeAddFiles, Files: files}
}

// StatusUpdate builds the now-playing broadcast.
func StatusUpdate(s player.Status) Message {
	return Message{Type: TypeStatusUpdate, Playing: lo.ToPtr(s.Playing), TrackName: s.TrackName}
}

// ConfigMessage builds the reply to requestConfig.
func ConfigMessage(cfg player.Config) Message {
	return Message{
		Type:          TypeConfig,
		DefaultVolume: lo.ToPtr(cfg.DefaultVolume),
		DefaultSpeed:  lo.ToPtr(cfg.DefaultSpeed),
		Autoplay:      lo.ToPtr(cfg.Autoplay),
	}
}

// DefaultConfig holds the values used for options the host leaves out.
var DefaultConfig = player.Config{DefaultVolume: 80, DefaultSpeed: 1}

// Config extracts the configuration carried by a config message, filling
// absent options from DefaultConfig.
func (m Message) Config() player.Config {
	return player.Config{
		DefaultVolume: lo.FromPtrOr(m.DefaultVolume, DefaultConfig.DefaultVolume),
		DefaultSpeed:  lo.FromPtrOr(m.DefaultSpeed, DefaultConfig.DefaultSpeed),
		Autoplay:      lo.FromPtrOr(m.Autoplay, DefaultConfig.Autoplay),
	}
}

// Status extracts the broadcast carried by a statusUpdate message.
func (m Message) Status() player.Status {
	return player.Status{Playing: lo.FromPtr(m.Playing), TrackName: m.TrackName}
}

// FileRefs converts the entries of an addFiles message for the controller.
func (m Message) FileRefs() []player.FileRef {
	return lo.Map(m.Files, func(f FileEntry, _ int) player.FileRef {
		return player.FileRef{
			Locator: f.URL,
			Name:    f.Name,
			Meta:    media.Metadata{Title: f.Title, Artist: f.Artist, Artwork: f.Artwork},
		}
	})
}
