package media

import (
	"path"
	"strings"
)

// Kind is the media back-end a track plays on.
type Kind string

const (
	Audio Kind = "audio"
	Video Kind = "video"
)

var videoExts = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
	".mov":  true,
	".m4v":  true,
}

// openableExts is the allow-list offered by the open-file picker.
var openableExts = []string{
	".mp3", ".mp4", ".wav", ".ogg", ".flac",
	".aac", ".m4a", ".webm", ".mkv", ".avi", ".mov",
}

var playlistExts = map[string]bool{
	".m3u":  true,
	".m3u8": true,
	".pls":  true,
}

// Ext returns the lowercased extension of a file name or URL, ignoring any
// query string or fragment.
func Ext(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 && strings.Contains(name, "://") {
		name = name[:i]
	}
	return strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
}

// KindOf infers the track kind from a file name. Anything that is not a known
// video extension plays on the audio back-end.
func KindOf(name string) Kind {
	if videoExts[Ext(name)] {
		return Video
	}
	return Audio
}

// IsSupportedExt returns true if the extension is offered by the open-file picker.
func IsSupportedExt(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range openableExts {
		if e == ext {
			return true
		}
	}
	return false
}

// OpenableExts returns the picker allow-list without leading dots.
func OpenableExts() []string {
	out := make([]string, len(openableExts))
	for i, e := range openableExts {
		out[i] = strings.TrimPrefix(e, ".")
	}
	return out
}

// IsPlaylistExt returns true if the extension is a supported playlist format.
func IsPlaylistExt(ext string) bool {
	return playlistExts[strings.ToLower(ext)]
}

// SupportedExtsList returns a human-readable list of openable media formats.
func SupportedExtsList() string {
	return strings.Join(openableExts, ", ")
}

// DisplayName strips directories and the final extension from a file name.
func DisplayName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i]
	}
	return base
}
