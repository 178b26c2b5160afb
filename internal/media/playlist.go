package media

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// PlaylistEntry is one item of a local .m3u/.m3u8/.pls file. Exactly one of
// Path and URL is set.
type PlaylistEntry struct {
	Path string
	URL  string
}

// Locator returns the path or URL of the entry.
func (e PlaylistEntry) Locator() string {
	if e.URL != "" {
		return e.URL
	}
	return e.Path
}

// ParseLocalPlaylist parses a local playlist file. Relative entries are
// resolved against the playlist file directory.
func ParseLocalPlaylist(path string) ([]PlaylistEntry, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsPlaylistExt(ext) {
		return nil, fmt.Errorf("unsupported playlist format %s", ext)
	}

	absPlaylistPath, err := filepath.Abs(path)
	if err != nil {
		absPlaylistPath = path
	}

	data, err := os.ReadFile(absPlaylistPath)
	if err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("playlist is not valid UTF-8")
	}
	text := strings.TrimPrefix(string(data), "\uFEFF")

	baseDir := filepath.Dir(absPlaylistPath)
	scanner := bufio.NewScanner(strings.NewReader(text))

	if ext == ".pls" {
		return parsePLS(scanner, baseDir), nil
	}
	return parseM3U(scanner, baseDir), nil
}

// FilterPlayable keeps remote entries and local entries that exist, are not
// directories and have an openable extension. It reports how many were dropped.
func FilterPlayable(entries []PlaylistEntry) ([]PlaylistEntry, int) {
	out := make([]PlaylistEntry, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		if e.URL != "" {
			out = append(out, e)
			continue
		}
		info, err := os.Stat(e.Path)
		if err != nil || info.IsDir() || !IsSupportedExt(filepath.Ext(e.Path)) {
			skipped++
			continue
		}
		out = append(out, e)
	}
	return out, skipped
}

func parseM3U(scanner *bufio.Scanner, baseDir string) []PlaylistEntry {
	entries := make([]PlaylistEntry, 0)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, newEntry(line, baseDir))
	}
	return entries
}

func parsePLS(scanner *bufio.Scanner, baseDir string) []PlaylistEntry {
	entries := make([]PlaylistEntry, 0)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if val == "" || !isPLSFileKey(key) {
			continue
		}
		entries = append(entries, newEntry(val, baseDir))
	}
	return entries
}

func isPLSFileKey(key string) bool {
	if len(key) <= len("File") || !strings.EqualFold(key[:len("File")], "File") {
		return false
	}
	for _, c := range key[len("File"):] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func newEntry(raw, baseDir string) PlaylistEntry {
	raw = strings.Trim(raw, `"`)
	if IsRemote(raw) {
		return PlaylistEntry{URL: raw}
	}
	p := filepath.Clean(raw)
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	return PlaylistEntry{Path: p}
}

// IsRemote returns true if the locator looks like an http(s) URL.
func IsRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}
