package host

import (
	"context"
	"net/url"
	"path"
	"path/filepath"

	"github.com/olivier-w/plyr/internal/media"
	"github.com/olivier-w/plyr/internal/remote"
)

// Expander turns a remote URL into the streams it stands for.
type Expander interface {
	Expand(ctx context.Context, raw string) ([]remote.Entry, error)
}

// FileEntries builds addFiles entries for local paths and http(s) URLs,
// reading tag metadata where the format carries it. Local playlist files are
// expanded in place, and so are remote ones when exp is set. Local paths
// outside the openable allow-list are skipped and counted.
func FileEntries(ctx context.Context, paths []string, exp Expander) ([]FileEntry, int) {
	var out []FileEntry
	skipped := 0
	for _, p := range paths {
		ext := media.Ext(p)
		switch {
		case media.IsRemote(p):
			out = append(out, remoteEntries(ctx, p, exp)...)
		case media.IsPlaylistExt(ext):
			entries, err := media.ParseLocalPlaylist(p)
			if err != nil {
				skipped++
				continue
			}
			playable, dropped := media.FilterPlayable(entries)
			skipped += dropped
			for _, e := range playable {
				if e.URL != "" {
					out = append(out, remoteEntry(e.URL))
					continue
				}
				out = append(out, localEntry(e.Path))
			}
		case media.IsSupportedExt(ext):
			out = append(out, localEntry(p))
		default:
			skipped++
		}
	}
	return out, skipped
}

func localEntry(p string) FileEntry {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	meta := media.ReadMetadata(p)
	return FileEntry{
		URL:     FileURL(p),
		Name:    filepath.Base(p),
		Title:   meta.Title,
		Artist:  meta.Artist,
		Artwork: meta.Artwork,
	}
}

// remoteEntries falls back to raw itself when it cannot be expanded.
func remoteEntries(ctx context.Context, raw string, exp Expander) []FileEntry {
	if exp == nil {
		return []FileEntry{remoteEntry(raw)}
	}
	streams, err := exp.Expand(ctx, raw)
	if err != nil || len(streams) == 0 {
		return []FileEntry{remoteEntry(raw)}
	}
	out := make([]FileEntry, len(streams))
	for i, s := range streams {
		out[i] = remoteEntry(s.URL)
		out[i].Title = s.Title
	}
	return out
}

func remoteEntry(raw string) FileEntry {
	name := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" && u.Path != "/" {
		name = path.Base(u.Path)
	}
	return FileEntry{URL: raw, Name: name}
}

// FileURL returns the file:// URL of an absolute path.
func FileURL(p string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String()
}
