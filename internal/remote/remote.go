// Package remote looks at http(s) arguments before they become playlist
// entries. Playlist wrappers served over HTTP (.m3u, .pls and friends) are
// expanded into the streams they list; everything else plays as given.
package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	probeTimeout   = 4 * time.Second
	probeBodyLimit = 128 * 1024
)

// ErrUnsupportedScheme is returned for URLs that are not http(s).
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Entry is one playable stream. Title is empty when the source names none.
type Entry struct {
	URL   string
	Title string
}

// Resolver expands remote playlist URLs.
type Resolver struct {
	client    *http.Client
	userAgent string
}

// NewResolver returns a Resolver using client, or a client with a short
// timeout when client is nil.
func NewResolver(client *http.Client, userAgent string) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: probeTimeout}
	}
	return &Resolver{client: client, userAgent: userAgent}
}

// Expand fetches the head of raw and returns the streams it stands for: the
// entries of a playlist wrapper, or raw itself. HLS manifests are streams.
func (r *Resolver) Expand(ctx context.Context, raw string) ([]Entry, error) {
	u, err := validate(raw)
	if err != nil {
		return nil, err
	}
	single := []Entry{{URL: u}}

	p, err := r.probe(ctx, u)
	if err != nil {
		return single, err
	}
	if !p.isPlaylist() {
		return single, nil
	}
	entries := parseBody(p.body, p.finalURL)
	if len(entries) == 0 {
		return single, nil
	}
	return entries, nil
}

func validate(raw string) (string, error) {
	s := strings.Trim(strings.TrimSpace(raw), `"'`)
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return u.String(), nil
}

type probeResult struct {
	url         string
	finalURL    string
	contentType string
	body        string
}

func (r *Resolver) probe(ctx context.Context, u string) (probeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return probeResult{}, err
	}
	req.Header.Set("Range", "bytes=0-65535")
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return probeResult{}, fmt.Errorf("probing %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return probeResult{}, fmt.Errorf("probing %s: %s", u, resp.Status)
	}

	p := probeResult{url: u, finalURL: u}
	if resp.Request != nil && resp.Request.URL != nil {
		p.finalURL = resp.Request.URL.String()
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			p.contentType = mt
		}
	}
	// Only text can be a playlist; media bodies are not read.
	if p.maybeText() {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, probeBodyLimit))
		p.body = string(body)
	}
	return p, nil
}

func (p probeResult) maybeText() bool {
	ct := p.contentType
	return ct == "" || strings.HasPrefix(ct, "text/") || playlistTypes[ct] ||
		hasPlaylistExt(p.url) || hasPlaylistExt(p.finalURL)
}

var playlistTypes = map[string]bool{
	"audio/x-mpegurl":               true,
	"application/x-mpegurl":         true,
	"application/vnd.apple.mpegurl": true,
	"audio/mpegurl":                 true,
	"audio/x-scpls":                 true,
	"application/pls+xml":           true,
}

// isPlaylist is false for HLS manifests, which ffmpeg plays directly.
func (p probeResult) isPlaylist() bool {
	if strings.Contains(strings.ToUpper(p.body), "#EXT-X-") {
		return false
	}
	if hasPlaylistExt(p.url) || hasPlaylistExt(p.finalURL) || playlistTypes[p.contentType] {
		return true
	}
	first := firstLine(p.body)
	return strings.HasPrefix(first, "#extm3u") || first == "[playlist]"
}

func hasPlaylistExt(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	return strings.HasSuffix(path, ".pls") || strings.HasSuffix(path, ".m3u") || strings.HasSuffix(path, ".m3u8")
}

// firstLine returns the first non-blank line of body, lower-cased.
func firstLine(body string) string {
	for line := range strings.Lines(strings.TrimPrefix(body, "\uFEFF")) {
		if s := strings.TrimSpace(line); s != "" {
			return strings.ToLower(s)
		}
	}
	return ""
}

func parseBody(body, base string) []Entry {
	body = strings.TrimSpace(strings.TrimPrefix(body, "\uFEFF"))
	if firstLine(body) == "[playlist]" || strings.Contains(strings.ToLower(body), "\nfile1=") {
		return parsePLS(body, base)
	}
	return parseM3U(body, base)
}

func parseM3U(body, base string) []Entry {
	var out []Entry
	title := ""
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := cleanValue(sc.Text())
		switch {
		case line == "":
		case strings.HasPrefix(strings.ToLower(line), "#extinf:"):
			if comma := strings.Index(line, ","); comma >= 0 {
				title = strings.TrimSpace(line[comma+1:])
			}
		case strings.HasPrefix(line, "#"):
		default:
			if u, ok := resolve(line, base); ok {
				out = append(out, Entry{URL: u, Title: title})
			}
			title = ""
		}
	}
	return out
}

func parsePLS(body, base string) []Entry {
	files := make(map[int]string)
	titles := make(map[int]string)
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = cleanValue(val)
		if val == "" {
			continue
		}
		if i, ok := plsIndex(key, "file"); ok {
			files[i] = val
		} else if i, ok := plsIndex(key, "title"); ok {
			titles[i] = val
		}
	}

	indices := lo.Keys(files)
	slices.Sort(indices)

	var out []Entry
	for _, i := range indices {
		if u, ok := resolve(files[i], base); ok {
			out = append(out, Entry{URL: u, Title: titles[i]})
		}
	}
	return out
}

func plsIndex(key, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || i <= 0 {
		return 0, false
	}
	return i, true
}

// cleanValue strips quotes and the trailing semicolon some stations append.
func cleanValue(raw string) string {
	s := strings.TrimSpace(strings.TrimPrefix(raw, "\uFEFF"))
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// resolve makes ref absolute against base and keeps only http(s) results.
func resolve(ref, base string) (string, bool) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	u := b.ResolveReference(r)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}
