package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/plyr/internal/host"
	"github.com/olivier-w/plyr/internal/player"
	"github.com/olivier-w/plyr/internal/store"
	"github.com/olivier-w/plyr/internal/visualizer"
)

type fakeBackend struct {
	calls   []string
	pos     time.Duration
	token   uint64
	playing bool
}

func (b *fakeBackend) record(s string) { b.calls = append(b.calls, s) }
func (b *fakeBackend) Load(locator string, token uint64) {
	b.token = token
	b.record("load " + locator)
}
func (b *fakeBackend) Play() {
	b.playing = true
	b.record("play")
}
func (b *fakeBackend) Pause() {
	b.playing = false
	b.record("pause")
}
func (b *fakeBackend) Stop() {
	b.playing = false
	b.record("stop")
}
func (b *fakeBackend) Paused() bool            { return !b.playing }
func (b *fakeBackend) Seek(pos time.Duration)  { b.pos = pos }
func (b *fakeBackend) Position() time.Duration { return b.pos }
func (b *fakeBackend) SetVolume(float64)       {}
func (b *fakeBackend) SetMuted(bool)           {}
func (b *fakeBackend) SetRate(float64)         {}
func (b *fakeBackend) Close()                  { b.record("close") }

func (b *fakeBackend) last() string {
	if len(b.calls) == 0 {
		return ""
	}
	return b.calls[len(b.calls)-1]
}

type recordingHost struct {
	sent []host.Message
	err  error
}

func (h *recordingHost) Send(m host.Message) error {
	h.sent = append(h.sent, m)
	return h.err
}

type recordingSaver struct {
	saved []store.Settings
}

func (s *recordingSaver) SaveSettings(_ context.Context, st store.Settings) error {
	s.saved = append(s.saved, st)
	return nil
}

type constSource struct{ level byte }

func (c constSource) FrequencyBinCount() int { return 128 }
func (c constSource) ByteFrequencyData(dst []byte) {
	for i := range dst {
		dst[i] = c.level
	}
}

type harness struct {
	model Model
	audio *fakeBackend
	video *fakeBackend
	ctrl  *player.Controller
	host  *recordingHost
	saver *recordingSaver
	viz   *visualizer.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		audio: &fakeBackend{},
		video: &fakeBackend{},
		host:  &recordingHost{},
		saver: &recordingSaver{},
	}
	h.ctrl = player.New(player.Backends{Audio: h.audio, Video: h.video})
	h.viz = visualizer.New(constSource{level: 200}, visualizer.Options{Bars: 8})
	h.model = New(Options{
		Controller: h.ctrl,
		Host:       h.host,
		Visualizer: h.viz,
		Settings:   store.Settings{Visualizer: true, PeakHold: true, Bars: 32},
		Saver:      h.saver,
	})
	return h
}

func (h *harness) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	m, cmd := h.model.handleMsg(msg)
	h.model = m
	return cmd
}

func (h *harness) key(t *testing.T, k string) tea.Cmd {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return h.send(t, msg)
}

func (h *harness) addFiles(t *testing.T, names ...string) {
	t.Helper()
	entries := make([]host.FileEntry, len(names))
	for i, n := range names {
		entries[i] = host.FileEntry{URL: "/music/" + n, Name: n}
	}
	h.send(t, HostMsg{Message: host.AddFiles(entries)})
}

func (h *harness) confirmPlaying(t *testing.T) {
	t.Helper()
	token := max(h.audio.token, h.video.token)
	h.send(t, eventMsg(player.Event{Kind: player.EventPlay, Token: token}))
}

func TestInitRequestsConfigAndAddsInitialFiles(t *testing.T) {
	h := newHarness(t)
	h.model.initial = []host.FileEntry{{URL: "/music/a.mp3", Name: "a.mp3"}}
	if cmd := h.model.Init(); cmd == nil {
		t.Fatal("expected init commands")
	}

	cmd := h.model.sendHost(host.Message{Type: host.TypeRequestConfig})
	if msg := cmd(); msg != nil {
		t.Fatalf("expected nil message on successful send, got %T", msg)
	}
	if len(h.host.sent) != 1 || h.host.sent[0].Type != host.TypeRequestConfig {
		t.Fatalf("expected requestConfig, got %+v", h.host.sent)
	}
}

func TestHostAddFilesLoadsAndPlaysFirstTrack(t *testing.T) {
	h := newHarness(t)
	h.addFiles(t, "a.mp3", "b.mp3")

	st := h.ctrl.State()
	if len(st.Playlist) != 2 || st.CurrentIndex != 0 {
		t.Fatalf("unexpected state %+v", st)
	}
	if h.audio.last() != "play" {
		t.Fatalf("expected autoplay on first add, got %v", h.audio.calls)
	}
}

func TestHostConfigAndOpenSettings(t *testing.T) {
	h := newHarness(t)
	h.send(t, HostMsg{Message: host.ConfigMessage(player.Config{DefaultVolume: 40, DefaultSpeed: 1.25})})
	st := h.ctrl.State()
	if st.Volume != 0.4 || st.Speed != 1.25 {
		t.Fatalf("expected config applied, got volume %v speed %v", st.Volume, st.Speed)
	}

	h.send(t, HostMsg{Message: host.Message{Type: host.TypeOpenSettings}})
	if h.model.panel == nil {
		t.Fatal("expected settings panel to open")
	}
}

func TestTransportKeys(t *testing.T) {
	h := newHarness(t)
	h.addFiles(t, "a.mp3", "b.mp3", "c.mp3")
	h.confirmPlaying(t)

	h.key(t, " ")
	if h.audio.last() != "pause" {
		t.Fatalf("expected space to pause, got %v", h.audio.calls)
	}

	h.audio.pos = 30 * time.Second
	h.key(t, "left")
	if h.audio.pos != 20*time.Second {
		t.Fatalf("expected seek back to 20s, got %v", h.audio.pos)
	}
	h.key(t, "right")
	if h.audio.pos != 30*time.Second {
		t.Fatalf("expected seek forward to 30s, got %v", h.audio.pos)
	}

	h.key(t, "down")
	if got := h.ctrl.State().Volume; got < 0.749 || got > 0.751 {
		t.Fatalf("expected volume 0.75, got %v", got)
	}
	h.key(t, "m")
	if !h.ctrl.State().Muted {
		t.Fatal("expected mute")
	}
	h.key(t, "s")
	h.key(t, "r")
	h.key(t, "]")
	st := h.ctrl.State()
	if !st.Shuffle || st.Repeat != player.RepeatAll || st.Speed != 1.25 {
		t.Fatalf("unexpected modes %+v", st)
	}
	h.key(t, "[")
	if got := h.ctrl.State().Speed; got != 1 {
		t.Fatalf("expected speed back to 1, got %v", got)
	}
}

func TestPlaylistKeys(t *testing.T) {
	h := newHarness(t)
	h.addFiles(t, "a.mp3", "b.mp3", "c.mp3")

	h.key(t, "j")
	h.key(t, "J")
	names := func() string {
		var out []string
		for _, tr := range h.ctrl.State().Playlist {
			out = append(out, tr.Name)
		}
		return strings.Join(out, ",")
	}
	if got := names(); got != "a,c,b" {
		t.Fatalf("expected a,c,b after move down, got %s", got)
	}
	if h.model.cursor != 2 {
		t.Fatalf("expected cursor to follow the moved track, got %d", h.model.cursor)
	}

	h.key(t, "K")
	if got := names(); got != "a,b,c" {
		t.Fatalf("expected a,b,c after move up, got %s", got)
	}

	h.key(t, "enter")
	if st := h.ctrl.State(); st.CurrentIndex != 1 {
		t.Fatalf("expected enter to play row 1, got %d", st.CurrentIndex)
	}

	h.key(t, "x")
	if got := names(); got != "a,c" {
		t.Fatalf("expected b removed, got %s", got)
	}

	for range 5 {
		h.key(t, "j")
	}
	if h.model.cursor != 1 {
		t.Fatalf("expected cursor clamped to 1, got %d", h.model.cursor)
	}
}

func TestOpenKeyAsksHostForPicker(t *testing.T) {
	h := newHarness(t)
	cmd := h.key(t, "o")
	if cmd == nil {
		t.Fatal("expected host command")
	}
	cmd()
	if len(h.host.sent) != 1 || h.host.sent[0].Type != host.TypeOpenFile {
		t.Fatalf("expected openFile, got %+v", h.host.sent)
	}
}

func TestHostSendFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.host.err = errors.New("pipe closed")
	msg := h.model.sendHost(host.Message{Type: host.TypeOpenFile})()
	if _, ok := msg.(hostErrMsg); !ok {
		t.Fatalf("expected hostErrMsg, got %T", msg)
	}
	h.send(t, msg)
}

func TestBrowserSelectionAddsFiles(t *testing.T) {
	h := newHarness(t)
	dir := tempDir(t, map[string]string{"song.mp3": "data", "notes.txt": "x"})
	h.model.browseDir = dir

	h.send(t, ShowBrowserMsg{})
	if h.model.browser == nil {
		t.Fatal("expected browser to open")
	}
	cmd := h.send(t, BrowserSelectedMsg{Path: dir + "/song.mp3"})
	if h.model.browser != nil {
		t.Fatal("expected browser to close")
	}
	h.send(t, cmd())

	st := h.ctrl.State()
	if len(st.Playlist) != 1 || st.Playlist[0].Name != "song" {
		t.Fatalf("unexpected playlist %+v", st.Playlist)
	}

	cmd = h.send(t, BrowserSelectedMsg{Path: dir + "/notes.txt"})
	h.send(t, cmd())
	if h.model.notice == "" {
		t.Fatal("expected a notice for an unsupported file")
	}
	if len(h.ctrl.State().Playlist) != 1 {
		t.Fatal("expected playlist unchanged")
	}
}

func TestSettingsPanelAppliesAndSaves(t *testing.T) {
	h := newHarness(t)
	h.key(t, ",")
	if h.model.panel == nil {
		t.Fatal("expected settings panel")
	}

	h.key(t, "j")
	cmd := h.key(t, "enter")
	if h.model.settings.PeakHold || h.viz.PeakHold() {
		t.Fatal("expected peak hold turned off")
	}
	if cmd == nil {
		t.Fatal("expected save command")
	}
	h.send(t, cmd())

	h.key(t, "j")
	cmd = h.key(t, "right")
	if h.model.settings.Bars != 80 || h.viz.Bars() != 80 {
		t.Fatalf("expected 80 bars, got %d/%d", h.model.settings.Bars, h.viz.Bars())
	}
	h.send(t, cmd())

	if len(h.saver.saved) != 2 || h.saver.saved[1].Bars != 80 || h.saver.saved[1].PeakHold {
		t.Fatalf("unexpected saved settings %+v", h.saver.saved)
	}

	h.key(t, "esc")
	if h.model.panel != nil {
		t.Fatal("expected panel to close")
	}
}

func TestStepBarsCycles(t *testing.T) {
	tests := []struct {
		cur, dir, want int
	}{
		{8, 1, 32},
		{32, 1, 80},
		{80, 1, 8},
		{8, -1, 80},
		{17, 1, visualizer.DefaultBars},
	}
	for _, tt := range tests {
		if got := stepBars(tt.cur, tt.dir); got != tt.want {
			t.Fatalf("stepBars(%d, %d) = %d, want %d", tt.cur, tt.dir, got, tt.want)
		}
	}
}

func TestVisualizerAnimatesOnlyWhileAudioPlays(t *testing.T) {
	h := newHarness(t)
	h.addFiles(t, "a.mp3", "b.mp4")
	if h.viz.Animating() {
		t.Fatal("expected idle before play is confirmed")
	}
	h.confirmPlaying(t)
	if !h.viz.Animating() {
		t.Fatal("expected animation while audio plays")
	}

	h.key(t, "n")
	if h.viz.Animating() {
		t.Fatal("expected idle after switching to a video track")
	}
}

func TestQuitClosesController(t *testing.T) {
	h := newHarness(t)
	h.addFiles(t, "a.mp3")
	cmd := h.key(t, "q")
	if cmd == nil || !h.model.quitting {
		t.Fatal("expected quit")
	}
	if h.audio.last() != "close" || h.video.last() != "close" {
		t.Fatalf("expected both back-ends closed, got %v / %v", h.audio.calls, h.video.calls)
	}
	if h.model.View() != "" {
		t.Fatal("expected empty view after quit")
	}
}

func TestViewShowsTrackAndPlaylist(t *testing.T) {
	h := newHarness(t)
	h.send(t, tea.WindowSizeMsg{Width: 80, Height: 40})
	h.addFiles(t, "first.mp3", "second.mp3")

	view := h.model.View()
	for _, want := range []string{"plyr", "first", "second", "vol 80%"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestWindowTitleMsgSetsTitle(t *testing.T) {
	h := newHarness(t)
	if cmd := h.send(t, WindowTitleMsg("▶ song · plyr")); cmd == nil {
		t.Fatal("expected title command")
	}
}
