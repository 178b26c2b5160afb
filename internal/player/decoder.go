package player

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/olivier-w/plyr/internal/media"
)

// audioDecoder yields signed 16-bit little-endian interleaved PCM at the
// source sample rate and channel count. Length is in output bytes, or -1 when
// unknown.
type audioDecoder interface {
	io.ReadSeeker
	Length() int64
	SampleRate() int
	ChannelCount() int
}

var errNotSeekable = errors.New("source is not seekable")

// fileDecoder closes the underlying file along with the decoder.
type fileDecoder struct {
	audioDecoder
	file *os.File
}

func (d *fileDecoder) Close() error {
	if c, ok := d.audioDecoder.(io.Closer); ok {
		_ = c.Close()
	}
	return d.file.Close()
}

// newNativeDecoder opens path with a pure-Go decoder chosen by extension.
func newNativeDecoder(path string) (audioDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var dec audioDecoder
	switch ext := media.Ext(path); ext {
	case ".mp3":
		dec, err = newMP3Decoder(f)
	case ".wav":
		dec, err = newWAVDecoder(f)
	case ".flac":
		dec, err = newFLACDecoder(f)
	case ".ogg":
		dec, err = newOGGDecoder(f)
	default:
		err = fmt.Errorf("unsupported format: %s", ext)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileDecoder{audioDecoder: dec, file: f}, nil
}

func canDecodeNatively(ext string) bool {
	switch ext {
	case ".mp3", ".wav", ".flac", ".ogg":
		return true
	}
	return false
}

func closeDecoder(d audioDecoder) {
	if c, ok := d.(io.Closer); ok {
		_ = c.Close()
	}
}

// pcmCursor tracks the output byte position of a decoder that converts whole
// blocks and hands them out in caller-sized pieces.
type pcmCursor struct {
	pending []byte
	pos     int64
	total   int64
}

// drain copies leftover bytes from the previous block into p.
func (c *pcmCursor) drain(p []byte) (int, bool) {
	if len(c.pending) == 0 {
		return 0, false
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	c.pos += int64(n)
	return n, true
}

// deliver copies a freshly converted block into p and keeps the remainder.
func (c *pcmCursor) deliver(p, block []byte) int {
	n := copy(p, block)
	if n < len(block) {
		c.pending = block[n:]
	}
	c.pos += int64(n)
	return n
}

// target resolves a Seek request to a clamped output byte position.
func (c *pcmCursor) target(offset int64, whence int) int64 {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = c.pos + offset
	case io.SeekEnd:
		pos = c.total + offset
	}
	return min(max(pos, 0), c.total)
}

func (c *pcmCursor) moved(pos int64) {
	c.pending = nil
	c.pos = pos
}

func clampInt16(v int) int16 {
	return int16(min(max(v, -32768), 32767))
}

type mp3Decoder struct {
	dec *mp3.Decoder
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) Read(p []byte) (int, error) { return d.dec.Read(p) }
func (d *mp3Decoder) Seek(offset int64, whence int) (int64, error) {
	return d.dec.Seek(offset, whence)
}
func (d *mp3Decoder) Length() int64     { return d.dec.Length() }
func (d *mp3Decoder) SampleRate() int   { return d.dec.SampleRate() }
func (d *mp3Decoder) ChannelCount() int { return 2 }

type wavDecoder struct {
	pcmCursor
	file      *os.File
	pcmStart  int64
	rate      int
	channels  int
	depth     int
	frameSize int64 // source bytes per frame
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	depth := int(dec.BitDepth)
	frameSize := int64(channels) * int64(depth) / 8
	if frameSize <= 0 {
		return nil, fmt.Errorf("unsupported WAV layout: %d channels, %d bits", channels, depth)
	}
	pcmStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locating WAV PCM data: %w", err)
	}

	return &wavDecoder{
		pcmCursor: pcmCursor{total: dec.PCMLen() / frameSize * int64(channels) * 2},
		file:      f,
		pcmStart:  pcmStart,
		rate:      int(dec.SampleRate),
		channels:  channels,
		depth:     depth,
		frameSize: frameSize,
	}, nil
}

func (d *wavDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	width := d.depth / 8
	src := make([]byte, max(len(p)/2, 1)*width)
	n, err := io.ReadFull(d.file, src)
	samples := n / width
	if samples == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	block := make([]byte, samples*2)
	for i := range samples {
		off := i * width
		var v int
		switch d.depth {
		case 8:
			v = (int(src[off]) - 128) << 8
		case 16:
			v = int(int16(binary.LittleEndian.Uint16(src[off:])))
		case 24:
			s := int32(src[off]) | int32(src[off+1])<<8 | int32(src[off+2])<<16
			if s&0x800000 != 0 {
				s |= ^0xFFFFFF
			}
			v = int(s >> 8)
		case 32:
			v = int(int32(binary.LittleEndian.Uint32(src[off:])) >> 16)
		}
		binary.LittleEndian.PutUint16(block[i*2:], uint16(clampInt16(v)))
	}

	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return d.deliver(p, block), err
}

func (d *wavDecoder) Seek(offset int64, whence int) (int64, error) {
	pos := d.target(offset, whence)
	frame := pos / (int64(d.channels) * 2)
	if _, err := d.file.Seek(d.pcmStart+frame*d.frameSize, io.SeekStart); err != nil {
		return d.pos, err
	}
	d.moved(pos)
	return pos, nil
}

func (d *wavDecoder) Length() int64     { return d.total }
func (d *wavDecoder) SampleRate() int   { return d.rate }
func (d *wavDecoder) ChannelCount() int { return d.channels }

type flacDecoder struct {
	pcmCursor
	stream   *flac.Stream
	rate     int
	channels int
	bps      int
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	info := stream.Info
	channels := int(info.NChannels)
	return &flacDecoder{
		pcmCursor: pcmCursor{total: int64(info.NSamples) * int64(channels) * 2},
		stream:    stream,
		rate:      int(info.SampleRate),
		channels:  channels,
		bps:       int(info.BitsPerSample),
	}, nil
}

func (d *flacDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	frame, err := d.stream.ParseNext()
	if err != nil {
		return 0, err
	}

	samples := int(frame.Subframes[0].NSamples)
	block := make([]byte, samples*d.channels*2)
	for i := range samples {
		for ch := range d.channels {
			v := int(frame.Subframes[ch].Samples[i])
			switch {
			case d.bps > 16:
				v >>= d.bps - 16
			case d.bps < 16:
				v <<= 16 - d.bps
			}
			binary.LittleEndian.PutUint16(block[(i*d.channels+ch)*2:], uint16(clampInt16(v)))
		}
	}
	return d.deliver(p, block), nil
}

func (d *flacDecoder) Seek(offset int64, whence int) (int64, error) {
	pos := d.target(offset, whence)
	if _, err := d.stream.Seek(uint64(pos / (int64(d.channels) * 2))); err != nil {
		return d.pos, err
	}
	d.moved(pos)
	return pos, nil
}

func (d *flacDecoder) Length() int64     { return d.total }
func (d *flacDecoder) SampleRate() int   { return d.rate }
func (d *flacDecoder) ChannelCount() int { return d.channels }

type oggDecoder struct {
	pcmCursor
	reader   *oggvorbis.Reader
	rate     int
	channels int
}

func newOGGDecoder(f *os.File) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	channels := reader.Channels()
	return &oggDecoder{
		pcmCursor: pcmCursor{total: reader.Length() * int64(channels) * 2},
		reader:    reader,
		rate:      reader.SampleRate(),
		channels:  channels,
	}, nil
}

func (d *oggDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	samples := make([]float32, max(len(p)/2, 1))
	n, err := d.reader.Read(samples)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	block := make([]byte, n*2)
	for i, s := range samples[:n] {
		binary.LittleEndian.PutUint16(block[i*2:], uint16(int16(min(max(s, -1), 1)*32767)))
	}
	return d.deliver(p, block), err
}

func (d *oggDecoder) Seek(offset int64, whence int) (int64, error) {
	pos := d.target(offset, whence)
	if err := d.reader.SetPosition(pos / (int64(d.channels) * 2)); err != nil {
		return d.pos, err
	}
	d.moved(pos)
	return pos, nil
}

func (d *oggDecoder) Length() int64     { return d.total }
func (d *oggDecoder) SampleRate() int   { return d.rate }
func (d *oggDecoder) ChannelCount() int { return d.channels }
