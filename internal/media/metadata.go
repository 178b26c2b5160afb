package media

import (
	"encoding/base64"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// Metadata is the optional embedded information of a track. Artwork is an
// image data URI ("data:image/jpeg;base64,...") ready for display.
type Metadata struct {
	Title   string `json:"title,omitempty"`
	Artist  string `json:"artist,omitempty"`
	Artwork string `json:"artwork,omitempty"`
}

// IsZero reports whether no metadata was found.
func (m Metadata) IsZero() bool {
	return m.Title == "" && m.Artist == "" && m.Artwork == ""
}

var taggedExts = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".aac":  true,
	".m4a":  true,
	".wav":  true,
}

// ReadMetadata reads ID3v2 tags from a local audio file. Unreadable or untagged
// files yield zero Metadata; callers fall back to the file name.
func ReadMetadata(path string) Metadata {
	if !taggedExts[Ext(path)] {
		return Metadata{}
	}
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Metadata{}
	}
	defer tag.Close()

	m := Metadata{
		Title:  strings.TrimSpace(tag.Title()),
		Artist: strings.TrimSpace(tag.Artist()),
	}
	if pic, ok := selectCover(tag.GetFrames(tag.CommonID("Attached picture"))); ok {
		m.Artwork = artworkURI(pic.MimeType, pic.Picture)
	}
	return m
}

// selectCover prefers the front cover and falls back to the first picture.
func selectCover(frames []id3v2.Framer) (id3v2.PictureFrame, bool) {
	var first *id3v2.PictureFrame
	for _, f := range frames {
		pic, ok := f.(id3v2.PictureFrame)
		if !ok || len(pic.Picture) == 0 {
			continue
		}
		if pic.PictureType == id3v2.PTFrontCover {
			return pic, true
		}
		if first == nil {
			first = &pic
		}
	}
	if first == nil {
		return id3v2.PictureFrame{}, false
	}
	return *first, true
}

func artworkURI(mime string, data []byte) string {
	if mime == "" || !strings.Contains(mime, "/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
