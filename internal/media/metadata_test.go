package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bogem/id3v2/v2"
)

func TestReadMetadataFromTaggedMP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagged.mp3")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open tag: %v", err)
	}
	tag.SetTitle("  Song  ")
	tag.SetArtist("Band")
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/png",
		PictureType: id3v2.PTFrontCover,
		Description: "cover",
		Picture:     []byte{0x89, 'P', 'N', 'G'},
	})
	if err := tag.Save(); err != nil {
		t.Fatalf("save tag: %v", err)
	}
	tag.Close()

	m := ReadMetadata(path)
	if m.Title != "Song" || m.Artist != "Band" {
		t.Fatalf("unexpected metadata %+v", m)
	}
	if !strings.HasPrefix(m.Artwork, "data:image/png;base64,") {
		t.Fatalf("unexpected artwork %q", m.Artwork)
	}
}

func TestReadMetadataDegradesSilently(t *testing.T) {
	if m := ReadMetadata(filepath.Join(t.TempDir(), "missing.mp3")); !m.IsZero() {
		t.Fatalf("expected zero metadata for missing file, got %+v", m)
	}
	if m := ReadMetadata("clip.mp4"); !m.IsZero() {
		t.Fatalf("expected zero metadata for video, got %+v", m)
	}
}

func TestArtworkURIDefaultsMime(t *testing.T) {
	if got := artworkURI("", []byte("x")); got != "data:image/jpeg;base64,eA==" {
		t.Fatalf("artworkURI() = %q", got)
	}
}
