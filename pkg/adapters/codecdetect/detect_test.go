package codecdetect

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
)

// buildVideoInit encodes an init segment with one video track using the
// given sample entry type.
func buildVideoInit(t *testing.T, sampleEntry string) []byte {
	t.Helper()

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(1000, "video", "en")

	trak := init.Moov.Trak
	entry := mp4.CreateVisualSampleEntryBox(sampleEntry, 640, 480, nil)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(entry)

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2"})
	if err := ftyp.Encode(&buf); err != nil {
		t.Fatalf("encode ftyp: %v", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		t.Fatalf("encode moov: %v", err)
	}
	return buf.Bytes()
}

func TestDetectFromBytes(t *testing.T) {
	tests := []struct {
		name        string
		sampleEntry string
		want        Codec
	}{
		{"avc1 is h264", "avc1", CodecH264},
		{"avc3 is h264", "avc3", CodecH264},
		{"av01 is av1", "av01", CodecAV1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildVideoInit(t, tt.sampleEntry)
			got, err := DetectFromBytes(data)
			if err != nil {
				t.Fatalf("DetectFromBytes failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("codec: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetectNoVideoTrack(t *testing.T) {
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(48000, "audio", "en")

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2"})
	if err := ftyp.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		t.Fatal(err)
	}

	if _, err := DetectFromBytes(buf.Bytes()); err == nil {
		t.Error("expected error for file without video track")
	}
}

func TestDetectGarbage(t *testing.T) {
	if _, err := DetectFromBytes([]byte("definitely not an mp4 file")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestDetectFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, buildVideoInit(t, "av01"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := DetectFromFile(path)
	if err != nil {
		t.Fatalf("DetectFromFile failed: %v", err)
	}
	if got != CodecAV1 {
		t.Errorf("codec: got %s, want %s", got, CodecAV1)
	}

	if _, err := DetectFromFile(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDetectFromReaderRewinds(t *testing.T) {
	data := buildVideoInit(t, "avc1")
	reader := bytes.NewReader(data)

	if _, err := DetectFromReader(reader); err != nil {
		t.Fatalf("DetectFromReader failed: %v", err)
	}

	pos, err := reader.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 0 {
		t.Errorf("reader position after detect: got %d, want 0", pos)
	}
}
