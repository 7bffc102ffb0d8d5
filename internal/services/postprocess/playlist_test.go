package postprocess

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWritePlaylist(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "01 - Intro.mp3", "02 - Outro.mp3", "notes.txt")
	svc := &Service{}

	path, err := svc.WritePlaylist(testCtx(), dir, []string{".mp3"}, "LP", albumCatalog())
	if err != nil {
		t.Fatalf("WritePlaylist: %v", err)
	}
	if filepath.Base(path) != "LP.m3u" {
		t.Errorf("playlist name = %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	want := "#EXTM3U\n" +
		"#EXTINF:-1,Intro\n01 - Intro.mp3\n" +
		"#EXTINF:-1,Outro\n02 - Outro.mp3\n"
	if got != want {
		t.Errorf("playlist = %q, want %q", got, want)
	}
}

func TestWritePlaylistSanitizesAlbumTitle(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp3")
	svc := &Service{}

	path, err := svc.WritePlaylist(testCtx(), dir, []string{".mp3"}, `LP: "Live"?`, nil)
	if err != nil {
		t.Fatalf("WritePlaylist: %v", err)
	}
	if filepath.Base(path) != "LP Live.m3u" {
		t.Errorf("playlist name = %q", filepath.Base(path))
	}
}

func TestWritePlaylistDefaultName(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp3")
	svc := &Service{}

	path, err := svc.WritePlaylist(testCtx(), dir, []string{".mp3"}, "", nil)
	if err != nil {
		t.Fatalf("WritePlaylist: %v", err)
	}
	if filepath.Base(path) != "playlist.m3u" {
		t.Errorf("playlist name = %q", filepath.Base(path))
	}
}

func TestWritePlaylistRelativePaths(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "Band", "LP")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, sub, "01 - Intro.mp3")
	svc := &Service{}

	path, err := svc.WritePlaylist(testCtx(), root, []string{".mp3"}, "LP", nil)
	if err != nil {
		t.Fatalf("WritePlaylist: %v", err)
	}
	if filepath.Dir(path) != sub {
		t.Errorf("playlist should sit next to the audio, got %q", path)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n01 - Intro.mp3\n") {
		t.Errorf("entry should be relative to the playlist dir: %q", data)
	}
}

func TestWritePlaylistNoFiles(t *testing.T) {
	svc := &Service{}
	if _, err := svc.WritePlaylist(testCtx(), t.TempDir(), []string{".mp3"}, "LP", nil); err == nil {
		t.Fatal("expected an error with no audio files")
	}
}
