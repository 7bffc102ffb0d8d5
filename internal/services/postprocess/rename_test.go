package postprocess

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gcottom/go-zaplog"

	"bandcampdl/config"
	"bandcampdl/internal/services/extract"
)

func testCtx() context.Context {
	return zaplog.CreateAndInject(context.Background())
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func listNames(t *testing.T, dir string) map[string]bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]bool)
	for _, entry := range entries {
		names[entry.Name()] = true
	}
	return names
}

func albumCatalog() *extract.Catalog {
	cat := extract.NewCatalog(extract.AlbumMeta{Artist: "Band", Album: "LP", Date: "20240101"})
	cat.Add(extract.TrackMeta{Title: "Intro", Artist: "Band", Album: "LP", TrackNumber: 1})
	cat.Add(extract.TrackMeta{Title: "Outro", Artist: "Band", Album: "LP", TrackNumber: 2})
	return cat
}

func TestApplyNumberingStyles(t *testing.T) {
	cases := []struct {
		style string
		want  string
	}{
		{config.NumberingZeroDot, "01. Intro.mp3"},
		{config.NumberingBareDot, "1. Intro.mp3"},
		{config.NumberingZeroDash, "01 - Intro.mp3"},
		{config.NumberingBareDash, "1 - Intro.mp3"},
	}
	for _, tc := range cases {
		dir := t.TempDir()
		writeFiles(t, dir, "Intro.mp3")
		svc := &Service{}
		renamed := svc.ApplyNumbering(testCtx(), Request{
			Root:       dir,
			Extensions: []string{".mp3"},
			Catalog:    albumCatalog(),
			Numbering:  tc.style,
		})
		if renamed != 1 {
			t.Errorf("%s: renamed = %d, want 1", tc.style, renamed)
		}
		if names := listNames(t, dir); !names[tc.want] {
			t.Errorf("%s: got %v, want %s", tc.style, names, tc.want)
		}
	}
}

func TestApplyNumberingIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Intro.mp3", "Outro.mp3")
	svc := &Service{}
	req := Request{
		Root:       dir,
		Extensions: []string{".mp3"},
		Catalog:    albumCatalog(),
		Numbering:  config.NumberingZeroDash,
	}

	if renamed := svc.ApplyNumbering(testCtx(), req); renamed != 2 {
		t.Fatalf("first pass renamed = %d, want 2", renamed)
	}
	if renamed := svc.ApplyNumbering(testCtx(), req); renamed != 0 {
		t.Fatalf("second pass renamed = %d, want 0", renamed)
	}
	names := listNames(t, dir)
	if !names["01 - Intro.mp3"] || !names["02 - Outro.mp3"] {
		t.Errorf("files = %v", names)
	}
}

func TestApplyNumberingNoneStyle(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Intro.mp3")
	svc := &Service{}
	if renamed := svc.ApplyNumbering(testCtx(), Request{
		Root: dir, Extensions: []string{".mp3"}, Numbering: config.NumberingNone,
	}); renamed != 0 {
		t.Errorf("none style renamed %d files", renamed)
	}
}

func TestApplyNumberingFallbacks(t *testing.T) {
	dir := t.TempDir()
	// No catalog match; the stem digit wins over position.
	writeFiles(t, dir, "Track 7.mp3", "Unmatched.mp3")
	svc := &Service{}
	svc.ApplyNumbering(testCtx(), Request{
		Root:       dir,
		Extensions: []string{".mp3"},
		Numbering:  config.NumberingZeroDot,
	})
	names := listNames(t, dir)
	if !names["07. Track 7.mp3"] {
		t.Errorf("stem digit fallback failed: %v", names)
	}
	// "Unmatched.mp3" sorts second, so positional numbering gives it 2.
	if !names["02. Unmatched.mp3"] {
		t.Errorf("positional fallback failed: %v", names)
	}
}

func TestApplyNumberingSanitizesTitle(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Badly Named.mp3")
	cat := extract.NewCatalog(extract.AlbumMeta{})
	cat.Add(extract.TrackMeta{Title: `Badly Named: "Live"?`, TrackNumber: 3})
	svc := &Service{}
	if renamed := svc.ApplyNumbering(testCtx(), Request{
		Root: dir, Extensions: []string{".mp3"}, Catalog: cat, Numbering: config.NumberingZeroDot,
	}); renamed != 1 {
		t.Fatalf("renamed = %d, want 1", renamed)
	}
	if names := listNames(t, dir); !names["03. Badly Named Live.mp3"] {
		t.Errorf("sanitized rename missing: %v", names)
	}
}

func TestApplyNumberingSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "track.tmp.mp3")
	svc := &Service{}
	if renamed := svc.ApplyNumbering(testCtx(), Request{
		Root: dir, Extensions: []string{".mp3"}, Numbering: config.NumberingZeroDot,
	}); renamed != 0 {
		t.Errorf("temp file was renamed")
	}
}
