package internal

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/music/Band/Album/01 - Intro.mp3", "/music/Band/Album/01 - Intro.mp3"},
		{"/music/Band/Al<b>um?/track.mp3", "/music/Band/Al_b_um_/track.mp3"},
		{"/music/Album... /track.mp3", "/music/Album/track.mp3"},
		{"relative/dir./file.mp3", "relative/dir/file.mp3"},
	}
	for _, tc := range cases {
		if got := SanitizePath(tc.in); got != filepath.FromSlash(tc.want) {
			t.Errorf("SanitizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizePathKeepsRoot(t *testing.T) {
	got := SanitizePath("/music/Band/track.mp3")
	if !filepath.IsAbs(got) {
		t.Errorf("rooted path became relative: %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Plain Title", "Plain Title"},
		{`What <Is> "This"?`, "What Is This"},
		{"  trailing dots... ", "trailing dots"},
		{"a/b\\c:d", "abcd"},
		{"???", "Unknown"},
		{"", "Unknown"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{512, "512.00 B"},
		{2048, "2.00 KB"},
		{1024 * 1024 * 3, "3.00 MB"},
		{1024 * 1024 * 1024 * 1.5, "1.50 GB"},
	}
	for _, tc := range cases {
		if got := FormatBytes(tc.in); got != tc.want {
			t.Errorf("FormatBytes(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatETA(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{-1, "Calculating..."},
		{42, "42s"},
		{90, "1m 30s"},
		{3700, "1h 1m"},
	}
	for _, tc := range cases {
		if got := FormatETA(tc.in); got != tc.want {
			t.Errorf("FormatETA(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsTempName(t *testing.T) {
	for name, want := range map[string]bool{
		"track.mp3":      false,
		".hidden.mp3":    true,
		"track.tmp.mp3":  true,
		"song.TMP.flac":  true,
		"temperance.mp3": false,
		"01 - Intro.mp3": false,
	} {
		if got := IsTempName(name); got != want {
			t.Errorf("IsTempName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestScanByExtensions(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "album")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.mp3", "b.MP3", "c.flac", "cover.jpg"} {
		if err := os.WriteFile(filepath.Join(sub, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	found, err := ScanByExtensions(dir, []string{".mp3"})
	if err != nil {
		t.Fatalf("ScanByExtensions: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 mp3 files, got %d: %v", len(found), found)
	}

	missing, err := ScanByExtensions(filepath.Join(dir, "nope"), []string{".mp3"})
	if err != nil {
		t.Fatalf("missing root should not error, got %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("missing root should yield empty set, got %v", missing)
	}
}

func TestFileHashMemoizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cover.jpg")
	if err := os.WriteFile(path, []byte("image-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	cache := make(map[string]string)
	first, err := FileHash(path, cache)
	if err != nil {
		t.Fatalf("FileHash: %v", err)
	}
	// A content change after caching must not change the cached answer.
	if err := os.WriteFile(path, []byte("different"), 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := FileHash(path, cache)
	if err != nil {
		t.Fatalf("FileHash cached: %v", err)
	}
	if first != second {
		t.Errorf("cached hash changed: %q vs %q", first, second)
	}
}

func TestSortedByBase(t *testing.T) {
	set := map[string]struct{}{
		"/x/b/02 - Second.mp3": {},
		"/x/a/01 - First.mp3":  {},
		"/x/a/03 - Third.mp3":  {},
	}
	got := SortedByBase(set)
	want := []string{
		"/x/a/01 - First.mp3",
		"/x/b/02 - Second.mp3",
		"/x/a/03 - Third.mp3",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedByBase = %v, want %v", got, want)
	}
}
