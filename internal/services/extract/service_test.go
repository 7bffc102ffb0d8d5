package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/gcottom/go-zaplog"

	"bandcampdl/internal/provider"
)

type fakeClient struct {
	flat    *provider.FlatAlbum
	flatErr error
	full    *provider.AlbumInfo
	fullErr error
}

func (f *fakeClient) ExtractFlat(ctx context.Context, url string) (*provider.FlatAlbum, error) {
	return f.flat, f.flatErr
}

func (f *fakeClient) Extract(ctx context.Context, url string) (*provider.AlbumInfo, error) {
	return f.full, f.fullErr
}

func (f *fakeClient) Download(ctx context.Context, url string, opts provider.Options) error {
	return nil
}

func testCtx() context.Context {
	return zaplog.CreateAndInject(context.Background())
}

func TestBuildCatalogTwoPhases(t *testing.T) {
	client := &fakeClient{
		flat: &provider.FlatAlbum{Title: "LP", Entries: []provider.FlatEntry{{Title: "Intro"}, {Title: "Outro"}}},
		full: &provider.AlbumInfo{
			Title:       "LP",
			Uploader:    "Band",
			ReleaseDate: "20240101",
			Entries: []provider.TrackInfo{
				{Title: "Intro", TrackNumber: 1},
				{Title: "Outro", TrackNumber: 2, Artist: "Guest"},
			},
		},
	}
	svc := &Service{Client: client}

	cat, total := svc.BuildCatalog(testCtx(), "https://band.bandcamp.com/album/lp")
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if cat.Len() != 2 {
		t.Fatalf("catalog entries = %d, want 2", cat.Len())
	}
	if cat.Album.Artist != "Band" {
		t.Errorf("album artist fallback = %q, want uploader", cat.Album.Artist)
	}
	intro, ok := cat.Match("Intro")
	if !ok || intro.Artist != "Band" || intro.Album != "LP" || intro.Date != "20240101" {
		t.Errorf("intro meta = %+v, ok=%v", intro, ok)
	}
	outro, ok := cat.Match("Outro")
	if !ok || outro.Artist != "Guest" {
		t.Errorf("track-level artist should win: %+v, ok=%v", outro, ok)
	}
}

func TestBuildCatalogFlatFailureFallsThrough(t *testing.T) {
	client := &fakeClient{
		flatErr: errors.New("timeout"),
		full: &provider.AlbumInfo{
			Title:   "LP",
			Artist:  "Band",
			Entries: []provider.TrackInfo{{Title: "Only"}},
		},
	}
	svc := &Service{Client: client}

	cat, total := svc.BuildCatalog(testCtx(), "url")
	if total != 1 {
		t.Fatalf("total should come from full entries, got %d", total)
	}
	if cat.Len() != 1 {
		t.Fatalf("catalog entries = %d, want 1", cat.Len())
	}
}

func TestBuildCatalogBlindMode(t *testing.T) {
	client := &fakeClient{
		flat:    &provider.FlatAlbum{Entries: []provider.FlatEntry{{Title: "a"}, {Title: "b"}, {Title: "c"}}},
		fullErr: errors.New("503"),
	}
	svc := &Service{Client: client}

	cat, total := svc.BuildCatalog(testCtx(), "url")
	if total != 3 {
		t.Fatalf("blind mode should keep the flat total, got %d", total)
	}
	if cat.Len() != 0 {
		t.Fatalf("blind mode catalog should be empty, got %d entries", cat.Len())
	}
}

func TestCatalogMatch(t *testing.T) {
	cat := NewCatalog(AlbumMeta{})
	cat.Add(TrackMeta{Title: "Fire Walk", TrackNumber: 1})
	cat.Add(TrackMeta{Title: "Rain", TrackNumber: 2})

	// Stem carries a numbering prefix around the title.
	if meta, ok := cat.Match("01 - fire walk"); !ok || meta.TrackNumber != 1 {
		t.Errorf("prefixed stem should match: %+v, ok=%v", meta, ok)
	}
	// Key contains a truncated stem.
	if meta, ok := cat.Match("fire wal"); !ok || meta.TrackNumber != 1 {
		t.Errorf("truncated stem should match: %+v, ok=%v", meta, ok)
	}
	if _, ok := cat.Match("completely different"); ok {
		t.Error("unrelated stem must not match")
	}
	if _, ok := cat.Match(""); ok {
		t.Error("empty stem must not match")
	}
}

func TestCatalogAddNormalizesAndDeduplicates(t *testing.T) {
	cat := NewCatalog(AlbumMeta{})
	cat.Add(TrackMeta{Title: "Echo", TrackNumber: 1})
	cat.Add(TrackMeta{Title: "ECHO", TrackNumber: 7})
	cat.Add(TrackMeta{Title: ""})

	if cat.Len() != 1 {
		t.Fatalf("case-insensitive duplicate should collapse, got %d entries", cat.Len())
	}
	if meta, _ := cat.Match("echo"); meta.TrackNumber != 7 {
		t.Errorf("last add should win, got %+v", meta)
	}
}
