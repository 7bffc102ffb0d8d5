// Package provider defines the narrow contract for the external
// extraction/download tool. The session consumes it through these types; the
// concrete adapter lives in pkg/bandcamp.
package provider

import (
	"context"
	"errors"
)

// ErrCancelled is returned by progress and filter callbacks to abort an
// in-flight run, and surfaces from Download when a run was aborted that way.
var ErrCancelled = errors.New("download cancelled by user")

type EventStatus string

const (
	EventDownloading EventStatus = "downloading"
	EventFinished    EventStatus = "finished"
	EventError       EventStatus = "error"
)

// Event is one progress callback payload from the provider.
type Event struct {
	Status EventStatus
	// TrackIndex is the 0-based playlist index the provider reports for the
	// in-flight item, -1 when unknown.
	TrackIndex      int
	DownloadedBytes int64
	// TotalBytes is 0 when the provider cannot estimate a total.
	TotalBytes int64
	// Speed is in bytes per second, 0 when unknown.
	Speed float64
	// ETASeconds is -1 when unknown.
	ETASeconds int64
	Filename   string
	Err        string
}

// FlatAlbum is the fast-phase extraction result: structure without per-item
// detail.
type FlatAlbum struct {
	Title   string
	Entries []FlatEntry
}

type FlatEntry struct {
	Title string
}

// AlbumInfo is the full-phase extraction result.
type AlbumInfo struct {
	Title       string
	Artist      string
	Uploader    string
	Creator     string
	ReleaseDate string
	UploadDate  string
	Entries     []TrackInfo
}

type TrackInfo struct {
	Title       string
	Artist      string
	Uploader    string
	Creator     string
	Album       string
	TrackNumber int
	ReleaseDate string
	UploadDate  string
	Format      string
	Ext         string
	ACodec      string
	ABR         float64
}

// Options is the bundle handed to Download.
type Options struct {
	// AudioFormat is the transcode target; empty keeps the source container.
	AudioFormat  string
	AudioQuality string
	// OutputTemplate uses the provider's template variables
	// (%(artist)s, %(album)s, %(title)s, %(ext)s).
	OutputTemplate string
	WriteThumbnail bool
	EmbedThumbnail bool
	EmbedMetadata  bool
	// Progress is invoked for every provider event. A non-nil return aborts
	// the run; the provider reports the abort from Download.
	Progress func(Event) error
	// Accept is the item-filter predicate, consulted before each item is
	// processed. A non-nil return rejects the item.
	Accept func(title string) error
}

type Client interface {
	ExtractFlat(ctx context.Context, url string) (*FlatAlbum, error)
	Extract(ctx context.Context, url string) (*AlbumInfo, error)
	Download(ctx context.Context, url string, opts Options) error
}
