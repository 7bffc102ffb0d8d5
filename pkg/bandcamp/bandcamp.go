package bandcamp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"bandcampdl/internal/provider"
)

const progressInterval = 500 * time.Millisecond

// ExtractFlat runs the fast structure-only extraction: playlist entries with
// titles, no per-track detail.
func (c *Client) ExtractFlat(ctx context.Context, url string) (*provider.FlatAlbum, error) {
	cmd := c.base().
		DumpSingleJSON().
		FlatPlaylist().
		SkipDownload()
	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("flat extraction failed: %w", err)
	}
	info, err := parseInfo(res.Stdout)
	if err != nil {
		return nil, err
	}
	flat := &provider.FlatAlbum{Title: info.Title}
	for _, entry := range info.entriesOrSelf() {
		flat.Entries = append(flat.Entries, provider.FlatEntry{Title: entry.Title})
	}
	return flat, nil
}

// Extract runs the full metadata extraction for every track on the album.
func (c *Client) Extract(ctx context.Context, url string) (*provider.AlbumInfo, error) {
	cmd := c.base().
		DumpSingleJSON().
		SkipDownload()
	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("full extraction failed: %w", err)
	}
	info, err := parseInfo(res.Stdout)
	if err != nil {
		return nil, err
	}
	album := &provider.AlbumInfo{
		Title:       info.Title,
		Artist:      info.Artist,
		Uploader:    info.Uploader,
		Creator:     info.Creator,
		ReleaseDate: info.ReleaseDate,
		UploadDate:  info.UploadDate,
	}
	for _, entry := range info.entriesOrSelf() {
		album.Entries = append(album.Entries, provider.TrackInfo{
			Title:       entry.Title,
			Artist:      entry.Artist,
			Uploader:    entry.Uploader,
			Creator:     entry.Creator,
			Album:       entry.Album,
			TrackNumber: entry.TrackNumber,
			ReleaseDate: entry.ReleaseDate,
			UploadDate:  entry.UploadDate,
			Format:      entry.Format,
			Ext:         entry.Ext,
			ACodec:      entry.ACodec,
			ABR:         entry.ABR,
		})
	}
	return album, nil
}

// Download runs the album download with progress callbacks. A non-nil return
// from the caller's Progress or Accept callback cancels the underlying run
// and is returned as the download error.
func (c *Client) Download(ctx context.Context, url string, opts provider.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := c.base().
		Format("bestaudio/best").
		Output(opts.OutputTemplate)
	if opts.AudioFormat != "" {
		cmd = cmd.ExtractAudio().AudioFormat(opts.AudioFormat)
		if opts.AudioQuality != "" {
			cmd = cmd.AudioQuality(opts.AudioQuality)
		}
	}
	if opts.EmbedMetadata {
		cmd = cmd.EmbedMetadata()
	}
	if opts.EmbedThumbnail {
		cmd = cmd.EmbedThumbnail()
	}
	if opts.WriteThumbnail {
		cmd = cmd.WriteThumbnail()
	}

	var mu sync.Mutex
	var abortErr error
	abort := func(err error) {
		mu.Lock()
		if abortErr == nil {
			abortErr = err
		}
		mu.Unlock()
		cancel()
	}
	cmd = cmd.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		if opts.Accept != nil {
			if err := opts.Accept(titleFromUpdate(update)); err != nil {
				abort(err)
				return
			}
		}
		if opts.Progress != nil {
			if err := opts.Progress(eventFromUpdate(update)); err != nil {
				abort(err)
				return
			}
		}
	})

	_, err := cmd.Run(ctx, url)
	mu.Lock()
	aborted := abortErr
	mu.Unlock()
	if aborted != nil {
		return aborted
	}
	if err != nil {
		return fmt.Errorf("download run failed: %w", err)
	}
	return nil
}

func (c *Client) base() *ytdlp.Command {
	return ytdlp.New().
		IgnoreErrors().
		SocketTimeout(c.SocketTimeoutSeconds).
		Retries(strconv.Itoa(c.Retries))
}

func parseInfo(raw string) (*infoDict, error) {
	var info infoDict
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("failed to parse extraction output: %w", err)
	}
	return &info, nil
}

// entriesOrSelf flattens the single-track case: a bare track dict acts as an
// album of one.
func (d *infoDict) entriesOrSelf() []infoDict {
	if len(d.Entries) > 0 {
		return d.Entries
	}
	if d.Type == "playlist" {
		return nil
	}
	return []infoDict{*d}
}

func eventFromUpdate(update ytdlp.ProgressUpdate) provider.Event {
	ev := provider.Event{TrackIndex: -1, ETASeconds: -1}
	switch update.Status {
	case ytdlp.ProgressStatusFinished:
		ev.Status = provider.EventFinished
	case ytdlp.ProgressStatusError:
		ev.Status = provider.EventError
		ev.Err = fmt.Sprintf("error while processing %s", update.Filename)
	default:
		ev.Status = provider.EventDownloading
	}
	ev.DownloadedBytes = int64(update.DownloadedBytes)
	ev.TotalBytes = int64(update.TotalBytes)
	ev.Filename = update.Filename
	if elapsed := time.Since(update.Started).Seconds(); elapsed > 0 && update.DownloadedBytes > 0 {
		ev.Speed = float64(update.DownloadedBytes) / elapsed
	}
	if eta := update.ETA(); eta > 0 {
		ev.ETASeconds = int64(eta.Seconds())
	}
	if update.Info != nil && update.Info.PlaylistIndex != nil {
		// The tool numbers playlist items from 1.
		ev.TrackIndex = *update.Info.PlaylistIndex - 1
	}
	return ev
}

func titleFromUpdate(update ytdlp.ProgressUpdate) string {
	if update.Info != nil && update.Info.Title != nil {
		return *update.Info.Title
	}
	return update.Filename
}
