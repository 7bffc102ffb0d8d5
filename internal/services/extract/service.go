package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/gcottom/go-zaplog"
	"github.com/gcottom/retry"
	"go.uber.org/zap"

	"bandcampdl/internal/provider"
)

const extractAttempts = 3

// BuildCatalog runs the two-phase metadata extraction. The flat phase fills
// in the track count quickly; its failure is silent. The full phase builds
// the TrackCatalog; its failure degrades the session to blind mode (empty
// catalog) but never aborts it. The returned total is 0 when both phases
// failed to produce one.
func (s *Service) BuildCatalog(ctx context.Context, url string) (*Catalog, int) {
	total := 0

	zaplog.InfoC(ctx, "fetching album information", zap.String("url", url))
	res, err := retry.Retry(retry.NewAlgSimpleDefault(), extractAttempts, s.Client.ExtractFlat, ctx, url)
	if err == nil {
		flat := res[0].(*provider.FlatAlbum)
		total = len(flat.Entries)
		zaplog.InfoC(ctx, "flat extraction complete", zap.Int("tracks", total))
	} else {
		zaplog.WarnC(ctx, "flat extraction failed, falling through to full extraction", zap.Error(err))
	}

	res, err = retry.Retry(retry.NewAlgSimpleDefault(), extractAttempts, s.Client.Extract, ctx, url)
	if err != nil {
		zaplog.WarnC(ctx, "could not fetch full metadata, continuing in blind mode", zap.Error(err))
		return NewCatalog(AlbumMeta{}), total
	}
	info := res[0].(*provider.AlbumInfo)

	album := AlbumMeta{
		Artist: firstNonEmpty(info.Artist, info.Uploader, info.Creator),
		Album:  info.Title,
		Date:   firstNonEmpty(info.ReleaseDate, info.UploadDate),
	}
	catalog := NewCatalog(album)
	for _, entry := range info.Entries {
		if strings.TrimSpace(entry.Title) == "" {
			continue
		}
		catalog.Add(TrackMeta{
			Title:       entry.Title,
			Artist:      firstNonEmpty(entry.Artist, entry.Uploader, entry.Creator, album.Artist),
			Album:       firstNonEmpty(entry.Album, info.Title, album.Album),
			TrackNumber: entry.TrackNumber,
			Date:        firstNonEmpty(entry.ReleaseDate, entry.UploadDate, album.Date),
		})
	}
	if total == 0 {
		total = len(info.Entries)
	}
	zaplog.InfoC(ctx, "full extraction complete",
		zap.Int("tracks", total), zap.Int("catalog_entries", catalog.Len()),
		zap.String("artist", album.Artist), zap.String("album", album.Album))
	if len(info.Entries) > 0 {
		logSourceInfo(ctx, info.Entries[0])
	}
	return catalog, total
}

// Preview fetches flat metadata in the background for display purposes and
// hands the result to fn. Results are best-effort and may race with the
// session worker; the authoritative catalog is always built synchronously
// before download.
func (s *Service) Preview(ctx context.Context, url string, fn func(*provider.FlatAlbum)) {
	go func() {
		s.ProbeLimiter.Acquire()
		defer s.ProbeLimiter.Release()
		flat, err := s.Client.ExtractFlat(ctx, url)
		if err != nil {
			zaplog.WarnC(ctx, "preview probe failed", zap.String("url", url), zap.Error(err))
			return
		}
		fn(flat)
	}()
}

func logSourceInfo(ctx context.Context, entry provider.TrackInfo) {
	parts := make([]string, 0, 4)
	if entry.Format != "" {
		parts = append(parts, fmt.Sprintf("format: %s", entry.Format))
	}
	if entry.ABR > 0 {
		parts = append(parts, fmt.Sprintf("bitrate: %.0f kbps", entry.ABR))
	}
	if entry.ACodec != "" {
		parts = append(parts, fmt.Sprintf("codec: %s", entry.ACodec))
	}
	if entry.Ext != "" {
		parts = append(parts, fmt.Sprintf("ext: %s", entry.Ext))
	}
	if len(parts) > 0 {
		zaplog.InfoC(ctx, "source audio", zap.String("info", strings.Join(parts, " | ")))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
