package postprocess

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gcottom/audiometa/v3"
	"github.com/gcottom/go-zaplog"
	"go.uber.org/zap"

	"bandcampdl/internal"
	"bandcampdl/internal/mediatool"
	"bandcampdl/internal/services/extract"
)

// RepairTags verifies the embedded tags of every output audio file and
// rewrites the ones missing title, artist or album. Matching runs against
// the catalog first, falling back to album-level info with the filename as
// the title. Per-file tool failures are logged and leave the original file
// untouched. Returns the number of files repaired.
func (s *Service) RepairTags(ctx context.Context, req Request) int {
	files := s.repairCandidates(req)
	if len(files) == 0 {
		return 0
	}
	zaplog.InfoC(ctx, "verifying metadata", zap.Int("files", len(files)))
	fixed := 0
	for _, path := range files {
		if internal.IsTempName(filepath.Base(path)) {
			continue
		}
		tags := s.probeTags(ctx, path)
		if tags.HasEssentials() {
			continue
		}
		meta := resolveMetadata(path, req.Catalog)
		if meta.Title == "" && meta.Artist == "" && meta.Album == "" {
			continue
		}
		cover := s.FindThumbnail(path)
		zaplog.InfoC(ctx, "fixing metadata", zap.String("file", filepath.Base(path)))
		if err := s.Media.Remux(ctx, path, meta, cover); err != nil {
			zaplog.WarnC(ctx, "could not fix metadata", zap.String("file", filepath.Base(path)), zap.Error(err))
			continue
		}
		fixed++
	}
	if fixed > 0 {
		zaplog.InfoC(ctx, "fixed metadata", zap.Int("files", fixed))
	}
	return fixed
}

// repairCandidates prefers the files the provider reported; the extension
// scan is the fallback when nothing was tracked.
func (s *Service) repairCandidates(req Request) []string {
	if len(req.Downloaded) > 0 {
		existing := make(map[string]struct{})
		for path := range req.Downloaded {
			if !internal.HasExtension(path, req.Extensions) {
				continue
			}
			if _, err := os.Stat(path); err == nil {
				existing[path] = struct{}{}
			}
		}
		if len(existing) > 0 {
			return internal.SortedByBase(existing)
		}
	}
	scanned, _ := internal.ScanByExtensions(req.Root, req.Extensions)
	return internal.SortedByBase(scanned)
}

// probeTags asks the external tool first and falls back to the in-process
// tag reader, so a missing ffprobe does not force a pointless rewrite.
func (s *Service) probeTags(ctx context.Context, path string) mediatool.Tags {
	tags, err := s.Media.ProbeTags(ctx, path)
	if err == nil {
		return tags
	}
	zaplog.WarnC(ctx, "tag probe failed, trying native reader", zap.String("file", filepath.Base(path)), zap.Error(err))
	f, err := os.Open(path)
	if err != nil {
		return mediatool.Tags{}
	}
	defer f.Close()
	tag, err := audiometa.OpenTag(f)
	if err != nil {
		return mediatool.Tags{}
	}
	return mediatool.Tags{
		Title:  tag.GetTitle(),
		Artist: tag.GetArtist(),
		Album:  tag.GetAlbum(),
	}
}

func resolveMetadata(path string, cat *extract.Catalog) mediatool.Metadata {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if cat != nil {
		if meta, ok := cat.Match(stem); ok {
			return mediatool.Metadata{
				Title:       meta.Title,
				Artist:      meta.Artist,
				Album:       meta.Album,
				TrackNumber: meta.TrackNumber,
				Date:        meta.Date,
			}
		}
		return mediatool.Metadata{
			Title:  stem,
			Artist: cat.Album.Artist,
			Album:  cat.Album.Album,
			Date:   cat.Album.Date,
		}
	}
	return mediatool.Metadata{Title: stem}
}
