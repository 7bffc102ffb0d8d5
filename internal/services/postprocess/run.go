package postprocess

import (
	"context"
	"path/filepath"

	"github.com/gcottom/go-zaplog"
	"go.uber.org/zap"

	"bandcampdl/internal"
)

// Run executes the post-download pipeline: metadata repair, track numbering,
// cover art handling, playlist. Stages run in that order because numbering
// changes filenames and repair matches on the original stems. Every stage is
// best-effort; a stage failure is logged and the rest still run.
func (s *Service) Run(ctx context.Context, req Request) {
	if req.RepairTags {
		s.RepairTags(ctx, req)
	}
	s.ApplyNumbering(ctx, req)

	dirs := s.audioDirs(req)
	if req.KeepCoverArt {
		s.DeduplicateCoverArt(ctx, dirs)
	} else if req.DeleteThumbnails {
		s.RemoveThumbnails(ctx, dirs)
	}

	if req.CreatePlaylist {
		if _, err := s.WritePlaylist(ctx, req.Root, req.Extensions, req.AlbumTitle, req.Catalog); err != nil {
			zaplog.WarnC(ctx, "could not create playlist", zap.Error(err))
		}
	}
}

// audioDirs lists the directories holding this session's audio files, so the
// cover art stages do not touch unrelated parts of the save tree.
func (s *Service) audioDirs(req Request) []string {
	scanned, err := internal.ScanByExtensions(req.Root, req.Extensions)
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var dirs []string
	for _, path := range internal.SortedByBase(scanned) {
		dir := filepath.Dir(path)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}
