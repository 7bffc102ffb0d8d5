package postprocess

import (
	"context"

	"bandcampdl/internal/mediatool"
	"bandcampdl/internal/services/extract"
)

// MediaTool is the external-process contract the repair stage drives.
type MediaTool interface {
	ProbeTags(ctx context.Context, path string) (mediatool.Tags, error)
	Remux(ctx context.Context, path string, meta mediatool.Metadata, coverPath string) error
}

type Service struct {
	Media MediaTool
}

// Request carries one session's post-download pipeline inputs. Every stage is
// best-effort: per-file and per-stage errors are logged and the remaining
// work continues.
type Request struct {
	Root       string
	Extensions []string
	Catalog    *extract.Catalog
	Downloaded map[string]struct{}
	// Numbering is one of the config numbering styles.
	Numbering  string
	RepairTags bool
	// KeepCoverArt keeps thumbnail files on disk and deduplicates them;
	// otherwise DeleteThumbnails removes the leftovers after embedding.
	KeepCoverArt     bool
	DeleteThumbnails bool
	CreatePlaylist   bool
	AlbumTitle       string
}

// VerifyResult is the file-presence reconciliation outcome.
type VerifyResult struct {
	// NewFiles are the paths present after the download that were not there
	// before, in track order.
	NewFiles []string
	// OK is false only for the distinct "no files produced" outcome: no new
	// files and no surviving downloaded files.
	OK bool
}
