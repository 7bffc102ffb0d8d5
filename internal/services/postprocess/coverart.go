package postprocess

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gcottom/go-zaplog"
	"go.uber.org/zap"

	"bandcampdl/internal"
)

// canonicalCoverNames are preferred thumbnail stems, best first. A file whose
// stem contains one of these survives deduplication over track-named copies.
var canonicalCoverNames = []string{"cover", "album", "folder", "artwork"}

// FindThumbnail locates the cover image for an audio file: a sibling image
// sharing the audio file's stem, then a canonically named one, then any image
// in the directory. Returns "" when the directory has no images.
func (s *Service) FindThumbnail(audioPath string) string {
	dir := filepath.Dir(audioPath)
	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	for _, ext := range internal.ThumbnailExtensions {
		candidate := filepath.Join(dir, stem+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	for _, name := range canonicalCoverNames {
		for _, ext := range internal.ThumbnailExtensions {
			candidate := filepath.Join(dir, name+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	images := listThumbnails(dir)
	if len(images) > 0 {
		return images[0]
	}
	return ""
}

// DeduplicateCoverArt collapses identical thumbnail files in each directory
// down to one copy. Only directories whose images all share one content hash
// are collapsed; mixed-hash directories are left alone since the images are
// genuinely different. The survivor is the canonically named file when one
// exists, else the alphabetically first.
func (s *Service) DeduplicateCoverArt(ctx context.Context, dirs []string) {
	hashCache := make(map[string]string)
	removed := 0
	for _, dir := range dirs {
		images := listThumbnails(dir)
		if len(images) <= 1 {
			continue
		}
		hashes := make(map[string][]string)
		failed := false
		for _, img := range images {
			h, err := internal.FileHash(img, hashCache)
			if err != nil {
				zaplog.WarnC(ctx, "could not hash cover art", zap.String("file", filepath.Base(img)), zap.Error(err))
				failed = true
				break
			}
			hashes[h] = append(hashes[h], img)
		}
		if failed || len(hashes) != 1 {
			if len(hashes) > 1 {
				zaplog.InfoC(ctx, "multiple distinct cover images, keeping all", zap.String("dir", dir), zap.Int("images", len(images)))
			}
			continue
		}
		group := images
		sort.Slice(group, func(i, j int) bool {
			ci, cj := coverRank(group[i]), coverRank(group[j])
			if ci != cj {
				return ci < cj
			}
			return filepath.Base(group[i]) < filepath.Base(group[j])
		})
		for _, img := range group[1:] {
			if err := os.Remove(img); err != nil {
				zaplog.WarnC(ctx, "could not remove duplicate cover art", zap.String("file", filepath.Base(img)), zap.Error(err))
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		zaplog.InfoC(ctx, "deduplicated cover art", zap.Int("removed", removed))
	}
}

// RemoveThumbnails deletes every leftover thumbnail file in the given
// directories. Used when cover art is embedded but not kept on disk.
func (s *Service) RemoveThumbnails(ctx context.Context, dirs []string) {
	removed := 0
	for _, dir := range dirs {
		for _, img := range listThumbnails(dir) {
			if err := os.Remove(img); err != nil {
				zaplog.WarnC(ctx, "could not remove thumbnail", zap.String("file", filepath.Base(img)), zap.Error(err))
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		zaplog.InfoC(ctx, "removed thumbnails", zap.Int("removed", removed))
	}
}

// listThumbnails returns the image files directly inside dir, sorted by name.
func listThumbnails(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if internal.HasExtension(entry.Name(), internal.ThumbnailExtensions) {
			images = append(images, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(images)
	return images
}

func coverRank(path string) int {
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	for _, name := range canonicalCoverNames {
		if strings.Contains(stem, name) {
			return 0
		}
	}
	return 1
}
