package postprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gcottom/go-zaplog"
	"go.uber.org/zap"

	"bandcampdl/config"
	"bandcampdl/internal"
	"bandcampdl/internal/services/extract"
)

var (
	alreadyNumbered = regexp.MustCompile(`^\d+\s*[.\-]\s*`)
	stemDigits      = regexp.MustCompile(`\b(\d+)\b`)
)

// ApplyNumbering prefixes output files with their track number per the
// configured style. Files already carrying a numeric prefix are left alone,
// which makes the pass idempotent. The track number comes from the catalog
// match when possible, then the first integer in the stem, then the 1-based
// position in sort order. Returns the number of files renamed.
func (s *Service) ApplyNumbering(ctx context.Context, req Request) int {
	if req.Numbering == "" || req.Numbering == config.NumberingNone {
		return 0
	}
	scanned, err := internal.ScanByExtensions(req.Root, req.Extensions)
	if err != nil {
		zaplog.WarnC(ctx, "numbering scan failed", zap.Error(err))
		return 0
	}
	files := internal.SortedByBase(scanned)
	renamed := 0
	for i, path := range files {
		base := filepath.Base(path)
		if internal.IsTempName(base) {
			continue
		}
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		if alreadyNumbered.MatchString(stem) {
			continue
		}
		number, title := resolveTrackNumber(stem, i, req.Catalog)
		prefix := renderPrefix(req.Numbering, number)
		if prefix == "" {
			continue
		}
		newPath := internal.SanitizePath(filepath.Join(filepath.Dir(path), prefix+internal.SanitizeFilename(title)+ext))
		if newPath == path {
			continue
		}
		if _, err := os.Stat(newPath); err == nil {
			continue
		}
		if err := os.Rename(path, newPath); err != nil {
			zaplog.WarnC(ctx, "could not rename file", zap.String("file", base), zap.Error(err))
			continue
		}
		zaplog.InfoC(ctx, "renamed file", zap.String("from", base), zap.String("to", filepath.Base(newPath)))
		renamed++
	}
	return renamed
}

func resolveTrackNumber(stem string, position int, cat *extract.Catalog) (int, string) {
	if cat != nil {
		if meta, ok := cat.Match(stem); ok && meta.TrackNumber > 0 {
			title := meta.Title
			if title == "" {
				title = stem
			}
			return meta.TrackNumber, title
		}
	}
	if m := stemDigits.FindStringSubmatch(stem); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, stem
		}
	}
	return position + 1, stem
}

func renderPrefix(style string, number int) string {
	switch style {
	case config.NumberingZeroDot:
		return fmt.Sprintf("%02d. ", number)
	case config.NumberingBareDot:
		return fmt.Sprintf("%d. ", number)
	case config.NumberingZeroDash:
		return fmt.Sprintf("%02d - ", number)
	case config.NumberingBareDash:
		return fmt.Sprintf("%d - ", number)
	default:
		return ""
	}
}
