package postprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gcottom/go-zaplog"
	"go.uber.org/zap"

	"bandcampdl/internal"
	"bandcampdl/internal/services/extract"
)

// WritePlaylist writes an extended M3U covering the session's audio files, in
// track order, into the directory of the first file. Entry titles come from
// the catalog when the file matches, the stem otherwise. Returns the playlist
// path.
func (s *Service) WritePlaylist(ctx context.Context, root string, exts []string, albumTitle string, cat *extract.Catalog) (string, error) {
	scanned, err := internal.ScanByExtensions(root, exts)
	if err != nil {
		return "", fmt.Errorf("failed to scan for playlist: %w", err)
	}
	var files []string
	for _, path := range internal.SortedByBase(scanned) {
		if internal.IsTempName(filepath.Base(path)) {
			continue
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no audio files to put in playlist under %s", root)
	}
	dir := filepath.Dir(files[0])
	name := internal.SanitizeFilename(albumTitle)
	if albumTitle == "" || name == "Unknown" {
		name = "playlist"
	}
	playlistPath := filepath.Join(dir, name+".m3u")

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, path := range files {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		title := stem
		if cat != nil {
			if meta, ok := cat.Match(stem); ok && meta.Title != "" {
				title = meta.Title
			}
		}
		entry := path
		if rel, err := filepath.Rel(dir, path); err == nil {
			entry = rel
		}
		b.WriteString(fmt.Sprintf("#EXTINF:-1,%s\n%s\n", title, filepath.ToSlash(entry)))
	}
	if err := os.WriteFile(playlistPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write playlist: %w", err)
	}
	zaplog.InfoC(ctx, "wrote playlist", zap.String("playlist", playlistPath), zap.Int("tracks", len(files)))
	return playlistPath, nil
}
