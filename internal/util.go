package internal

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

// FormatExtensions maps each target audio format to the file extensions the
// provider produces for it.
var FormatExtensions = map[string][]string{
	"mp3":  {".mp3"},
	"flac": {".flac"},
	"ogg":  {".ogg", ".oga"},
	"wav":  {".wav"},
}

// AllAudioExtensions covers every format we can produce. Used when conversion
// is skipped and the source container is kept as-is.
var AllAudioExtensions = []string{".mp3", ".flac", ".ogg", ".oga", ".wav"}

// ThumbnailExtensions are the cover art files the provider writes next to the
// audio files.
var ThumbnailExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

var invalidPathChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// SanitizePath cleans every component of a composed path, replacing invalid
// characters, trimming stray spaces and dots, and capping component length.
// Rooted paths stay rooted.
func SanitizePath(path string) string {
	slashed := filepath.ToSlash(path)
	rooted := strings.HasPrefix(slashed, "/")
	components := strings.Split(slashed, "/")
	for i, component := range components {
		if component == "" {
			continue
		}
		safeComponent := invalidPathChars.ReplaceAllString(component, "_")
		safeComponent = strings.Trim(safeComponent, " .")
		const maxLength = 255
		if len(safeComponent) > maxLength {
			safeComponent = safeComponent[:maxLength]
		}
		components[i] = safeComponent
	}
	clean := filepath.Join(components...)
	if rooted {
		clean = string(filepath.Separator) + clean
	}
	return clean
}

// SanitizeFilename strips characters that are invalid in a single path
// component and trims stray spaces and dots.
func SanitizeFilename(name string) string {
	name = invalidPathChars.ReplaceAllString(name, "")
	name = strings.Trim(name, " .")
	if name == "" {
		return "Unknown"
	}
	return name
}

func FormatBytes(v float64) string {
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if v < 1024.0 {
			return fmt.Sprintf("%.2f %s", v, unit)
		}
		v /= 1024.0
	}
	return fmt.Sprintf("%.2f TB", v)
}

func FormatETA(seconds int64) string {
	if seconds < 0 {
		return "Calculating..."
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}

// FileHash returns the MD5 content hash of a file. When a cache is supplied,
// hashes are memoized by path so repeat lookups across directories do not
// reread the file.
func FileHash(path string, cache map[string]string) (string, error) {
	if cache != nil {
		if h, ok := cache[path]; ok {
			return h, nil
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if cache != nil {
		cache[path] = sum
	}
	return sum, nil
}

// FreeSpace reports the free bytes on the filesystem holding path.
func FreeSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// ScanByExtensions recursively collects files under root whose extension
// matches one of exts (case-insensitive). A missing root yields an empty set.
func ScanByExtensions(root string, exts []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if root == "" {
		return found, nil
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return found, nil
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if HasExtension(path, exts) {
			found[path] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return found, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return found, nil
}

func HasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsTempName reports whether a file should be skipped by the post-download
// pipeline: dotfiles and in-flight tool outputs carrying "tmp" in the name.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.Contains(strings.ToLower(name), "tmp")
}

// SortedByBase orders paths by base filename, full path as tie-break. This is
// the track order every pipeline stage agrees on.
func SortedByBase(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		bi, bj := filepath.Base(out[i]), filepath.Base(out[j])
		if bi != bj {
			return bi < bj
		}
		return out[i] < out[j]
	})
	return out
}
