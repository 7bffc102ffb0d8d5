// Package mediatool shells out to ffmpeg/ffprobe, the external media tool the
// post-download pipeline probes and rewrites files with.
package mediatool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gcottom/go-zaplog"
	"go.uber.org/zap"
)

type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpeg builds a tool around the given ffmpeg binary. When no explicit
// ffprobe path is given, a sibling binary next to ffmpeg is assumed.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		if dir := filepath.Dir(ffmpegPath); dir != "." {
			ffprobePath = filepath.Join(dir, "ffprobe")
		} else {
			ffprobePath = "ffprobe"
		}
	}
	return &FFmpeg{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// ProbeTags reads the container tags of a file via ffprobe.
func (f *FFmpeg) ProbeTags(ctx context.Context, path string) (Tags, error) {
	cmd := exec.CommandContext(ctx, f.FFprobePath, probeArgs(path)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return Tags{}, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	return parseProbeOutput(out.Bytes())
}

// Remux copies the audio of path into a temp file with rewritten metadata and
// an optionally attached cover image, then swaps it over the original. The
// original is preserved untouched unless the tool exits successfully and the
// output exists.
func (f *FFmpeg) Remux(ctx context.Context, path string, meta Metadata, coverPath string) error {
	tmp := tempOutputPath(path)
	cmd := exec.CommandContext(ctx, f.FFmpegPath, remuxArgs(path, coverPath, meta, tmp)...)
	err := cmd.Run()
	if err != nil {
		if _, statErr := os.Stat(tmp); statErr == nil {
			_ = os.Remove(tmp)
		}
		return fmt.Errorf("ffmpeg remux failed for %s: %w", path, err)
	}
	if _, err := os.Stat(tmp); err != nil {
		return fmt.Errorf("ffmpeg produced no output for %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move remuxed file into place: %w", err)
	}
	zaplog.InfoC(ctx, "remuxed file", zap.String("path", path))
	return nil
}

func tempOutputPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".tmp" + ext
}

func probeArgs(path string) []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	}
}

func remuxArgs(in, cover string, meta Metadata, out string) []string {
	args := []string{"-i", in}
	if cover != "" {
		args = append(args,
			"-i", cover,
			"-map", "0:a", "-map", "1",
			"-c:a", "copy", "-c:v", "copy",
			"-disposition:v:0", "attached_pic",
		)
	} else {
		args = append(args, "-c:a", "copy")
	}
	if meta.Title != "" {
		args = append(args, "-metadata", "title="+meta.Title)
	}
	if meta.Artist != "" {
		args = append(args, "-metadata", "artist="+meta.Artist)
	}
	if meta.Album != "" {
		args = append(args, "-metadata", "album="+meta.Album)
	}
	if meta.TrackNumber > 0 {
		args = append(args, "-metadata", "track="+strconv.Itoa(meta.TrackNumber))
	}
	if meta.Date != "" {
		args = append(args, "-metadata", "date="+meta.Date)
	}
	return append(args, "-y", out)
}

func parseProbeOutput(data []byte) (Tags, error) {
	var payload struct {
		Format struct {
			Tags map[string]string `json:"tags"`
		} `json:"format"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Tags{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	tags := make(map[string]string, len(payload.Format.Tags))
	for k, v := range payload.Format.Tags {
		tags[strings.ToLower(k)] = v
	}
	return Tags{
		Title:  tags["title"],
		Artist: tags["artist"],
		Album:  tags["album"],
		Track:  tags["track"],
		Date:   tags["date"],
	}, nil
}
