package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"bandcampdl/internal"
)

func LoadConfigFromFile(path string) (*Config, error) {
	if path == "" {
		path = "./config/config.yaml"
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	dec := yaml.NewDecoder(file)
	if err = dec.Decode(&config); err != nil {
		return nil, err
	}
	config.ApplyDefaults()
	if err = config.Validate(); err != nil {
		return nil, err
	}
	AppConfig = &config
	return &config, nil
}

type Config struct {
	SaveDir            string `yaml:"save_dir"`
	AudioFormat        string `yaml:"audio_format"`
	FolderStructure    string `yaml:"folder_structure"`
	TrackNumbering     string `yaml:"track_numbering"`
	CreatePlaylist     bool   `yaml:"create_playlist"`
	DownloadCoverArt   bool   `yaml:"download_cover_art"`
	SkipPostprocessing bool   `yaml:"skip_postprocessing"`
	FFmpegPath         string `yaml:"ffmpeg_path"`
	FFprobePath        string `yaml:"ffprobe_path"`
	ListenAddr         string `yaml:"listen_addr"`
	DownloadLimit      int    `yaml:"download_limit"`
	ProbeLimit         int    `yaml:"probe_limit"`
}

var AppConfig *Config

// Track numbering styles. The rendered prefix for track 1 is shown on each.
const (
	NumberingNone     = "none"      // no prefix
	NumberingZeroDot  = "zero-dot"  // "01. "
	NumberingBareDot  = "bare-dot"  // "1. "
	NumberingZeroDash = "zero-dash" // "01 - "
	NumberingBareDash = "bare-dash" // "1 - "
)

func (c *Config) ApplyDefaults() {
	if c.AudioFormat == "" {
		c.AudioFormat = "mp3"
	}
	if c.FolderStructure == "" {
		c.FolderStructure = "4"
	}
	if c.TrackNumbering == "" {
		c.TrackNumbering = NumberingNone
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":50999"
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.DownloadLimit <= 0 {
		c.DownloadLimit = 1
	}
	if c.ProbeLimit <= 0 {
		c.ProbeLimit = 2
	}
}

func (c *Config) Validate() error {
	if c.SaveDir == "" {
		return fmt.Errorf("save_dir is required")
	}
	info, err := os.Stat(c.SaveDir)
	if err != nil {
		return fmt.Errorf("save_dir does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("save_dir is not a directory: %s", c.SaveDir)
	}
	probe := filepath.Join(c.SaveDir, ".write_test")
	if err := os.WriteFile(probe, nil, 0644); err != nil {
		return fmt.Errorf("save_dir is not writable: %w", err)
	}
	_ = os.Remove(probe)
	if _, ok := internal.FormatExtensions[c.AudioFormat]; !ok {
		return fmt.Errorf("unknown audio_format: %s", c.AudioFormat)
	}
	switch c.TrackNumbering {
	case NumberingNone, NumberingZeroDot, NumberingBareDot, NumberingZeroDash, NumberingBareDash:
	default:
		return fmt.Errorf("unknown track_numbering: %s", c.TrackNumbering)
	}
	switch c.FolderStructure {
	case "1", "2", "3", "4", "5":
	default:
		return fmt.Errorf("unknown folder_structure: %s", c.FolderStructure)
	}
	return nil
}

// OutputTemplate renders the provider output template for the configured
// folder structure: flat, album, artist, artist/album, or album/artist.
func (c *Config) OutputTemplate() string {
	templates := map[string][]string{
		"1": {"%(title)s.%(ext)s"},
		"2": {"%(album)s", "%(title)s.%(ext)s"},
		"3": {"%(artist)s", "%(title)s.%(ext)s"},
		"4": {"%(artist)s", "%(album)s", "%(title)s.%(ext)s"},
		"5": {"%(album)s", "%(artist)s", "%(title)s.%(ext)s"},
	}
	parts, ok := templates[c.FolderStructure]
	if !ok {
		parts = templates["4"]
	}
	return filepath.Join(append([]string{c.SaveDir}, parts...)...)
}

// TargetExtensions returns the extensions the session scans for its outputs.
// With conversion skipped the provider keeps the source container, so every
// known audio extension is in scope.
func (c *Config) TargetExtensions() []string {
	if c.SkipPostprocessing {
		return internal.AllAudioExtensions
	}
	return internal.FormatExtensions[c.AudioFormat]
}
