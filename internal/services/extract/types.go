package extract

import (
	"strings"

	"github.com/gcottom/semaphore"

	"bandcampdl/internal/provider"
)

type Service struct {
	Client provider.Client
	// ProbeLimiter bounds fire-and-forget preview probes so they cannot
	// starve the session worker.
	ProbeLimiter *semaphore.Semaphore
}

// TrackMeta is the per-track metadata gathered during full extraction.
type TrackMeta struct {
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	Date        string
}

// AlbumMeta is the album-level fallback used when a file cannot be matched to
// a catalog entry.
type AlbumMeta struct {
	Artist string
	Album  string
	Date   string
}

// Catalog maps lowercased track titles to their metadata. Keys are unique
// after normalization; key order follows album track order so first-match
// lookups are deterministic.
type Catalog struct {
	Tracks map[string]TrackMeta
	Album  AlbumMeta

	keys []string
}

func NewCatalog(album AlbumMeta) *Catalog {
	return &Catalog{Tracks: make(map[string]TrackMeta), Album: album}
}

func (c *Catalog) Add(meta TrackMeta) {
	key := strings.ToLower(meta.Title)
	if key == "" {
		return
	}
	if _, ok := c.Tracks[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.Tracks[key] = meta
}

func (c *Catalog) Len() int {
	return len(c.Tracks)
}

// Match resolves a file stem to a catalog entry by bidirectional substring
// containment: the stem contains the key, or the key contains the stem.
// First match in track order wins. The heuristic can mis-attribute very short
// titles; the caller's fallback chain handles the misses.
func (c *Catalog) Match(stem string) (TrackMeta, bool) {
	stem = strings.ToLower(stem)
	if stem == "" {
		return TrackMeta{}, false
	}
	for _, key := range c.keys {
		if strings.Contains(stem, key) || strings.Contains(key, stem) {
			return c.Tracks[key], true
		}
	}
	return TrackMeta{}, false
}
