package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gcottom/semaphore"

	"bandcampdl/config"
	"bandcampdl/internal/provider"
	"bandcampdl/internal/services/extract"
	"bandcampdl/internal/services/postprocess"
)

type Service struct {
	DownloadLimiter *semaphore.Semaphore
	Queue           chan string
	StatusMap       *sync.Map
	Sessions        *sync.Map
	Client          provider.Client
	Extractor       *extract.Service
	Post            *postprocess.Service
	Config          *config.Config
}

// Gate is the shared cancellation signal: settable once with effect,
// idempotent afterwards. It is the only session value written by the
// controller and read by the worker.
type Gate struct {
	cancelled atomic.Bool
}

// Cancel sets the gate and reports whether this call was the one that set it.
func (g *Gate) Cancel() bool {
	return g.cancelled.CompareAndSwap(false, true)
}

func (g *Gate) Cancelled() bool {
	return g.cancelled.Load()
}

// Session is the per-download state. It is owned exclusively by the worker
// during the download phase; only the Gate is shared with the controller.
type Session struct {
	ID  string
	URL string
	// TotalTracks is 0 until extraction finds a count.
	TotalTracks int
	// CurrentTrack is the 0-based index of the in-flight track.
	CurrentTrack    int
	StartTime       time.Time
	DownloadedFiles map[string]struct{}
	Gate            *Gate
	Catalog         *extract.Catalog
}

func NewSession(id, url string) *Session {
	return &Session{
		ID:              id,
		URL:             url,
		StartTime:       time.Now(),
		DownloadedFiles: make(map[string]struct{}),
		Gate:            &Gate{},
	}
}

// Snapshot is the reduced view of one progress event.
type Snapshot struct {
	// Percent is the current track's completion; HasPercent is false when the
	// provider reported no usable total and display should fall back to an
	// indeterminate indicator.
	Percent    float64
	HasPercent bool
	Speed      string
	ETA        string
	// OverallPercent is the weighted album completion, defined only when the
	// total track count is known.
	OverallPercent float64
	HasOverall     bool
	// Text is the human-readable progress line.
	Text string
}

type StatusUpdate struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	Track          int     `json:"track,omitempty"` // 1-based
	TotalTracks    int     `json:"total_tracks,omitempty"`
	Percent        float64 `json:"percent,omitempty"`
	OverallPercent float64 `json:"overall_percent,omitempty"`
	Speed          string  `json:"speed,omitempty"`
	ETA            string  `json:"eta,omitempty"`
	Progress       string  `json:"progress,omitempty"`
	Message        string  `json:"message,omitempty"`
	Failure        string  `json:"failure,omitempty"`
	AlbumTitle     string  `json:"album_title,omitempty"`
}

const (
	StatusQueued      = "queued"
	StatusExtracting  = "extracting"
	StatusDownloading = "downloading"
	StatusProcessing  = "processing"
	StatusComplete    = "complete"
	StatusCancelled   = "cancelled"
	StatusFailed      = "failed"
)
