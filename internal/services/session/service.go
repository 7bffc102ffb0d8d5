package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gcottom/go-zaplog"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bandcampdl/internal"
	"bandcampdl/internal/provider"
	"bandcampdl/internal/services/postprocess"
)

// lowSpaceBytes is the free-space floor under which a session logs a warning.
const lowSpaceBytes = 512 << 20

// InitiateDownload registers a new session for the album URL and queues it.
// The returned ID is the handle for status polling and cancellation. A flat
// metadata probe starts in the background so the queued status can show the
// album title before the worker picks the session up.
func (s *Service) InitiateDownload(ctx context.Context, url string) (string, error) {
	if err := validateURL(url); err != nil {
		return "", err
	}
	id := uuid.NewString()
	sess := NewSession(id, url)
	s.Sessions.Store(id, sess)
	s.PutStatus(ctx, StatusUpdate{ID: id, Status: StatusQueued, Message: "Waiting to start..."})
	s.Queue <- id

	s.Extractor.Preview(ctx, url, func(flat *provider.FlatAlbum) {
		s.previewUpdate(ctx, id, flat)
	})
	return id, nil
}

// previewUpdate enriches a still-queued status with the flat probe's album
// title and track count. The write is a conditional swap against the loaded
// value, so a worker transition racing the probe is never overwritten with a
// stale queued status.
func (s *Service) previewUpdate(ctx context.Context, id string, flat *provider.FlatAlbum) {
	prev, err := s.GetStatus(ctx, id)
	if err != nil || prev.Status != StatusQueued {
		return
	}
	next := *prev
	next.AlbumTitle = flat.Title
	next.TotalTracks = len(flat.Entries)
	if s.StatusMap.CompareAndSwap(id, *prev, next) {
		zaplog.InfoC(ctx, "preview metadata attached", zap.String("id", id), zap.String("album", next.AlbumTitle), zap.Int("tracks", next.TotalTracks))
	}
}

// Cancel sets the session's cancellation gate. The worker observes the gate
// at its next callback boundary; this call never tears anything down itself.
// Cancelling an already-cancelled or unknown session is not an error.
func (s *Service) Cancel(ctx context.Context, id string) error {
	val, ok := s.Sessions.Load(id)
	if !ok {
		// Session already finished or never existed. Either way there is
		// nothing left to stop.
		return nil
	}
	sess := val.(*Session)
	if sess.Gate.Cancel() {
		zaplog.InfoC(ctx, "cancellation requested", zap.String("id", id))
	}
	return nil
}

func (s *Service) GetStatus(ctx context.Context, id string) (*StatusUpdate, error) {
	data, ok := s.StatusMap.Load(id)
	if !ok {
		return nil, errors.New("status not found")
	}
	out, ok := data.(StatusUpdate)
	if !ok {
		return nil, errors.New("status not found")
	}
	return &out, nil
}

func (s *Service) PutStatus(ctx context.Context, status StatusUpdate) {
	zaplog.InfoC(ctx, "status update", zap.String("id", status.ID), zap.String("status", status.Status), zap.String("progress", status.Progress))
	s.StatusMap.Store(status.ID, status)
}

func (s *Service) QueueProcessor() {
	for {
		select {
		case id := <-s.Queue:
			go s.DownloadAndProcess(context.Background(), id)
		default:
			time.Sleep(1 * time.Second)
		}
	}
}

// DownloadAndProcess is the session worker: extraction, download, file
// reconciliation, post-download pipeline. It owns the session state for its
// whole lifetime and is the only writer of non-terminal statuses.
func (s *Service) DownloadAndProcess(ctx context.Context, id string) error {
	ctx = zaplog.CreateAndInject(ctx)
	val, ok := s.Sessions.Load(id)
	if !ok {
		zaplog.ErrorC(ctx, "session not found", zap.String("id", id))
		return fmt.Errorf("session not found: %s", id)
	}
	sess := val.(*Session)
	defer s.Sessions.Delete(id)

	s.DownloadLimiter.Acquire()
	defer s.DownloadLimiter.Release()

	if sess.Gate.Cancelled() {
		s.PutStatus(ctx, StatusUpdate{ID: id, Status: StatusCancelled, Message: FailureMessage(FailureCancelled, nil), Failure: string(FailureCancelled)})
		return nil
	}

	// Low free space is a warning, not a gate; the disk-space failure class
	// still fires if the download actually runs out.
	if free, err := internal.FreeSpace(s.Config.SaveDir); err == nil && free < lowSpaceBytes {
		zaplog.WarnC(ctx, "low disk space on save dir",
			zap.String("save_dir", s.Config.SaveDir),
			zap.String("free", internal.FormatBytes(float64(free))))
	}

	s.PutStatus(ctx, StatusUpdate{ID: id, Status: StatusExtracting, Message: "Fetching album information..."})
	sess.Catalog, sess.TotalTracks = s.Extractor.BuildCatalog(ctx, sess.URL)

	if sess.Gate.Cancelled() {
		s.PutStatus(ctx, StatusUpdate{ID: id, Status: StatusCancelled, Message: FailureMessage(FailureCancelled, nil), Failure: string(FailureCancelled)})
		return nil
	}

	exts := s.Config.TargetExtensions()
	before, err := s.scanOutputs(ctx, exts)
	if err != nil {
		zaplog.WarnC(ctx, "pre-download scan failed", zap.Error(err))
	}

	tracker := NewTracker(sess)
	s.PutStatus(ctx, s.downloadStatus(sess, Snapshot{Text: "Starting download..."}))
	err = s.Client.Download(ctx, sess.URL, s.downloadOptions(ctx, sess, tracker))

	if sess.Gate.Cancelled() || errors.Is(err, provider.ErrCancelled) {
		zaplog.InfoC(ctx, "download cancelled", zap.String("id", id))
		s.PutStatus(ctx, StatusUpdate{ID: id, Status: StatusCancelled, Message: FailureMessage(FailureCancelled, nil), Failure: string(FailureCancelled)})
		return nil
	}
	if err != nil {
		kind := Classify(err)
		zaplog.ErrorC(ctx, "download failed", zap.String("id", id), zap.String("failure", string(kind)), zap.Error(err))
		s.PutStatus(ctx, StatusUpdate{ID: id, Status: StatusFailed, Message: FailureMessage(kind, err), Failure: string(kind)})
		return fmt.Errorf("download failed: %w", err)
	}

	after, err := s.scanOutputs(ctx, exts)
	if err != nil {
		zaplog.WarnC(ctx, "post-download scan failed", zap.Error(err))
	}
	verified := s.Post.Verify(before, after, sess.DownloadedFiles)
	if !verified.OK {
		zaplog.WarnC(ctx, "no files downloaded", zap.String("id", id))
		s.PutStatus(ctx, StatusUpdate{ID: id, Status: StatusFailed, Message: FailureMessage(FailureNoFiles, nil), Failure: string(FailureNoFiles)})
		return fmt.Errorf("no files downloaded")
	}

	s.PutStatus(ctx, s.processingStatus(sess, len(verified.NewFiles)))
	s.Post.Run(ctx, s.postprocessRequest(sess, exts))

	elapsed := time.Since(sess.StartTime).Round(time.Second)
	zaplog.InfoC(ctx, "session complete", zap.String("id", id), zap.Int("new_files", len(verified.NewFiles)), zap.Duration("elapsed", elapsed))
	s.PutStatus(ctx, StatusUpdate{
		ID:          id,
		Status:      StatusComplete,
		TotalTracks: sess.TotalTracks,
		AlbumTitle:  sess.Catalog.Album.Album,
		Message:     fmt.Sprintf("Download complete: %d new files in %s.", len(verified.NewFiles), elapsed),
	})
	return nil
}

// downloadOptions assembles the provider options for the configured audio
// format, wiring the tracker into the progress callback and the gate into the
// item filter. Both callbacks run on the provider's goroutine; everything they
// touch is worker-owned.
func (s *Service) downloadOptions(ctx context.Context, sess *Session, tracker *Tracker) provider.Options {
	opts := provider.Options{
		OutputTemplate: s.Config.OutputTemplate(),
		WriteThumbnail: s.Config.DownloadCoverArt,
		Progress: func(ev provider.Event) error {
			snap, err := tracker.Apply(ev)
			if err != nil {
				return err
			}
			switch ev.Status {
			case provider.EventError:
				zaplog.WarnC(ctx, "provider reported an error", zap.String("id", sess.ID), zap.String("error", ev.Err))
			case provider.EventFinished:
				zaplog.InfoC(ctx, "track finished", zap.String("id", sess.ID), zap.String("file", ev.Filename))
			}
			s.PutStatus(ctx, s.downloadStatus(sess, snap))
			return nil
		},
		Accept: func(title string) error {
			if sess.Gate.Cancelled() {
				return provider.ErrCancelled
			}
			return nil
		},
	}
	opts.EmbedMetadata = true
	opts.EmbedThumbnail = !s.Config.DownloadCoverArt
	if s.Config.SkipPostprocessing {
		// Keep the source container; still embed what we can.
		return opts
	}
	switch s.Config.AudioFormat {
	case "mp3":
		opts.AudioFormat = "mp3"
		opts.AudioQuality = "128K"
	case "flac":
		opts.AudioFormat = "flac"
	case "ogg":
		opts.AudioFormat = "vorbis"
		opts.AudioQuality = "9"
		// Vorbis thumbnail embedding is unreliable; keep the image on disk.
		opts.EmbedThumbnail = false
		opts.WriteThumbnail = true
	case "wav":
		opts.AudioFormat = "wav"
	}
	return opts
}

func (s *Service) downloadStatus(sess *Session, snap Snapshot) StatusUpdate {
	status := StatusUpdate{
		ID:          sess.ID,
		Status:      StatusDownloading,
		Track:       sess.CurrentTrack + 1,
		TotalTracks: sess.TotalTracks,
		Speed:       snap.Speed,
		ETA:         snap.ETA,
		Progress:    snap.Text,
		AlbumTitle:  sess.Catalog.Album.Album,
	}
	if snap.HasPercent {
		status.Percent = snap.Percent
	}
	if snap.HasOverall {
		status.OverallPercent = snap.OverallPercent
	}
	return status
}

func (s *Service) processingStatus(sess *Session, newFiles int) StatusUpdate {
	return StatusUpdate{
		ID:          sess.ID,
		Status:      StatusProcessing,
		TotalTracks: sess.TotalTracks,
		AlbumTitle:  sess.Catalog.Album.Album,
		Progress:    fmt.Sprintf("Processing %d files...", newFiles),
	}
}

func (s *Service) postprocessRequest(sess *Session, exts []string) postprocess.Request {
	keepCovers := s.Config.DownloadCoverArt ||
		(s.Config.AudioFormat == "ogg" && !s.Config.SkipPostprocessing)
	return postprocess.Request{
		Root:             s.Config.SaveDir,
		Extensions:       exts,
		Catalog:          sess.Catalog,
		Downloaded:       sess.DownloadedFiles,
		Numbering:        s.Config.TrackNumbering,
		RepairTags:       !s.Config.SkipPostprocessing,
		KeepCoverArt:     keepCovers,
		DeleteThumbnails: !keepCovers,
		CreatePlaylist:   s.Config.CreatePlaylist,
		AlbumTitle:       sess.Catalog.Album.Album,
	}
}

func (s *Service) scanOutputs(ctx context.Context, exts []string) (map[string]struct{}, error) {
	return internal.ScanByExtensions(s.Config.SaveDir, exts)
}

func validateURL(url string) error {
	lower := strings.ToLower(strings.TrimSpace(url))
	if lower == "" {
		return errors.New("url is required")
	}
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return fmt.Errorf("invalid url: %s", url)
	}
	if !strings.Contains(lower, "bandcamp.com") {
		return fmt.Errorf("not a bandcamp url: %s", url)
	}
	return nil
}
