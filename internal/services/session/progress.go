package session

import (
	"fmt"
	"path/filepath"
	"strings"

	"bandcampdl/internal"
	"bandcampdl/internal/provider"
)

// Tracker reduces provider progress events into per-track and overall album
// percentages. It is owned by the session worker and must not be shared;
// Apply is a plain state fold with no I/O so it can be tested without a live
// provider.
type Tracker struct {
	sess *Session
	// maxOverall pins the overall percentage so it never decreases within a
	// session, even when the provider revises a track's byte total.
	maxOverall float64
	overallSet bool
}

func NewTracker(sess *Session) *Tracker {
	return &Tracker{sess: sess}
}

// Apply folds one event into the session state and returns the resulting
// snapshot. When the cancellation gate is set the event is dropped without
// any state mutation and ErrCancelled is returned, aborting the run at this
// callback boundary.
func (t *Tracker) Apply(ev provider.Event) (Snapshot, error) {
	if t.sess.Gate.Cancelled() {
		return Snapshot{}, provider.ErrCancelled
	}
	switch ev.Status {
	case provider.EventDownloading:
		return t.applyDownloading(ev), nil
	case provider.EventFinished:
		return t.applyFinished(ev), nil
	case provider.EventError:
		return Snapshot{Text: fmt.Sprintf("Error: %s", ev.Err)}, nil
	default:
		return Snapshot{}, nil
	}
}

func (t *Tracker) applyDownloading(ev provider.Event) Snapshot {
	sess := t.sess
	// The provider reports the playlist index only sporadically. Adopt it
	// when it changed, and only forward; the index never decreases within a
	// session.
	if ev.TrackIndex >= 0 && ev.TrackIndex > sess.CurrentTrack {
		sess.CurrentTrack = ev.TrackIndex
		if sess.TotalTracks > 0 && sess.CurrentTrack > sess.TotalTracks-1 {
			sess.CurrentTrack = sess.TotalTracks - 1
		}
	}

	var snap Snapshot
	if ev.TotalBytes > 0 {
		pct := float64(ev.DownloadedBytes) / float64(ev.TotalBytes) * 100.0
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		snap.Percent = pct
		snap.HasPercent = true
	}
	if ev.Speed > 0 {
		snap.Speed = internal.FormatBytes(ev.Speed) + "/s"
	}
	// Sub-5s ETAs flicker more than they inform.
	if ev.ETASeconds >= 5 {
		snap.ETA = internal.FormatETA(ev.ETASeconds)
	}
	if sess.TotalTracks > 0 {
		current := 0.0
		if snap.HasPercent {
			current = snap.Percent / 100.0
		}
		overall := (float64(sess.CurrentTrack) + current) / float64(sess.TotalTracks) * 100.0
		if overall < t.maxOverall {
			overall = t.maxOverall
		}
		t.maxOverall = overall
		t.overallSet = true
		snap.OverallPercent = overall
		snap.HasOverall = true
	}
	snap.Text = t.progressText(ev, snap)
	return snap
}

func (t *Tracker) applyFinished(ev provider.Event) Snapshot {
	sess := t.sess
	if sess.TotalTracks > 0 && sess.CurrentTrack < sess.TotalTracks-1 {
		sess.CurrentTrack++
	}
	if ev.Filename != "" {
		sess.DownloadedFiles[ev.Filename] = struct{}{}
	}
	snap := Snapshot{Percent: 100, HasPercent: true}
	if t.overallSet {
		snap.OverallPercent = t.maxOverall
		snap.HasOverall = true
	}
	name := "Unknown"
	if ev.Filename != "" {
		name = filepath.Base(ev.Filename)
	}
	snap.Text = fmt.Sprintf("Processing: %s", name)
	return snap
}

func (t *Tracker) progressText(ev provider.Event, snap Snapshot) string {
	prefix := ""
	if t.sess.TotalTracks > 0 {
		current := t.sess.CurrentTrack + 1
		if current > t.sess.TotalTracks {
			current = t.sess.TotalTracks
		}
		prefix = fmt.Sprintf("%d of %d: ", current, t.sess.TotalTracks)
	}
	parts := make([]string, 0, 3)
	if snap.HasPercent {
		parts = append(parts, fmt.Sprintf("%.1f%%", snap.Percent))
	}
	if snap.Speed != "" {
		parts = append(parts, snap.Speed)
	}
	if snap.ETA != "" {
		parts = append(parts, "ETA: "+snap.ETA)
	}
	if len(parts) > 0 {
		return "Downloading " + prefix + strings.Join(parts, " | ")
	}
	if ev.DownloadedBytes > 0 {
		return fmt.Sprintf("Downloading %s%s...", prefix, internal.FormatBytes(float64(ev.DownloadedBytes)))
	}
	return "Downloading " + prefix + "..."
}
