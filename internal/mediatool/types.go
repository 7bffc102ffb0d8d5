package mediatool

import "strings"

// Tags are the embedded tags probed from a file's container.
type Tags struct {
	Title  string
	Artist string
	Album  string
	Track  string
	Date   string
}

// HasEssentials reports whether title, artist and album are all present and
// non-blank. Repair is skipped for files that pass.
func (t Tags) HasEssentials() bool {
	return strings.TrimSpace(t.Title) != "" &&
		strings.TrimSpace(t.Artist) != "" &&
		strings.TrimSpace(t.Album) != ""
}

// Metadata is the tag set rewritten into a file during a remux.
type Metadata struct {
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	Date        string
}
