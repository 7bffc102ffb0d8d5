package bandcamp

// Client drives the yt-dlp binary for Bandcamp extraction and download.
type Client struct {
	// SocketTimeoutSeconds is passed through to the tool's socket timeout.
	SocketTimeoutSeconds float64
	// Retries is the tool's own per-request retry count, separate from the
	// caller's retry wrapper around whole extraction runs.
	Retries int
}

func NewClient() *Client {
	return &Client{SocketTimeoutSeconds: 10, Retries: 3}
}

// infoDict is the subset of the tool's JSON dump the extraction phases read.
// Albums arrive as a playlist dict with entries; single tracks arrive bare.
type infoDict struct {
	Type        string     `json:"_type"`
	Title       string     `json:"title"`
	Artist      string     `json:"artist"`
	Uploader    string     `json:"uploader"`
	Creator     string     `json:"creator"`
	Album       string     `json:"album"`
	TrackNumber int        `json:"track_number"`
	ReleaseDate string     `json:"release_date"`
	UploadDate  string     `json:"upload_date"`
	Format      string     `json:"format"`
	Ext         string     `json:"ext"`
	ACodec      string     `json:"acodec"`
	ABR         float64    `json:"abr"`
	Entries     []infoDict `json:"entries"`
}
