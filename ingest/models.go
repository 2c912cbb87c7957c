package ingest

// PublicationRecord is the normalized metadata for a single publication,
// assembled from a catalog row or from a document file's own metadata.
type PublicationRecord struct {
	UID         string   `json:"uid"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors,omitempty"`
	Year        int      `json:"year,omitempty"`
	DOI         string   `json:"doi,omitempty"`
	URL         string   `json:"url,omitempty"`
	Mission     string   `json:"mission,omitempty"`
	Organism    string   `json:"organism,omitempty"`
	Environment string   `json:"environment,omitempty"`
	Abstract    string   `json:"abstract,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Source      string   `json:"source"`
}

// Batch carries the records loaded from one catalog file plus any rows
// that could not be converted.
type Batch struct {
	SourceName string
	Records    []PublicationRecord
	RawPath    string
	Issues     []string
}
