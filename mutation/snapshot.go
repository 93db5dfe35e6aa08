package mutation

// Snapshot is a complete serialised DOM. Receiving one replaces the whole
// working document.
type Snapshot struct {
	ID        string `json:"id"`
	PageURL   string `json:"page_url"`
	PageID    string `json:"page_id"`
	HTML      []byte `json:"html"`
	HTMLHash  string `json:"html_hash"` // SHA-256 hex
	Timestamp int64  `json:"timestamp"`
}
