// Package tasks defines the event structures exchanged over Kafka.
package tasks

// DocumentIngestEvent announces that the downloader stored or refreshed one
// raw document. The server reacts by re-checking the document fingerprint
// and scheduling a rebuild when it changed.
type DocumentIngestEvent struct {
	Document string `json:"document"`
	Size     int64  `json:"size"`
	Source   string `json:"source"`
}
