package model

import "time"

// SystemVersion is the schema version written into SystemMetadata. Bump it
// when the persisted artifact layout changes; a mismatch invalidates the
// cache.
const SystemVersion = "1.0"

// SystemMetadata describes the artifacts currently persisted in the cache
// directory. It is overwritten on every full rebuild and read on every
// initialization attempt to decide cache validity.
type SystemMetadata struct {
	DocumentsHash  string    `json:"documents_hash"`
	DocumentCount  int       `json:"document_count"`
	ChunksCount    int       `json:"chunks_count"`
	CreatedAt      time.Time `json:"created_at"`
	ProcessingTime float64   `json:"processing_time"`
	SystemVersion  string    `json:"system_version"`
}

// Pipeline states as exposed through the progress record.
const (
	StateCold       = "COLD"
	StateRebuilding = "REBUILDING"
	StateValid      = "VALID"
)

// RebuildProgress is the pollable state record for a rebuild. It is created
// when a rebuild starts, updated at each phase transition and finalized when
// the rebuild ends.
type RebuildProgress struct {
	State      string     `json:"state"`
	Stage      string     `json:"stage"`
	Percent    int        `json:"percent"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}
