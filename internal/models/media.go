package models

import "time"

// MediaItem is a movie or series from the media server, enriched during a run
// with the matching Sonarr/Radarr record when one is found
type MediaItem struct {
	ID       string
	Name     string
	Kind     MediaKind
	Library  string
	Overview string

	Created    time.Time
	LastPlayed *time.Time // nil when never played

	// Filled in by correlation. ArrID 0 means no match was found and the
	// item cannot be deleted.
	ArrID int64
	Size  int64
}

// Deletable reports whether the item carries a delete handle
func (m *MediaItem) Deletable() bool {
	return m.ArrID != 0
}

// Library is a media server library (virtual folder)
type Library struct {
	ID   string
	Name string
}

// User is a media server account
type User struct {
	ID   string
	Name string
}

// DeletionSummary aggregates the outcome of one deletion pass
type DeletionSummary struct {
	DryRun bool
	Quit   bool // Operator quit the interactive prompt

	MovieCount int
	MovieBytes int64
	ShowCount  int
	ShowBytes  int64

	SkippedCount int
	FailedCount  int
}

// TotalCount returns the number of deleted (or would-be deleted) items
func (s *DeletionSummary) TotalCount() int {
	return s.MovieCount + s.ShowCount
}

// TotalBytes returns the freed (or would-be freed) size in bytes
func (s *DeletionSummary) TotalBytes() int64 {
	return s.MovieBytes + s.ShowBytes
}
