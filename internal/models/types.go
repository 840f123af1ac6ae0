package models

import "fmt"

// MediaKind represents the kind of a media item (movie or series).
// Values match the Emby item types so gateway payloads map directly.
type MediaKind string

const (
	MediaKindMovie  MediaKind = "Movie"
	MediaKindSeries MediaKind = "Series"
)

// DeleteMode controls what the deletion pass does with eligible items
type DeleteMode string

const (
	DeleteModeNone        DeleteMode = "none"        // Report only, never delete
	DeleteModeAll         DeleteMode = "all"         // Delete every correlated item
	DeleteModeInteractive DeleteMode = "interactive" // Prompt per item
)

// ParseDeleteMode validates a delete mode string
func ParseDeleteMode(s string) (DeleteMode, error) {
	switch DeleteMode(s) {
	case DeleteModeNone, DeleteModeAll, DeleteModeInteractive:
		return DeleteMode(s), nil
	}
	return "", fmt.Errorf("invalid delete mode %q (must be interactive, all or none)", s)
}

// DeleteState represents the terminal state of an item in the deletion pass
type DeleteState string

const (
	DeleteStateSkipped DeleteState = "skipped" // Declined or policy says keep
	DeleteStateDeleted DeleteState = "deleted" // Removed (or simulated under dry-run)
	DeleteStateFailed  DeleteState = "failed"  // Delete call failed
)
