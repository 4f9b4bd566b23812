package sprite

import (
	"image"
	"time"
)

// LoadState is the lifecycle state of a Player's sheet.
type LoadState uint8

const (
	// StateIdle means no source is set; nothing is rendered.
	StateIdle LoadState = iota

	// StateLoading means a source is being decoded and keyed; frames do
	// not advance.
	StateLoading

	// StateSuccess means a processed sheet is ready and playback runs.
	StateSuccess

	// StateError means decoding or processing failed. Only a new source
	// leaves this state.
	StateError
)

// String returns the state name.
func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Sheet is a processed sprite sheet. A Sheet is immutable once published
// by the Player; the Image must not be modified.
type Sheet struct {
	// ID uniquely identifies this processed result.
	ID string

	// Generation is the load request that produced the sheet.
	Generation uint64

	// Image is the keyed sheet with transparent background.
	Image *image.NRGBA

	// Key is the chroma key the sheet was processed with.
	Key ChromaKey

	// Format is the decoder name of the source ("png", "jpeg", ...), empty
	// for sheets installed with SetSheet.
	Format string

	// Report holds inspection findings, if inspection is enabled.
	Report *Report

	// Elapsed is the decode plus extraction time.
	Elapsed time.Duration
}

// PlaybackState is the position of the playhead.
type PlaybackState struct {
	Row         int
	Frame       int
	LastAdvance time.Time
}

// Frame describes one draw on the output surface.
type Frame struct {
	Row    int
	Index  int
	Source image.Rectangle
	Dest   image.Rectangle
	Time   time.Time

	// Advanced is false for redraws caused by appearance changes between
	// frame advances.
	Advanced bool
}
