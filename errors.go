package sprite

import (
	"errors"
	"fmt"
)

// Load failure sentinels. Every failure surfaced by Player.Err wraps exactly
// one of them, so callers can branch with errors.Is.
var (
	// ErrDecode is returned when source bytes cannot be decoded as an image.
	ErrDecode = errors.New("sprite: decode failed")

	// ErrProcessing is returned when decoding succeeded but reading or
	// rewriting the pixel buffer failed.
	ErrProcessing = errors.New("sprite: processing failed")

	// ErrTimeout is returned when loading did not finish within the load timeout.
	ErrTimeout = errors.New("sprite: load timed out")

	// ErrNoSheet is returned by operations that need a processed sheet when
	// none is loaded.
	ErrNoSheet = errors.New("sprite: no sheet loaded")
)

// ErrorKind classifies a LoadError.
type ErrorKind uint8

const (
	KindDecode ErrorKind = iota + 1
	KindProcessing
	KindTimeout
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindProcessing:
		return "processing"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindDecode:
		return ErrDecode
	case KindTimeout:
		return ErrTimeout
	default:
		return ErrProcessing
	}
}

// LoadError describes why a sheet failed to load. All kinds present the
// same "load failed" state to the user; Kind is kept for diagnostics.
type LoadError struct {
	Kind       ErrorKind
	Generation uint64
	Err        error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

func newLoadError(kind ErrorKind, gen uint64, err error) *LoadError {
	return &LoadError{Kind: kind, Generation: gen, Err: err}
}
