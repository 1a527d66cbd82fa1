package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means the map source could not serve the region.
	ErrDataUnavailable = errors.New("map data unavailable")
	// ErrParse means the retrieved map payload is structurally malformed.
	ErrParse = errors.New("malformed map data")
	// ErrInternalInvariant signals impossible values reaching aggregation.
	ErrInternalInvariant = errors.New("internal invariant violated")
	// ErrInvalidPoint is returned for coordinates outside WGS 84 ranges.
	ErrInvalidPoint = errors.New("invalid geographic point")
)

// SourceError describes a map source failing to produce data for a region.
// It matches ErrDataUnavailable under errors.Is.
type SourceError struct {
	Source string
	Bounds Bounds
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s for %s: %v", ErrDataUnavailable, e.Source, e.Bounds, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrDataUnavailable, e.Err}
}

// Unavailable wraps err as a SourceError for the named source and region.
func Unavailable(source string, region BoundingRegion, err error) error {
	return &SourceError{Source: source, Bounds: region.Bounds, Err: err}
}

// ParseErrorf builds an error matching ErrParse.
func ParseErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}
