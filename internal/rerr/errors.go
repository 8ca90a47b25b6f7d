// Package rerr defines the error taxonomy shared across Rugged's components.
//
// Preconditions and geometry impossibilities are reported as a *CoreError
// wrapping a Kind. A ray missing a DEM cell is a plain (T, bool) return. The
// inverse-location kernel reports a ground point no pixel sees as a
// *CoreError of kind SensorMeanPlaneNotFound or PixelNotFound, which
// Rugged.InverseLocation turns into a (nil, nil) return.
package rerr

import "fmt"

// Kind enumerates the semantic error categories from spec.md §7.
type Kind string

const (
	OutOfTimeRange                    Kind = "OUT_OF_TIME_RANGE"
	OutOfTileIndices                  Kind = "OUT_OF_TILE_INDICES"
	OutOfTileAngles                   Kind = "OUT_OF_TILE_ANGLES"
	InvalidRangeForLines               Kind = "INVALID_RANGE_FOR_LINES"
	InvalidStep                       Kind = "INVALID_STEP"
	EmptyTile                         Kind = "EMPTY_TILE"
	LineOfSightDoesNotReachGround      Kind = "LINE_OF_SIGHT_DOES_NOT_REACH_GROUND"
	LineOfSightNeverCrossesLatitude    Kind = "LINE_OF_SIGHT_NEVER_CROSSES_LATITUDE"
	LineOfSightNeverCrossesLongitude   Kind = "LINE_OF_SIGHT_NEVER_CROSSES_LONGITUDE"
	DemEntryPointIsBehindSpacecraft    Kind = "DEM_ENTRY_POINT_IS_BEHIND_SPACECRAFT"
	WrongTile                         Kind = "WRONG_TILE"
	TileWithoutRequiredNeighborsSelected Kind = "TILE_WITHOUT_REQUIRED_NEIGHBORS_SELECTED"
	SensorMeanPlaneNotFound            Kind = "SENSOR_MEAN_PLANE_NOT_FOUND"
	PixelNotFound                     Kind = "PIXEL_NOT_FOUND"
	InternalError                     Kind = "INTERNAL_ERROR"
)

// CoreError is the error type for all precondition and geometry-impossibility
// failures that propagate to the API boundary unchanged.
type CoreError struct {
	Kind    Kind
	Message string
	Err     error // optional wrapped cause
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Err }

// Is reports whether target is a *CoreError with the same Kind, so callers
// can do errors.Is(err, rerr.New(rerr.WrongTile, "")).
func (e *CoreError) Is(target error) bool {
	other, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// New builds a *CoreError with no wrapped cause.
func New(kind Kind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a *CoreError around an existing error.
func Wrap(kind Kind, err error, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}
