package vector

import "errors"

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyCollection is returned when an index is built from no vectors.
	ErrEmptyCollection = errors.New("empty vector collection")
	// ErrZeroVector is returned when normalizing a vector whose L2 norm is zero.
	ErrZeroVector = errors.New("zero vector cannot be normalized")
	// ErrNonFinite is returned for vectors containing NaN or Inf components.
	ErrNonFinite = errors.New("vector has non-finite components")
	// ErrInvalidK is returned when Search is asked for k <= 0 results.
	ErrInvalidK = errors.New("k must be positive")
)
