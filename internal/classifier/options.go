package classifier

import (
	"fmt"
	"math"
)

type options struct {
	k         int
	threshold float64
	explain   bool
}

// Option configures a single Classify call.
type Option func(*options)

// WithK sets how many neighbors take part in the vote.
func WithK(k int) Option {
	return func(o *options) { o.k = k }
}

// WithThreshold sets the minimum confidence, in [-1, 1], for accepting the majority label.
func WithThreshold(threshold float64) Option {
	return func(o *options) { o.threshold = threshold }
}

// WithNeighbors includes the voting neighbors in the result.
func WithNeighbors(explain bool) Option {
	return func(o *options) { o.explain = explain }
}

func (o options) validate() error {
	if o.k <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidParameter, o.k)
	}
	if math.IsNaN(o.threshold) || o.threshold < -1 || o.threshold > 1 {
		return fmt.Errorf("%w: threshold must be in [-1, 1], got %v", ErrInvalidParameter, o.threshold)
	}
	return nil
}
