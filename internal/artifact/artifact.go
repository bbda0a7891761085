// Package artifact persists the built intent index: normalized vectors paired with labels.
package artifact

import (
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/intently/internal/classifier"
	"github.com/hyperjump/intently/internal/vector"
)

var (
	// ErrCorruptArtifact is returned when an artifact file cannot be decoded.
	ErrCorruptArtifact = errors.New("corrupt index artifact")
	// ErrInvalidArtifact is returned when vectors and labels do not line up.
	ErrInvalidArtifact = errors.New("invalid index artifact")
)

// Artifact is the persisted form of an intent index. Vectors[i] is labeled Labels[i].
type Artifact struct {
	ID         string
	Model      string
	CreatedAt  time.Time
	Dimensions int
	Vectors    [][]float32
	Labels     []string
}

// Size returns the number of entries.
func (a *Artifact) Size() int {
	return len(a.Vectors)
}

// Validate checks that the artifact is non-empty, that vectors and labels are parallel and
// that every vector has the declared dimension.
func (a *Artifact) Validate() error {
	if len(a.Vectors) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidArtifact, vector.ErrEmptyCollection)
	}
	if len(a.Vectors) != len(a.Labels) {
		return fmt.Errorf("%w: %d vectors, %d labels", ErrInvalidArtifact, len(a.Vectors), len(a.Labels))
	}
	if a.Dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", ErrInvalidArtifact)
	}
	for i, v := range a.Vectors {
		if len(v) != a.Dimensions {
			return fmt.Errorf("%w: vector %d has %d, expected %d",
				vector.ErrDimensionMismatch, i, len(v), a.Dimensions)
		}
	}
	return nil
}

// Classifier builds the in-memory index and returns a classifier over it.
func (a *Artifact) Classifier() (*classifier.Classifier, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	idx, err := vector.Build(a.Vectors)
	if err != nil {
		return nil, fmt.Errorf("build vector index: %w", err)
	}
	return classifier.New(idx, a.Labels)
}
