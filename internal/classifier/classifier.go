// Package classifier resolves an intent label from the k nearest labeled example embeddings.
package classifier

import (
	"errors"
	"fmt"
	"math"

	"github.com/hyperjump/intently/internal/vector"
)

// UnknownIntent is reported when the confidence falls below the threshold.
const UnknownIntent = "Unknown"

const (
	// DefaultK is the number of neighbors consulted per query.
	DefaultK = 5
	// DefaultThreshold is the minimum confidence for accepting the majority label.
	DefaultThreshold = 0.5
)

var (
	// ErrInvalidParameter is returned for k <= 0 or a threshold outside [-1, 1].
	ErrInvalidParameter = errors.New("invalid classification parameter")
	// ErrLabelMismatch is returned when the label count differs from the index size.
	ErrLabelMismatch = errors.New("labels and vectors length mismatch")
)

// Result is the outcome of classifying one query.
type Result struct {
	Intent     string     `json:"intent"`
	Confidence float64    `json:"confidence"`
	Neighbors  []Neighbor `json:"neighbors,omitempty"`
}

// Neighbor is one of the nearest examples that took part in the vote.
type Neighbor struct {
	Position   int     `json:"position"`
	Label      string  `json:"label"`
	Similarity float64 `json:"similarity"`
}

// Classifier pairs a vector index with the labels of its entries. Position i of the
// index carries labels[i]. It holds no mutable state.
type Classifier struct {
	index  *vector.Index
	labels []string
}

// New returns a classifier over index. labels must have exactly one entry per indexed vector.
func New(index *vector.Index, labels []string) (*Classifier, error) {
	if index == nil {
		return nil, vector.ErrEmptyCollection
	}
	if len(labels) != index.Size() {
		return nil, fmt.Errorf("%w: %d labels for %d vectors", ErrLabelMismatch, len(labels), index.Size())
	}
	owned := make([]string, len(labels))
	copy(owned, labels)
	return &Classifier{index: index, labels: owned}, nil
}

// Dimensions returns the embedding dimension the classifier expects.
func (c *Classifier) Dimensions() int {
	return c.index.Dimensions()
}

// Size returns the number of labeled examples.
func (c *Classifier) Size() int {
	return c.index.Size()
}

// Labels returns the distinct labels in order of first appearance.
func (c *Classifier) Labels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range c.labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

// Classify normalizes a copy of query, finds its k nearest examples and votes on their labels.
// Confidence is the mean similarity of all returned neighbors (not only the winning
// label's), reported rounded to 3 decimals; below the threshold the intent is UnknownIntent.
func (c *Classifier) Classify(query []float32, opts ...Option) (Result, error) {
	o := options{k: DefaultK, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return Result{}, err
	}

	q, err := vector.Normalize(query)
	if err != nil {
		return Result{}, fmt.Errorf("normalize query: %w", err)
	}
	hits, err := c.index.Search(q, o.k)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}

	labels := make([]string, len(hits))
	neighbors := make([]Neighbor, len(hits))
	var sum float64
	for i, h := range hits {
		labels[i] = c.labels[h.Position]
		neighbors[i] = Neighbor{Position: h.Position, Label: labels[i], Similarity: h.Similarity}
		sum += h.Similarity
	}
	majority, _ := Vote(labels)
	mean := sum / float64(len(hits))

	res := Result{Intent: majority, Confidence: RoundTo(mean, 3)}
	if o.explain {
		res.Neighbors = neighbors
	}
	// The gate uses the unrounded mean.
	if mean < o.threshold {
		res.Intent = UnknownIntent
	}
	return res, nil
}

// Vote returns the most frequent label and its count. Among labels with equal counts the
// one that appears first in labels wins.
func Vote(labels []string) (string, int) {
	counts := make(map[string]int, len(labels))
	order := make([]string, 0, len(labels))
	for _, l := range labels {
		if counts[l] == 0 {
			order = append(order, l)
		}
		counts[l]++
	}
	var best string
	bestCount := 0
	for _, l := range order {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best, bestCount
}

// RoundTo rounds x half away from zero to the given number of decimal places.
func RoundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
