// Package vector provides an immutable in-memory vector index with exact cosine search.
package vector

import (
	"fmt"
	"sort"
)

// Index stores N unit vectors of dimension D in one contiguous row-major slice and
// answers exact top-k inner product queries. It is never mutated after Build, so a
// single Index can be shared by any number of goroutines without locking.
type Index struct {
	dimensions int
	size       int
	data       []float32
}

// Result is a single search hit: the stored vector's position and its similarity to the query.
type Result struct {
	Position   int
	Similarity float64
}

// Build copies and L2-normalizes vectors into a new Index. All vectors must share the
// length of the first one.
func Build(vectors [][]float32) (*Index, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyCollection
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: vector 0 is empty", ErrDimensionMismatch)
	}
	data := make([]float32, len(vectors)*dim)
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d, expected %d", ErrDimensionMismatch, i, len(vec), dim)
		}
		row := data[i*dim : (i+1)*dim]
		copy(row, vec)
		if err := NormalizeInPlace(row); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
	}
	return &Index{dimensions: dim, size: len(vectors), data: data}, nil
}

// Dimensions returns D.
func (x *Index) Dimensions() int {
	return x.dimensions
}

// Size returns N.
func (x *Index) Size() int {
	return x.size
}

// Vector returns a copy of the stored vector at position i.
func (x *Index) Vector(i int) []float32 {
	if i < 0 || i >= x.size {
		return nil
	}
	out := make([]float32, x.dimensions)
	copy(out, x.row(i))
	return out
}

func (x *Index) row(i int) []float32 {
	return x.data[i*x.dimensions : (i+1)*x.dimensions]
}

// Search returns the min(k, N) stored vectors with the highest inner product against query,
// ordered by similarity descending and then by ascending position. The query is expected to be
// normalized already; Search does not rescale it.
func (x *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(query), x.dimensions)
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	scores := make([]Result, x.size)
	for i := 0; i < x.size; i++ {
		scores[i] = Result{Position: i, Similarity: InnerProduct(query, x.row(i))}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Similarity != scores[j].Similarity {
			return scores[i].Similarity > scores[j].Similarity
		}
		return scores[i].Position < scores[j].Position
	})
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k:k], nil
}
