package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/hyperjump/intently/internal/classifier"
	"github.com/hyperjump/intently/internal/embedding"
	"github.com/hyperjump/intently/internal/vector"
)

func randomVectors(n, dims int) [][]float32 {
	r := rand.New(rand.NewSource(1))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = make([]float32, dims)
		for j := range vecs[i] {
			vecs[i][j] = float32(r.NormFloat64())
		}
	}
	return vecs
}

func BenchmarkIndexSearch(b *testing.B) {
	for _, n := range []int{1000, 10000} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			idx, err := vector.Build(randomVectors(n, 384))
			if err != nil {
				b.Fatal(err)
			}
			query, _ := vector.Normalize(randomVectors(1, 384)[0])
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = idx.Search(query, 5)
			}
		})
	}
}

func BenchmarkClassify(b *testing.B) {
	vecs := randomVectors(5000, 384)
	labels := make([]string, len(vecs))
	for i := range labels {
		labels[i] = fmt.Sprintf("intent-%d", i%40)
	}
	idx, err := vector.Build(vecs)
	if err != nil {
		b.Fatal(err)
	}
	c, err := classifier.New(idx, labels)
	if err != nil {
		b.Fatal(err)
	}
	query := randomVectors(1, 384)[0]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Classify(query)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}

func BenchmarkCachedEmbedder_Embed(b *testing.B) {
	e := embedding.NewCachedEmbedder(embedding.NewMockEmbedder(384), embedding.NewMemoryCache(100), "memory")
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}
