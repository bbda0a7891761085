package embedding

import (
	"context"
	"errors"
	"testing"
)

type countingEmbedder struct {
	*MockEmbedder
	calls  int
	closed bool
	err    error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) Close() error {
	c.closed = true
	return nil
}

func TestCachedEmbedder_Embed(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	e := NewCachedEmbedder(inner, NewMemoryCache(10), "memory")
	ctx := context.Background()

	first, err := e.Embed(ctx, "where is my bag")
	if err != nil {
		t.Fatal(err)
	}
	first[0] = 42 // callers may modify results without touching the cache

	second, err := e.Embed(ctx, "where is my bag")
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if second[0] == 42 {
		t.Error("cached vector was aliased by caller")
	}
	if e.Dimensions() != 8 {
		t.Errorf("Dimensions() = %d, want 8", e.Dimensions())
	}
}

func TestCachedEmbedder_EmbedBatch(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(4)}
	e := NewCachedEmbedder(inner, NewMemoryCache(10), "memory")
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
	for i := range out[0] {
		if out[0][i] != out[2][i] {
			t.Fatal("same text should yield the same vector")
		}
	}
}

func TestCachedEmbedder_errorNotCached(t *testing.T) {
	boom := errors.New("boom")
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(4), err: boom}
	cache := NewMemoryCache(10)
	e := NewCachedEmbedder(inner, cache, "memory")
	if _, err := e.Embed(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if cache.Len() != 0 {
		t.Error("failed embeddings must not be cached")
	}
}

func TestCachedEmbedder_ignoresWrongDimension(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(4)}
	cache := NewMemoryCache(10)
	cache.Set(context.Background(), "x", []float32{1, 2})
	e := NewCachedEmbedder(inner, cache, "memory")
	got, err := e.Embed(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 || inner.calls != 1 {
		t.Errorf("stale cache entry used: len=%d calls=%d", len(got), inner.calls)
	}
}

func TestCachedEmbedder_Close(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(4)}
	e := NewCachedEmbedder(inner, NewMemoryCache(1), "memory")
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if !inner.closed {
		t.Error("inner embedder should be closed")
	}
}
