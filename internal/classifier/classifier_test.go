package classifier

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/hyperjump/intently/internal/vector"
)

func newTestClassifier(t *testing.T, vecs [][]float32, labels []string) *Classifier {
	t.Helper()
	idx, err := vector.Build(vecs)
	if err != nil {
		t.Fatalf("vector.Build: %v", err)
	}
	c, err := New(idx, labels)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClassify_BaggageScenario(t *testing.T) {
	// "lost baggage", "delayed flight", "missing bag"
	c := newTestClassifier(t,
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.8, 0.6, 0}},
		[]string{"Baggage", "FlightStatus", "Baggage"},
	)
	res, err := c.Classify([]float32{1, 0, 0}, WithK(3), WithThreshold(0.5))
	if err != nil {
		t.Fatal(err)
	}
	if res.Intent != "Baggage" {
		t.Errorf("Intent = %q, want Baggage", res.Intent)
	}
	if math.Abs(res.Confidence-0.6) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.6", res.Confidence)
	}
	if res.Neighbors != nil {
		t.Error("neighbors should be omitted unless requested")
	}
}

func TestClassify_ThresholdComparesUnroundedMean(t *testing.T) {
	// Similarities 1 and -0.0008: the mean 0.4996 rounds up to 0.5.
	c := newTestClassifier(t,
		[][]float32{{1, 0}, {-0.0008, float32(math.Sqrt(1 - 6.4e-7))}},
		[]string{"Baggage", "FlightStatus"},
	)
	res, err := c.Classify([]float32{1, 0}, WithK(2), WithThreshold(0.5))
	if err != nil {
		t.Fatal(err)
	}
	if res.Intent != UnknownIntent {
		t.Errorf("Intent = %q, want %q", res.Intent, UnknownIntent)
	}
	if res.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", res.Confidence)
	}

	res, err = c.Classify([]float32{1, 0}, WithK(2), WithThreshold(0.499))
	if err != nil {
		t.Fatal(err)
	}
	if res.Intent != "Baggage" {
		t.Errorf("Intent = %q, want Baggage", res.Intent)
	}
}

func TestClassify_BelowThresholdIsUnknown(t *testing.T) {
	c := newTestClassifier(t,
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.8, 0.6, 0}},
		[]string{"Baggage", "FlightStatus", "Baggage"},
	)
	res, err := c.Classify([]float32{1, 0, 0}, WithK(3), WithThreshold(0.7))
	if err != nil {
		t.Fatal(err)
	}
	if res.Intent != UnknownIntent {
		t.Errorf("Intent = %q, want %q", res.Intent, UnknownIntent)
	}
	if math.Abs(res.Confidence-0.6) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.6 even when Unknown", res.Confidence)
	}
}

func TestClassify_ConfidenceIsMeanOfAllNeighbors(t *testing.T) {
	c := newTestClassifier(t,
		[][]float32{{1, 0}, {0.6, 0.8}, {0, 1}, {-1, 0}},
		[]string{"A", "B", "B", "C"},
	)
	res, err := c.Classify([]float32{1, 0}, WithK(3), WithThreshold(-1), WithNeighbors(true))
	if err != nil {
		t.Fatal(err)
	}
	// similarities 1, 0.6, 0 -> B wins 2:1, mean 0.533
	if res.Intent != "B" {
		t.Errorf("Intent = %q, want B", res.Intent)
	}
	if res.Confidence != 0.533 {
		t.Errorf("Confidence = %v, want 0.533", res.Confidence)
	}
	if len(res.Neighbors) != 3 || res.Neighbors[0].Label != "A" || res.Neighbors[2].Position != 2 {
		t.Errorf("Neighbors = %+v", res.Neighbors)
	}
}

func TestClassify_KLargerThanN(t *testing.T) {
	c := newTestClassifier(t, [][]float32{{1, 0}, {0, 1}}, []string{"A", "B"})
	res, err := c.Classify([]float32{1, 0}, WithK(5), WithThreshold(0), WithNeighbors(true))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Neighbors) != 2 {
		t.Errorf("expected 2 neighbors, got %d", len(res.Neighbors))
	}
	if res.Confidence != 0.5 || res.Intent != "A" {
		t.Errorf("got %+v, want A with 0.5", res)
	}
}

func TestClassify_TieBreakFirstOccurrence(t *testing.T) {
	// Similarity order against {1, 0}: pos0 (A), pos1 (B), pos2 (A), pos3 (B).
	c := newTestClassifier(t,
		[][]float32{{1, 0}, {0.9, 0.43589}, {0.8, 0.6}, {0.7, 0.71414}},
		[]string{"A", "B", "A", "B"},
	)
	res, err := c.Classify([]float32{1, 0}, WithK(4), WithThreshold(0), WithNeighbors(true))
	if err != nil {
		t.Fatal(err)
	}
	if res.Intent != "A" {
		t.Errorf("Intent = %q, want A", res.Intent)
	}
	for i, want := range []string{"A", "B", "A", "B"} {
		if res.Neighbors[i].Label != want {
			t.Fatalf("neighbor order = %+v", res.Neighbors)
		}
	}
}

func TestClassify_Errors(t *testing.T) {
	c := newTestClassifier(t, [][]float32{{1, 0, 0}}, []string{"A"})
	tests := []struct {
		name    string
		query   []float32
		opts    []Option
		wantErr error
	}{
		{"k zero", []float32{1, 0, 0}, []Option{WithK(0)}, ErrInvalidParameter},
		{"k negative", []float32{1, 0, 0}, []Option{WithK(-3)}, ErrInvalidParameter},
		{"threshold above 1", []float32{1, 0, 0}, []Option{WithThreshold(1.5)}, ErrInvalidParameter},
		{"threshold below -1", []float32{1, 0, 0}, []Option{WithThreshold(-1.01)}, ErrInvalidParameter},
		{"threshold NaN", []float32{1, 0, 0}, []Option{WithThreshold(math.NaN())}, ErrInvalidParameter},
		{"zero query", []float32{0, 0, 0}, nil, vector.ErrZeroVector},
		{"wrong dimension", []float32{1, 0, 0, 0, 0}, nil, vector.ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Classify(tt.query, tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Classify() error = %v, want %v", err, tt.wantErr)
			}
			if res.Intent != "" {
				t.Errorf("failed Classify must not produce an intent, got %q", res.Intent)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := newTestClassifier(t,
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}, {0, 1, 1}},
		[]string{"A", "B", "C", "A", "B"},
	)
	query := []float32{0.3, 0.5, 0.2}
	first, err := c.Classify(query)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, err := c.Classify(query)
				if err != nil || got.Intent != first.Intent || got.Confidence != first.Confidence {
					t.Errorf("Classify() = %+v, %v; want %+v", got, err, first)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestNew_LabelMismatch(t *testing.T) {
	idx, _ := vector.Build([][]float32{{1, 0}, {0, 1}})
	if _, err := New(idx, []string{"A"}); !errors.Is(err, ErrLabelMismatch) {
		t.Errorf("New() error = %v, want ErrLabelMismatch", err)
	}
	if _, err := New(nil, nil); err == nil {
		t.Error("New(nil) should fail")
	}
}

func TestVote(t *testing.T) {
	tests := []struct {
		labels    []string
		wantLabel string
		wantCount int
	}{
		{[]string{"A", "B", "A", "B"}, "A", 2},
		{[]string{"B", "A", "A", "B"}, "B", 2},
		{[]string{"B", "A", "A"}, "A", 2},
		{[]string{"C"}, "C", 1},
		{nil, "", 0},
	}
	for _, tt := range tests {
		label, count := Vote(tt.labels)
		if label != tt.wantLabel || count != tt.wantCount {
			t.Errorf("Vote(%v) = %q, %d; want %q, %d", tt.labels, label, count, tt.wantLabel, tt.wantCount)
		}
	}
}

func TestLabels(t *testing.T) {
	c := newTestClassifier(t, [][]float32{{1, 0}, {0, 1}, {1, 1}}, []string{"B", "A", "B"})
	got := c.Labels()
	if len(got) != 2 || got[0] != "B" || got[1] != "A" {
		t.Errorf("Labels() = %v", got)
	}
}

func TestRoundTo(t *testing.T) {
	if got := RoundTo(0.53333, 3); got != 0.533 {
		t.Errorf("RoundTo = %v", got)
	}
	if got := RoundTo(-0.2345, 2); got != -0.23 {
		t.Errorf("RoundTo negative = %v", got)
	}
}
