package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/intently/internal/artifact"
	"github.com/hyperjump/intently/internal/classifier"
)

func TestParseOutputFormat(t *testing.T) {
	for _, s := range []string{"text", "json"} {
		if _, err := ParseOutputFormat(s); err != nil {
			t.Errorf("ParseOutputFormat(%q) error: %v", s, err)
		}
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestWriteClassification_JSON(t *testing.T) {
	var buf bytes.Buffer
	res := classifier.Result{Intent: "Baggage", Confidence: 0.6}
	if err := WriteClassification(&buf, "where is my bag", res, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out["query"] != "where is my bag" || out["intent"] != "Baggage" || out["confidence"] != 0.6 {
		t.Errorf("got %v", out)
	}
	if _, ok := out["neighbors"]; ok {
		t.Error("neighbors should be omitted when empty")
	}
}

func TestWriteClassification_Text(t *testing.T) {
	var buf bytes.Buffer
	res := classifier.Result{
		Intent:     "Baggage",
		Confidence: 0.6,
		Neighbors: []classifier.Neighbor{
			{Position: 0, Label: "Baggage", Similarity: 1},
			{Position: 2, Label: "Baggage", Similarity: 0.8},
		},
	}
	if err := WriteClassification(&buf, "where is my bag", res, OutputText); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{"Intent:     Baggage", "Confidence: 0.600", "Neighbors:", "0.8000  (#2)"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func TestArtifactInfo(t *testing.T) {
	a := &artifact.Artifact{
		ID:         "abc",
		Model:      "all-MiniLM-L6-v2",
		CreatedAt:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Dimensions: 2,
		Vectors:    [][]float32{{1, 0}, {0, 1}, {1, 0}},
		Labels:     []string{"Refund", "Baggage", "Baggage"},
	}
	info := NewArtifactInfo(a)
	if info.Entries != 3 || info.Labels["Baggage"] != 2 {
		t.Errorf("info = %+v", info)
	}

	var buf bytes.Buffer
	if err := WriteArtifactInfo(&buf, info, OutputText); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	if strings.Index(s, "Baggage") > strings.Index(s, "Refund") {
		t.Errorf("labels should be ordered by count:\n%s", s)
	}
	if !strings.Contains(s, "Created:    2024-05-01T00:00:00Z") {
		t.Errorf("missing created time:\n%s", s)
	}

	buf.Reset()
	if err := WriteArtifactInfo(&buf, info, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var out ArtifactInfo
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.ID != "abc" || out.Labels["Refund"] != 1 {
		t.Errorf("round trip = %+v", out)
	}
}
