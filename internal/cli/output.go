// Package cli provides output formatting for the intently command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/hyperjump/intently/internal/artifact"
	"github.com/hyperjump/intently/internal/classifier"
	"github.com/hyperjump/intently/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text or json)", s)
	}
}

// Classification is a classified query as printed by the classify command.
type Classification struct {
	Query string `json:"query"`
	classifier.Result
}

// WriteClassification writes the result for one query to w in the given format.
func WriteClassification(w io.Writer, query string, result classifier.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, Classification{Query: query, Result: result})
	}
	fmt.Fprintf(w, "Query:      %s\n", utils.Truncate(query, 120))
	fmt.Fprintf(w, "Intent:     %s\n", result.Intent)
	fmt.Fprintf(w, "Confidence: %.3f\n", result.Confidence)
	if len(result.Neighbors) > 0 {
		fmt.Fprintln(w, "Neighbors:")
		for i, n := range result.Neighbors {
			fmt.Fprintf(w, "  %d. %-24s %.4f  (#%d)\n", i+1, utils.Truncate(n.Label, 24), n.Similarity, n.Position)
		}
	}
	return nil
}

// ArtifactInfo summarizes an index artifact for the inspect command.
type ArtifactInfo struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	CreatedAt  time.Time      `json:"created_at"`
	Entries    int            `json:"entries"`
	Dimensions int            `json:"dimensions"`
	Labels     map[string]int `json:"labels"`
}

// NewArtifactInfo counts the entries per label of a.
func NewArtifactInfo(a *artifact.Artifact) ArtifactInfo {
	labels := make(map[string]int)
	for _, l := range a.Labels {
		labels[l]++
	}
	return ArtifactInfo{
		ID:         a.ID,
		Model:      a.Model,
		CreatedAt:  a.CreatedAt,
		Entries:    a.Size(),
		Dimensions: a.Dimensions,
		Labels:     labels,
	}
}

// WriteArtifactInfo writes info to w in the given format. Labels are listed by
// descending count, then name.
func WriteArtifactInfo(w io.Writer, info ArtifactInfo, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, info)
	}
	fmt.Fprintf(w, "ID:         %s\n", info.ID)
	fmt.Fprintf(w, "Model:      %s\n", info.Model)
	fmt.Fprintf(w, "Created:    %s\n", info.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Entries:    %d\n", info.Entries)
	fmt.Fprintf(w, "Dimensions: %d\n", info.Dimensions)
	fmt.Fprintf(w, "Labels:     %d\n", len(info.Labels))

	names := make([]string, 0, len(info.Labels))
	for l := range info.Labels {
		names = append(names, l)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := info.Labels[names[i]], info.Labels[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	for _, l := range names {
		fmt.Fprintf(w, "  %-32s %d\n", utils.Truncate(l, 32), info.Labels[l])
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
