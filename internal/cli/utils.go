// Package cli provides output formatting for the kbase command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/kbase/internal/models"
	"github.com/hyperjump/kbase/internal/search"
	"github.com/hyperjump/kbase/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const maxErrorLen = 60

// NoMatchMessage is printed in text mode when a query matched nothing.
const NoMatchMessage = "No matching fragments found."

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// StatusReport is the status of a knowledge base as shown by `kbase status`. Its JSON form
// matches GET /api/v1/status.
type StatusReport struct {
	Engine         search.Stats        `json:"engine"`
	LatestBuild    *models.BuildRecord `json:"latest_build,omitempty"`
	Builds         int64               `json:"builds"`
	DiskUsageBytes int64               `json:"disk_usage_bytes,omitempty"`
	Config         map[string]any      `json:"config,omitempty"`
}

// WriteQueryResult writes a retrieval result to w in the given format.
func WriteQueryResult(w io.Writer, result *models.QueryResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			*models.QueryResult
			Message string `json:"message"`
		}{result, result.Message()})
	}
	switch result.Status {
	case models.StatusFound:
		fmt.Fprintf(w, "\nFound %d fragment(s)\n\n", len(result.Hits))
		for i, h := range result.Hits {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "[%d] Fragment %d | Distance: %.4f\n\n", i+1, h.ID, h.Distance)
			fmt.Fprintf(w, "%s\n\n", h.Text)
		}
	case models.StatusNotFound:
		fmt.Fprintln(w, NoMatchMessage)
	default:
		fmt.Fprintln(w, result.Message())
	}
	return nil
}

// WriteBuildReport writes the outcome of a build to w.
func WriteBuildReport(w io.Writer, report *models.BuildReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	for _, s := range report.Sources {
		switch s.Status {
		case models.SourceIndexed:
			fmt.Fprintf(w, "indexed  %s (%d paragraphs, %d fragments)\n", s.Path, s.Paragraphs, s.Fragments)
		default:
			fmt.Fprintf(w, "skipped  %s: %s\n", s.Path, s.Error)
		}
	}
	if b := report.Build; b != nil {
		fmt.Fprintf(w, "\nBuild %s: %d fragments from %d of %d sources, %d dimensions (%s)\n",
			b.ID, b.Fragments, report.IndexedSources(), len(report.Sources), b.Dimensions, b.Embedder)
	}
	return nil
}

// WriteStatus writes a status report to w.
func WriteStatus(w io.Writer, status *StatusReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	e := status.Engine
	fmt.Fprintf(w, "state:              %s\n", e.State)
	if e.Error != "" {
		fmt.Fprintf(w, "error:              %s\n", e.Error)
	}
	if e.BuildID != "" {
		fmt.Fprintf(w, "build_id:           %s\n", e.BuildID)
		fmt.Fprintf(w, "created_at:         %s\n", e.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "fragments:          %d   # vectors in the loaded index\n", e.Fragments)
	if e.Dimensions > 0 {
		fmt.Fprintf(w, "dimensions:         %d\n", e.Dimensions)
	}
	if e.Embedder != "" {
		fmt.Fprintf(w, "embedder:           %s\n", e.Embedder)
	}
	if e.IndexType != "" {
		fmt.Fprintf(w, "index_type:         %s\n", e.IndexType)
	}
	fmt.Fprintf(w, "builds:             %d   # recorded in the catalog\n", status.Builds)
	if status.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # snapshot + catalog on disk\n", status.DiskUsageBytes)
	}
	if b := status.LatestBuild; b != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# latest build")
		fmt.Fprintf(w, "id:                 %s\n", b.ID)
		fmt.Fprintf(w, "created_at:         %s\n", b.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "fragments:          %d\n", b.Fragments)
		for _, s := range b.Sources {
			if s.Error != "" {
				fmt.Fprintf(w, "  %-8s %s (%s)\n", s.Status, s.Path, utils.Truncate(s.Error, maxErrorLen))
				continue
			}
			fmt.Fprintf(w, "  %-8s %s\n", s.Status, s.Path)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// JoinArgs joins positional arguments into a single query string.
func JoinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
