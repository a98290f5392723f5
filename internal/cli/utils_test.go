package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kbase/internal/models"
	"github.com/hyperjump/kbase/internal/search"
)

func foundResult() *models.QueryResult {
	return &models.QueryResult{
		Status:  models.StatusFound,
		Context: "first" + models.ContextDelimiter + "second",
		Hits: []*models.Hit{
			{ID: 4, Distance: 0.25, Text: "first"},
			{ID: 1, Distance: 0.5, Text: "second"},
		},
	}
}

func TestWriteQueryResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryResult(&buf, foundResult(), OutputJSON); err != nil {
		t.Fatalf("WriteQueryResult(json): %v", err)
	}
	var decoded struct {
		Status  models.Status `json:"status"`
		Context string        `json:"context"`
		Message string        `json:"message"`
		Hits    []*models.Hit `json:"hits"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Status != models.StatusFound || decoded.Message != decoded.Context {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.Hits) != 2 || decoded.Hits[0].ID != 4 {
		t.Errorf("hits = %+v", decoded.Hits)
	}
}

func TestWriteQueryResult_JSONUnavailable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryResult(&buf, &models.QueryResult{Status: models.StatusUnavailable}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"status": "unavailable"`) || !strings.Contains(buf.String(), models.UnavailableMessage) {
		t.Errorf("output = %s", buf.String())
	}
}

func TestWriteQueryResult_text(t *testing.T) {
	tests := []struct {
		name   string
		result *models.QueryResult
		want   []string
	}{
		{"found", foundResult(), []string{"Found 2 fragment(s)", "[1] Fragment 4 | Distance: 0.2500", "[2] Fragment 1", "second"}},
		{"not found", &models.QueryResult{Status: models.StatusNotFound}, []string{NoMatchMessage}},
		{"empty", &models.QueryResult{Status: models.StatusEmpty}, []string{models.EmptyIndexMessage}},
		{"unavailable", &models.QueryResult{Status: models.StatusUnavailable}, []string{models.UnavailableMessage}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteQueryResult(&buf, tt.result, OutputText); err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestWriteBuildReport(t *testing.T) {
	report := &models.BuildReport{
		Sources: []*models.SourceReport{
			{Path: "/docs/faq.md", Status: models.SourceIndexed, Paragraphs: 4, Fragments: 6},
			{Path: "/docs/gone.md", Status: models.SourceSkipped, Error: "no such file"},
		},
		Build: &models.BuildRecord{ID: "b-1", Fragments: 6, Dimensions: 384, Embedder: "hash-384"},
	}

	var buf bytes.Buffer
	if err := WriteBuildReport(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"indexed  /docs/faq.md (4 paragraphs, 6 fragments)",
		"skipped  /docs/gone.md: no such file",
		"Build b-1: 6 fragments from 1 of 2 sources, 384 dimensions (hash-384)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteBuildReport(&buf, report, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.BuildReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Build == nil || decoded.Build.ID != "b-1" || len(decoded.Sources) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteStatus(t *testing.T) {
	created := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	status := &StatusReport{
		Engine: search.Stats{State: "ready", BuildID: "b-1", CreatedAt: created, Fragments: 12, Dimensions: 384, Embedder: "hash-384", IndexType: "memory"},
		Builds: 3,
		LatestBuild: &models.BuildRecord{ID: "b-1", CreatedAt: created, Fragments: 12,
			Sources: []*models.SourceReport{
				{Path: "/docs/faq.md", Status: models.SourceIndexed},
				{Path: "/docs/scan.pdf", Status: models.SourceSkipped, Error: strings.Repeat("x", 100)},
			}},
		DiskUsageBytes: 2048,
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"state:              ready", "fragments:          12", "builds:             3", "2026-05-06T07:08:09Z", "indexed  /docs/faq.md", "skipped  /docs/scan.pdf (" + strings.Repeat("x", maxErrorLen) + "...)", "disk_usage_bytes:   2048"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	failed := &StatusReport{Engine: search.Stats{State: "failed", Error: "knowledge base unavailable"}}
	buf.Reset()
	_ = WriteStatus(&buf, failed, OutputText)
	if !strings.Contains(buf.String(), "error:              knowledge base unavailable") || strings.Contains(buf.String(), "# latest build") {
		t.Errorf("failed output:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteStatus(&buf, status, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded StatusReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Engine.Fragments != 12 || decoded.Builds != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, s := range []string{"text", "json"} {
		if f, err := ParseOutputFormat(s); err != nil || string(f) != s {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", s, f, err)
		}
	}
	if _, err := ParseOutputFormat("compact"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestJoinArgs(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"opening"}, "opening"},
		{[]string{"opening", "hours"}, "opening hours"},
		{[]string{"opening hours"}, "opening hours"},
		{[]string{}, ""},
		{[]string{"  ", " "}, ""},
	}
	for _, tt := range tests {
		if got := JoinArgs(tt.args); got != tt.want {
			t.Errorf("JoinArgs(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}
