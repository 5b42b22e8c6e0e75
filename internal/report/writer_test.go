package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/graph"
	"github.com/nao1215/sitecrawl/internal/model"
)

func size(n int64) *int64 { return &n }

// createTestSummary creates a summary with sample data for testing.
func createTestSummary(status model.RunStatus, failures int) *Summary {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)

	meta := model.RunMetadata{
		RunID:      "3f2a",
		BaseURL:    "https://town.gov/",
		StartedAt:  started,
		FinishedAt: &finished,
		Status:     status,
		Config: model.RunConfig{
			SeedURL:                "https://town.gov/",
			MaxDepth:               3,
			DelaySeconds:           1.5,
			SkipNonPrimaryLanguage: true,
			TargetLanguage:         "en",
			UserAgent:              "sitecrawl/test",
			RespectRobots:          true,
			Workers:                1,
			DocumentExtensions:     []string{"pdf", "docx"},
		},
		Counts: model.RunCounts{
			PagesWritten:        12,
			DocumentsCatalogued: 2,
			FilteredOut:         3,
			Failures:            failures,
			Redirects:           1,
			Visited:             16 + failures,
			FrontierRemaining:   4,
			Edges:               40,
		},
	}
	for i := range failures {
		meta.Failures = append(meta.Failures, model.Failure{URL: fmt.Sprintf("https://town.gov/broken/%d", i), Reason: "HTTP 404"})
	}

	docs := []model.DocumentEntry{
		{URL: "https://town.gov/a.pdf", SizeBytes: size(2048)},
		{URL: "https://town.gov/b.pdf", MetadataUnavailable: true},
	}
	stats := graph.Stats{Edges: 40, Sources: 12, Targets: 25, Internal: 30, External: 8, Documents: 2}
	return NewSummary(meta, docs, stats)
}

func TestNewSummary(t *testing.T) {
	t.Parallel()

	s := createTestSummary(model.RunCompleted, 0)
	if s.Documents != (DocumentStats{Total: 2, TotalSizeBytes: 2048, WithoutMetadata: 1}) {
		t.Errorf("unexpected document stats %+v", s.Documents)
	}
	if s.Graph.Edges != 40 || s.Graph.Internal != 30 {
		t.Errorf("unexpected graph stats %+v", s.Graph)
	}
	if d := s.Duration(time.Now()); d != 90*time.Second {
		t.Errorf("expected 90s, got %v", d)
	}

	s.Metadata.FinishedAt = nil
	now := s.Metadata.StartedAt.Add(time.Minute)
	if d := s.Duration(now); d != time.Minute {
		t.Errorf("expected running duration of 1m, got %v", d)
	}
}

// TestSimpleWriter tests the human-readable summary writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(createTestSummary(model.RunCompleted, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}

		output := buf.String()
		for _, want := range []string{"CRAWL SUMMARY", "https://town.gov/", "Completed", "PAGES:      12", "DOCUMENTS:  2 (2.0 KiB)", "REMAINING:  4"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
		if strings.Contains(output, "FAILURES\n") {
			t.Error("expected no failure section without failures")
		}
	})

	t.Run("limits failures unless verbose", func(t *testing.T) {
		t.Parallel()

		var terse, verbose bytes.Buffer
		s := createTestSummary(model.RunCompleted, 8)
		if _, err := NewSimpleWriter(&terse).Write(s); err != nil {
			t.Fatal(err)
		}
		if _, err := NewSimpleWriter(&verbose, WithVerbose(true)).Write(s); err != nil {
			t.Fatal(err)
		}

		if got := strings.Count(terse.String(), "[!]"); got != terseFailures {
			t.Errorf("expected %d failures listed, got %d", terseFailures, got)
		}
		if !strings.Contains(terse.String(), "and 3 more") {
			t.Error("expected remainder note")
		}
		if got := strings.Count(verbose.String(), "[!]"); got != 8 {
			t.Errorf("expected all 8 failures in verbose mode, got %d", got)
		}
	})
}

// TestJSONWriter tests the JSON summary writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output decodes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary(model.RunInterrupted, 1)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact single-line JSON")
		}

		var decoded Summary
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Metadata.Status != model.RunInterrupted || decoded.Documents.Total != 2 || len(decoded.Metadata.Failures) != 1 {
			t.Errorf("unexpected decoded summary %+v", decoded)
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestSummary(model.RunCompleted, 0)); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  \"metadata\"") {
			t.Errorf("expected indented output, got %s", buf.String())
		}
	})

	t.Run("custom indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent("> ", "\t")).Write(createTestSummary(model.RunCompleted, 0)); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n> \t\"metadata\"") {
			t.Errorf("expected prefix and tab indent, got %s", buf.String())
		}
	})
}

// TestMarkdownWriter tests the crawl_report.md writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	render := func(t *testing.T, s *Summary) string {
		t.Helper()
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return buf.String()
	}

	t.Run("sections", func(t *testing.T) {
		t.Parallel()

		output := render(t, createTestSummary(model.RunCompleted, 0))
		for _, want := range []string{
			"# Crawl Report",
			"## Summary",
			"## Site Graph",
			"## Documents",
			"## Configuration",
			"## Failures",
			"`https://town.gov/`",
			"```mermaid",
			"pie",
			"1m30s",
			"1.5s",
			"pdf, docx",
			"No failures.",
			"[!TIP]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	tests := []struct {
		name   string
		status model.RunStatus
		fails  int
		want   string
	}{
		{"interrupted", model.RunInterrupted, 0, "[!WARNING]"},
		{"page limit", model.RunPageLimit, 0, "[!IMPORTANT]"},
		{"running", model.RunRunning, 0, "[!IMPORTANT]"},
		{"failures", model.RunCompleted, 2, "[!NOTE]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if output := render(t, createTestSummary(tt.status, tt.fails)); !strings.Contains(output, tt.want) {
				t.Errorf("expected alert %s in:\n%s", tt.want, output)
			}
		})
	}

	t.Run("caps failure table", func(t *testing.T) {
		t.Parallel()

		output := render(t, createTestSummary(model.RunCompleted, maxFailureRows+7))
		if !strings.Contains(output, "...and 7 more") {
			t.Error("expected remainder line")
		}
		if strings.Contains(output, fmt.Sprintf("/broken/%d ", maxFailureRows)) {
			t.Error("expected rows past the cap to be omitted")
		}
	})

	t.Run("no documents", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary(model.RunCompleted, 0)
		s.Documents = DocumentStats{}
		if output := render(t, s); !strings.Contains(output, "No documents were found.") {
			t.Error("expected empty documents note")
		}
	})
}

func TestStatusLabel(t *testing.T) {
	t.Parallel()

	tests := map[model.RunStatus]string{
		model.RunCompleted:   "Completed",
		model.RunPageLimit:   "Page Limit",
		model.RunInterrupted: "Interrupted",
	}
	for in, want := range tests {
		if got := statusLabel(in); got != want {
			t.Errorf("statusLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := map[int64]string{
		0:                "0 B",
		1023:             "1023 B",
		1024:             "1.0 KiB",
		1536:             "1.5 KiB",
		10 * 1024 * 1024: "10.0 MiB",
		3 << 30:          "3.0 GiB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
