package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// SimpleWriter outputs human-readable text summaries for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose lists every failure instead of the first few.
	verbose bool

	// now is used for the duration of a run that has not finished.
	now func() time.Time
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// terseFailures is how many failures are listed without verbose.
const terseFailures = 5

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(s *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, s)
	w.writeCounts(&sb, s)
	w.writeFailures(&sb, s)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run identity.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	meta := s.Metadata

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                           CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Site:      %s\n", meta.BaseURL)
	fmt.Fprintf(sb, "Run ID:    %s\n", meta.RunID)
	fmt.Fprintf(sb, "Started:   %s\n", meta.StartedAt.Format(timeLayout))
	if meta.LastCheckpointAt != nil {
		fmt.Fprintf(sb, "Checkpoint: %s\n", meta.LastCheckpointAt.Format(timeLayout))
	}
	fmt.Fprintf(sb, "Duration:  %s\n", s.Duration(w.now()))
	fmt.Fprintf(sb, "Status:    %s\n", statusLabel(meta.Status))
	sb.WriteString("\n")
}

// writeCounts writes the outcome counters.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, s *Summary) {
	c := s.Metadata.Counts

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("COUNTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  PAGES:      %d\n", c.PagesWritten)
	fmt.Fprintf(sb, "  DOCUMENTS:  %d (%s)\n", s.Documents.Total, formatBytes(s.Documents.TotalSizeBytes))
	fmt.Fprintf(sb, "  FILTERED:   %d\n", c.FilteredOut)
	fmt.Fprintf(sb, "  REDIRECTS:  %d\n", c.Redirects)
	fmt.Fprintf(sb, "  FAILURES:   %d\n", c.Failures)
	fmt.Fprintf(sb, "  EDGES:      %d\n", s.Graph.Edges)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  VISITED:    %d\n", c.Visited)
	fmt.Fprintf(sb, "  REMAINING:  %d\n", c.FrontierRemaining)
	sb.WriteString("\n")
}

// writeFailures lists failed URLs.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, s *Summary) {
	failures := s.Metadata.Failures
	if len(failures) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	shown := failures
	if !w.verbose && len(shown) > terseFailures {
		shown = shown[:terseFailures]
	}
	for _, f := range shown {
		fmt.Fprintf(sb, "  [!] %s\n      %s\n", f.URL, f.Reason)
	}
	if rest := len(failures) - len(shown); rest > 0 {
		fmt.Fprintf(sb, "  ... and %d more (use --verbose)\n", rest)
	}
	sb.WriteString("\n")
}

// writeFooter writes the summary footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
