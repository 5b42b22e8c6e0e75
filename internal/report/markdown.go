package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitecrawl/internal/model"
)

// maxFailureRows bounds the failure table; the full list is in site_metadata.json.
const maxFailureRows = 50

const timeLayout = "2006-01-02 15:04:05 MST"

// MarkdownWriter outputs summaries in Markdown format. It renders
// crawl_report.md.
type MarkdownWriter struct {
	baseWriter

	// now is used for the duration of a run that has not finished.
	now func() time.Time
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		now:        time.Now,
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeCounts(md, s)
	w.writeGraph(md, s)
	w.writeDocuments(md, s)
	w.writeConfig(md, s)
	w.writeFailures(md, s)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run identity table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	meta := s.Metadata

	md.H1("Crawl Report")
	md.PlainText("")

	finished := "-"
	if meta.FinishedAt != nil {
		finished = meta.FinishedAt.Format(timeLayout)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + meta.BaseURL + "`"},
			{"Run ID", "`" + meta.RunID + "`"},
			{"Started", meta.StartedAt.Format(timeLayout)},
			{"Finished", finished},
			{"Duration", s.Duration(w.now()).String()},
			{"Status", statusLabel(meta.Status)},
		},
	})
	md.PlainText("")
}

// writeCounts writes URL outcome counts, a pie chart and a status alert.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, s *Summary) {
	c := s.Metadata.Counts

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Pages written", strconv.Itoa(c.PagesWritten)},
			{"Documents catalogued", strconv.Itoa(c.DocumentsCatalogued)},
			{"Filtered out (language)", strconv.Itoa(c.FilteredOut)},
			{"Redirects", strconv.Itoa(c.Redirects)},
			{"Failures", strconv.Itoa(c.Failures)},
			{"**Visited**", "**" + strconv.Itoa(c.Visited) + "**"},
			{"Frontier remaining", strconv.Itoa(c.FrontierRemaining)},
		},
	})
	md.PlainText("")

	if c.Visited > 0 {
		w.writePieChart(md, c)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of URL outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, c model.RunCounts) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("URL Outcomes"),
		piechart.WithShowData(true),
	)

	outcomes := []struct {
		label string
		n     int
	}{
		{"Pages", c.PagesWritten},
		{"Filtered", c.FilteredOut},
		{"Redirects", c.Redirects},
		{"Failures", c.Failures},
	}
	for _, o := range outcomes {
		if o.n > 0 {
			chart.LabelAndIntValue(o.label, uint64(o.n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary) {
	c := s.Metadata.Counts

	switch s.Metadata.Status {
	case model.RunInterrupted:
		md.Warningf(
			"The crawl was interrupted with %d URL(s) left in the frontier. Run the same command again to resume.",
			c.FrontierRemaining,
		)
	case model.RunRunning:
		md.Importantf("The crawl is still running. Counts are as of the last checkpoint.")
	case model.RunPageLimit:
		md.Importantf("The crawl stopped at the page limit with %d URL(s) left in the frontier.", c.FrontierRemaining)
	default:
		if c.Failures > 0 {
			md.Note(strconv.Itoa(c.Failures) + " URL(s) failed. They are listed below and will not be retried on resume.")
		} else {
			md.Tip("The crawl completed without failures.")
		}
	}
	md.PlainText("")
}

// writeGraph writes site graph statistics.
func (w *MarkdownWriter) writeGraph(md *markdown.Markdown, s *Summary) {
	g := s.Graph

	md.H2("Site Graph")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Edges", strconv.Itoa(g.Edges)},
			{"Linking pages", strconv.Itoa(g.Sources)},
			{"Distinct targets", strconv.Itoa(g.Targets)},
			{"Internal links", strconv.Itoa(g.Internal)},
			{"External links", strconv.Itoa(g.External)},
			{"Document links", strconv.Itoa(g.Documents)},
		},
	})
	md.PlainText("")
}

// writeDocuments writes document catalog statistics.
func (w *MarkdownWriter) writeDocuments(md *markdown.Markdown, s *Summary) {
	d := s.Documents

	md.H2("Documents")
	md.PlainText("")
	if d.Total == 0 {
		md.PlainText("No documents were found.")
		md.PlainText("")
		return
	}
	md.BulletList(
		"Catalogued: "+strconv.Itoa(d.Total),
		"Known total size: "+formatBytes(d.TotalSizeBytes),
		"Without metadata: "+strconv.Itoa(d.WithoutMetadata),
	)
	md.PlainText("")
}

// writeConfig writes the effective crawl configuration.
func (w *MarkdownWriter) writeConfig(md *markdown.Markdown, s *Summary) {
	cfg := s.Metadata.Config

	md.H2("Configuration")
	md.PlainText("")
	maxPages := "unlimited"
	if cfg.MaxPages > 0 {
		maxPages = strconv.Itoa(cfg.MaxPages)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Setting", "Value"},
		Rows: [][]string{
			{"Max depth", strconv.Itoa(cfg.MaxDepth)},
			{"Delay", strconv.FormatFloat(cfg.DelaySeconds, 'f', -1, 64) + "s"},
			{"Language filter", strconv.FormatBool(cfg.SkipNonPrimaryLanguage)},
			{"Target language", cfg.TargetLanguage},
			{"User agent", "`" + cfg.UserAgent + "`"},
			{"Respect robots.txt", strconv.FormatBool(cfg.RespectRobots)},
			{"Workers", strconv.Itoa(cfg.Workers)},
			{"Max pages", maxPages},
			{"Document extensions", strings.Join(cfg.DocumentExtensions, ", ")},
		},
	})
	md.PlainText("")
}

// writeFailures writes the failed URLs with their reasons.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *Summary) {
	failures := s.Metadata.Failures

	md.H2("Failures")
	md.PlainText("")
	if len(failures) == 0 {
		md.PlainText("No failures.")
		md.PlainText("")
		return
	}

	shown := failures
	if len(shown) > maxFailureRows {
		shown = shown[:maxFailureRows]
	}
	rows := make([][]string, len(shown))
	for i, f := range shown {
		rows[i] = []string{truncateString(f.URL, 80), truncateString(f.Reason, 60)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")

	if rest := len(failures) - len(shown); rest > 0 {
		md.PlainTextf("...and %d more. See site_metadata.json for the full list.", rest)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitecrawl](https://github.com/nao1215/sitecrawl)*")
}
