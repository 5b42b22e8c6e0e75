package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/graph"
	"github.com/nao1215/sitecrawl/internal/output"
	"github.com/nao1215/sitecrawl/internal/report"
	"github.com/nao1215/sitecrawl/internal/state"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a crawl without crawling",
		Long: `Status reads the run metadata, the document catalog and the site graph
from an output directory and prints a summary of the last run.

Examples:
  # Summary of ./output
  sitecrawl status

  # Another output directory, as JSON
  sitecrawl status -o archive/town --json`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Output directory of the crawl")
	cmd.Flags().BoolP("json", "j", false,
		"Print the summary as JSON")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	dir, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	summary, err := loadSummary(dir)
	if errors.Is(err, output.ErrNoMetadata) {
		return fmt.Errorf("no crawl found in %s", dir)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).Write(summary)
		return err
	}

	if _, err := report.NewSimpleWriter(out, report.WithVerbose(getVerboseFlag(cmd))).Write(summary); err != nil {
		return err
	}
	return writeCheckpointInfo(out, dir)
}

// loadSummary builds a run summary from the files in an output directory.
// The catalog and the graph are optional; the run metadata is not.
func loadSummary(dir string) (*report.Summary, error) {
	meta, err := output.ReadMetadata(dir)
	if err != nil {
		return nil, err
	}

	var catalog output.Catalog
	if err := readJSON(filepath.Join(dir, output.DocumentsDir, output.CatalogName), &catalog); err != nil {
		return nil, err
	}

	var siteGraph output.SiteGraph
	if err := readJSON(filepath.Join(dir, output.GraphName), &siteGraph); err != nil {
		return nil, err
	}
	g := graph.New()
	g.Restore(siteGraph.Edges)

	return report.NewSummary(*meta, catalog.Documents, g.Stats()), nil
}

// readJSON decodes path into v. A missing file leaves v untouched.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is under the output directory
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// writeCheckpointInfo tells whether the crawl can be resumed.
func writeCheckpointInfo(w io.Writer, dir string) error {
	store := state.NewStore(dir)
	cp, err := store.Load()
	switch {
	case errors.Is(err, state.ErrNoCheckpoint):
		_, err = fmt.Fprintln(w, "No checkpoint: the next crawl starts a new run.")
		return err
	case err != nil:
		_, err = fmt.Fprintf(w, "Checkpoint unreadable: %v\n", err)
		return err
	}

	if len(cp.Frontier) == 0 {
		_, err = fmt.Fprintf(w, "Checkpoint %s: nothing left to crawl.\n", store.Path())
		return err
	}
	_, err = fmt.Fprintf(w, "Checkpoint %s: %d URLs left, saved %s. Run crawl again to resume.\n",
		store.Path(), len(cp.Frontier), cp.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	return err
}
