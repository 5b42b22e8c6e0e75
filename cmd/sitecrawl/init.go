package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
)

//go:embed templates/sitecrawl.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented crawl configuration template",
		Long: `init writes a .sitecrawl.yaml template. The seed URL is not part of
the file; pass it to "sitecrawl crawl" or set SITECRAWL_SEED.

The template has two sections:

  defaults  applied to every site: depth, delay, language filter
            (skipNonPrimaryLanguage, targetLanguage), respectRobots,
            documentExtensions and userAgent
  sites     per-host overrides keyed by host ("www." optional): cookie,
            headers, depth, delay, ignorePatterns, followPatterns and
            dropSelectors

The file may hold session cookies, so it is created readable by its owner only.

Examples:
  # Create .sitecrawl.yaml in current directory
  sitecrawl init

  # Create config file at a specific path
  sitecrawl init -o myconfig.yaml

  # Force overwrite existing file
  sitecrawl init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/sitecrawl.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Site blocks may hold cookies, so the file is private.
	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nAdjust the defaults block, add a sites block for hosts that need")
	fmt.Fprintln(out, "cookies, headers or URL patterns, then run:")
	fmt.Fprintf(out, "  sitecrawl crawl --config %s <seed-url>\n", outputPath)

	return nil
}
