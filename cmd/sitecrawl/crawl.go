package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/log"
	"github.com/nao1215/sitecrawl/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url]",
		Short: "Crawl a website, resuming from the last checkpoint",
		Long: `Crawl fetches every page reachable from the seed URL on the same site,
up to the configured depth, and writes the results to the output directory:

  pages/<hash>.json        one file per page in the target language
  documents/catalog.json   linked documents with size and content type
  site_graph.json          every link found, as from/to edges
  site_metadata.json       run status, configuration and counters
  crawl_report.md          human-readable run summary

If the output directory holds a checkpoint for the same seed, the crawl
resumes from it. Press Ctrl+C to stop: in-flight requests finish and the
state is checkpointed before exiting.

Examples:
  # Crawl a site with the defaults
  sitecrawl crawl https://www.town.gov/

  # Two levels deep, half a second between requests
  sitecrawl crawl -d 2 --delay 500ms https://www.town.gov/

  # Keep pages in every language and build a SQLite index
  sitecrawl crawl --skip-non-primary-language=false --index https://www.town.gov/

  # Discard the previous run and start over
  sitecrawl crawl --fresh https://www.town.gov/

The seed can also be set with SITECRAWL_SEED in the environment or .env.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Output directory for pages, catalogs and the checkpoint")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seed (0 fetches only the seed)")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Minimum time between two requests to the same host")
	cmd.Flags().Bool("skip-non-primary-language", true,
		"Do not persist pages outside the target language")
	cmd.Flags().StringP("language", "l", config.DefaultTargetLanguage,
		"Target language (BCP 47 tag)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int("checkpoint-interval", config.DefaultCheckpointInterval,
		"Number of fetched URLs between checkpoints")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().Int("max-retries", config.DefaultMaxRetries,
		"Retries for timeouts, connection errors, 429 and 5xx")
	cmd.Flags().Int("max-redirects", config.DefaultMaxRedirects,
		"Maximum redirects followed per request")
	cmd.Flags().IntP("max-pages", "p", 0,
		"Stop after writing this many pages (0 for no limit)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent workers; never more than one request per host at a time")
	cmd.Flags().Bool("respect-robots", true,
		"Honor robots.txt")
	cmd.Flags().Bool("index", false,
		"Also write a SQLite index (index.db) to the output directory")
	cmd.Flags().Bool("fresh", false,
		"Discard an existing checkpoint and start a new run")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitecrawl.yaml in current or home directory)")
	cmd.Flags().String("env-file", ".env",
		"Environment file loaded before SITECRAWL_* variables are read")
	cmd.Flags().Bool("json-log", false,
		"Write logs as JSON")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	jsonLog, err := cmd.Flags().GetBool("json-log")
	if err != nil {
		return err
	}
	logger := log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose, jsonLog)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, finishing in-flight requests...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cmd, cfg, logger)
}

// runCrawl runs the engine and prints the run summary.
func runCrawl(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	engine, err := crawler.New(cfg, crawler.WithLogger(logger))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Crawling %s into %s...\n\n", engine.Seed(), cfg.OutputDir)

	if _, err := engine.Run(ctx); err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	summary, err := loadSummary(cfg.OutputDir)
	if err != nil {
		return err
	}
	_, err = report.NewSimpleWriter(cmd.OutOrStdout(), report.WithVerbose(cfg.Verbose)).Write(summary)
	return err
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig assembles the crawl configuration. Later sources win:
// defaults, the config file, the environment, then flags and the seed
// argument.
//
// The config file is keyed by host, so the seed has to be known first.
// It comes from the argument or, failing that, from the environment.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// First pass: the environment, only to learn the seed.
	seedCfg := config.NewConfig()
	if err := config.LoadEnv(seedCfg, envFile); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		seedCfg.SeedURL = args[0]
	}

	file, err := loadConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := config.NewConfig()
	cfg.SeedURL = seedCfg.SeedURL
	cfg.ConfigFilePath = configPath
	cfg.ApplySite(file.GetSiteConfig(seedCfg.SeedHost()))
	if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.SeedURL = args[0]
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// loadConfigFile loads the config file. A missing file is only an error
// when its path was given explicitly.
func loadConfigFile(path string) (*config.File, error) {
	found := config.FindConfigFile(path)
	if found == "" {
		if path != "" {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	file, err := config.LoadConfigFile(found)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && path == "" {
			return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
		}
		return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
	}
	return file, nil
}

// applyFlags copies the flags the user set explicitly onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	strs := []struct {
		name string
		dst  *string
	}{
		{"output", &cfg.OutputDir},
		{"language", &cfg.TargetLanguage},
		{"user-agent", &cfg.UserAgent},
	}
	for _, f := range strs {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetString(f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"depth", &cfg.MaxDepth},
		{"checkpoint-interval", &cfg.CheckpointInterval},
		{"max-retries", &cfg.MaxRetries},
		{"max-redirects", &cfg.MaxRedirects},
		{"max-pages", &cfg.MaxPages},
		{"workers", &cfg.Workers},
	}
	for _, f := range ints {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetInt(f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"delay", &cfg.Delay},
		{"timeout", &cfg.Timeout},
	}
	for _, f := range durations {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetDuration(f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"skip-non-primary-language", &cfg.SkipNonPrimaryLanguage},
		{"respect-robots", &cfg.RespectRobots},
		{"index", &cfg.IndexDB},
		{"fresh", &cfg.Fresh},
	}
	for _, f := range bools {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetBool(f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	return nil
}
