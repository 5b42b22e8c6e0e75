package model

import "time"

// RunStatus describes how a crawl run ended, or that it is still running.
type RunStatus string

const (
	// RunRunning is written at checkpoints while the crawl is in progress.
	RunRunning RunStatus = "running"

	// RunCompleted means the frontier was exhausted.
	RunCompleted RunStatus = "completed"

	// RunInterrupted means a shutdown signal stopped the crawl.
	RunInterrupted RunStatus = "interrupted"

	// RunPageLimit means the configured page limit was reached.
	RunPageLimit RunStatus = "page_limit"
)

// RunMetadata is the run-level summary written next to the crawl output.
type RunMetadata struct {
	// RunID identifies the run. It survives resumes.
	RunID string `json:"run_id"`

	// BaseURL is the seed URL.
	BaseURL string `json:"base_url"`

	// StartedAt is when the run first started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is set once the run stops.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// LastCheckpointAt is when crawl state was last checkpointed.
	LastCheckpointAt *time.Time `json:"last_checkpoint_at,omitempty"`

	// Status is the run status.
	Status RunStatus `json:"status"`

	// Config is the effective configuration.
	Config RunConfig `json:"config"`

	// Counts are the run counters.
	Counts RunCounts `json:"counts"`

	// Failures lists failed URLs with their reasons.
	Failures []Failure `json:"failures,omitempty"`
}

// RunConfig is the configuration recorded with a run.
type RunConfig struct {
	SeedURL                string   `json:"seed_url"`
	MaxDepth               int      `json:"max_depth"`
	DelaySeconds           float64  `json:"delay_seconds"`
	SkipNonPrimaryLanguage bool     `json:"skip_non_primary_language"`
	TargetLanguage         string   `json:"target_language"`
	UserAgent              string   `json:"user_agent"`
	OutputDir              string   `json:"output_dir"`
	CheckpointInterval     int      `json:"checkpoint_interval"`
	TimeoutSeconds         float64  `json:"timeout_seconds"`
	MaxRetries             int      `json:"max_retries"`
	MaxRedirects           int      `json:"max_redirects"`
	MaxPages               int      `json:"max_pages"`
	Workers                int      `json:"workers"`
	RespectRobots          bool     `json:"respect_robots"`
	DocumentExtensions     []string `json:"document_extensions"`
}

// RunCounts are the counters reported in run metadata.
type RunCounts struct {
	PagesWritten        int `json:"pages_written"`
	DocumentsCatalogued int `json:"documents_catalogued"`
	FilteredOut         int `json:"filtered_out"`
	Failures            int `json:"failures"`
	Redirects           int `json:"redirects"`
	Visited             int `json:"visited"`
	FrontierRemaining   int `json:"frontier_remaining"`
	Edges               int `json:"edges"`
}

// Failure is one failed URL.
type Failure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}
