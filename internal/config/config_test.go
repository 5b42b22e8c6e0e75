package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Changing a default makes this test fail, so changes to defaults stay intentional.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default MaxDepth is 3", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxDepth != 3 {
			t.Errorf("expected MaxDepth to be 3, got %d", cfg.MaxDepth)
		}
	})

	t.Run("default Delay is 1 second", func(t *testing.T) {
		t.Parallel()
		if cfg.Delay != time.Second {
			t.Errorf("expected Delay to be 1s, got %v", cfg.Delay)
		}
	})

	t.Run("language filter is enabled for English", func(t *testing.T) {
		t.Parallel()
		if !cfg.SkipNonPrimaryLanguage {
			t.Error("expected SkipNonPrimaryLanguage to be true")
		}
		if cfg.TargetLanguage != "en" {
			t.Errorf("expected TargetLanguage to be 'en', got %q", cfg.TargetLanguage)
		}
	})

	t.Run("default CheckpointInterval is 10", func(t *testing.T) {
		t.Parallel()
		if cfg.CheckpointInterval != 10 {
			t.Errorf("expected CheckpointInterval to be 10, got %d", cfg.CheckpointInterval)
		}
	})

	t.Run("fetch defaults", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 15*time.Second {
			t.Errorf("expected Timeout to be 15s, got %v", cfg.Timeout)
		}
		if cfg.MaxRetries != 3 {
			t.Errorf("expected MaxRetries to be 3, got %d", cfg.MaxRetries)
		}
		if cfg.RetryBaseDelay != time.Second {
			t.Errorf("expected RetryBaseDelay to be 1s, got %v", cfg.RetryBaseDelay)
		}
		if cfg.MaxRedirects != 5 {
			t.Errorf("expected MaxRedirects to be 5, got %d", cfg.MaxRedirects)
		}
	})

	t.Run("default document extensions", func(t *testing.T) {
		t.Parallel()
		want := []string{"pdf", "doc", "docx", "xls", "xlsx"}
		if len(cfg.DocumentExtensions) != len(want) {
			t.Fatalf("expected %d extensions, got %d", len(want), len(cfg.DocumentExtensions))
		}
		for i, ext := range want {
			if cfg.DocumentExtensions[i] != ext {
				t.Errorf("extension %d: expected %q, got %q", i, ext, cfg.DocumentExtensions[i])
			}
		}
	})

	t.Run("default workers is 1 and robots are respected", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != 1 {
			t.Errorf("expected Workers to be 1, got %d", cfg.Workers)
		}
		if !cfg.RespectRobots {
			t.Error("expected RespectRobots to be true")
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.SeedURL = "https://town.gov/"
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"missing seed", func(c *Config) { c.SeedURL = "" }, ErrNoSeed},
		{"relative seed", func(c *Config) { c.SeedURL = "/about" }, ErrInvalidSeed},
		{"ftp seed", func(c *Config) { c.SeedURL = "ftp://town.gov/" }, ErrInvalidSeed},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }, ErrInvalidMaxDepth},
		{"negative delay", func(c *Config) { c.Delay = -time.Second }, ErrInvalidDelay},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"zero checkpoint interval", func(c *Config) { c.CheckpointInterval = 0 }, ErrInvalidCheckpointInterval},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, ErrInvalidMaxRetries},
		{"negative retry delay", func(c *Config) { c.RetryBaseDelay = -1 }, ErrInvalidRetryBaseDelay},
		{"negative redirects", func(c *Config) { c.MaxRedirects = -1 }, ErrInvalidMaxRedirects},
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"negative max pages", func(c *Config) { c.MaxPages = -1 }, ErrInvalidMaxPages},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, ErrNoOutputDir},
		{"bad language", func(c *Config) { c.TargetLanguage = "not a tag!" }, ErrInvalidTargetLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("zero depth and zero delay are valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MaxDepth = 0
		cfg.Delay = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})
}

func TestConfigHelpers(t *testing.T) {
	t.Parallel()

	t.Run("EffectiveMaxBodySize falls back to default", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{}
		if got := cfg.EffectiveMaxBodySize(); got != DefaultMaxBodySize {
			t.Errorf("expected %d, got %d", DefaultMaxBodySize, got)
		}
		cfg.MaxBodySize = 42
		if got := cfg.EffectiveMaxBodySize(); got != 42 {
			t.Errorf("expected 42, got %d", got)
		}
	})

	t.Run("RequestHeaders folds in cookie", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{Headers: map[string]string{"X-Test": "1"}, Cookie: "a=b"}
		headers := cfg.RequestHeaders()
		if headers["X-Test"] != "1" || headers["Cookie"] != "a=b" {
			t.Errorf("unexpected headers: %v", headers)
		}
		if _, ok := cfg.Headers["Cookie"]; ok {
			t.Error("RequestHeaders must not mutate Config.Headers")
		}
	})

	t.Run("SeedHost lowercases", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{SeedURL: "https://Town.GOV:8443/x"}
		if got := cfg.SeedHost(); got != "town.gov" {
			t.Errorf("expected town.gov, got %q", got)
		}
	})

	t.Run("ApplySite overlays set fields only", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		depth := 0
		delay := 250 * time.Millisecond
		skip := false
		cfg.ApplySite(SiteConfig{
			Depth:                  &depth,
			Delay:                  &delay,
			SkipNonPrimaryLanguage: &skip,
			IgnorePatterns:         []string{"/calendar/*"},
			DropSelectors:          []string{".alert"},
		})
		if cfg.MaxDepth != 0 {
			t.Errorf("expected MaxDepth 0, got %d", cfg.MaxDepth)
		}
		if cfg.Delay != delay {
			t.Errorf("expected Delay %v, got %v", delay, cfg.Delay)
		}
		if cfg.SkipNonPrimaryLanguage {
			t.Error("expected language filter to be disabled")
		}
		if cfg.UserAgent != DefaultUserAgent {
			t.Errorf("expected UserAgent to be unchanged, got %q", cfg.UserAgent)
		}
		if len(cfg.IgnorePatterns) != 1 || len(cfg.DropSelectors) != 1 {
			t.Errorf("expected patterns and selectors to be applied: %v %v", cfg.IgnorePatterns, cfg.DropSelectors)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("parses defaults and sites", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `defaults:
  depth: 2
  delay: 500ms
  headers:
    Accept-Language: en
sites:
  town.gov:
    depth: 1
    cookie: "session=abc"
    ignorePatterns:
      - "/calendar/*"
    headers:
      X-Archive: "yes"
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		sc := cf.GetSiteConfig("www.town.gov")
		if sc.Depth == nil || *sc.Depth != 1 {
			t.Errorf("expected site depth 1, got %v", sc.Depth)
		}
		if sc.Delay == nil || *sc.Delay != 500*time.Millisecond {
			t.Errorf("expected default delay 500ms, got %v", sc.Delay)
		}
		if sc.Cookie != "session=abc" {
			t.Errorf("expected cookie, got %q", sc.Cookie)
		}
		if sc.Headers["Accept-Language"] != "en" || sc.Headers["X-Archive"] != "yes" {
			t.Errorf("expected merged headers, got %v", sc.Headers)
		}
		if cf.Defaults.Headers["X-Archive"] != "" {
			t.Error("merging must not mutate the defaults block")
		}

		other := cf.GetSiteConfig("example.org")
		if other.Depth == nil || *other.Depth != 2 {
			t.Errorf("expected default depth 2 for unknown site, got %v", other.Depth)
		}
	})

	t.Run("site keys are case-insensitive", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "sites:\n  Town.GOV:\n    depth: 4\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sc := cf.GetSiteConfig("town.gov")
		if sc.Depth == nil || *sc.Depth != 4 {
			t.Errorf("expected site depth 4, got %v", sc.Depth)
		}
	})

	t.Run("invalid yaml returns error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("sites: [unclosed"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for invalid yaml")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path that exists", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "explicit.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit path that does not exist", func(t *testing.T) {
		t.Parallel()
		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})

	t.Run("explicit path that is a directory", func(t *testing.T) {
		t.Parallel()
		if got := FindConfigFile(t.TempDir()); got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	lookupFrom := func(env map[string]string) func(string) (string, bool) {
		return func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		}
	}

	t.Run("overrides typed fields", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		err := ApplyEnv(cfg, lookupFrom(map[string]string{
			"SITECRAWL_SEED":                      "https://town.gov/",
			"SITECRAWL_MAX_DEPTH":                 "5",
			"SITECRAWL_DELAY":                     "0.5",
			"SITECRAWL_TIMEOUT":                   "30s",
			"SITECRAWL_SKIP_NON_PRIMARY_LANGUAGE": "false",
			"SITECRAWL_USER_AGENT":                "test-agent",
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SeedURL != "https://town.gov/" || cfg.MaxDepth != 5 || cfg.UserAgent != "test-agent" {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if cfg.Delay != 500*time.Millisecond {
			t.Errorf("expected 500ms delay, got %v", cfg.Delay)
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected 30s timeout, got %v", cfg.Timeout)
		}
		if cfg.SkipNonPrimaryLanguage {
			t.Error("expected language filter to be disabled")
		}
	})

	t.Run("invalid integer", func(t *testing.T) {
		t.Parallel()
		err := ApplyEnv(NewConfig(), lookupFrom(map[string]string{"SITECRAWL_MAX_DEPTH": "deep"}))
		if !errors.Is(err, ErrInvalidEnv) {
			t.Errorf("expected ErrInvalidEnv, got %v", err)
		}
	})

	t.Run("invalid bool", func(t *testing.T) {
		t.Parallel()
		err := ApplyEnv(NewConfig(), lookupFrom(map[string]string{"SITECRAWL_INDEX_DB": "maybe"}))
		if !errors.Is(err, ErrInvalidEnv) {
			t.Errorf("expected ErrInvalidEnv, got %v", err)
		}
	})
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("SITECRAWL_OUTPUT_DIR=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SITECRAWL_OUTPUT_DIR", "")
	os.Unsetenv("SITECRAWL_OUTPUT_DIR") //nolint:errcheck // restored by t.Setenv cleanup

	cfg := NewConfig()
	if err := LoadEnv(cfg, envFile); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OutputDir != "from-dotenv" {
		t.Errorf("expected output dir from .env, got %q", cfg.OutputDir)
	}

	if err := LoadEnv(NewConfig(), filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}
}
