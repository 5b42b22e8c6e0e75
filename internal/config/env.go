package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "SITECRAWL_"

// LoadEnv loads envFile (usually ".env") into the process environment and then
// applies SITECRAWL_* variables to c. A missing env file is not an error.
// Variables already present in the environment win over the file.
func LoadEnv(c *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return ApplyEnv(c, os.LookupEnv)
}

// ApplyEnv overlays SITECRAWL_* variables found through lookup onto c.
func ApplyEnv(c *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("SEED", &c.SeedURL)
	str("USER_AGENT", &c.UserAgent)
	str("OUTPUT_DIR", &c.OutputDir)
	str("TARGET_LANGUAGE", &c.TargetLanguage)
	str("COOKIE", &c.Cookie)

	ints := []struct {
		name string
		dst  *int
	}{
		{"MAX_DEPTH", &c.MaxDepth},
		{"CHECKPOINT_INTERVAL", &c.CheckpointInterval},
		{"MAX_PAGES", &c.MaxPages},
		{"WORKERS", &c.Workers},
	}
	for _, e := range ints {
		v, ok := lookup(EnvPrefix + e.name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalidEnv, EnvPrefix, e.name, v)
		}
		*e.dst = n
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"DELAY", &c.Delay},
		{"TIMEOUT", &c.Timeout},
	}
	for _, e := range durations {
		v, ok := lookup(EnvPrefix + e.name)
		if !ok || v == "" {
			continue
		}
		d, err := parseDelay(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalidEnv, EnvPrefix, e.name, v)
		}
		*e.dst = d
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"SKIP_NON_PRIMARY_LANGUAGE", &c.SkipNonPrimaryLanguage},
		{"RESPECT_ROBOTS", &c.RespectRobots},
		{"INDEX_DB", &c.IndexDB},
	}
	for _, e := range bools {
		v, ok := lookup(EnvPrefix + e.name)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalidEnv, EnvPrefix, e.name, v)
		}
		*e.dst = b
	}

	return nil
}

// parseDelay accepts either a Go duration ("1.5s") or plain seconds ("1.5").
func parseDelay(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}
