package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".sitecrawl.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
//
// Site keys are host names and are lowercased, so "Town.GOV" and
// "town.gov" select the same block.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	sites := make(map[string]SiteConfig, len(cf.Sites))
	for host, sc := range cf.Sites {
		sites[strings.ToLower(strings.TrimSpace(host))] = sc
	}
	cf.Sites = sites

	return &cf, nil
}

// FindConfigFile returns the configuration file to load, or "" if there is none.
// An explicit configPath is used only if it exists. Otherwise the first existing
// file of ./.sitecrawl.yaml, $XDG_CONFIG_HOME/sitecrawl/config.yaml and
// ~/.sitecrawl.yaml wins.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	for _, candidate := range configCandidates() {
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func configCandidates() []string {
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	return candidates
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
