package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/sitecrawl/internal/atomicfile"
	"github.com/nao1215/sitecrawl/internal/model"
)

// CheckpointFile is the checkpoint's name inside the output directory.
const CheckpointFile = ".crawl_state.json"

// checkpointVersion is bumped when the checkpoint layout changes incompatibly.
const checkpointVersion = 1

// Checkpoint is everything a resumed run needs. The graph edges and the
// document catalog are embedded so that resuming restores the exact
// state the visited set describes.
type Checkpoint struct {
	Version   int                    `json:"version"`
	RunID     string                 `json:"run_id"`
	SeedURL   string                 `json:"seed_url"`
	StartedAt time.Time              `json:"started_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Frontier  []Entry                `json:"frontier"`
	Visited   map[string]model.Visit `json:"visited"`
	Counts    model.RunCounts        `json:"counts"`
	Edges     []model.Edge           `json:"edges"`
	Documents []model.DocumentEntry  `json:"documents"`
}

// Snapshot captures s into a Checkpoint. Edges and Documents are left for
// the caller to fill.
func (s *CrawlState) Snapshot(runID, seedURL string, startedAt time.Time) *Checkpoint {
	return &Checkpoint{
		Version:   checkpointVersion,
		RunID:     runID,
		SeedURL:   seedURL,
		StartedAt: startedAt,
		Frontier:  s.Frontier(),
		Visited:   s.Visited(),
		Counts:    s.Counts(),
	}
}

// Store reads and writes the checkpoint file.
type Store struct {
	path string
}

// NewStore returns a Store for the checkpoint in dir.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, CheckpointFile)}
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes cp atomically. A crash during Save leaves the previous
// checkpoint intact.
func (s *Store) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now().UTC()
	if err := atomicfile.WriteJSON(s.path, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint. It returns ErrNoCheckpoint when none exists.
func (s *Store) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoCheckpoint
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCheckpoint, err)
	}
	if cp.Version != checkpointVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptCheckpoint, cp.Version)
	}
	for url, v := range cp.Visited {
		if !v.Status.IsValid() {
			return nil, fmt.Errorf("%w: invalid status %q for %s", ErrCorruptCheckpoint, v.Status, url)
		}
	}
	if cp.Visited == nil {
		cp.Visited = make(map[string]model.Visit)
	}
	return &cp, nil
}

// Remove deletes the checkpoint. A missing file is not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	return nil
}

// CheckSeed returns ErrCheckpointMismatch unless cp was written for seedURL.
func (cp *Checkpoint) CheckSeed(seedURL string) error {
	if cp.SeedURL != seedURL {
		return fmt.Errorf("%w: checkpoint seed %q, configured seed %q", ErrCheckpointMismatch, cp.SeedURL, seedURL)
	}
	return nil
}
