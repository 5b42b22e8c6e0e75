package report

import (
	"time"

	"github.com/nao1215/sitecrawl/internal/graph"
	"github.com/nao1215/sitecrawl/internal/model"
)

// Summary is everything a run report shows.
type Summary struct {
	// Metadata is the run metadata as written to site_metadata.json.
	Metadata model.RunMetadata `json:"metadata"`

	// Documents summarizes the document catalog.
	Documents DocumentStats `json:"documents"`

	// Graph summarizes the site graph.
	Graph GraphStats `json:"graph"`
}

// DocumentStats summarizes the document catalog.
type DocumentStats struct {
	Total           int   `json:"total"`
	TotalSizeBytes  int64 `json:"total_size_bytes"`
	WithoutMetadata int   `json:"without_metadata"`
}

// GraphStats summarizes the site graph.
type GraphStats struct {
	Edges     int `json:"edges"`
	Sources   int `json:"sources"`
	Targets   int `json:"targets"`
	Internal  int `json:"internal"`
	External  int `json:"external"`
	Documents int `json:"documents"`
}

// NewSummary builds a Summary.
func NewSummary(meta model.RunMetadata, docs []model.DocumentEntry, stats graph.Stats) *Summary {
	s := &Summary{
		Metadata: meta,
		Graph: GraphStats{
			Edges:     stats.Edges,
			Sources:   stats.Sources,
			Targets:   stats.Targets,
			Internal:  stats.Internal,
			External:  stats.External,
			Documents: stats.Documents,
		},
	}
	s.Documents.Total = len(docs)
	for i := range docs {
		s.Documents.TotalSizeBytes += docs[i].Size()
		if docs[i].MetadataUnavailable {
			s.Documents.WithoutMetadata++
		}
	}
	return s
}

// Duration returns the run's wall time so far, or until it finished.
func (s *Summary) Duration(now time.Time) time.Duration {
	end := now
	if s.Metadata.FinishedAt != nil {
		end = *s.Metadata.FinishedAt
	}
	if s.Metadata.StartedAt.IsZero() || end.Before(s.Metadata.StartedAt) {
		return 0
	}
	return end.Sub(s.Metadata.StartedAt).Round(time.Second)
}
