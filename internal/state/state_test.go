package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

func urls(entries []Entry) string {
	s := make([]string, len(entries))
	for i, e := range entries {
		s[i] = e.URL
	}
	return strings.Join(s, ",")
}

func TestEnqueue(t *testing.T) {
	t.Parallel()

	t.Run("rejects duplicates in every state", func(t *testing.T) {
		t.Parallel()

		s := New(3)
		if !s.Enqueue(Entry{URL: "a"}) || !s.Enqueue(Entry{URL: "b"}) || !s.Enqueue(Entry{URL: "c"}) {
			t.Fatal("expected fresh URLs to be accepted")
		}
		if s.Enqueue(Entry{URL: "a", Depth: 1}) {
			t.Error("queued URL accepted twice")
		}

		if _, ok := s.Next(nil); !ok {
			t.Fatal("expected an entry")
		}
		if s.Enqueue(Entry{URL: "a"}) {
			t.Error("in-flight URL accepted")
		}

		s.MarkVisited("a", model.StatusPersisted, "")
		if s.Enqueue(Entry{URL: "a"}) {
			t.Error("visited URL accepted")
		}
	})

	t.Run("depth bound is inclusive", func(t *testing.T) {
		t.Parallel()

		s := New(2)
		if !s.Enqueue(Entry{URL: "d2", Depth: 2}) {
			t.Error("expected depth == max to be accepted")
		}
		if s.Enqueue(Entry{URL: "d3", Depth: 3}) {
			t.Error("expected depth > max to be rejected")
		}
		if s.Enqueue(Entry{URL: "neg", Depth: -1}) || s.Enqueue(Entry{URL: ""}) {
			t.Error("expected invalid entries to be rejected")
		}
	})

	t.Run("max depth zero fetches only the seed", func(t *testing.T) {
		t.Parallel()

		s := New(0)
		if !s.Enqueue(Entry{URL: "seed"}) || s.Enqueue(Entry{URL: "child", Depth: 1, Parent: "seed"}) {
			t.Error("expected only the seed to be accepted")
		}
	})
}

func TestNextIsBreadthFirst(t *testing.T) {
	t.Parallel()

	s := New(5)
	s.Enqueue(Entry{URL: "root", Depth: 0})
	s.Enqueue(Entry{URL: "a", Depth: 1})
	s.Enqueue(Entry{URL: "b", Depth: 1})
	s.Enqueue(Entry{URL: "a1", Depth: 2})

	var got []string
	for {
		e, ok := s.Next(nil)
		if !ok {
			break
		}
		got = append(got, e.URL)
		s.MarkVisited(e.URL, model.StatusPersisted, "")
	}
	if strings.Join(got, ",") != "root,a,b,a1" {
		t.Errorf("unexpected order %v", got)
	}
	if !s.Done() {
		t.Error("expected state to be done")
	}
}

func TestNextSkip(t *testing.T) {
	t.Parallel()

	s := New(3)
	s.Enqueue(Entry{URL: "http://busy/1"})
	s.Enqueue(Entry{URL: "http://busy/2"})
	s.Enqueue(Entry{URL: "http://idle/1"})

	e, ok := s.Next(func(e Entry) bool { return strings.HasPrefix(e.URL, "http://busy") })
	if !ok || e.URL != "http://idle/1" {
		t.Fatalf("expected the idle host entry, got %+v %v", e, ok)
	}
	if _, ok := s.Next(func(Entry) bool { return true }); ok {
		t.Error("expected no entry when every entry is skipped")
	}
	if s.FrontierLen() != 2 || s.InFlightLen() != 1 {
		t.Errorf("unexpected sizes: frontier %d in flight %d", s.FrontierLen(), s.InFlightLen())
	}
}

func TestRequeue(t *testing.T) {
	t.Parallel()

	s := New(3)
	s.Enqueue(Entry{URL: "a"})
	s.Enqueue(Entry{URL: "b"})
	e, _ := s.Next(nil)

	s.Requeue(e.URL)
	if s.IsInFlight("a") {
		t.Error("expected a to leave the in-flight set")
	}
	next, _ := s.Next(nil)
	if next.URL != "a" {
		t.Errorf("expected requeued entry first, got %q", next.URL)
	}

	s.Requeue("unknown")
	if s.FrontierLen() != 1 {
		t.Errorf("requeue of an unknown URL changed the frontier")
	}
}

func TestClaim(t *testing.T) {
	t.Parallel()

	s := New(3)
	s.Enqueue(Entry{URL: "https://town.gov/new", Depth: 2})
	s.Enqueue(Entry{URL: "https://town.gov/other", Depth: 2})
	s.MarkVisited("https://town.gov/done", model.StatusPersisted, "")

	if !s.Claim(Entry{URL: "https://town.gov/new", Depth: 1}) {
		t.Fatal("expected queued URL to be claimable")
	}
	if !s.IsInFlight("https://town.gov/new") || s.FrontierLen() != 1 {
		t.Errorf("expected claimed entry moved out of the queue, frontier=%d", s.FrontierLen())
	}
	if e, _ := s.Next(nil); e.URL != "https://town.gov/other" {
		t.Errorf("expected the other entry next, got %s", e.URL)
	}

	if s.Claim(Entry{URL: "https://town.gov/new", Depth: 1}) {
		t.Error("expected in-flight URL to be refused")
	}
	if s.Claim(Entry{URL: "https://town.gov/done", Depth: 1}) {
		t.Error("expected visited URL to be refused")
	}
	if !s.Claim(Entry{URL: "https://town.gov/unseen", Depth: 1}) {
		t.Error("expected unseen URL to be claimable")
	}
}

func TestMarkVisited(t *testing.T) {
	t.Parallel()

	s := New(3)
	s.Enqueue(Entry{URL: "queued"})
	s.MarkVisited("queued", model.StatusRedirected, "")
	if s.FrontierLen() != 0 || !s.IsVisited("queued") {
		t.Error("expected a queued URL to move straight to visited")
	}

	s.MarkVisited("x", model.StatusFailed, "robots.txt disallowed")
	s.MarkVisited("x", model.StatusPersisted, "")
	if v, _ := s.Visit("x"); v.Status != model.StatusFailed || v.Reason != "robots.txt disallowed" {
		t.Errorf("expected first status to win, got %+v", v)
	}

	s.Enqueue(Entry{URL: "y"})
	s.Next(nil)
	s.MarkVisited("y", model.StatusPersisted, "")
	if s.IsInFlight("y") || s.InFlightLen() != 0 {
		t.Error("expected a visited URL to leave the in-flight set")
	}
}

func TestCountsAndFailures(t *testing.T) {
	t.Parallel()

	s := New(3)
	s.MarkVisited("p1", model.StatusPersisted, "")
	s.MarkVisited("p2", model.StatusPersisted, "")
	s.MarkVisited("f", model.StatusFilteredOut, "language fr")
	s.MarkVisited("z", model.StatusFailed, "HTTP 404")
	s.MarkVisited("e", model.StatusFailed, "timeout")
	s.MarkVisited("r", model.StatusRedirected, "")
	s.MarkVisited("d", model.StatusDocument, "")
	s.Enqueue(Entry{URL: "q"})

	c := s.Counts()
	want := model.RunCounts{PagesWritten: 2, FilteredOut: 1, Failures: 2, Redirects: 1, Visited: 7, FrontierRemaining: 1}
	if c != want {
		t.Errorf("expected %+v, got %+v", want, c)
	}

	failures := s.Failures()
	if len(failures) != 2 || failures[0].URL != "e" || failures[1].Reason != "HTTP 404" {
		t.Errorf("unexpected failures %+v", failures)
	}
}

func TestFrontierPutsInFlightFirst(t *testing.T) {
	t.Parallel()

	s := New(5)
	for _, e := range []Entry{{URL: "a", Depth: 1}, {URL: "b", Depth: 1}, {URL: "c", Depth: 2}, {URL: "d", Depth: 2}} {
		s.Enqueue(e)
	}
	s.Next(nil)
	s.Next(nil)

	if got := urls(s.Frontier()); got != "a,b,c,d" {
		t.Errorf("unexpected frontier %q", got)
	}
}

func TestRestore(t *testing.T) {
	t.Parallel()

	visited := map[string]model.Visit{"a": {Status: model.StatusPersisted}}
	frontier := []Entry{{URL: "a"}, {URL: "b", Depth: 1}, {URL: "b", Depth: 1}, {URL: "deep", Depth: 9}}

	s := Restore(3, frontier, visited)
	if got := urls(s.Frontier()); got != "b" {
		t.Errorf("expected only b to survive, got %q", got)
	}
	if !s.IsVisited("a") {
		t.Error("expected visited set to be restored")
	}

	visited["c"] = model.Visit{Status: model.StatusFailed}
	if s.IsVisited("c") {
		t.Error("restore must copy the visited map")
	}
}

func TestStore(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		store := NewStore(dir)

		s := New(3)
		s.Enqueue(Entry{URL: "https://town.gov/a", Depth: 1, Parent: "https://town.gov/"})
		s.MarkVisited("https://town.gov/", model.StatusPersisted, "")
		started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		cp := s.Snapshot("run-1", "https://town.gov/", started)
		cp.Edges = []model.Edge{{From: "https://town.gov/", To: "https://town.gov/a", Type: model.LinkInternal}}
		if err := store.Save(cp); err != nil {
			t.Fatalf("save: %v", err)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if loaded.RunID != "run-1" || !loaded.StartedAt.Equal(started) || loaded.UpdatedAt.IsZero() {
			t.Errorf("unexpected header %+v", loaded)
		}
		if urls(loaded.Frontier) != "https://town.gov/a" || loaded.Frontier[0].Parent != "https://town.gov/" {
			t.Errorf("unexpected frontier %+v", loaded.Frontier)
		}
		if loaded.Visited["https://town.gov/"].Status != model.StatusPersisted {
			t.Errorf("unexpected visited %+v", loaded.Visited)
		}
		if len(loaded.Edges) != 1 || loaded.Counts.PagesWritten != 1 {
			t.Errorf("unexpected edges %+v or counts %+v", loaded.Edges, loaded.Counts)
		}
		if err := loaded.CheckSeed("https://town.gov/"); err != nil {
			t.Errorf("unexpected seed mismatch: %v", err)
		}
		if err := loaded.CheckSeed("https://other.gov/"); !errors.Is(err, ErrCheckpointMismatch) {
			t.Errorf("expected ErrCheckpointMismatch, got %v", err)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Name() != CheckpointFile {
			t.Errorf("expected only the checkpoint file, got %v", entries)
		}
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		if _, err := NewStore(t.TempDir()).Load(); !errors.Is(err, ErrNoCheckpoint) {
			t.Errorf("expected ErrNoCheckpoint, got %v", err)
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		t.Parallel()

		tests := map[string]string{
			"truncated":      `{"version": 1, "frontier": [`,
			"wrong version":  `{"version": 99}`,
			"invalid status": `{"version": 1, "visited": {"u": {"status": "bogus"}}}`,
		}
		for name, content := range tests {
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				dir := t.TempDir()
				if err := os.WriteFile(filepath.Join(dir, CheckpointFile), []byte(content), 0o600); err != nil {
					t.Fatal(err)
				}
				if _, err := NewStore(dir).Load(); !errors.Is(err, ErrCorruptCheckpoint) {
					t.Errorf("expected ErrCorruptCheckpoint, got %v", err)
				}
			})
		}
	})

	t.Run("remove", func(t *testing.T) {
		t.Parallel()

		store := NewStore(t.TempDir())
		if err := store.Remove(); err != nil {
			t.Errorf("removing a missing checkpoint: %v", err)
		}
		if err := store.Save(New(1).Snapshot("r", "s", time.Now())); err != nil {
			t.Fatal(err)
		}
		if err := store.Remove(); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Load(); !errors.Is(err, ErrNoCheckpoint) {
			t.Errorf("expected checkpoint to be gone, got %v", err)
		}
	})
}
