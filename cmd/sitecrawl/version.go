package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// buildInfo describes the running binary.
type buildInfo struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
}

// currentBuild collects build information. ldflags values win over the
// module build info; anything still unknown is reported as such.
func currentBuild() buildInfo {
	b := buildInfo{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
	}

	var settings map[string]string
	if info, ok := debug.ReadBuildInfo(); ok {
		if b.Version == "" {
			b.Version = info.Main.Version
		}
		settings = make(map[string]string, len(info.Settings))
		for _, s := range info.Settings {
			settings[s.Key] = s.Value
		}
	}

	if b.Version == "" {
		b.Version = "(devel)"
	}
	if b.Commit == "" {
		b.Commit = shortRevision(settings["vcs.revision"])
	}
	if b.Date == "" {
		b.Date = settings["vcs.time"]
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
}

// shortRevision abbreviates a vcs revision to seven characters.
func shortRevision(rev string) string {
	switch {
	case rev == "":
		return "unknown"
	case len(rev) > 7:
		return rev[:7]
	default:
		return rev
	}
}

func (b buildInfo) write(w io.Writer) {
	fmt.Fprintf(w, "sitecrawl version %s\n", b.Version)
	fmt.Fprintf(w, "  commit: %s\n", b.Commit)
	fmt.Fprintf(w, "  built:  %s\n", b.Date)
	fmt.Fprintf(w, "  go:     %s\n", b.GoVersion)
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the sitecrawl version with the commit, build date and Go toolchain
it was built from. With --short only the version is printed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			short, err := cmd.Flags().GetBool("short")
			if err != nil {
				return err
			}
			b := currentBuild()
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), b.Version)
				return nil
			}
			b.write(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().Bool("short", false, "Print only the version")
	return cmd
}
