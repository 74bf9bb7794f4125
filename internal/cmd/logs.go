package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/taskpool/internal/config"
	"github.com/Iron-Ham/taskpool/internal/errors"
	"github.com/Iron-Ham/taskpool/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View pool logs",
	Long: `View and filter the JSON log written by "taskpool run".

Examples:
  # Show the last 50 entries
  taskpool logs

  # Only warnings and errors from the pool
  taskpool logs --level warn --component pool

  # Everything from the last 10 minutes
  taskpool logs --since 10m -n 0

  # Search messages
  taskpool logs --grep "discarded|panicked"

  # Start a fresh log file, keeping the old one as a backup
  taskpool logs --rotate`,
	RunE: runLogs,
}

var (
	logsDir       string
	logsTail      int
	logsLevel     string
	logsComponent string
	logsPoolID    string
	logsSince     time.Duration
	logsGrep      string
	logsFormat    string
	logsRotate    bool
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsDir, "dir", "", "Log directory (default from config)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Minimum level (fatal/error/warn/info/debug/trace)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Only show entries from this component")
	logsCmd.Flags().StringVar(&logsPoolID, "pool", "", "Only show entries tagged with this pool ID")
	logsCmd.Flags().DurationVar(&logsSince, "since", 0, "Show entries newer than this (e.g. 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Only show entries whose message matches this regex")
	logsCmd.Flags().StringVar(&logsFormat, "format", "text", "Output format (text/json)")
	logsCmd.Flags().BoolVar(&logsRotate, "rotate", false, "Rotate the log file now instead of showing entries")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	dir := logsDir
	if dir == "" {
		dir = cfg.Logging.ResolveDir()
	}

	if logsRotate {
		return rotateLog(cmd.OutOrStdout(), dir, rotationConfig(cfg.Logging))
	}

	if logsLevel != "" {
		if _, ok := logging.ParseLevel(logsLevel); !ok {
			return fmt.Errorf("invalid level %q (valid: %v)", logsLevel, logging.ValidLevels())
		}
	}

	var grep *regexp.Regexp
	if logsGrep != "" {
		var err error
		grep, err = regexp.Compile(logsGrep)
		if err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	entries, err := logging.AggregateLogs(dir)
	if err != nil {
		return err
	}

	filter := logging.LogFilter{
		Level:     logsLevel,
		Component: logsComponent,
		PoolID:    logsPoolID,
	}
	if logsSince > 0 {
		filter.StartTime = time.Now().Add(-logsSince)
	}

	entries = selectEntries(entries, filter, grep, logsTail)
	return writeLogs(cmd.OutOrStdout(), entries, logsFormat)
}

// rotateLog moves the live log in dir to its first backup slot and starts
// an empty one.
func rotateLog(w io.Writer, dir string, rc logging.RotationConfig) error {
	path := filepath.Join(dir, logging.LogFileName)
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, "no log file in %s", dir)
	}

	rw, err := logging.NewRotatingWriter(path, rc)
	if err != nil {
		return err
	}
	if err := rw.Rotate(); err != nil {
		_ = rw.Close()
		return errors.Wrap(err, "failed to rotate log")
	}
	if err := rw.Close(); err != nil {
		return err
	}

	fmt.Fprintf(w, "Rotated %s\n", path)
	return nil
}

// selectEntries applies filter and grep, then keeps the last tail entries.
func selectEntries(entries []logging.LogEntry, filter logging.LogFilter, grep *regexp.Regexp, tail int) []logging.LogEntry {
	entries = logging.FilterLogs(entries, filter)

	if grep != nil {
		matched := entries[:0:0]
		for _, e := range entries {
			if grep.MatchString(e.Message) {
				matched = append(matched, e)
			}
		}
		entries = matched
	}

	if tail > 0 && len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}
	return entries
}

func writeLogs(w io.Writer, entries []logging.LogEntry, format string) error {
	if len(entries) == 0 && format != "json" {
		_, err := fmt.Fprintln(w, "No matching log entries found.")
		return err
	}
	return logging.WriteEntries(w, entries, format)
}
