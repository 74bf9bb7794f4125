package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogEntry is one parsed line of a JSON log file.
type LogEntry struct {
	Timestamp time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// LogFilter defines criteria for filtering log entries. Zero fields match
// everything; set fields are combined with AND.
type LogFilter struct {
	// Level keeps entries at this severity or more severe.
	Level string
	// Component keeps entries from this component only.
	Component string
	// PoolID keeps entries whose pool_id attribute equals this value.
	PoolID string
	// StartTime keeps entries at or after this time.
	StartTime time.Time
	// EndTime keeps entries at or before this time.
	EndTime time.Time
	// MessageContains keeps entries whose message contains this substring.
	MessageContains string
}

// AggregateLogs reads every entry from {dir}/taskpool.log, oldest first.
// Lines that are not valid JSON are skipped.
func AggregateLogs(dir string) ([]LogEntry, error) {
	f, err := os.Open(filepath.Join(dir, LogFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file found in %s: %w", dir, err)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadEntries(f)
}

// ReadEntries parses JSON log lines from r and sorts them by time.
func ReadEntries(r io.Reader) ([]LogEntry, error) {
	var entries []LogEntry

	scanner := bufio.NewScanner(r)
	const maxLine = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseLogEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func parseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := LogEntry{Attrs: make(map[string]any)}
	for k, v := range raw {
		switch k {
		case "time":
			if s, ok := v.(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
					entry.Timestamp = t
				}
			}
		case "level":
			entry.Level, _ = v.(string)
		case "msg":
			entry.Message, _ = v.(string)
		case "component":
			entry.Component, _ = v.(string)
		default:
			entry.Attrs[k] = v
		}
	}
	return entry, nil
}

// FilterLogs returns the entries that match filter.
func FilterLogs(entries []LogEntry, filter LogFilter) []LogEntry {
	if filter == (LogFilter{}) {
		return entries
	}

	var out []LogEntry
	for _, e := range entries {
		if matchesFilter(e, filter) {
			out = append(out, e)
		}
	}
	return out
}

func matchesFilter(e LogEntry, f LogFilter) bool {
	if f.Level != "" {
		min, minOK := ParseLevel(f.Level)
		lvl, lvlOK := ParseLevel(e.Level)
		if minOK && lvlOK && !lvl.Enabled(min) {
			return false
		}
	}
	if f.Component != "" && e.Component != f.Component {
		return false
	}
	if f.PoolID != "" {
		if id, _ := e.Attrs["pool_id"].(string); id != f.PoolID {
			return false
		}
	}
	if !f.StartTime.IsZero() && e.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && e.Timestamp.After(f.EndTime) {
		return false
	}
	if f.MessageContains != "" && !strings.Contains(e.Message, f.MessageContains) {
		return false
	}
	return true
}

// WriteEntries renders entries to w. Supported formats: "json", "text".
func WriteEntries(w io.Writer, entries []LogEntry, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "", "text":
		for _, e := range entries {
			if _, err := io.WriteString(w, FormatEntry(e)+"\n"); err != nil {
				return fmt.Errorf("failed to write text entry: %w", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, text)", format)
	}
}

// FormatEntry renders one entry as "[time] LEVEL component - message {attrs}".
func FormatEntry(e LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-5s", e.Timestamp.Format("2006-01-02 15:04:05.000"), e.Level)
	if e.Component != "" {
		fmt.Fprintf(&b, " %s", e.Component)
	}
	fmt.Fprintf(&b, " - %s", e.Message)
	if len(e.Attrs) > 0 {
		attrs, _ := json.Marshal(e.Attrs)
		fmt.Fprintf(&b, " %s", attrs)
	}
	return b.String()
}
