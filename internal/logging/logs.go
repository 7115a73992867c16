package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"
)

// LogEntry is one parsed line of the daemon log.
type LogEntry struct {
	Timestamp time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	Peer      string         `json:"peer,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// LogFilter selects entries. Zero-valued fields do not filter.
type LogFilter struct {
	// Level keeps entries at or above this level.
	Level string
	// Since keeps entries at or after this time.
	Since time.Time
	// Component keeps entries from this subsystem.
	Component string
	// Peer keeps entries whose peer address starts with this prefix, so a
	// bare host matches every port.
	Peer string
	// Match keeps entries whose message or attribute values satisfy it.
	Match func(string) bool
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// maxLineSize bounds a single log line.
const maxLineSize = 1024 * 1024

// ReadLogs parses JSON log lines from r. Lines that are not JSON are
// skipped so a partly corrupted log remains readable.
func ReadLogs(r io.Reader) ([]LogEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var entries []LogEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := ParseLogEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log: %w", err)
	}
	return entries, nil
}

// ParseLogEntry parses one JSON line written by Logger.
func ParseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var entry LogEntry
	if s, ok := raw["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			entry.Timestamp = t
		}
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	entry.Component, _ = raw[KeyComponent].(string)
	entry.Peer, _ = raw[KeyPeer].(string)

	for _, k := range []string{"time", "level", "msg", KeyComponent, KeyPeer} {
		delete(raw, k)
	}
	if len(raw) > 0 {
		entry.Attrs = raw
	}
	return entry, nil
}

// FilterLogs returns the entries matching every criterion in f.
func FilterLogs(entries []LogEntry, f LogFilter) []LogEntry {
	var out []LogEntry
	for _, e := range entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (f LogFilter) matches(e LogEntry) bool {
	if f.Level != "" {
		want, wok := levelOrder[ParseLevel(f.Level)]
		got, gok := levelOrder[strings.ToUpper(e.Level)]
		if wok && gok && got < want {
			return false
		}
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if f.Component != "" && e.Component != f.Component {
		return false
	}
	if f.Peer != "" && !strings.HasPrefix(e.Peer, f.Peer) {
		return false
	}
	if f.Match != nil && !f.Match(e.searchText()) {
		return false
	}
	return true
}

func (e LogEntry) searchText() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, k := range e.attrKeys() {
		fmt.Fprintf(&b, " %v", e.Attrs[k])
	}
	return b.String()
}

func (e LogEntry) attrKeys() []string {
	return slices.Sorted(maps.Keys(e.Attrs))
}

// Format renders an entry as one plain line:
//
//	[15:04:05.000] WARN  component/peer message key=value ...
//
// Attributes are printed in key order.
func (e LogEntry) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-5s", e.Timestamp.Format("15:04:05.000"), strings.ToUpper(e.Level))

	switch {
	case e.Component != "" && e.Peer != "":
		fmt.Fprintf(&b, " %s/%s", e.Component, e.Peer)
	case e.Component != "":
		fmt.Fprintf(&b, " %s", e.Component)
	case e.Peer != "":
		fmt.Fprintf(&b, " %s", e.Peer)
	}

	b.WriteString(" ")
	b.WriteString(e.Message)
	for _, k := range e.attrKeys() {
		fmt.Fprintf(&b, " %s=%v", k, e.Attrs[k])
	}
	return b.String()
}
