package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
)

// ChatPrefix marks log records that carry chat traffic.
const ChatPrefix = "[CHAT]"

// Entry is one parsed JSON log line.
type Entry struct {
	Time  time.Time
	Level string
	Msg   string
	Attrs map[string]any
	Raw   string
	// Valid is false when the line is not JSON; Raw is printed as-is.
	Valid bool
}

// ViewerConfig configures filtering and colors.
type ViewerConfig struct {
	Level    string
	Pattern  *regexp.Regexp
	ChatOnly bool
	NoColor  bool
}

// Viewer reads, filters and prints bot.log entries.
type Viewer struct {
	cfg    ViewerConfig
	out    io.Writer
	levels map[string]lipgloss.Style
}

// NewViewer creates a viewer writing to out.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	v := &Viewer{cfg: cfg, out: out, levels: map[string]lipgloss.Style{}}
	if !cfg.NoColor {
		v.levels["DEBUG"] = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
		v.levels["INFO"] = lipgloss.NewStyle().Foreground(lipgloss.Color("154"))
		v.levels["WARN"] = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
		v.levels["ERROR"] = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	}
	return v
}

// Tail returns the matching entries among the last n lines of path.
func (v *Viewer) Tail(path string, n int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ring := make([]string, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	var entries []Entry
	for _, line := range ring {
		if e := ParseLine(line); v.Matches(e) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Follow streams entries appended to path until ctx is done.
// It wakes on fsnotify write events and starts a fresh file after rotation.
func (v *Viewer) Follow(ctx context.Context, path string, entries chan<- Entry) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}
	reader := bufio.NewReader(f)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				// bot.log was rotated: reopen the new file from the start.
				_ = f.Close()
				if f, err = reopen(ctx, path); err != nil {
					return nil
				}
				_ = watcher.Add(path)
				reader.Reset(f)
			}
			if err := v.drain(ctx, reader, entries); err != nil {
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

// drain sends every complete line available from r.
func (v *Viewer) drain(ctx context.Context, r *bufio.Reader, entries chan<- Entry) error {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil
		}
		e := ParseLine(strings.TrimSuffix(line, "\n"))
		if e.Raw == "" || !v.Matches(e) {
			continue
		}
		select {
		case entries <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func reopen(ctx context.Context, path string) (*os.File, error) {
	for {
		f, err := os.Open(path)
		if err == nil {
			return f, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// ParseLine parses one slog JSON line.
func ParseLine(line string) Entry {
	e := Entry{Raw: line}

	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return e
	}
	e.Valid = true

	if t, ok := data["time"].(string); ok {
		e.Time, _ = time.Parse(time.RFC3339Nano, t)
	}
	e.Level, _ = data["level"].(string)
	e.Msg, _ = data["msg"].(string)

	delete(data, "time")
	delete(data, "level")
	delete(data, "msg")
	e.Attrs = data
	return e
}

// Matches applies the level, chat and pattern filters.
func (v *Viewer) Matches(e Entry) bool {
	if v.cfg.Level != "" && e.Valid && ParseLevel(e.Level) < ParseLevel(v.cfg.Level) {
		return false
	}
	if v.cfg.ChatOnly && !strings.HasPrefix(e.Msg, ChatPrefix) {
		return false
	}
	if v.cfg.Pattern != nil && !v.cfg.Pattern.MatchString(e.Raw) {
		return false
	}
	return true
}

// Format renders an entry as "15:04:05.000 LEVEL msg k=v ...", attributes sorted by key.
func (v *Viewer) Format(e Entry) string {
	if !e.Valid {
		return e.Raw
	}

	level := fmt.Sprintf("%-5s", strings.ToUpper(e.Level))
	if style, ok := v.levels[strings.ToUpper(e.Level)]; ok {
		level = style.Render(level)
	}

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(e.Time.Format("15:04:05.000"))
	sb.WriteByte(' ')
	sb.WriteString(level)
	sb.WriteByte(' ')
	sb.WriteString(e.Msg)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, e.Attrs[k])
	}
	return sb.String()
}

// Print writes entries to the viewer's output.
func (v *Viewer) Print(entries []Entry) {
	for _, e := range entries {
		_, _ = fmt.Fprintln(v.out, v.Format(e))
	}
}
