package notes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"petit-panthere/pkg/panthere"
)

const (
	// DefaultDir is the note directory used when none is configured.
	DefaultDir = "memory"

	fileDateLayout  = "2006-01-02"
	entryTimeLayout = "15:04"
	entryFormat     = "\n**%s** — %s\n"
)

// Option mutates sink configuration.
type Option func(*Sink)

// WithClock injects the wall clock used for file names and timestamps.
func WithClock(clock func() time.Time) Option {
	return func(sink *Sink) {
		if clock != nil {
			sink.clock = clock
		}
	}
}

// Sink appends memory entries to daily markdown files under one directory.
//
// Appends are serialised within the process; files are only ever opened in
// append mode.
type Sink struct {
	dir   string
	clock func() time.Time

	mu sync.Mutex
}

// NewSink creates a sink rooted at dir. The directory is created lazily on
// first append.
func NewSink(dir string, options ...Option) *Sink {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = DefaultDir
	}

	sink := &Sink{
		dir:   dir,
		clock: time.Now,
	}
	for _, option := range options {
		option(sink)
	}

	return sink
}

// Dir returns the directory notes are written to.
func (s *Sink) Dir() string {
	return s.dir
}

// Append writes one entry to today's note file.
func (s *Sink) Append(ctx context.Context, text string) (panthere.NoteEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return panthere.NoteEntry{}, fmt.Errorf("append note: empty text")
	}
	if err := ctx.Err(); err != nil {
		return panthere.NoteEntry{}, fmt.Errorf("append note: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	entry := panthere.NoteEntry{
		At:   now,
		Text: text,
		Path: filepath.Join(s.dir, now.Format(fileDateLayout)+".md"),
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return panthere.NoteEntry{}, fmt.Errorf("append note create dir %s: %w", s.dir, err)
	}

	file, err := os.OpenFile(entry.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return panthere.NoteEntry{}, fmt.Errorf("append note open %s: %w", entry.Path, err)
	}

	if _, err := fmt.Fprintf(file, entryFormat, now.Format(entryTimeLayout), text); err != nil {
		_ = file.Close()
		return panthere.NoteEntry{}, fmt.Errorf("append note write %s: %w", entry.Path, err)
	}
	if err := file.Close(); err != nil {
		return panthere.NoteEntry{}, fmt.Errorf("append note close %s: %w", entry.Path, err)
	}

	return entry, nil
}

var _ panthere.NoteSink = (*Sink)(nil)
