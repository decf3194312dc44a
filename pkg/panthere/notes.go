package panthere

import (
	"context"
	"time"
)

// NoteEntry is one memory line appended to a daily note file.
type NoteEntry struct {
	// At is the local wall-clock time the entry was written.
	At time.Time
	// Text is the remembered text.
	Text string
	// Path is the note file the entry was appended to.
	Path string
}

// NoteSink durably records memory entries.
type NoteSink interface {
	// Append writes one entry to the note file for the current day.
	Append(ctx context.Context, text string) (NoteEntry, error)
}
