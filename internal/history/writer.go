package history

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// Writer appends runs to the ledger with automatic pruning.
type Writer struct {
	// StateDir is the directory containing the ledger file.
	StateDir string
	// MaxEntries is the maximum number of entries to retain (0 keeps all).
	MaxEntries int
	// Warnings receives non-fatal write failures; os.Stderr when nil.
	Warnings io.Writer
}

// NewWriter creates a new ledger writer.
func NewWriter(stateDir string, maxEntries int) *Writer {
	return &Writer{
		StateDir:   stateDir,
		MaxEntries: maxEntries,
	}
}

// LogEntry adds a new entry to the ledger, assigning an ID when it has none.
// Errors are non-fatal: they are written as a warning and don't change the
// run's outcome.
func (w *Writer) LogEntry(entry HistoryEntry) {
	if err := w.logEntryInternal(entry); err != nil {
		out := w.Warnings
		if out == nil {
			out = os.Stderr
		}
		fmt.Fprintf(out, "Warning: failed to log history: %v\n", err)
	}
}

// logEntryInternal handles the actual logging logic.
func (w *Writer) logEntryInternal(entry HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	history, err := LoadHistory(w.StateDir)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	history.Entries = append(history.Entries, entry)

	// Prune oldest entries if over limit
	if w.MaxEntries > 0 && len(history.Entries) > w.MaxEntries {
		excess := len(history.Entries) - w.MaxEntries
		history.Entries = history.Entries[excess:]
	}

	if err := SaveHistory(w.StateDir, history); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}

	return nil
}
