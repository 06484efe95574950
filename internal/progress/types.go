// Package progress shows the stages of a QC run on the terminal: a spinner
// while a stage runs on a TTY, plain lines otherwise, and a check or failure
// mark with the stage's issue counts when it finishes.
package progress

import "errors"

// StageInfo represents metadata about a QC stage for progress display
type StageInfo struct {
	// Name is the human-readable stage name (e.g., "row gates", "duplication")
	Name string
	// Number is the current stage number (1-based index)
	Number int
	// TotalStages is the number of stages the run's profile executes
	TotalStages int
	// Fatals is the number of fatal issues the stage raised
	Fatals int
	// Warns is the number of warnings the stage raised
	Warns int
}

// Validate checks that all StageInfo fields meet validation requirements
func (p StageInfo) Validate() error {
	if p.Name == "" {
		return errors.New("stage name cannot be empty")
	}
	if p.Number <= 0 {
		return errors.New("stage number must be > 0")
	}
	if p.TotalStages <= 0 {
		return errors.New("total stages must be > 0")
	}
	if p.Number > p.TotalStages {
		return errors.New("stage number cannot exceed total stages")
	}
	if p.Fatals < 0 || p.Warns < 0 {
		return errors.New("issue counts cannot be negative")
	}
	return nil
}

// TerminalCapabilities encapsulates detected terminal features
type TerminalCapabilities struct {
	// IsTTY indicates whether stderr is a terminal (vs pipe/redirect)
	IsTTY bool
	// SupportsColor indicates whether terminal supports ANSI color codes
	SupportsColor bool
	// SupportsUnicode indicates whether terminal supports Unicode characters
	SupportsUnicode bool
}

// ProgressSymbols defines the character set for visual indicators
type ProgressSymbols struct {
	// Checkmark is the success indicator ("✓" or "[OK]")
	Checkmark string
	// Failure is the failure indicator ("✗" or "[FAIL]")
	Failure string
	// SpinnerSet is the index into spinner.CharSets
	SpinnerSet int
}
