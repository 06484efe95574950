// Package history keeps the run ledger: one YAML entry per QC run with its
// lane, languages, profile, verdict and issue totals.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// HistoryFileName is the name of the ledger file.
	HistoryFileName = "history.yaml"
	// BackupSuffix is the suffix for backup files when corruption is detected.
	BackupSuffix = ".backup"
)

// Verdict constants for ledger entries.
const (
	// VerdictPass indicates the run raised no fatal issue.
	VerdictPass = "pass"
	// VerdictFail indicates the run raised at least one fatal issue.
	VerdictFail = "fail"
	// VerdictCancelled indicates the run was interrupted before its reports.
	VerdictCancelled = "cancelled"
)

// HistoryEntry records one QC run.
type HistoryEntry struct {
	// ID is a random UUID.
	ID string `yaml:"id"`
	// Timestamp is when the run started (RFC3339 format in YAML).
	Timestamp time.Time `yaml:"timestamp"`
	// LaneID is the lane the rows were validated against.
	LaneID string `yaml:"lane_id"`
	// RunID is the normalized run id shared with the reports (RUN_xxxxxxxx).
	RunID string `yaml:"run_id"`
	// Profile is the rule profile ("01", "02" or "03").
	Profile string `yaml:"profile"`
	// Languages lists the language slices the run saw.
	Languages []string `yaml:"languages,omitempty"`
	// Rows is the number of input rows.
	Rows int `yaml:"rows"`
	// Verdict is pass, fail or cancelled.
	Verdict string `yaml:"verdict"`
	// Fatals and Warnings are the run's issue totals.
	Fatals   int `yaml:"fatals"`
	Warnings int `yaml:"warnings"`
	// Reports lists the report files written.
	Reports []string `yaml:"reports,omitempty"`
	// Duration is the execution duration in Go duration format (e.g., "1.52s").
	Duration string `yaml:"duration"`
}

// HistoryFile represents the YAML file containing all ledger entries.
type HistoryFile struct {
	// Entries is an ordered list of runs (newest entries appended at end).
	Entries []HistoryEntry `yaml:"entries"`
}

// DefaultStateDir returns ~/.laneqc/state.
func DefaultStateDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".laneqc", "state"), nil
}

// LoadHistory loads the ledger from the given state directory.
// Returns empty history if file doesn't exist.
// Handles corrupted files by backing them up and creating a fresh history.
func LoadHistory(stateDir string) (*HistoryFile, error) {
	historyPath := filepath.Join(stateDir, HistoryFileName)

	data, err := os.ReadFile(historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &HistoryFile{Entries: []HistoryEntry{}}, nil
		}
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	var history HistoryFile
	if err := yaml.Unmarshal(data, &history); err != nil {
		if backupErr := backupCorruptedFile(historyPath); backupErr != nil {
			return nil, fmt.Errorf("backing up corrupted history file: %w", backupErr)
		}
		return &HistoryFile{Entries: []HistoryEntry{}}, nil
	}

	if history.Entries == nil {
		history.Entries = []HistoryEntry{}
	}

	return &history, nil
}

// backupCorruptedFile renames a corrupted file with a .backup suffix.
func backupCorruptedFile(path string) error {
	backupPath := path + BackupSuffix
	if err := os.Rename(path, backupPath); err != nil {
		return fmt.Errorf("renaming corrupted file to backup: %w", err)
	}
	return nil
}

// SaveHistory saves the ledger to the given state directory using atomic writes.
// Creates parent directories if needed.
func SaveHistory(stateDir string, history *HistoryFile) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	historyPath := filepath.Join(stateDir, HistoryFileName)
	tmpPath := historyPath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing temp history file: %w", err)
	}

	if err := os.Rename(tmpPath, historyPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp history file: %w", err)
	}

	return nil
}

// ClearHistory removes all entries from the ledger.
func ClearHistory(stateDir string) error {
	return SaveHistory(stateDir, &HistoryFile{Entries: []HistoryEntry{}})
}

// Latest returns up to limit entries, newest first. A non-empty laneID keeps
// only that lane's runs; limit <= 0 returns every match.
func (h *HistoryFile) Latest(limit int, laneID string) []HistoryEntry {
	var out []HistoryEntry
	for i := len(h.Entries) - 1; i >= 0; i-- {
		e := h.Entries[i]
		if laneID != "" && e.LaneID != laneID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
