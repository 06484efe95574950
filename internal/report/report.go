// Package report renders the per-language QC document of a run and writes it
// under the report directory as QC_<lane>_<lang>_<run>_<date>.md.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dino-ds/laneqc/internal/validation"
)

// DefaultDir is the report directory used when none is configured.
const DefaultDir = "output QC report"

// MaxExamplesPerCode bounds the examples kept and shown for one code.
const MaxExamplesPerCode = 5

// Status is the outcome of one gate for a language slice.
type Status string

const (
	StatusPass Status = "PASS"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// Meta identifies the run that produced a report.
type Meta struct {
	LaneID          string
	Language        string
	RunID           string
	Date            string
	RuleProfile     int
	SpecVersion     string
	EquatorVersion  string
	GeneratorCommit string
}

// Counts summarizes the volume of one language slice.
type Counts struct {
	RowsInput        int
	RowsGenerated    int
	RowsValidated    int
	FatalViolations  int
	WarnNonBlocking  int
	UniqueFatalCodes int
	UniqueWarnCodes  int
}

// GateEntry is one row of the gate table.
type GateEntry struct {
	Name       validation.Gate
	Status     Status
	FatalCodes map[string]int
	WarnCodes  map[string]int
	Details    map[string]any
}

// Example is a sanitized occurrence of a code.
type Example struct {
	RowID   string
	Message string
}

// Result is everything a report shows for one language slice.
type Result struct {
	Meta        Meta
	Counts      Counts
	Gates       []GateEntry
	Fatals      map[string]int
	Warns       map[string]int
	TopExamples map[string][]Example
	Thresholds  map[string]any
}

// Writer writes reports into Dir.
type Writer struct {
	Dir string
}

// NewWriter returns a Writer for dir, or DefaultDir when dir is empty.
func NewWriter(dir string) *Writer {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	return &Writer{Dir: dir}
}

var (
	unsafeRE     = regexp.MustCompile(`[^A-Za-z0-9_]+`)
	underscoreRE = regexp.MustCompile(`_+`)
	dateRE       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// SanitizeToken reduces raw to letters, digits and single underscores, or
// returns fallback when nothing is left.
func SanitizeToken(raw, fallback string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")
	s = unsafeRE.ReplaceAllString(s, "_")
	s = strings.Trim(underscoreRE.ReplaceAllString(s, "_"), "_")
	if s == "" {
		return fallback
	}
	return s
}

// FileName returns the report file name for the result.
func FileName(m Meta) string {
	date := m.Date
	if !dateRE.MatchString(date) {
		date = "1970-01-01"
	}
	return fmt.Sprintf("QC_%s_%s_%s_%s.md",
		SanitizeToken(m.LaneID, "lane"),
		SanitizeToken(m.Language, "unknown"),
		SanitizeToken(m.RunID, "RUN_unknown"),
		date)
}

// Write renders r and writes it atomically. It returns the absolute path of
// the report.
func (w *Writer) Write(r Result) (string, error) {
	dir, err := filepath.Abs(w.Dir)
	if err != nil {
		return "", fmt.Errorf("resolving report directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	path := filepath.Join(dir, FileName(r.Meta))
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(Render(r)), 0644); err != nil {
		return "", fmt.Errorf("writing temp report file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp report file: %w", err)
	}
	return path, nil
}

// Render returns the markdown document for r.
func Render(r Result) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	or := func(s, def string) string {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	}
	m := r.Meta

	line("# QC Report - %s - %s", m.LaneID, m.Language)
	line("")

	line("## Run Metadata")
	line("This section explains which run and spec versions produced this QC result.")
	line("- lane_id: `%s`", m.LaneID)
	line("- language slice: `%s`", m.Language)
	line("- run_id: `%s`", or(m.RunID, "RUN_unknown"))
	line("- date: `%s`", or(m.Date, "unknown"))
	if m.RuleProfile > 0 {
		line("- rule_profile: `%d`", m.RuleProfile)
	} else {
		line("- rule_profile: `unknown`")
	}
	line("- spec_version: `%s`", or(m.SpecVersion, "unknown"))
	line("- equator_version: `%s`", or(m.EquatorVersion, "unknown"))
	line("- generator_commit: `%s`", or(m.GeneratorCommit, "unknown"))
	line("")

	c := r.Counts
	line("## Counts")
	line("This section summarizes volume and how many checks produced fatal or warning outcomes.")
	line("| Metric | Value |")
	line("| --- | --- |")
	for _, kv := range []struct {
		name  string
		value int
	}{
		{"rows_input", c.RowsInput},
		{"rows_generated", c.RowsGenerated},
		{"rows_validated", c.RowsValidated},
		{"fatal_violations", c.FatalViolations},
		{"warn_non_blocking", c.WarnNonBlocking},
		{"unique_fatal_codes", c.UniqueFatalCodes},
		{"unique_warn_codes", c.UniqueWarnCodes},
	} {
		line("| %s | %d |", kv.name, kv.value)
	}
	line("")

	line("## Gate Results")
	line("This section shows each QC gate in Equator order and whether the slice passed.")
	line("| Gate | Status | Notes |")
	line("| --- | --- | --- |")
	for _, g := range r.Gates {
		line("| %s | %s | %s |", or(string(g.Name), "unknown"), or(string(g.Status), string(StatusPass)), gateNotes(g))
	}
	line("")

	line("## Fatal Summary")
	line("These are blocking QC failures and their counts.")
	writeBullets(&b, r.Fatals)
	line("")

	line("## Warning Summary")
	line("These are non-blocking QC warnings and their counts.")
	writeBullets(&b, r.Warns)
	line("")

	line("## Failure Diagnostics")
	line("This section maps each code to gate, block behavior, and where operators should inspect first.")
	line("| Code | Severity | Gate(s) | Count | Blocks Row | Operator Focus | Example Clue |")
	line("| --- | --- | --- | --- | --- | --- | --- |")
	writeDiagnostics(&b, r)
	line("")

	line("## Top Examples")
	line("Examples are short and only include assistant/tool_call context to avoid leaking raw prompts.")
	writeExamples(&b, r.TopExamples)
	line("")

	line("## Thresholds Used")
	line("These are the active lane-scoped thresholds used in this QC run.")
	writeBullets(&b, r.Thresholds)

	return b.String()
}

func gateNotes(g GateEntry) string {
	var bits []string
	if len(g.FatalCodes) > 0 {
		bits = append(bits, "fatals="+joinCounts(g.FatalCodes))
	}
	if len(g.WarnCodes) > 0 {
		bits = append(bits, "warns="+joinCounts(g.WarnCodes))
	}
	if len(g.Details) > 0 {
		parts := make([]string, 0, len(g.Details))
		for _, k := range sortedKeys(g.Details) {
			parts = append(parts, fmt.Sprintf("%s=%v", k, g.Details[k]))
		}
		bits = append(bits, strings.Join(parts, ", "))
	}
	if len(bits) == 0 {
		return "-"
	}
	return escapeCell(strings.Join(bits, " ; "))
}

func joinCounts(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s:%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

func writeBullets[V any](b *strings.Builder, m map[string]V) {
	if len(m) == 0 {
		b.WriteString("- none\n")
		return
	}
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(b, "- `%s`: %v\n", k, m[k])
	}
}

type diagnostic struct {
	code  string
	fatal bool
	count int
}

func writeDiagnostics(b *strings.Builder, r Result) {
	var rows []diagnostic
	for _, code := range byCountDesc(r.Fatals) {
		rows = append(rows, diagnostic{code, true, r.Fatals[code]})
	}
	for _, code := range byCountDesc(r.Warns) {
		rows = append(rows, diagnostic{code, false, r.Warns[code]})
	}
	if len(rows) == 0 {
		b.WriteString("| none | - | - | 0 | - | - | - |\n")
		return
	}

	fatalGates := codeGates(r.Gates, true)
	warnGates := codeGates(r.Gates, false)
	for _, d := range rows {
		sev, blocks, gates := "WARN", "no", warnGates[d.code]
		if d.fatal {
			sev, blocks, gates = "FATAL", "yes", fatalGates[d.code]
		}
		gateCell := "-"
		if len(gates) > 0 {
			gateCell = strings.Join(gates, ", ")
		}
		clue := "-"
		if ex := r.TopExamples[d.code]; len(ex) > 0 {
			if msg := strings.TrimSpace(ex[0].Message); msg != "" {
				clue = escapeCell(msg)
			}
		}
		fmt.Fprintf(b, "| `%s` | %s | %s | %d | %s | %s | %s |\n",
			d.code, sev, gateCell, d.count, blocks, DiagnosticFocus(d.code, d.fatal), clue)
	}
}

// codeGates maps each code to the sorted names of the gates that raised it.
func codeGates(entries []GateEntry, fatal bool) map[string][]string {
	sets := map[string]map[string]bool{}
	for _, g := range entries {
		codes := g.WarnCodes
		if fatal {
			codes = g.FatalCodes
		}
		for code := range codes {
			if strings.TrimSpace(code) == "" {
				continue
			}
			if sets[code] == nil {
				sets[code] = map[string]bool{}
			}
			sets[code][string(g.Name)] = true
		}
	}
	out := make(map[string][]string, len(sets))
	for code, set := range sets {
		out[code] = sortedKeys(set)
	}
	return out
}

func writeExamples(b *strings.Builder, top map[string][]Example) {
	if len(top) == 0 {
		b.WriteString("- none\n")
		return
	}
	for _, code := range sortedKeys(top) {
		examples := top[code]
		if len(examples) == 0 {
			continue
		}
		fmt.Fprintf(b, "### `%s`\n", code)
		shown := 0
		for _, ex := range examples {
			msg := strings.TrimSpace(ex.Message)
			if msg == "" {
				continue
			}
			rowID := strings.TrimSpace(ex.RowID)
			if rowID == "" {
				rowID = "row_unknown"
			}
			fmt.Fprintf(b, "- `%s`: %s\n", rowID, msg)
			if shown++; shown >= MaxExamplesPerCode {
				break
			}
		}
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func byCountDesc(m map[string]int) []string {
	keys := sortedKeys(m)
	sort.SliceStable(keys, func(a, b int) bool { return m[keys[a]] > m[keys[b]] })
	return keys
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
