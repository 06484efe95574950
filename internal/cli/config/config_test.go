// Package config_test tests the validate-config and config commands.
// Related: internal/cli/config/validate_config.go, internal/cli/config/config_cmd.go
// Tags: cli, config, lane-schema, validation, keys
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dino-ds/laneqc/internal/cli/shared"
)

func execute(args ...string) (string, error) {
	root := &cobra.Command{Use: "laneqc", SilenceErrors: true}
	root.AddGroup(&cobra.Group{ID: shared.GroupConfiguration, Title: "Configuration:"})
	root.PersistentFlags().String(shared.ConfigFlag, "", "Path to config file")
	Register(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateConfigCmd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	goodYAML := writeFile(t, dir, "lane.yaml", "lane_id: lane_07_search_triggering\nlanguage: en\ncount_target: 40\n")
	goodTOML := writeFile(t, dir, "lane.toml", "lane_id = \"lane_03_tools\"\n\n[similarity]\nngram = 3\n")
	badID := writeFile(t, dir, "bad_id.yaml", "lane_id: search_lane\n")
	broken := writeFile(t, dir, "broken.yaml", "lane_id: [unclosed\n")
	unsupported := writeFile(t, dir, "lane.ini", "lane_id=lane_01\n")
	goodCfg := writeFile(t, dir, "laneqc.json", `{"rule_profile": 2, "log_level": "debug"}`)
	badCfg := writeFile(t, dir, "bad.json", `{"rule_profile": 7}`)

	tests := map[string]struct {
		args       []string
		wantCode   int
		wantOut    []string
		wantErrSub string
	}{
		"valid yaml": {
			args:    []string{"--lane", goodYAML},
			wantOut: []string{"OK lane config OK: " + goodYAML},
		},
		"valid toml with config": {
			args:    []string{"--lane", goodTOML, "--config", goodCfg},
			wantOut: []string{"OK config OK: " + goodCfg, "OK lane config OK: " + goodTOML},
		},
		"schema violation": {
			args:     []string{"--lane", badID},
			wantCode: shared.ExitSchemaFailed,
			wantOut:  []string{"FAIL lane config " + badID + " failed schema validation:", "  - /lane_id: "},
		},
		"broken yaml": {
			args:       []string{"--lane", broken},
			wantCode:   shared.ExitSchemaFailed,
			wantErrSub: broken + ":",
		},
		"unsupported extension": {
			args:       []string{"--lane", unsupported},
			wantCode:   shared.ExitSchemaFailed,
			wantErrSub: `unsupported lane config extension ".ini"`,
		},
		"missing lane": {
			args:       []string{"--lane", filepath.Join(dir, "nope.yaml")},
			wantCode:   shared.ExitMissingInput,
			wantErrSub: "lane config not found",
		},
		"bad config value": {
			args:       []string{"--lane", goodYAML, "--config", badCfg},
			wantCode:   shared.ExitSchemaFailed,
			wantErrSub: "field 'rule_profile'",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			out, err := execute(append([]string{"validate-config"}, tt.args...)...)
			assert.Equal(t, tt.wantCode, shared.ExitCode(err))
			for _, want := range tt.wantOut {
				assert.Contains(t, out, want)
			}
			if tt.wantErrSub != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrSub)
			}
		})
	}
}

func TestConfigKeysCmd(t *testing.T) {
	t.Parallel()

	out, err := execute("config", "keys")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Available configuration keys:\n\n"))
	assert.Contains(t, out, "enum (1, 2, 3) (default: 3)")
	assert.Contains(t, out, "env: LANEQC_RULE_PROFILE")
	assert.Contains(t, out, "env: LANEQC_HISTORY_MAX_ENTRIES")
	assert.Less(t, strings.Index(out, "history_max_entries"), strings.Index(out, "rule_profile"))
}

func TestConfigShowCmd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LANEQC_LOG_LEVEL", "debug")

	dir := t.TempDir()
	cfg := writeFile(t, dir, "laneqc.json", `{"report_dir": "/tmp/qc"}`)

	out, err := execute("--config", cfg, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "log_level = debug\n")
	assert.Contains(t, out, "report_dir = /tmp/qc\n")
	assert.Contains(t, out, "rule_profile = 3\n")
	assert.Contains(t, out, "show_progress = true\n")

	_, err = execute("--config", filepath.Join(dir, "missing.json"), "config", "show")
	assert.Equal(t, shared.ExitInvalidArguments, shared.ExitCode(err))
}
