// Package cli_test tests the assembled command tree and exit code mapping.
// Related: internal/cli/root.go, internal/cli/exit_codes.go
// Tags: cli, root, commands, exit-codes
package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_Commands(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	groups := map[string]string{}
	for _, cmd := range root.Commands() {
		groups[cmd.Name()] = cmd.GroupID
	}

	tests := map[string]string{
		"validate":        "qc",
		"lanes":           "qc",
		"validate-config": "configuration",
		"config":          "configuration",
		"history":         "configuration",
		"version":         "configuration",
	}
	for name, group := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, ok := groups[name]
			require.True(t, ok, "command %s should be registered", name)
			assert.Equal(t, group, got)
		})
	}

	f := root.PersistentFlags().Lookup("config")
	require.NotNil(t, f)
	assert.Equal(t, "c", f.Shorthand)
}

func TestNewRootCmd_FlagErrorExitCode(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"lanes", "--bogus"})

	err := root.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitInvalidArguments, ExitCode(err))
	assert.Contains(t, err.Error(), "unknown flag: --bogus")
}

func TestExecute_Lanes(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Execute([]string{"lanes", "lane_01"}))
	assert.Equal(t, ExitInvalidArguments, ExitCode(Execute([]string{"lanes", "lane_77"})))
}
