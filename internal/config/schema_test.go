// Package config_test tests the configuration key registry and value parsing.
// Related: internal/config/schema.go
// Tags: config, schema, keys, enum, validation
package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKeySchema(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		key      string
		wantType ConfigValueType
		wantErr  bool
	}{
		"bool key":    {key: "show_progress", wantType: TypeBool},
		"int key":     {key: "history_max_entries", wantType: TypeInt},
		"string key":  {key: "report_dir", wantType: TypeString},
		"enum key":    {key: "log_level", wantType: TypeEnum},
		"unknown key": {key: "claude_cmd", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			schema, err := GetKeySchema(tt.key)
			if tt.wantErr {
				var unknown ErrUnknownKey
				require.True(t, errors.As(err, &unknown))
				assert.Equal(t, "unknown configuration key: "+tt.key, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, schema.Type)
		})
	}
}

func TestValidateValue(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		key     string
		value   string
		want    interface{}
		wantErr string
	}{
		"bool true":          {key: "no_color", value: "TRUE", want: true},
		"bool invalid":       {key: "no_color", value: "yes", wantErr: "invalid boolean"},
		"int":                {key: "history_max_entries", value: "20", want: 20},
		"int invalid":        {key: "history_max_entries", value: "1.5", wantErr: "invalid integer"},
		"enum allowed":       {key: "rule_profile", value: "2", want: "2"},
		"enum rejected":      {key: "rule_profile", value: "4", wantErr: "valid options: 1, 2, 3"},
		"string passthrough": {key: "state_dir", value: "/tmp/state", want: "/tmp/state"},
		"unknown key":        {key: "specs_dir", value: "x", wantErr: "unknown configuration key"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := ValidateValue(tt.key, tt.value)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Parsed)
			assert.Equal(t, tt.value, got.Raw)
		})
	}
}

func TestConfigValueType_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bool", TypeBool.String())
	assert.Equal(t, "enum", TypeEnum.String())
	assert.Equal(t, "unknown", ConfigValueType(42).String())
}
