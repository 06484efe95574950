// Package progress_test tests stage info validation.
// Related: internal/progress/types.go
// Tags: progress, types, validation
package progress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dino-ds/laneqc/internal/progress"
)

func TestStageInfo_Validate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		info    progress.StageInfo
		wantErr string
	}{
		"valid":           {info: progress.StageInfo{Name: "reports", Number: 1, TotalStages: 1}},
		"zero number":     {info: progress.StageInfo{Name: "reports", TotalStages: 1}, wantErr: "stage number must be > 0"},
		"zero total":      {info: progress.StageInfo{Name: "reports", Number: 1}, wantErr: "total stages must be > 0"},
		"negative fatals": {info: progress.StageInfo{Name: "reports", Number: 1, TotalStages: 1, Fatals: -1}, wantErr: "issue counts cannot be negative"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := tt.info.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
