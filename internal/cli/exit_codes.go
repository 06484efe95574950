package cli

import (
	"github.com/dino-ds/laneqc/internal/cli/shared"
)

// Exit codes for the laneqc CLI (re-exported from shared)
// These codes support programmatic composition and CI/CD integration
const (
	// ExitSuccess indicates the command succeeded and QC passed
	ExitSuccess = shared.ExitSuccess

	// ExitQCFailed indicates at least one fatal QC issue
	ExitQCFailed = shared.ExitQCFailed

	// ExitInvalidArguments indicates invalid arguments or configuration
	ExitInvalidArguments = shared.ExitInvalidArguments

	// ExitMissingInput indicates a lane config or rows file does not exist
	ExitMissingInput = shared.ExitMissingInput

	// ExitSchemaFailed indicates a lane or config file failed validation
	ExitSchemaFailed = shared.ExitSchemaFailed
)

// ExitCode returns the exit code from an error (re-exported from shared).
func ExitCode(err error) int {
	return shared.ExitCode(err)
}
