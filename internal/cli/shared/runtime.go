package shared

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dino-ds/laneqc/internal/config"
)

// LoadConfig loads the configuration named by the --config flag. Failures
// map to ExitInvalidArguments. A no_color setting disables fatih/color.
func LoadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	var path string
	if f := cmd.Flag(ConfigFlag); f != nil {
		path = f.Value.String()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, WithExitCode(ExitInvalidArguments, err)
	}
	if cfg.NoColor {
		color.NoColor = true
	}
	return cfg, nil
}

// NewLogger builds a text handler on w at level (debug, info, warn, error).
// Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// RequireFile checks that path names a readable regular file. A missing
// file maps to ExitMissingInput, anything else to ExitInvalidArguments.
func RequireFile(kind, path string) error {
	if strings.TrimSpace(path) == "" {
		return WithExitCode(ExitInvalidArguments, errors.New(kind+" path is required"))
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return WithExitCode(ExitMissingInput, errors.New(kind+" not found: "+path))
	case err != nil:
		return WithExitCode(ExitInvalidArguments, err)
	case info.IsDir():
		return WithExitCode(ExitInvalidArguments, errors.New(kind+" is a directory: "+path))
	}
	return nil
}
