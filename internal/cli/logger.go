package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jwtly10/go-postjson/internal/config"
)

const version = "0.1.0"

// SetupLogger sets up the internal logger for the CLI tool, logging to a file in the config directory.
// A log file that cannot be opened never stops the tool, logging is dropped instead.
func SetupLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	// Logs will be saved at ~/.postjson/logs/postjson.log unless POSTJSON_CONFIG_DIR is set
	var out io.Writer = io.Discard
	var closer io.Closer = nopCloser{}

	logFile := cfg.LogFile()
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err == nil {
		f, err := os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err == nil {
			out = f
			closer = f
		}
	}

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	logger := slog.New(slog.NewTextHandler(out, opts)).
		With("invocation_id", uuid.NewString())

	logger.Info("postjson CLI started", "version", version)

	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
