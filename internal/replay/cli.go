package replay

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/pacechart/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging initializes the logger, teeing records to logFile when set.
// It returns a function that closes the file.
func SetupLogging(logFile string, verbose bool) (func(), error) {
	var out io.Writer = os.Stdout
	closeFn := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closeFn = func() { _ = f.Close() }
	}
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closeFn, nil
}

// ShowHelp prints usage information for the replay tool.
func ShowHelp() {
	os.Stdout.WriteString(`Pace chart replay tool
======================

Uploads a generated dataset to a running chart server, replays idempotent
updates and sweeps pointer positions over /highlight, verifying every answer.

Usage:
  replay [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -countries int     Countries in the generated dataset (default 30)
  -days int          Samples per country (default 120)
  -updates int       Series updates to replay (default 20)
  -width float       Draw width for the sweep (default 960)
  -step float        Pointer grid spacing in pixels (default 40)
  -leave-every int   Check a pointer leave every N points (default 10)
  -top int           Leaders to fetch (default 20)
  -workers int       Concurrent sweep workers (default CPU cores * 2)
  -seed uint         Dataset seed (default: current time)
  -timeout duration  HTTP request timeout (default 30s)
  -output string     Write the final dataset to this JSON file
  -log string        Also write logs to this file
  -verbose           Log every failed check
  -help              Show this help message
`)
}
