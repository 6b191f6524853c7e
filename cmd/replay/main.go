package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/pacechart/internal/replay"
)

// Default configuration constants.
const (
	defaultCountries  = 30
	defaultDays       = 120
	defaultUpdates    = 20
	defaultWidth      = 960
	defaultStep       = 40
	defaultLeaveEvery = 10
	defaultTopN       = 20
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		countries  = flag.Int("countries", defaultCountries, "Countries in the generated dataset")
		days       = flag.Int("days", defaultDays, "Samples per country")
		updates    = flag.Int("updates", defaultUpdates, "Series updates to replay")
		width      = flag.Float64("width", defaultWidth, "Draw width for the sweep")
		step       = flag.Float64("step", defaultStep, "Pointer grid spacing in pixels")
		leaveEvery = flag.Int("leave-every", defaultLeaveEvery, "Check a pointer leave every N points")
		topN       = flag.Int("top", defaultTopN, "Leaders to fetch")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent sweep workers")
		seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Dataset seed")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write the final dataset to this JSON file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Log every failed check")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		replay.ShowHelp()
		return 0
	}
	if *step <= 0 || *width <= 0 || *workers < 1 {
		os.Stderr.WriteString("width, step and workers must be positive\n")
		return 2
	}

	closeLog, err := replay.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &replay.Config{
		BaseURL:    *baseURL,
		Countries:  *countries,
		Days:       *days,
		Updates:    *updates,
		Width:      *width,
		Step:       *step,
		LeaveEvery: *leaveEvery,
		TopN:       *topN,
		Workers:    *workers,
		Seed:       *seed,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := replay.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Replay failed: " + err.Error() + "\n")
		return 1
	}
	return 0
}
