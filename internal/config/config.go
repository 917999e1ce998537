// Package config parses the matchengine CLI surface. Flag handling follows
// the stdlib flag package the way cmd/loadgen/main.go in the reference
// engine does — no third-party CLI framework is used anywhere in the
// corpus, so none is introduced here either.
package config

import (
	"flag"
	"fmt"
	"io"

	"matchbook/internal/logging"
	"matchbook/internal/pipeline"
)

// Config is the fully parsed and validated CLI invocation.
type Config struct {
	InputPath  string
	OutputPath string

	LogLevel logging.Level
	LogFile  string

	Pipeline pipeline.Config

	LiveAddr string // empty disables the live broadcast feed
}

// Parse parses args (excluding the program name) into a Config. Flags come
// first; exactly two positional arguments must follow them, the input and
// output file paths.
func Parse(args []string, errOut io.Writer) (Config, error) {
	fs := flag.NewFlagSet("matchengine", flag.ContinueOnError)
	fs.SetOutput(errOut)

	logLevel := fs.String("log-level", "info", "minimum log level: trace, debug, info, warning, error, critical, off")
	logFile := fs.String("log-file", "", "log file path; empty or \"none\" means stdout")
	eventQueueSize := fs.Int("event-queue-size", pipeline.DefaultConfig().EventQueueSize, "capacity of the bounded event queue")
	inboxSize := fs.Int("inbox-size", pipeline.DefaultConfig().InboxSize, "capacity of each per-instrument inbox")
	resultQueueSize := fs.Int("result-queue-size", pipeline.DefaultConfig().ResultQueueSize, "capacity of the shared result queue")
	liveAddr := fs.String("live-addr", "", "if set, serve a read-only live result feed on this address (e.g. :8090)")

	fs.Usage = func() {
		fmt.Fprintf(errOut, "usage: matchengine [flags] <input.csv> <output.csv>\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	rest := fs.Args()
	if len(rest) != 2 {
		fs.Usage()
		return Config{}, fmt.Errorf("expected exactly 2 positional arguments (input, output), got %d", len(rest))
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		return Config{}, err
	}
	if *eventQueueSize <= 0 || *inboxSize <= 0 || *resultQueueSize <= 0 {
		return Config{}, fmt.Errorf("queue sizes must be positive")
	}

	return Config{
		InputPath:  rest[0],
		OutputPath: rest[1],
		LogLevel:   level,
		LogFile:    *logFile,
		Pipeline: pipeline.Config{
			EventQueueSize:  *eventQueueSize,
			InboxSize:       *inboxSize,
			ResultQueueSize: *resultQueueSize,
		},
		LiveAddr: *liveAddr,
	}, nil
}
