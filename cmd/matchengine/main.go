// Command matchengine reads a CSV order event stream and drives it through
// one matching book per instrument, writing the result records each event
// produces to an output CSV.
package main

import (
	"fmt"
	"os"

	"matchbook/internal/config"
	"matchbook/internal/event"
	"matchbook/internal/live"
	"matchbook/internal/logging"
	"matchbook/internal/pipeline"
	"matchbook/internal/result"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(args, os.Stderr)
	if err != nil {
		return exitFatal(nil, err)
	}

	log, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return exitFatal(nil, err)
	}
	defer log.Close()

	in, err := os.Open(cfg.InputPath)
	if err != nil {
		return exitFatal(log, fmt.Errorf("opening input file: %w", err))
	}
	defer in.Close()

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return exitFatal(log, fmt.Errorf("creating output file: %w", err))
	}
	defer out.Close()

	reader, err := event.NewReader(in, log)
	if err != nil {
		return exitFatal(log, fmt.Errorf("reading input: %w", err))
	}

	writer, err := result.NewWriter(out)
	if err != nil {
		return exitFatal(log, fmt.Errorf("writing output: %w", err))
	}

	var obs pipeline.Observer
	var liveSrv *live.Server
	var snapshots *pipeline.SnapshotStore
	if cfg.LiveAddr != "" {
		snapshots = pipeline.NewSnapshotStore()
		liveSrv = live.NewServer(snapshots, log)
		obs = liveSrv
		httpSrv, err := liveSrv.Start(cfg.LiveAddr)
		if err != nil {
			return exitFatal(log, fmt.Errorf("starting live feed: %w", err))
		}
		defer httpSrv.Close()
	}

	stats, err := pipeline.Run(reader, writer, obs, snapshots, log, cfg.Pipeline)
	if err != nil {
		return exitFatal(log, fmt.Errorf("running pipeline: %w", err))
	}

	if err := writer.Flush(); err != nil {
		return exitFatal(log, fmt.Errorf("flushing output: %w", err))
	}

	log.Info("done: %d events, %d records, %d instruments, read=%s, total=%s",
		stats.EventsProcessed, stats.RecordsEmitted, stats.Instruments, stats.ReadDuration, stats.TotalDuration)
	return 0
}

func exitFatal(log *logging.Logger, err error) int {
	if log != nil {
		log.Critical("%v", err)
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	return 1
}
