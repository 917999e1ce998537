package config

import (
	"io"
	"testing"

	"matchbook/internal/logging"
)

func TestParseRequiresTwoPositionalArgs(t *testing.T) {
	if _, err := Parse([]string{"only-one.csv"}, io.Discard); err == nil {
		t.Fatal("expected error with only one positional argument")
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]string{"in.csv", "out.csv"}, io.Discard)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.InputPath != "in.csv" || cfg.OutputPath != "out.csv" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
	if cfg.LogLevel != logging.Info {
		t.Fatalf("expected default log level info, got %v", cfg.LogLevel)
	}
	if cfg.LiveAddr != "" {
		t.Fatalf("expected live feed disabled by default, got %q", cfg.LiveAddr)
	}
}

func TestParseRejectsBadLogLevel(t *testing.T) {
	if _, err := Parse([]string{"--log-level", "verbose", "in.csv", "out.csv"}, io.Discard); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestParseRejectsNonPositiveQueueSize(t *testing.T) {
	if _, err := Parse([]string{"--inbox-size", "0", "in.csv", "out.csv"}, io.Discard); err == nil {
		t.Fatal("expected error for non-positive inbox size")
	}
}
