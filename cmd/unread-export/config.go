package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/theimaginaryfoundation/unread-assistant/inbox"
)

// stdoutPath selects standard output for -out.
const stdoutPath = "-"

type Config struct {
	InPath  string
	OutPath string
	Pretty  bool
	Schema  bool
}

func (c Config) Validate() error {
	if c.Schema {
		return nil
	}
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.OutPath == "" {
		return errors.New("missing -out")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		InPath:  inbox.DefaultRecordsPath,
		OutPath: stdoutPath,
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InPath, "in", cfg.InPath, "Path to the unread message records file")
	fs.StringVar(&cfg.OutPath, "out", cfg.OutPath, "Output JSON path ('-' for stdout)")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print the JSON output")
	fs.BoolVar(&cfg.Schema, "schema", false, "Print the JSON Schema of the export document and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/unread-export -pretty")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/unread-export -in whatsapp_recv.txt -out snapshot.json")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/unread-export -schema -pretty")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.InPath != "" {
		cfg.InPath = filepath.Clean(cfg.InPath)
	}
	if cfg.OutPath != "" && cfg.OutPath != stdoutPath {
		cfg.OutPath = filepath.Clean(cfg.OutPath)
	}
	return cfg, nil
}
