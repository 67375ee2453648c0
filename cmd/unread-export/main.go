package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/theimaginaryfoundation/unread-assistant/inbox"
	"github.com/theimaginaryfoundation/unread-assistant/inbox/fileutils"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(cfg Config, stdout io.Writer) error {
	if cfg.Schema {
		b, err := inbox.ExportSchema(cfg.Pretty)
		if err != nil {
			return fmt.Errorf("generate schema: %w", err)
		}
		_, err = fmt.Fprintln(stdout, string(b))
		return err
	}

	snap, err := inbox.LoadUnread(cfg.InPath)
	if err != nil {
		return err
	}
	doc := inbox.NewExportDocument(cfg.InPath, snap)

	if cfg.OutPath == stdoutPath {
		enc := json.NewEncoder(stdout)
		if cfg.Pretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(doc)
	}

	if err := fileutils.WriteJSONFileAtomic(cfg.OutPath, doc, cfg.Pretty); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(stdout, "contacts=%d total_unread=%d out=%s\n", doc.Contacts, doc.TotalUnread, cfg.OutPath)
	return nil
}
