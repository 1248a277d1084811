package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/dhamidi/perlyzer/perl/codebase"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Scan a directory of Perl files and report diagnostics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cb := codebase.New(dir)
			if err := cb.ScanAll(); err != nil {
				return fmt.Errorf("scan %s: %w", dir, err)
			}

			total := reportDiagnostics(cb)

			if !watch {
				if total > 0 {
					os.Exit(1)
				}
				return nil
			}

			watcher := codebase.NewFileWatcher(cb)
			watcher.Start()
			defer watcher.Stop()

			fmt.Fprintf(os.Stderr, "watching %s for changes, press Ctrl-C to stop\n", dir)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and rescan on file changes")

	return cmd
}

func reportDiagnostics(cb *codebase.Codebase) int {
	paths := cb.Files()
	sort.Strings(paths)

	total := 0
	for _, path := range paths {
		doc := cb.GetFile(path)
		if doc == nil {
			continue
		}
		for _, d := range doc.Diagnostics() {
			fmt.Printf("%s:%d:%d: %s\n", path, d.Line, d.Column, d.Message)
			if d.Suggestion != "" {
				fmt.Printf("  hint: %s\n", d.Suggestion)
			}
			total++
		}
	}

	fmt.Fprintf(os.Stderr, "checked %d files, %d problems\n", len(paths), total)
	return total
}
