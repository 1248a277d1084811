package main

import (
	"fmt"
	"os"

	"github.com/dhamidi/perlyzer/perl/parser"
	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	var outputFormat string
	var withSpans bool
	var budgetName string

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a Perl file and dump the syntax tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			budget, err := budgetByName(budgetName)
			if err != nil {
				return err
			}

			out := parser.Parse(string(data), parser.WithBudget(budget))

			switch outputFormat {
			case "sexp":
				if withSpans {
					fmt.Println(out.Tree.SexpWithSpans())
				} else {
					fmt.Println(out.Tree.Sexp())
				}
			case "tree":
				if withSpans {
					fmt.Print(out.Tree.StringWithPositions())
				} else {
					fmt.Print(out.Tree.String())
				}
			default:
				return fmt.Errorf("unknown format: %s", outputFormat)
			}

			for _, d := range out.Diagnostics() {
				fmt.Fprintf(os.Stderr, "%s:%d:%d: %s\n", args[0], d.Line, d.Column, d.Message)
				if d.Suggestion != "" {
					fmt.Fprintf(os.Stderr, "  hint: %s\n", d.Suggestion)
				}
			}
			if out.TerminatedEarly {
				fmt.Fprintln(os.Stderr, "note: parse budget exhausted, tree is partial")
			}
			if len(out.Errors) > 0 {
				os.Exit(1)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "sexp", "output format (sexp, tree)")
	cmd.Flags().BoolVar(&withSpans, "spans", false, "include byte spans in output")
	cmd.Flags().StringVar(&budgetName, "budget", "default", "parse budget (default, strict, unlimited)")

	return cmd
}

func budgetByName(name string) (parser.ParseBudget, error) {
	switch name {
	case "default":
		return parser.DefaultBudget(), nil
	case "ide":
		return parser.IDEBudget(), nil
	case "strict":
		return parser.StrictBudget(), nil
	case "unlimited":
		return parser.UnlimitedBudget(), nil
	}
	return parser.ParseBudget{}, fmt.Errorf("unknown budget: %s", name)
}
