package main

import (
	"fmt"
	"os"

	"github.com/dhamidi/perlyzer/perl/parser"
	"github.com/spf13/cobra"
)

func newTokensCmd() *cobra.Command {
	var withTrivia bool

	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "Dump the token stream of a Perl file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			opts := []parser.LexOption{}
			if withTrivia {
				opts = append(opts, parser.WithTriviaTokens())
			}

			for _, tok := range parser.Tokenize(string(data), opts...) {
				fmt.Printf("%6d..%-6d %-16s %q\n", tok.Start, tok.End, tok.Kind, tok.Text)
				if tok.Err != nil {
					fmt.Printf("               error: %s\n", tok.Err.Error())
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withTrivia, "trivia", false, "include whitespace, comments and POD")

	return cmd
}
