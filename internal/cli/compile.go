package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"erbgo/internal/common/errors"
	"erbgo/internal/config"
	"erbgo/internal/erb"
)

func newCompileCommand(cfg *config.Config) *cobra.Command {
	flags := &compileFlags{}
	var numbered bool
	cmd := &cobra.Command{
		Use:   "compile [flags] [file.erb]",
		Short: "Print the generated program",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			eng, err := flags.engine(cfg)
			if err != nil {
				return err
			}
			source, filename, err := readSource(cmd, inputArgs(args)[0])
			if err != nil {
				return err
			}
			opts.Filename = filename

			tmpl, err := eng.Compile(source, opts)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			text := tmpl.Program().Source()
			if !numbered {
				fmt.Fprintln(w, text)
				return nil
			}
			for i, line := range strings.Split(text, "\n") {
				fmt.Fprintf(w, "%3d %s\n", i+1, line)
			}
			return nil
		},
	}

	flags.register(cmd, cfg)
	cmd.Flags().BoolVarP(&numbered, "number", "n", false, "number the program lines")
	return cmd
}

func newTokensCommand(cfg *config.Config) *cobra.Command {
	var trim string
	var percent bool
	cmd := &cobra.Command{
		Use:   "tokens [flags] [file.erb]",
		Short: "Print the scanner token stream",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, pct, err := erb.ParseTrimMode(trim)
			if err != nil {
				return errors.ValidationError(err.Error())
			}
			source, _, err := readSource(cmd, inputArgs(args)[0])
			if err != nil {
				return err
			}

			tokens, err := erb.NewScanner(source, mode, pct || percent).Tokens()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, tok := range tokens {
				fmt.Fprintf(w, "%4d  %-12s %q\n", tok.Line, tok.Kind, tok.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&trim, "trim", "T", cfg.TrimMode, "trim mode")
	cmd.Flags().BoolVarP(&percent, "percent", "P", false, "enable % code lines")
	return cmd
}
