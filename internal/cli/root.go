// Package cli implements the erbgo command line: rendering templates,
// inspecting the generated program and token stream, and serving a
// template directory over HTTP.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"erbgo/internal/common/errors"
	"erbgo/internal/config"
	"erbgo/internal/engine"
	"erbgo/internal/evaluator"
)

// Version is set at build time with -ldflags "-X erbgo/internal/cli.Version=...".
var Version = "dev"

// compileFlags are shared by every command that compiles templates.
type compileFlags struct {
	trim        string
	percent     bool
	safe        string
	language    string
	accumulator string
}

func (f *compileFlags) register(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVarP(&f.trim, "trim", "T", cfg.TrimMode, `trim mode: "", ">", "<>", "-", optionally with "%"`)
	cmd.Flags().BoolVarP(&f.percent, "percent", "P", false, "enable % code lines")
	cmd.Flags().StringVarP(&f.safe, "safe", "S", cfg.Isolation, "isolation level (none|restricted|strict or 0-2)")
	cmd.Flags().StringVar(&f.language, "lang", cfg.Language, "evaluator language (js|lua|expr)")
	cmd.Flags().StringVar(&f.accumulator, "accumulator", cfg.Accumulator, "name of the output variable")
}

func (f *compileFlags) options() (engine.Options, error) {
	opts, err := engine.ParseOptions(f.trim, f.safe, f.accumulator)
	if err != nil {
		return engine.Options{}, errors.ValidationError(err.Error())
	}
	opts.Percent = opts.Percent || f.percent
	return opts, nil
}

func (f *compileFlags) engine(cfg *config.Config) (*engine.Engine, error) {
	ev, err := evaluator.New(f.language)
	if err != nil {
		return nil, err
	}
	engineConfig, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	return engine.NewEngine(ev, engineConfig)
}

// NewRootCommand builds the command tree. Flag defaults come from cfg.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "erbgo",
		Short:         "Compile and render templates with embedded <% %> directives",
		Long:          `erbgo compiles ERB-style templates into JavaScript, Lua or expr programs and runs them.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("color", "auto", "colorize errors (auto|on|off)")

	root.AddCommand(newRenderCommand(cfg))
	root.AddCommand(newCompileCommand(cfg))
	root.AddCommand(newTokensCommand(cfg))
	root.AddCommand(newServeCommand(cfg))
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the command line and reports a failure on stderr. The
// returned error is the one already printed.
func Execute(ctx context.Context, cfg *config.Config, args []string) error {
	root := NewRootCommand(cfg)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err != nil {
		colorFlag, _ := root.PersistentFlags().GetString("color")
		printError(root.ErrOrStderr(), err, useColor(colorFlag, os.Stderr))
	}
	return err
}

// useColor resolves the --color flag; auto colors only terminals.
func useColor(flag string, f *os.File) bool {
	switch flag {
	case "on", "always":
		return true
	case "off", "never":
		return false
	default:
		return isTerminal(f)
	}
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// readSource reads a template from a file, or from stdin for "-".
func readSource(cmd *cobra.Command, path string) (string, string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", errors.InternalError("failed to read stdin", err)
		}
		return string(data), engine.DefaultFilename, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", errors.NotFoundError(fmt.Sprintf("template file %s", path))
		}
		return "", "", errors.InternalError("failed to read template", err).WithContext("path", path)
	}
	return string(data), path, nil
}

// inputArgs treats no arguments as stdin.
func inputArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"-"}
	}
	return args
}
