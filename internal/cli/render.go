package cli

import (
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"erbgo/internal/config"
	"erbgo/internal/datactx"
)

type renderFlags struct {
	compileFlags
	dataFiles   []string
	assignments []string
}

func newRenderCommand(cfg *config.Config) *cobra.Command {
	flags := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render [flags] [file.erb ...]",
		Short: "Render templates to stdout",
		Long: `Render compiles and runs each template and writes the output to stdout in
argument order. With no files, or "-", the template is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, cfg, flags, inputArgs(args))
		},
	}

	flags.register(cmd, cfg)
	cmd.Flags().StringArrayVarP(&flags.dataFiles, "data", "d", nil, "data file (.json, .yaml, .toml, .xml), repeatable")
	cmd.Flags().StringArrayVar(&flags.assignments, "set", nil, "set a variable, key=value with dotted keys, repeatable")
	return cmd
}

func runRender(cmd *cobra.Command, cfg *config.Config, flags *renderFlags, paths []string) error {
	opts, err := flags.options()
	if err != nil {
		return err
	}
	eng, err := flags.engine(cfg)
	if err != nil {
		return err
	}
	vars, err := datactx.Build(flags.dataFiles, flags.assignments)
	if err != nil {
		return err
	}

	sources := make([]string, len(paths))
	filenames := make([]string, len(paths))
	for i, path := range paths {
		sources[i], filenames[i], err = readSource(cmd, path)
		if err != nil {
			return err
		}
	}

	outputs := make([]string, len(paths))
	g, ctx := errgroup.WithContext(cmd.Context())
	for i := range paths {
		g.Go(func() error {
			fileOpts := opts
			fileOpts.Filename = filenames[i]
			tmpl, err := eng.Compile(sources[i], fileOpts)
			if err != nil {
				return err
			}
			// Each render gets its own copy; evaluators may write globals.
			out, err := eng.Render(ctx, tmpl, datactx.Clone(vars))
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, out := range outputs {
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
	return nil
}
