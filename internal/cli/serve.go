package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"erbgo/internal/common/logging"
	"erbgo/internal/config"
	"erbgo/internal/datactx"
	"erbgo/internal/middleware"
	"erbgo/internal/server"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	compileFlags
	addr        string
	dir         string
	dataFiles   []string
	assignments []string
}

func newServeCommand(cfg *config.Config) *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Serve a template directory over HTTP",
		Long: `Serve registers every *.erb file under the template directory and renders
them at /render/{name}, where name is the file path without ".erb".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, cfg, flags)
		},
	}

	flags.register(cmd, cfg)
	cmd.Flags().StringVar(&flags.addr, "addr", cfg.ServeAddr, "listen address")
	cmd.Flags().StringVar(&flags.dir, "dir", cfg.TemplateDir, "template directory")
	cmd.Flags().StringArrayVarP(&flags.dataFiles, "data", "d", nil, "base data file, repeatable")
	cmd.Flags().StringArrayVar(&flags.assignments, "set", nil, "set a base variable, key=value, repeatable")
	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config, flags *serveFlags) error {
	opts, err := flags.options()
	if err != nil {
		return err
	}
	eng, err := flags.engine(cfg)
	if err != nil {
		return err
	}
	base, err := datactx.Build(flags.dataFiles, flags.assignments)
	if err != nil {
		return err
	}
	if _, err := server.LoadDir(eng, flags.dir, opts); err != nil {
		return err
	}

	middlewares := []mux.MiddlewareFunc{middleware.RequestID, middleware.LoggingMiddleware}
	if rps, burst := cfg.RateLimit(); rps > 0 {
		middlewares = append(middlewares, middleware.NewRateLimiter(rps, burst).Middleware)
	}

	router := server.NewRouter(server.NewHandlers(eng, base), middlewares...)
	srv := server.New(router, flags.addr)
	if err := srv.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logging.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
