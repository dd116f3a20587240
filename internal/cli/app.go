package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jwtly10/go-postjson/internal/config"
	"github.com/jwtly10/go-postjson/internal/sender"
	"github.com/jwtly10/go-postjson/internal/transport"
)

var (
	ErrUsage      = errors.New("wrong number of arguments")
	ErrGlobalInit = errors.New("transport initialization failed")
)

// poster is the part of the sender the app depends on
type poster interface {
	Post(ctx context.Context, key, value string) error
}

type App struct {
	Cfg    *config.Config
	logger *slog.Logger

	stdout io.Writer
	stderr io.Writer

	initTransport    func() error
	cleanupTransport func()
	newPoster        func(opts sender.Options, logger *slog.Logger) poster
}

func NewApp(cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) *App {
	return &App{
		Cfg:    cfg,
		logger: logger,
		stdout: stdout,
		stderr: stderr,

		initTransport:    transport.Init,
		cleanupTransport: transport.Cleanup,
		newPoster: func(opts sender.Options, logger *slog.Logger) poster {
			return sender.New(opts, logger)
		},
	}
}

// Run posts {"key":"value"} to the configured endpoint. The transport is set up
// before anything else and torn down once on every path out of Run.
func (a *App) Run(ctx context.Context, key, value string) error {
	if err := a.initTransport(); err != nil {
		a.logger.Error("transport init failed", "error", err)
		a.fatal("The initialization of the transport has failed.")
		return fmt.Errorf("%w: %v", ErrGlobalInit, err)
	}
	defer a.cleanupTransport()

	opts := sender.Options{
		URL:    a.Cfg.URL,
		CAInfo: a.Cfg.CAInfo,
		Output: a.stdout,
	}
	if a.Cfg.Verbose {
		opts.Verbose = a.stderr
	}

	if err := a.newPoster(opts, a.logger).Post(ctx, key, value); err != nil {
		a.diagnostic(err)
		a.fatal("PostJSON failed.")
		return err
	}

	a.logger.Info("PostJSON succeeded", "url", a.Cfg.URL)
	return nil
}
