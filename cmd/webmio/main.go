// Package main provides the CLI entry point for webmio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/webmio/pkg/adapters/logger"
	"github.com/user/webmio/pkg/ports"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "webmio",
		Usage:   l10n.T("Export and import WebM video"),
		Version: version,
		Description: l10n.T("webmio renders a synthetic timeline into a WebM file and reads " +
			"frames and samples back out of WebM files."),
		Commands: []*cli.Command{
			exportCommand(),
			infoCommand(),
			frameCommand(),
			audioCommand(),
		},
	}
}

// Flag categories, translated when the flags are built.
const (
	categoryOutput   = "Output"
	categoryTimeline = "Timeline"
	categoryVideo    = "Video"
	categoryAudio    = "Audio"
	categorySource   = "Source"
	categoryDebug    = "Debug"
	categoryLogging  = "Logging"
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "log-level",
			Aliases:  []string{"l"},
			Value:    "info",
			Usage:    l10n.T("Log level (debug, info, warn, error)"),
			Category: l10n.T(categoryLogging),
		},
		&cli.BoolFlag{
			Name:     "quiet",
			Aliases:  []string{"Q"},
			Usage:    l10n.T("Suppress all log output"),
			Category: l10n.T(categoryLogging),
		},
	}
}

func newLogger(c *cli.Context) (ports.Logger, error) {
	if c.Bool("quiet") {
		return logger.NewNoop(), nil
	}
	level, err := ports.ParseLogLevel(c.String("log-level"))
	if err != nil {
		return nil, err
	}
	return logger.NewConsole(level), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
