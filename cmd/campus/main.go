package main

import (
	"context"
	"os"

	"golang.org/x/term"

	"campus/internal/apiclient"
	"campus/internal/config"
	"campus/internal/dashboard"
	"campus/internal/logger"
	"campus/internal/notify"
)

func main() {
	cfg := config.Load()
	// logs go to stderr so they never interleave with the rendered view
	log := logger.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	api := apiclient.New(cfg.APIBaseURL, apiclient.WithLogger(log))
	var opts []dashboard.Option
	if cfg.StaleGuard {
		opts = append(opts, dashboard.WithStaleGuard())
	}

	sh := newShell(os.Stdin, os.Stdout, api, notify.NewWriter(os.Stdout), opts...)
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		sh.readPassword = func() (string, error) {
			b, err := term.ReadPassword(fd)
			return string(b), err
		}
	}

	log.Debug().Str("api", cfg.APIBaseURL).Msg("campus client starting")
	// Ctrl-C ends the process, in-flight requests included
	if err := sh.run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("input failed")
	}
}
