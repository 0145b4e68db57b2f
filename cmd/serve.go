package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/gsotw/internal/identity"
	"github.com/desertthunder/gsotw/internal/server"
	"github.com/desertthunder/gsotw/internal/shared"
)

// Serve runs the web app until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	wf, listings, err := r.workflow(ctx)
	if err != nil {
		return err
	}

	verifier, err := identity.NewVerifier(r.config.Identity)
	if err != nil {
		return err
	}
	if !verifier.Enabled() {
		r.logger.Warn("no identity key configured, all visitors are anonymous")
	}
	if r.config.Access.Passcode == "" {
		r.logger.Warn("access.passcode is empty, no code will unlock the app")
	}

	opts := server.Options{
		Config:   r.config,
		Gate:     r.gate(),
		Verifier: verifier,
		Workflow: wf,
		Listings: listings,
		Clock:    r.clock,
		Logger:   shared.WithLogger(r.logger, "component", "server"),
	}
	if r.db != nil {
		opts.Health = r.db.PingContext
	}

	app, err := server.New(opts)
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Address()
	}

	if cmd.Bool("open") {
		if err := shared.OpenBrowser(shared.BrowseURL(addr)); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	return app.Run(ctx, addr)
}
