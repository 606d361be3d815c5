package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/samvad-hq/webtext/internal/app"
	"github.com/samvad-hq/webtext/internal/config"
	"github.com/samvad-hq/webtext/internal/logger"
	"github.com/samvad-hq/webtext/pkg/httpclient"
	"github.com/samvad-hq/webtext/pkg/webtext"
)

func main() {
	cli := &CLI{}
	cliCtx := kong.Parse(cli,
		kong.Name("webtext"),
		kong.Description("Fetch or post text over HTTP."),
		kong.UsageOnError(),
	)

	if err := run(cliCtx.Command(), cli); err != nil {
		if !errors.Is(err, errTransport) {
			fmt.Fprintf(os.Stderr, "webtext: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(command string, cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("webtext starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		// Restore default handling so a second signal kills the process.
		<-ctx.Done()
		stop()
	}()

	restyLog := httpclient.WithLogger(log.Sugared())
	runner, err := app.New(ctx, cfg, log,
		webtext.WithSharedClient(httpclient.NewRestyClient(0, restyLog)),
		webtext.WithScopedClientFactory(func() httpclient.Client {
			return httpclient.NewRestyClient(0, restyLog)
		}),
	)
	if err != nil {
		logger.ErrorObj("failed to initialize runner", "error", err)
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.WarnObj("runner close failed", "error", err)
		}
	}()

	return cli.dispatch(ctx, command, runner, os.Stdout)
}
