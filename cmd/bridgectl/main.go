// Command bridgectl runs a single bridge operation against the configured
// store and prints the result as JSON. It is meant for scheduled syncs and
// for loading fixtures.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/angelcm/pse-data-bridge/internal/bridge"
	"github.com/angelcm/pse-data-bridge/internal/config"
)

func main() {
	a := &app{out: os.Stdout, open: openService}
	err := newRootCommand(a).ExecuteContext(context.Background())
	if cerr := a.shutdown(); cerr != nil {
		fmt.Fprintln(os.Stderr, "close:", cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openService(ctx context.Context) (*bridge.Service, func() error, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	deps, err := bridge.OpenDeps(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return bridge.NewService(deps.Store, logger, cfg, deps.Options()...), deps.Close, nil
}
