package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/angelcm/pse-data-bridge/internal/analysis"
	"github.com/angelcm/pse-data-bridge/internal/config"
	"github.com/angelcm/pse-data-bridge/internal/events"
	"github.com/angelcm/pse-data-bridge/internal/store"
)

// Deps holds the external collaborators selected by configuration.
type Deps struct {
	Store     store.Store
	Publisher events.Publisher
	Completer analysis.Completer

	closers []func() error
}

// OpenDeps opens the configured store and, when their addresses are set, the
// Redis publisher and the completion client.
func OpenDeps(ctx context.Context, cfg config.Config, log *slog.Logger) (*Deps, error) {
	d := &Deps{}
	switch cfg.StoreDriver {
	case "sqlite":
		st, err := store.OpenSQLite(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		d.Store = st
	case "memory", "":
		d.Store = store.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	d.closers = append(d.closers, d.Store.Close)

	if cfg.RedisAddr != "" {
		pub, err := events.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Publisher = pub
		d.closers = append(d.closers, pub.Close)
		log.Info("publishing mapping events", slog.String("redis", cfg.RedisAddr))
	}

	if cfg.Completion.URL != "" {
		cl := analysis.NewHTTPClient(cfg.HTTPTimeout)
		d.Completer = analysis.NewHTTPCompleter(cl, cfg.Completion.URL, cfg.Completion.Model, cfg.Completion.APIKey)
	}
	return d, nil
}

// Options turns the optional collaborators into service options.
func (d *Deps) Options() []Option {
	var opts []Option
	if d.Publisher != nil {
		opts = append(opts, WithPublisher(d.Publisher))
	}
	if d.Completer != nil {
		opts = append(opts, WithCompleter(d.Completer))
	}
	return opts
}

func (d *Deps) Close() error {
	var first error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
