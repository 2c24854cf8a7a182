package app

import (
	"context"
	"log/slog"
)

type app struct {
	di *dependencyInjector
}

func New(ctx context.Context, cfgPath string) *app {
	di := newDI(cfgPath)
	di.Logger()
	return &app{di: di}
}

func (a *app) Run(ctx context.Context) error {
	w := a.di.Worker(ctx)

	if err := w.Run(ctx); err != nil {
		return err
	}

	// Blocks until the context is canceled and every consumer drained.
	w.Stop(ctx)

	slog.Info("indexer gracefully stopped")
	return nil
}
