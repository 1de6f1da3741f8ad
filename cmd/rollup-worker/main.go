package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tableturn/forecaster/common/bootstrap"
	"github.com/tableturn/forecaster/common/repository"
	"github.com/tableturn/forecaster/common/service"
	"github.com/tableturn/forecaster/common/worker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Bootstrap service components; rollups never touch the ratios cache
	components, err := bootstrap.Setup(ctx, "rollup-worker", bootstrap.WithoutCache())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup service: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	if components.Config.Queue.Type != "redis" {
		components.Logger.Error("rollup-worker needs QUEUE_TYPE=redis; the memory queue is consumed by the API process",
			"queue_type", components.Config.Queue.Type)
		os.Exit(1)
	}

	rollups := service.NewRollupService(&service.RollupServiceOpts{
		Events:    repository.NewEventRepository(components.DB),
		Rollups:   repository.NewRollupRepository(components.DB),
		Locations: repository.NewLocationRepository(components.DB),
		MaxWindow: components.Config.Rollup.MaxWindow,
		Logger:    components.Logger,
	})

	w, err := worker.NewRecomputeWorker(&worker.RecomputeOpts{
		Queue:   components.Queue,
		Handler: rollups,
		Logger:  components.Logger,
	})
	if err != nil {
		components.Logger.Error("failed to create recompute worker", "error", err)
		os.Exit(1)
	}

	components.Logger.Info("rollup-worker starting",
		"consumer_group", components.Config.Queue.ConsumerGroup,
		"batch_size", components.Config.Queue.BatchSize,
	)

	if err := w.Run(ctx); err != nil {
		components.Logger.Error("worker failed", "error", err)
		os.Exit(1)
	}

	processed, failed := w.Stats()
	components.Logger.Info("rollup-worker stopped", "processed", processed, "failed", failed)
}
