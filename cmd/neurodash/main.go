package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/neurodash/internal/config"
	"github.com/Dicklesworthstone/neurodash/internal/gpu"
	"github.com/Dicklesworthstone/neurodash/internal/logging"
	"github.com/Dicklesworthstone/neurodash/internal/sampler"
	"github.com/Dicklesworthstone/neurodash/internal/sensor"
	"github.com/Dicklesworthstone/neurodash/internal/server"
	"github.com/Dicklesworthstone/neurodash/internal/ui"
)

func main() {
	cfg, err := config.FromFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(2)
	}

	logger := logging.New(logOutput(cfg.Mode, os.Stderr), cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		if cfg.Mode == config.ModeTUI {
			fmt.Fprintln(os.Stderr, "neurodash failed:", err)
		}
		logger.Error("neurodash failed", "error", err)
		os.Exit(1)
	}
}

// logOutput silences logging while the dashboard owns the terminal.
func logOutput(mode config.Mode, stderr io.Writer) io.Writer {
	if mode == config.ModeTUI {
		return io.Discard
	}
	return stderr
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var dev gpu.Device
	var gpuID gpu.Identity
	if cfg.EnableGPU {
		lib := gpu.NVML()
		if d, id, ok := gpu.Detect(lib, logger); ok {
			dev, gpuID = d, id
			defer lib.Shutdown()
		}
	} else {
		logger.Info("gpu sampling disabled by configuration")
	}

	smp := sampler.New(cfg, sensor.NewSystem(cfg.SensorTimeout), dev, gpuID, logger)

	switch cfg.Mode {
	case config.ModeJSON:
		return printOnce(ctx, smp, os.Stdout)
	case config.ModeJSONStream:
		return streamJSON(ctx, smp, os.Stdout)
	case config.ModeTUI:
		return runTUI(ctx, cfg, smp)
	default:
		return serve(ctx, cfg, smp, logger)
	}
}

// printOnce polls twice so CPU and process percentages cover a real interval.
func printOnce(ctx context.Context, smp *sampler.Sampler, w io.Writer) error {
	if _, err := smp.Poll(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(smp.Interval):
	}
	snap, err := smp.Poll(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func streamJSON(ctx context.Context, smp *sampler.Sampler, w io.Writer) error {
	g, ctx := errgroup.WithContext(ctx)
	stream := smp.Stream(ctx)
	g.Go(func() error { return ignoreCancel(smp.Run(ctx)) })
	g.Go(func() error {
		enc := json.NewEncoder(w)
		for snap := range stream {
			if err := enc.Encode(snap); err != nil {
				return err
			}
		}
		return nil
	})
	return g.Wait()
}

func runTUI(ctx context.Context, cfg config.Config, smp *sampler.Sampler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	stream := smp.Stream(ctx)
	g.Go(func() error { return ignoreCancel(smp.Run(ctx)) })
	g.Go(func() error {
		defer cancel()
		return ui.RunTUI(cfg, stream, cancel)
	})
	return g.Wait()
}

func serve(ctx context.Context, cfg config.Config, smp *sampler.Sampler, logger *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCancel(smp.Run(ctx)) })
	g.Go(func() error { return server.New(cfg, smp, logger).Start(ctx) })
	err := g.Wait()
	logger.Info("shutdown complete")
	return err
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
