// Command tissuesim runs a tissue simulation scenario and prints a summary of
// the final state.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/daniacca/tissuesim/internal/logging"
	"github.com/daniacca/tissuesim/internal/sim"
	"github.com/daniacca/tissuesim/internal/sim/notifiers"
)

func main() {
	cfg, err := loadRunConfigFromOS()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg RunConfig, logger logging.Logger, out io.Writer) error {
	scenario, err := sim.LoadScenarioConfig(cfg.ScenarioFile)
	if err != nil {
		return err
	}

	nm := sim.NewNotificationManagerWithLogger(logger)
	defer nm.Close()
	var ids []string
	if cfg.WebhookURL != "" {
		hook := notifiers.NewWebhookNotifier("", cfg.WebhookURL)
		if err := nm.RegisterNotifier(hook); err != nil {
			return err
		}
		ids = append(ids, hook.ID())
	}
	var ws *notifiers.WebSocketNotifier
	if cfg.Listen != "" {
		ws = notifiers.NewWebSocketNotifier("", logger)
		if err := nm.RegisterNotifier(ws); err != nil {
			return err
		}
		ids = append(ids, ws.ID())
	}

	s, err := sim.BuildSimulationFromConfig(scenario, sim.BuildOptions{
		Options: sim.Options{
			Logger:        logger,
			Notifications: nm,
			NotifierIDs:   ids,
			ReportEvery:   cfg.ReportEvery,
		},
		Seed: cfg.Seed,
	})
	if err != nil {
		return fmt.Errorf("build scenario %s: %w", scenario.Name, err)
	}

	if cfg.Listen != "" {
		srv := &http.Server{Addr: cfg.Listen, Handler: NewServer(s, ws, logger).Handler()}
		go func() {
			logger.Infof("listening on %s", cfg.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("http server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	start := time.Now()
	runErr := s.Run(ctx, cfg.Steps, cfg.Dt)
	printSummary(out, scenario.Name, s.Snapshot(), time.Since(start))
	if len(ids) > 0 {
		if err := nm.Close(); err != nil {
			logger.Warnf("closing notifiers: %v", err)
		}
		st := nm.Stats()
		logger.Infof("step events: %s delivered, %s failed, %s superseded",
			humanize.Comma(st.Delivered), humanize.Comma(st.Failed), humanize.Comma(st.Superseded))
	}
	if errors.Is(runErr, context.Canceled) {
		logger.Warnf("interrupted after %d steps", s.Steps())
		return nil
	}
	return runErr
}

func printSummary(w io.Writer, name string, snap sim.Snapshot, elapsed time.Duration) {
	fmt.Fprintf(w, "scenario %s: %s steps, t=%g, %s cells, %d contacts (%s)\n",
		name, humanize.Comma(snap.Step), snap.Time, humanize.Comma(int64(len(snap.Cells))),
		snap.CriticalPairs, elapsed.Round(time.Millisecond))

	species := make([]string, 0, len(snap.Medium))
	for name := range snap.Medium {
		species = append(species, name)
	}
	sort.Strings(species)
	fmt.Fprintln(w, "medium:")
	for _, name := range species {
		fmt.Fprintf(w, "  %-16s %s\n", name, humanize.SIWithDigits(snap.Medium[name], 4, ""))
	}

	groups := make(map[string]int)
	for _, c := range snap.Cells {
		groups[c.Group]++
	}
	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)
	for _, g := range names {
		fmt.Fprintf(w, "cells %-10s %s\n", g, humanize.Comma(int64(groups[g])))
	}
}
