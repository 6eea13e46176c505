// Command ghostwire-bridge-sim plays the page-bridge role against
// internal/bridge/hostfake instead of a real browser extension host,
// for integration tests and local development without a browser
// (spec §9's host-seam open question; glossary: "Bridge simulator").
//
// Grounded on NeboLoop-nebo's cmd/nebo/root.go for the signal-driven
// run loop, generalized to dial out rather than listen.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ghostwire/ghostwire/internal/bridge"
	"github.com/ghostwire/ghostwire/internal/bridge/hostfake"
	"github.com/ghostwire/ghostwire/internal/config"
	"github.com/ghostwire/ghostwire/internal/logging"
)

func main() {
	seedURL := ""
	root := &cobra.Command{
		Use:   "ghostwire-bridge-sim",
		Short: "Run a simulated page-bridge against an in-memory fake browser host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(seedURL)
		},
	}
	root.Flags().StringVar(&seedURL, "seed-url", "https://example.test/", "URL of the one tab the fake host starts with")
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(seedURL string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := cfg.Logger()
	ctx, cancel := context.WithCancel(logging.AddToContext(context.Background(), log))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	store, err := cfg.TuningStore(ctx)
	if err != nil {
		return fmt.Errorf("load tuning store: %w", err)
	}
	defer store.Close()

	host := hostfake.New()
	host.AddTab("Seed tab", seedURL, 800)

	br := bridge.New(host, store)
	conn := bridge.NewConn(cfg.BrokerURL, cfg.ExtensionID, cfg.ExtensionVersion, cfg.RelayToken, br, log)

	log.Info("bridge simulator dialing broker", "url", cfg.BrokerURL, "extensionId", cfg.ExtensionID)
	conn.Run(ctx)
	return nil
}
