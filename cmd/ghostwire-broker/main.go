// Command ghostwire-broker runs the loopback WebSocket relay (spec
// §4.1): one listener that multiplexes client sessions across a
// single page-bridge connection.
//
// Grounded on NeboLoop-nebo's cmd/nebo/root.go — signal-driven
// shutdown, a plain-text startup banner, and a cobra root command
// wrapping the same run loop ServeCmd()/runServe() give the "serve"
// subcommand in the teacher.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghostwire/ghostwire/internal/broker"
	"github.com/ghostwire/ghostwire/internal/config"
	"github.com/ghostwire/ghostwire/internal/logging"
)

const shutdownTimeout = 5 * time.Second

func main() {
	root := &cobra.Command{
		Use:   "ghostwire-broker",
		Short: "Run the ghostwire loopback relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
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

	b, err := broker.New(store)
	if err != nil {
		return fmt.Errorf("create broker: %w", err)
	}
	defer b.Close()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.BrokerPort)
	srv := &http.Server{Addr: addr, Handler: b.Router()}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	printStartupBanner(addr)

	select {
	case <-ctx.Done():
		log.Info("shutting down broker")
	case err := <-errCh:
		cancel()
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func printStartupBanner(addr string) {
	fmt.Println()
	fmt.Println("  ghostwire-broker")
	fmt.Printf("  -> listening on ws://%s/ws\n", addr)
	fmt.Printf("  -> health:      http://%s/health\n", addr)
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()
}
