// Command ghostwire-cli is the interactive (and -c one-shot) terminal
// client named generically in spec §6 as an external collaborator.
// Reimplements original_source/cli/main.go's "hb>" REPL in Go idiom:
// a single cobra root command that runs the REPL (or the -c one-shot
// command when that flag is set), readline
// for line editing and history, and ghostwireclient for the wire
// protocol — it links nothing from internal/broker or internal/bridge.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func main() {
	var addr, oneshot, token string

	root := &cobra.Command{
		Use:   "ghostwire-cli",
		Short: "Interactive client for a ghostwire broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			go func() {
				<-sigCh
				cancel()
			}()

			sess, err := newSession(ctx, addr, token, oneshot != "")
			if err != nil {
				return err
			}
			defer sess.close()

			if oneshot != "" {
				sess.dispatch(oneshot)
				return nil
			}
			return sess.runREPL()
		},
	}

	root.Flags().StringVar(&addr, "addr", "ws://127.0.0.1:7331/ws", "broker WebSocket address")
	root.Flags().StringVarP(&oneshot, "command", "c", "", "execute one command and exit")
	root.Flags().StringVar(&token, "token", "", "relay auth token, required for non-loopback brokers")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
