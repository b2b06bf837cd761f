// agent is the remote trading process. It asks the registry whether its bot
// id is authorized and, if so, trades until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"bothub/internal/agent"
	"bothub/internal/platform/logger"
	"bothub/internal/registry/identifier"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, agent.ErrNotAuthorized) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		server     string
		botID      string
		logLevel   string
		interval   time.Duration
		retryDelay time.Duration
		errorDelay time.Duration
	)
	flagSet := pflag.NewFlagSet("agent", pflag.ContinueOnError)
	flagSet.StringVar(&server, "server", "http://localhost:5000", "registry base URL")
	flagSet.StringVar(&botID, "bot-id", "BA0001", "bot identifier issued at registration")
	flagSet.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flagSet.DurationVar(&interval, "interval", agent.DefaultTradeInterval, "pause between trades")
	flagSet.DurationVar(&retryDelay, "retry-delay", agent.DefaultVerifyRetry, "pause between verification attempts when the registry is unreachable")
	flagSet.DurationVar(&errorDelay, "error-delay", agent.DefaultErrorDelay, "pause after a failed trade")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if !identifier.IsValidFormat(botID) {
		return fmt.Errorf("invalid --bot-id %q: want two uppercase letters and four digits", botID)
	}

	log := logger.New(logLevel).With("component", "agent")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := agent.NewRunner(agent.NewClient(server), botID,
		agent.WithLogger(log),
		agent.WithTradeInterval(interval),
		agent.WithVerifyRetry(retryDelay),
		agent.WithErrorDelay(errorDelay),
	)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}
