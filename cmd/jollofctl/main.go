// Command jollofctl runs maintenance tasks against the leaderboard store.
//
//	jollofctl clear-leaderboard -yes
//	jollofctl rebuild-stats
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"jollofwars/internal/analytics"
	"jollofwars/internal/config"
	"jollofwars/internal/kv"
)

func main() {
	cfg := config.Load()
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := kv.Connect(ctx, cfg.RedisURL, cfg.StoreTimeout)
	if err != nil {
		log.Fatalf("connecting to redis: %v", err)
	}
	defer client.Close()

	if err := run(ctx, client, os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err.Error())
	}
}

var errUsage = errors.New("usage: jollofctl <clear-leaderboard|rebuild-stats> [flags]")

func run(ctx context.Context, client *kv.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	svc := analytics.NewService(client, analytics.Options{})

	switch args[0] {
	case "clear-leaderboard":
		fs := flag.NewFlagSet("clear-leaderboard", flag.ContinueOnError)
		yes := fs.Bool("yes", false, "confirm deleting every leaderboard entry")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if !*yes {
			return errors.New("refusing to clear the leaderboard without -yes")
		}
		if err := svc.Clear(ctx); err != nil {
			return fmt.Errorf("clearing leaderboard: %w", err)
		}
		fmt.Fprintln(out, "leaderboard cleared")
		return nil

	case "rebuild-stats":
		report, err := svc.RebuildStats(ctx)
		if err != nil {
			return fmt.Errorf("rebuilding stats: %w", err)
		}
		fmt.Fprintf(out, "processed %d entries, updated %d players\n", report.EntriesProcessed, report.PlayersUpdated)
		return nil
	}
	return errUsage
}
