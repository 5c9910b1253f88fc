package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"NewsVerifier/internal/app"
	"NewsVerifier/internal/config"
	"NewsVerifier/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cliApp := &cli.App{
		Name:  "newsverifier",
		Usage: "crawl news feeds, cluster stories and cross-reference them",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the crawler, task runner and operational API until interrupted",
				Action: func(c *cli.Context) error {
					return withApp(c.Context, func(ctx context.Context, a *app.Application) error {
						runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
						defer stop()
						return a.Run(runCtx)
					})
				},
			},
			{
				Name:  "crawl",
				Usage: "run a single crawl pass and drain queued tasks",
				Action: func(c *cli.Context) error {
					return withApp(c.Context, func(ctx context.Context, a *app.Application) error {
						summary, err := a.Crawl(ctx)
						if err != nil {
							return err
						}
						if _, err := a.DrainTasks(ctx, 100); err != nil {
							return err
						}
						return printJSON(summary)
					})
				},
			},
			{
				Name:  "recheck",
				Usage: "run a single recheck sweep over due clusters",
				Action: func(c *cli.Context) error {
					return withApp(c.Context, func(ctx context.Context, a *app.Application) error {
						summary, err := a.Recheck(ctx)
						if err != nil {
							return err
						}
						return printJSON(summary)
					})
				},
			},
			{
				Name:      "verify",
				Usage:     "verify one cluster against its cross-reference rule",
				ArgsUsage: "<cluster-id>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one cluster id")
					}
					id := c.Args().First()
					return withApp(c.Context, func(ctx context.Context, a *app.Application) error {
						result, err := a.Verify(ctx, id)
						if err != nil {
							return err
						}
						return printJSON(map[string]any{
							"recommendation": result.Recommendation,
							"score":          result.Score,
							"matched":        result.Matched,
							"missing":        result.Missing,
						})
					})
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func withApp(ctx context.Context, fn func(context.Context, *app.Application) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
