package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/ochestra-tech/cloudoptimizer/internal/api"
	"github.com/ochestra-tech/cloudoptimizer/internal/config"
	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
	"github.com/ochestra-tech/cloudoptimizer/internal/cost/providers"
	"github.com/ochestra-tech/cloudoptimizer/internal/health"
	"github.com/ochestra-tech/cloudoptimizer/internal/optimization"
	"github.com/ochestra-tech/cloudoptimizer/internal/report"
)

const dateLayout = "2006-01-02"

func main() {
	cmd := &cli.Command{
		Name:  "cloudoptimizer",
		Usage: "Multi-cloud cost analysis and optimization recommendations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
		},
		Commands: []*cli.Command{
			analyzeCmd(),
			recommendationsCmd(),
			optimizeCmd(),
			configCmd(),
			serveCmd(),
			proactiveCmd(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Run a cost analysis and print the ranked recommendations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Restrict the analysis to one cloud (aws, azure or gcp)",
			},
			&cli.StringFlag{
				Name:  "start",
				Usage: "Window start date (YYYY-MM-DD, default 30 days ago)",
			},
			&cli.StringFlag{
				Name:  "end",
				Usage: "Window end date (YYYY-MM-DD, default today)",
			},
			outputFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runAnalysis(ctx, cmd, nil)
		},
	}
}

func recommendationsCmd() *cli.Command {
	return &cli.Command{
		Name:  "recommendations",
		Usage: "Print current recommendations over the default window",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Restrict to one cloud (aws, azure or gcp)",
			},
			outputFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runAnalysis(ctx, cmd, nil)
		},
	}
}

func optimizeCmd() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Run selected strategies against one cloud",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "provider",
				Usage:    "Cloud to analyze (aws, azure or gcp)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "strategy",
				Usage: "Strategy to run (repeatable, default all active)",
			},
			outputFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runAnalysis(ctx, cmd, cmd.StringSlice("strategy"))
		},
	}
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration helpers",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a starter configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   "cloudoptimizer.yaml",
						Usage:   "Destination path",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					path := cmd.String("output")
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("%s already exists, refusing to overwrite", path)
					}
					if err := os.WriteFile(path, []byte(config.Sample()), 0o644); err != nil {
						return fmt.Errorf("write config: %w", err)
					}
					fmt.Printf("Wrote starter configuration to %s\n", path)
					return nil
				},
			},
		},
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API with the proactive analysis cycle",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			ctx, cancel := signalContext(ctx)
			defer cancel()

			optimizer, err := optimization.NewOptimizer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("initialize optimizer: %w", err)
			}

			monitor := health.NewMonitor(optimizer.Adapters(), 5*time.Minute)
			monitor.Start(ctx)
			optimizer.Start(ctx)

			server := api.NewServer(cfg.API, monitor, optimizer)
			go func() {
				log.Printf("API listening on :%d", cfg.API.Port)
				if err := server.Start(); err != nil {
					log.Printf("API server stopped: %v", err)
					cancel()
				}
			}()

			<-ctx.Done()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			log.Println("Shutting down API server...")
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("API server shutdown error: %v", err)
			}
			monitor.Stop()
			optimizer.Stop()
			log.Println("Shutdown complete")
			return nil
		},
	}
}

func proactiveCmd() *cli.Command {
	return &cli.Command{
		Name:  "proactive",
		Usage: "Run the recurring analysis cycle without the HTTP API",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			ctx, cancel := signalContext(ctx)
			defer cancel()

			optimizer, err := optimization.NewOptimizer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("initialize optimizer: %w", err)
			}

			optimizer.Start(ctx)
			<-ctx.Done()
			optimizer.Stop()
			return nil
		},
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Value:   "table",
		Usage:   "Output format (table or json)",
	}
}

// runAnalysis is the shared body of analyze, recommendations and optimize.
func runAnalysis(ctx context.Context, cmd *cli.Command, strategyNames []string) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	format, err := report.ParseFormat(cmd.String("output"))
	if err != nil {
		return err
	}

	provider := cost.Provider(cmd.String("provider"))
	if provider != "" && !provider.IsValid() {
		return fmt.Errorf("unknown provider %q (want aws, azure or gcp)", provider)
	}

	start, end, err := window(cmd)
	if err != nil {
		return err
	}

	optimizer, err := optimization.NewOptimizer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize optimizer: %w", err)
	}

	set, err := optimizer.AnalyzeWith(ctx, provider, strategyNames, start, end)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	return report.Render(os.Stdout, set, format)
}

func window(cmd *cli.Command) (time.Time, time.Time, error) {
	start, end := providers.DefaultWindow()

	if s := cmd.String("start"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", s, err)
		}
		start = parsed
	}
	if s := cmd.String("end"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", s, err)
		}
		end = parsed
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date must precede end date")
	}
	return start, end, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()
	return ctx, cancel
}
