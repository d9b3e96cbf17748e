package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/genc-murat/stablepool/internal/bench"
	"github.com/genc-murat/stablepool/internal/config"
	"github.com/genc-murat/stablepool/internal/metrics"
	"github.com/genc-murat/stablepool/internal/results"
	"github.com/genc-murat/stablepool/internal/workload"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("env"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}
	return cfg, nil
}

func writeResult(cfg *config.Config, res *bench.Result) error {
	w, err := results.NewWriter(results.Config{
		Path:         cfg.Results.Path,
		BufferSize:   cfg.Results.BufferSize,
		EnableBackup: cfg.Results.EnableBackup,
		RotationSize: cfg.Results.RotationSize,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Append(res)
}

func report(res *bench.Result, m *metrics.Metrics, showStats bool) {
	log.Printf("%s: %d ops, %d live, %d slab(s), capacity0=%d size0=%d holes=%d digest=%s (%dms)",
		res.Name, res.Ops, res.Live, res.Slabs, res.Capacity0, res.Size0, res.Holes,
		res.Digest, res.DurationMs)

	if showStats {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			log.Printf("Failed to render stats: %v", err)
			return
		}
		fmt.Println(string(data))
	}
}

func main() {
	app := &cli.App{
		Name:  "poolbench",
		Usage: "Exercise the stable pool and record the results",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Config environment name under config/",
				Value:   "development",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "Print per-operation timing stats",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the config-driven random churn",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}

					m := metrics.New()
					res, err := bench.RunChurn(cfg.Bench, m)
					if err != nil {
						return fmt.Errorf("churn failed: %v", err)
					}

					report(res, m, c.Bool("stats"))
					return writeResult(cfg, res)
				},
			},
			{
				Name:      "workload",
				Usage:     "Run a JSON workload script",
				ArgsUsage: "[file]",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}

					path := c.Args().First()
					if path == "" {
						path = cfg.Workload.Path
					}
					if path == "" {
						return fmt.Errorf("no workload file given and none configured")
					}

					w, err := workload.Load(path)
					if err != nil {
						return fmt.Errorf("failed to load workload: %v", err)
					}

					m := metrics.New()
					res, err := bench.RunWorkload(w, m)
					if err != nil {
						return fmt.Errorf("workload %q failed: %v", w.Name, err)
					}

					report(res, m, c.Bool("stats"))
					return writeResult(cfg, res)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
