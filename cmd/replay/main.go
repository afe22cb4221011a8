package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/tracking"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/geo"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/logger"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/replay"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	log, err := logger.NewNamed(os.Getenv("NAVIGATION_APP_ENV"), "navigation-replay")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	app := &cli.App{
		Name:  "replay",
		Usage: "replay position fixes against a route document",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "route",
				Usage:    "route document JSON file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "positions",
				Usage: "CSV file with latitude,longitude columns; simulated when empty",
			},
			&cli.IntFlag{
				Name:  "steps",
				Value: 5,
				Usage: "simulated fixes per leg",
			},
			&cli.Float64Flag{
				Name:  "threshold-km",
				Value: tracking.DefaultArrivalThresholdKm,
				Usage: "arrival radius around a stop",
			},
		},
		Action: func(c *cli.Context) error {
			r, err := loadRoute(c.String("route"))
			if err != nil {
				return err
			}

			var fixes []geo.LatLng
			if path := c.String("positions"); path != "" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open positions: %w", err)
				}
				defer f.Close()
				if fixes, err = replay.ReadFixes(f); err != nil {
					return err
				}
			} else {
				fixes = replay.Simulate(r, c.Int("steps"))
			}

			policy := tracking.DefaultPolicy()
			policy.ArrivalThresholdKm = c.Float64("threshold-km")

			report, err := replay.Run(tracking.NewMachine(policy), r, fixes)
			if err != nil {
				return err
			}

			for _, step := range report.Steps {
				if len(step.Arrived) == 0 {
					continue
				}
				log.Info("arrived",
					zap.Int("fix", step.Fix),
					zap.Ints("stops", step.Arrived),
					zap.String("position", step.At.String()),
					zap.String("status", step.Status.String()),
				)
			}
			log.Info("replay finished",
				zap.Int("fixes", len(fixes)),
				zap.Int("arrivals", len(report.Arrivals)),
				zap.Bool("complete", report.Complete()),
				zap.String("status", report.Final.Status.String()),
			)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal("replay failed", zap.Error(err))
	}
}

func loadRoute(path string) (*route.Route, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route: %w", err)
	}
	var doc route.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode route: %w", err)
	}
	return route.FromDocument(doc)
}
