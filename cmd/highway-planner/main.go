// Package main is the highway planner command. It plans trajectories for telemetry read from stdin,
// one JSON message per line, and writes one trajectory per line to stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/highway/config"
	"go.viam.com/highway/logging"
	"go.viam.com/highway/motionplan"
	"go.viam.com/highway/telemetry"
)

const (
	// Flags.
	flagConfig  = "config"
	flagDebug   = "debug"
	flagLogFile = "log-file"
	flagMap     = "map"
	flagTrace   = "trace"
)

func main() {
	logger := logging.NewLogger("highway")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(os.Stdin, os.Stdout, logger).RunContext(ctx, os.Args)
	stop()
	if err != nil {
		logging.Fatal(logger, err)
	}
}

func newApp(in io.Reader, out io.Writer, logger logging.Logger) *cli.App {
	return &cli.App{
		Name:   "highway-planner",
		Usage:  "plan highway trajectories for simulator telemetry",
		Reader: in,
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "write logs to the rotated `FILE` instead of stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "plan for telemetry read from stdin until it ends",
				UsageText: "highway-planner [--config FILE] run [--map FILE]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagMap,
						Usage: "road waypoints `FILE`, overriding the config",
					},
					&cli.BoolFlag{
						Name:  flagTrace,
						Usage: "log every planning cycle without enabling debug logging",
					},
				},
				Action: func(c *cli.Context) error {
					return runAction(c, logger)
				},
			},
			{
				Name:  "validate",
				Usage: "check a configuration file",
				Action: func(c *cli.Context) error {
					if _, err := loadConfig(c); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "config is valid")
					return nil
				},
			},
			{
				Name:  "defaults",
				Usage: "print the default configuration",
				Action: func(c *cli.Context) error {
					enc := json.NewEncoder(c.App.Writer)
					enc.SetIndent("", "  ")
					return enc.Encode(config.NewDefaultConfig())
				},
			},
			{
				Name:  "schema",
				Usage: "print the JSON schema of the configuration file",
				Action: func(c *cli.Context) error {
					// config.Config and road.Config share a name, so definitions are inlined.
					reflector := jsonschema.Reflector{RequiredFromJSONSchemaTags: true, DoNotReference: true}
					enc := json.NewEncoder(c.App.Writer)
					enc.SetIndent("", "  ")
					return enc.Encode(reflector.Reflect(&config.Config{}))
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String(flagConfig)
	if path == "" {
		return config.NewDefaultConfig(), nil
	}
	cfg, err := config.Read(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", path)
	}
	return cfg, nil
}

func runAction(c *cli.Context, logger logging.Logger) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if mapFile := c.String(flagMap); mapFile != "" {
		cfg.MapFile = mapFile
	}
	if path := c.String(flagLogFile); path != "" {
		fileLogger, closer := logging.NewFileLogger("highway", path)
		defer func() {
			//nolint:errcheck
			closer.Close()
		}()
		logger = fileLogger
	}
	logger.SetLevel(cfg.Level())
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	}

	road, err := cfg.BuildRoad()
	if err != nil {
		return err
	}
	planner, err := motionplan.NewPlanner(road, &cfg.Planner, logger.Sublogger("planner"))
	if err != nil {
		return err
	}
	logger.Infow("planner ready", "map", cfg.MapPath(), "lanes", road.RightmostLane()+1, "max_speed", cfg.Planner.MaxSpeed)

	ctx := c.Context
	if c.Bool(flagTrace) {
		ctx = logging.EnableTracing(ctx, "cycles")
	}
	session := telemetry.NewSession(planner, logger.Sublogger("telemetry"))
	err = session.Run(ctx, c.App.Reader, c.App.Writer)
	summary := session.Summary()
	logger.Infow("telemetry ended",
		"session", session.ID(),
		"cycles", summary.Cycles,
		"skipped", summary.Skipped,
		"mean_plan_time", summary.MeanPlanTime,
		"p95_plan_time", summary.P95PlanTime,
		"max_plan_time", summary.MaxPlanTime,
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
