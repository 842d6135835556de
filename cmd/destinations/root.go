package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/shpitdev/destination-pipeline/config"
	"github.com/shpitdev/destination-pipeline/internal/app"
	"github.com/shpitdev/destination-pipeline/internal/observability"
	"github.com/spf13/cobra"
)

// cli carries state shared by every subcommand.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	envFile    string
	logLevel   string

	// appOpts lets tests inject components.
	appOpts []app.Option

	logger *slog.Logger
	tel    *observability.Telemetry
	app    *app.App
}

func newRootCmd(stdout, stderr io.Writer, appOpts ...app.Option) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr, appOpts: appOpts}

	root := &cobra.Command{
		Use:               "destinations",
		Short:             "Generate, enrich and publish the travel destination corpus",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.tel == nil {
				return nil
			}
			return c.tel.Shutdown(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "Path to config.yml (default: ./config.yml, ./config/config.yml or embedded defaults)")
	pf.StringVar(&c.envFile, "env-file", ".env", "Dotenv file loaded before configuration; missing files are ignored")
	pf.StringVar(&c.logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	root.AddCommand(
		c.runCmd(),
		c.uploadCmd(),
		c.clearCmd(),
		c.statsCmd(),
		c.getCmd(),
		c.deleteCmd(),
		c.scheduleCmd(),
		versionCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if c.logLevel != "" {
		level = c.logLevel
	}
	c.logger = observability.NewLogger(c.stderr, cfg.Mode, observability.ParseLevel(level))
	slog.SetDefault(c.logger)

	if c.tel, err = observability.Setup(); err != nil {
		return err
	}
	if addr := cfg.Observability.MetricsAddr; addr != "" {
		go func() {
			if err := c.tel.Serve(cmd.Context(), addr, c.logger); err != nil {
				c.logger.Error("metrics endpoint stopped", "error", err)
			}
		}()
	}

	opts := append([]app.Option{app.WithTelemetry(c.tel)}, c.appOpts...)
	c.app, err = app.New(cmd.Context(), cfg, c.logger, opts...)
	return err
}
