package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/menta2k/geostamp"
	"github.com/menta2k/geostamp/internal/config"
	"github.com/menta2k/geostamp/internal/logging"
	"github.com/menta2k/geostamp/internal/utils"
)

// globalOptions are shared by every subcommand
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		logrus.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "geostamp",
		Short:         "Stamp photos with their GPS location and capture time",
		Long:          `Reads the EXIF GPS coordinates and capture timestamp of a photo and draws them, together with a postal address and a map thumbnail, into a translucent panel at the bottom of the image.`,
		Version:       geostamp.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the configuration file (default "+config.GetConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")

	rootCmd.AddCommand(
		newStampCommand(opts),
		newServeCommand(opts),
		newInspectCommand(opts),
		newConfigCommand(opts),
	)
	return rootCmd
}

// load reads the configuration, applies logging flags and sets up logrus.
// A missing default config file is not an error.
func (o *globalOptions) load() (*config.Config, error) {
	path := o.configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func newStamper(cfg *config.Config) (*geostamp.Stamper, error) {
	return geostamp.NewWithConfig(geostamp.Config{
		Style:        cfg.Style(),
		Processing:   cfg.Processing(),
		ThumbnailURL: cfg.Overlay.ThumbnailURL,
	})
}
