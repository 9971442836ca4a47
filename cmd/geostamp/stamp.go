package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/menta2k/geostamp"
	"github.com/menta2k/geostamp/internal/config"
	"github.com/menta2k/geostamp/internal/utils"
	"github.com/menta2k/geostamp/pkg/storage"
	"github.com/menta2k/geostamp/pkg/types"
)

type stampOptions struct {
	location  types.Location
	output    string
	outputDir string
	upload    bool
	debug     bool
}

func newStampCommand(global *globalOptions) *cobra.Command {
	opts := &stampOptions{}

	cmd := &cobra.Command{
		Use:   "stamp [flags] <photo>... | <folder>",
		Short: "Draw the location panel onto one or more photos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			return runStamp(cmd.Context(), cfg, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.location.Address, "address", "", "Street address line")
	cmd.Flags().StringVar(&opts.location.City, "city", "", "City")
	cmd.Flags().StringVar(&opts.location.State, "state", "", "State or region")
	cmd.Flags().StringVar(&opts.location.Country, "country", "", "Country")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (single input only)")
	cmd.Flags().StringVar(&opts.outputDir, "out-dir", "", "Output directory (overrides output.output_dir)")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "Archive stamped images to the configured storage backend")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Also write a debug image outlining the overlay regions")

	return cmd
}

func runStamp(ctx context.Context, cfg *config.Config, opts *stampOptions, args []string) error {
	inputs, err := collectInputs(args)
	if err != nil {
		return err
	}
	if opts.output != "" && len(inputs) > 1 {
		return fmt.Errorf("--output can only be used with a single input, got %d", len(inputs))
	}

	outDir := cfg.Output.OutputDir
	if opts.outputDir != "" {
		outDir = opts.outputDir
	}
	if opts.output == "" {
		if err := utils.EnsureDir(outDir); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var sink storage.Sink
	if opts.upload {
		sink, err = storage.New(ctx, cfg.StorageSettings())
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		if sink == nil {
			logrus.Warn("--upload given but storage.backend is none; nothing will be archived")
		}
	}

	stamper, err := newStamper(cfg)
	if err != nil {
		return err
	}
	defer stamper.Close()

	failed := 0
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}

		out := opts.output
		if out == "" {
			out = utils.GenerateOutputFilename(in, outDir, "", cfg.Output.Suffix, "")
		}

		log := logrus.WithField("input", in)
		result, err := stamper.ProcessFile(ctx, in, out, opts.location)
		if err != nil {
			log.WithError(err).Error("Failed to stamp photo")
			failed++
			continue
		}
		log.WithFields(logrus.Fields{
			"output": out,
			"size":   utils.FormatFileSize(int64(len(result.Data))),
		}).Info("Wrote stamped photo")

		if opts.debug {
			writeDebug(stamper, result, out)
		}
		if sink != nil {
			name := filepath.Base(out)
			where, err := sink.Store(ctx, name, result.Data, result.ContentType)
			if err != nil {
				log.WithError(err).Warn("Failed to archive stamped photo")
			} else {
				log.WithField("location", where).Info("Archived stamped photo")
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d photos failed: %w", failed, len(inputs), geostamp.ErrProcessingFailed)
	}
	return nil
}

func writeDebug(stamper *geostamp.Stamper, result *types.Result, out string) {
	data, err := stamper.DebugOverlay(result)
	if err != nil {
		logrus.WithError(err).Warn("Debug overlay failed")
		return
	}
	ext := filepath.Ext(out)
	path := strings.TrimSuffix(out, ext) + "_debug" + ext
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logrus.WithError(err).Warn("Failed to write debug overlay")
		return
	}
	logrus.WithField("path", path).Info("Wrote debug overlay")
}

// collectInputs expands folders into the image files they contain
func collectInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		switch {
		case utils.DirExists(arg):
			files, err := utils.ListImageFiles(arg)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", arg, err)
			}
			inputs = append(inputs, files...)
		case utils.FileExists(arg):
			if !utils.IsImageFile(arg) {
				return nil, fmt.Errorf("%s does not look like an image", arg)
			}
			inputs = append(inputs, arg)
		default:
			return nil, fmt.Errorf("%s: no such file or directory", arg)
		}
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no images found")
	}
	return inputs, nil
}
