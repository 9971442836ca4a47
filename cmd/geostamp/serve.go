package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/geostamp/internal/server"
	"github.com/menta2k/geostamp/pkg/storage"
)

func newServeCommand(global *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload form over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx := cmd.Context()
			sink, err := storage.New(ctx, cfg.StorageSettings())
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}

			stamper, err := newStamper(cfg)
			if err != nil {
				return err
			}
			defer stamper.Close()

			srv := server.New(stamper, sink, server.Config{
				Addr:           cfg.Server.Addr,
				MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
				ArchiveSuffix:  cfg.Output.Suffix,
			})
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
