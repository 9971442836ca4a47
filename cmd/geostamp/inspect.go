package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newInspectCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <photo>",
		Short: "Print the GPS tags and capture time a photo would be stamped with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}

			stamper, err := newStamper(cfg)
			if err != nil {
				return err
			}
			defer stamper.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := stamper.Inspect(f)
			if err != nil {
				return err
			}

			js, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(js))
			return nil
		},
	}
}
