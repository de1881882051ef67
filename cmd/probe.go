package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe [file]",
		Short: "Print video metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(cmd)
			defer a.close()

			if err := a.selectBackend(); err != nil {
				return err
			}

			src, err := readSource(args[0])
			if err != nil {
				return err
			}

			info, err := a.gCtx.Inst().Backend.Info(a.gCtx, src)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(info)
		},
	}
}
