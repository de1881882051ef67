package main

import (
	"os"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/bugsnag/panicwrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	Version = "development"
	Unix    = ""
	Time    = "unknown"
	User    = "unknown"
)

func init() {
	debug.SetGCPercent(2000)
	if i, err := strconv.Atoi(Unix); err == nil {
		Time = time.Unix(int64(i), 0).Format(time.RFC3339)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "optipix",
		Short:         "Image and video compression",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "config.yaml", "Config file location")
	root.PersistentFlags().Bool("noheader", false, "Disable the startup header")
	root.PersistentFlags().String("level", "info", "Log level")

	root.AddCommand(
		newServeCmd(),
		newImageCmd(),
		newVideoCmd(),
		newProbeCmd(),
	)

	return root
}

func main() {
	exitStatus, err := panicwrap.BasicWrap(func(s string) {
		zap.S().Error("panic: ", s)
	})
	if err != nil {
		zap.S().Errorw("failed to setup panic handler: ",
			"error", err,
		)
		os.Exit(2)
	}

	if exitStatus >= 0 {
		os.Exit(exitStatus)
	}

	if err := newRootCmd().Execute(); err != nil {
		zap.S().Errorw("command failed",
			"error", err,
		)
		os.Exit(1)
	}
}
