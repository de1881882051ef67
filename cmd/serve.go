package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/seventv/optipix/internal/api"
	"github.com/seventv/optipix/internal/health"
	"github.com/seventv/optipix/internal/monitoring"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the compression service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(cmd)
			gCtx := a.gCtx

			// the service never delegates to another remote
			gCtx.Inst().Backend = a.embedded
			if !a.embedded.Available() {
				zap.S().Warnw("embedded engine unavailable, video routes will fail")
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

			wg := sync.WaitGroup{}

			if gCtx.Config().API.Enabled {
				srv := api.New(gCtx.Config(), a.embedded, a.images)
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-srv.Serve(gCtx)
				}()
			}
			if gCtx.Config().Health.Enabled {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-health.New(gCtx)
				}()
			}
			if gCtx.Config().Monitoring.Enabled {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-monitoring.New(gCtx)
				}()
			}

			done := make(chan struct{})
			go func() {
				<-sig
				go func() {
					select {
					case <-time.After(time.Minute):
					case <-sig:
					}
					zap.S().Fatal("force shutdown")
				}()

				zap.S().Info("shutting down")

				a.stop(wg.Wait)

				close(done)
			}()

			zap.S().Info("running")

			<-done

			zap.S().Info("shutdown")

			return nil
		},
	}
}
