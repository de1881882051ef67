package main

import (
	"context"
	"runtime"
	"time"

	"github.com/seventv/optipix/internal/backend"
	"github.com/seventv/optipix/internal/configure"
	"github.com/seventv/optipix/internal/engine"
	"github.com/seventv/optipix/internal/global"
	"github.com/seventv/optipix/internal/image_processor"
	"github.com/seventv/optipix/internal/instance"
	"github.com/seventv/optipix/internal/svc/prometheus"
	"github.com/seventv/optipix/internal/svc/s3"
	"github.com/seventv/optipix/internal/video_processor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is everything a command needs, wired from the config.
type app struct {
	gCtx   global.Context
	cancel context.CancelFunc

	session  *engine.Session
	images   *image_processor.Processor
	embedded *backend.Embedded
	remote   *backend.Remote
}

func header(config *configure.Config) {
	if config.NoHeader {
		return
	}

	zap.S().Info("OptiPix")
	zap.S().Infof("Version: %s", Version)
	zap.S().Infof("build.Time: %s", Time)
	zap.S().Infof("build.User: %s", User)
	zap.S().Debug("MaxProcs: ", runtime.GOMAXPROCS(0))
}

func newApp(cmd *cobra.Command) *app {
	config := configure.New(cmd.Root().PersistentFlags())
	header(config)

	gCtx, cancel := global.WithCancel(global.New(context.Background(), config))

	gCtx.Inst().Prometheus = prometheus.New(prometheus.Options{
		Labels: config.Monitoring.Labels.ToPrometheus(),
	})

	var s3Inst instance.S3
	if usesS3(config) {
		var err error
		s3Inst, err = s3.New(s3.Options{
			Region:      config.S3.Region,
			Endpoint:    config.S3.Endpoint,
			AccessToken: config.S3.AccessToken,
			SecretKey:   config.S3.SecretKey,
		})
		if err != nil {
			zap.S().Fatalw("failed to setup s3",
				"error", err,
			)
		}
	}

	session := engine.NewSession(engine.SessionOptions{
		Initializer: engine.NewLoader(config, s3Inst),
		Enabled:     config.Engine.Enabled,
		InitTimeout: time.Duration(config.Engine.InitTimeoutSeconds) * time.Second,
		Prometheus:  gCtx.Inst().Prometheus,
	})

	a := &app{
		gCtx:     gCtx,
		cancel:   cancel,
		session:  session,
		images:   image_processor.New(gCtx.Inst().Prometheus),
		embedded: backend.NewEmbedded(session, video_processor.New(session, gCtx.Inst().Prometheus)),
	}

	if config.Remote.URL != "" {
		a.remote = backend.NewRemote(backend.RemoteOptions{
			URL:     config.Remote.URL,
			Timeout: time.Duration(config.Remote.TimeoutSeconds) * time.Second,
		})
	}

	return a
}

func usesS3(config *configure.Config) bool {
	for _, src := range config.Engine.Sources {
		if src.Kind == configure.EngineSourceS3 {
			return true
		}
	}

	return false
}

// selectBackend picks the execution backend once for this process.
func (a *app) selectBackend() error {
	b, err := backend.Select(a.embedded, a.remote)
	if err != nil {
		return err
	}

	a.gCtx.Inst().Backend = b

	return nil
}

func (a *app) close() {
	a.stop(func() {})
}

// stop cancels the process context, runs drain, and only then releases the
// engine and its working directory.
func (a *app) stop(drain func()) {
	a.cancel()

	drain()

	if err := a.session.Reset(); err != nil {
		zap.S().Warnw("failed to release engine",
			"error", err,
		)
	}
}
