package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seventv/optipix/internal/global"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// Handler serves registry in the OpenMetrics format when the scraper asks for it.
func Handler(registry *prometheus.Registry) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		Registry:          registry,
		EnableOpenMetrics: true,
	}))
}

// New serves metrics on the monitoring bind until gCtx is done.
func New(gCtx global.Context) <-chan struct{} {
	server := fasthttp.Server{
		Name:             "optipix-monitoring",
		Handler:          Handler(NewRegistry(gCtx)),
		GetOnly:          true,
		DisableKeepalive: true,
		ReadTimeout:      time.Second * 10,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		zap.S().Infow("Monitoring enabled",
			"bind", gCtx.Config().Monitoring.Bind,
			"labels", len(gCtx.Config().Monitoring.Labels),
		)
		if err := server.ListenAndServe(gCtx.Config().Monitoring.Bind); err != nil {
			zap.S().Fatalw("failed to start monitoring bind",
				"error", err,
			)
		}
	}()

	go func() {
		<-gCtx.Done()
		_ = server.Shutdown()
	}()

	return done
}
