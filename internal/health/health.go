package health

import (
	"github.com/seventv/optipix/internal/global"
	"github.com/seventv/optipix/internal/instance"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Handler reports 500 when no backend is selected or the selected one cannot serve.
func Handler(gCtx global.Context) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		defer func() {
			if err := recover(); err != nil {
				zap.S().Errorw("panic in health",
					"panic", err,
				)
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			}
		}()

		backend := gCtx.Inst().Backend
		if backend == nil {
			zap.S().Warnw("no execution backend selected")
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			return
		}

		if state, ok := backend.(instance.State); ok && !state.Healthy() {
			zap.S().Warnw("backend is not healthy",
				"backend", backend.Name(),
			)
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			return
		}

		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString(backend.Name())
	}
}

func New(gCtx global.Context) <-chan struct{} {
	done := make(chan struct{})

	srv := fasthttp.Server{
		Handler: Handler(gCtx),
	}

	go func() {
		defer close(done)
		zap.S().Infow("Health enabled",
			"bind", gCtx.Config().Health.Bind,
		)

		if err := srv.ListenAndServe(gCtx.Config().Health.Bind); err != nil {
			zap.S().Fatalw("failed to bind health",
				"error", err,
			)
		}
	}()

	go func() {
		<-gCtx.Done()

		_ = srv.Shutdown()
	}()

	return done
}
