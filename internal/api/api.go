package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"
	"github.com/seventv/optipix/internal/configure"
	"github.com/seventv/optipix/internal/global"
	"github.com/seventv/optipix/internal/image_processor"
	"github.com/seventv/optipix/internal/instance"
	"github.com/seventv/optipix/internal/resolve"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// Server is the remote compression service.
type Server struct {
	cfg      *configure.Config
	backend  instance.Backend
	images   *image_processor.Processor
	imageCfg resolve.ImageConfig
}

func New(cfg *configure.Config, backend instance.Backend, images *image_processor.Processor) *Server {
	return &Server{
		cfg:     cfg,
		backend: backend,
		images:  images,
		imageCfg: resolve.ImageConfig{
			MaxSizeBytes: cfg.Image.MaxSizeBytes,
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.cfg.API.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", headerSHA3},
		MaxAge:         300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.cfg.API.TimeoutSeconds > 0 {
		r.Use(middleware.Timeout(time.Duration(s.cfg.API.TimeoutSeconds) * time.Second))
	}
	r.Use(corsHandler.Handler)

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.API.RateLimit > 0 {
			r.Use(httprate.Limit(
				s.cfg.API.RateLimit,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests"})
				}),
			))
		}

		r.Post("/compress-video", s.compressVideo)
		r.Post("/video-info", s.videoInfo)
		r.Post("/compress-image", s.compressImage)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		zap.S().Infow("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// Serve runs the router on fasthttp until gCtx is done.
func (s *Server) Serve(gCtx global.Context) <-chan struct{} {
	done := make(chan struct{})

	srv := fasthttp.Server{
		Name:               "optipix",
		Handler:            fasthttpadaptor.NewFastHTTPHandler(s.Router()),
		MaxRequestBodySize: s.cfg.API.MaxUploadBytes,
	}

	go func() {
		zap.S().Infow("API enabled",
			"bind", s.cfg.API.Bind,
			"backend", s.backend.Name(),
		)

		if err := srv.ListenAndServe(s.cfg.API.Bind); err != nil {
			zap.S().Fatalw("failed to bind api",
				"error", err,
			)
		}
	}()

	go func() {
		defer close(done)
		<-gCtx.Done()

		// Shutdown returns once open connections have finished
		_ = srv.Shutdown()
	}()

	return done
}
