package engine

import (
	"context"
	"sync"
	"time"

	"github.com/seventv/optipix/internal/instance"
	"github.com/seventv/optipix/media"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateInitFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateInitFailed:
		return "init_failed"
	}

	return "unknown"
}

// Initializer loads an engine. Loader is the production implementation.
type Initializer interface {
	Load(ctx context.Context) (Engine, error)
	Check() error
}

type SessionOptions struct {
	Initializer Initializer
	Enabled     bool
	InitTimeout time.Duration
	Prometheus  instance.Prometheus
}

// Session owns the lifetime of one loaded engine shared by every caller.
type Session struct {
	opts SessionOptions

	mtx    sync.Mutex
	state  State
	engine Engine
	err    error

	group singleflight.Group
}

func NewSession(opts SessionOptions) *Session {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = time.Minute * 2
	}

	return &Session{opts: opts}
}

func (s *Session) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.state
}

// Healthy is false only after a failed initialization.
func (s *Session) Healthy() bool {
	return s.State() != StateInitFailed
}

// Available reports whether the embedded engine can be used at all.
func (s *Session) Available() bool {
	if !s.opts.Enabled || s.opts.Initializer == nil {
		return false
	}

	if err := s.opts.Initializer.Check(); err != nil {
		zap.S().Debugw("embedded engine unavailable",
			"error", err,
		)
		return false
	}

	return true
}

// Acquire returns the ready engine, loading it on first use.
// Concurrent callers share a single load attempt.
func (s *Session) Acquire(ctx context.Context) (Engine, error) {
	s.mtx.Lock()
	if s.state == StateReady {
		eng := s.engine
		s.mtx.Unlock()
		return eng, nil
	}
	s.mtx.Unlock()

	if !s.opts.Enabled || s.opts.Initializer == nil {
		return nil, media.Errorf(media.KindEngineInit, "embedded engine is disabled")
	}

	ch := s.group.DoChan("init", func() (interface{}, error) {
		return s.load()
	})

	select {
	case <-ctx.Done():
		return nil, media.Wrap(media.KindEngineInit, ctx.Err(), "engine could not be loaded")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		return res.Val.(Engine), nil
	}
}

func (s *Session) load() (Engine, error) {
	s.mtx.Lock()
	if s.state == StateReady {
		eng := s.engine
		s.mtx.Unlock()
		return eng, nil
	}
	s.state = StateInitializing
	s.mtx.Unlock()

	// the shared attempt outlives the context of any single caller
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.InitTimeout)
	defer cancel()

	var done func(bool)
	if s.opts.Prometheus != nil {
		done = s.opts.Prometheus.EngineInit()
	}

	eng, err := s.opts.Initializer.Load(ctx)

	if done != nil {
		done(err == nil)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err != nil {
		zap.S().Errorw("engine init failed",
			"error", err,
		)
		s.state = StateInitFailed
		s.err = err
		return nil, err
	}

	s.state = StateReady
	s.engine = eng
	s.err = nil

	return eng, nil
}

// Err is the last initialization failure, if any.
func (s *Session) Err() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.err
}

// Reset tears down the working storage and returns to StateUninitialized.
func (s *Session) Reset() error {
	s.mtx.Lock()
	eng := s.engine
	s.engine = nil
	s.state = StateUninitialized
	s.err = nil
	s.mtx.Unlock()

	s.group.Forget("init")

	if eng != nil {
		return eng.Close()
	}

	return nil
}
