package main

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/seventv/optipix/internal/engine"
	"github.com/seventv/optipix/internal/testutil"
)

type closeTracker struct {
	engine.Engine
	closed atomic.Bool
}

func (c *closeTracker) Close() error {
	c.closed.Store(true)
	return nil
}

type trackerInit struct {
	eng *closeTracker
}

func (i trackerInit) Load(ctx context.Context) (engine.Engine, error) {
	return i.eng, nil
}

func (i trackerInit) Check() error {
	return nil
}

func TestStopReleasesEngineAfterDrain(t *testing.T) {
	eng := &closeTracker{}
	session := engine.NewSession(engine.SessionOptions{
		Initializer: trackerInit{eng: eng},
		Enabled:     true,
	})

	_, err := session.Acquire(context.Background())
	testutil.IsNil(t, err, "acquire")

	ctx, cancel := context.WithCancel(context.Background())
	a := &app{cancel: cancel, session: session}

	drained := false
	a.stop(func() {
		testutil.Assert(t, true, ctx.Err() != nil, "context cancelled before drain")
		testutil.Assert(t, false, eng.closed.Load(), "engine still open while draining")
		drained = true
	})

	testutil.Assert(t, true, drained, "drain ran")
	testutil.Assert(t, true, eng.closed.Load(), "engine released after drain")
	testutil.Assert(t, engine.StateUninitialized, session.State(), "session reset")
}
