package health

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/seventv/optipix/internal/configure"
	"github.com/seventv/optipix/internal/global"
	"github.com/seventv/optipix/internal/testutil"
	"github.com/seventv/optipix/media"
	"github.com/valyala/fasthttp"
)

type fakeBackend struct {
	healthy bool
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Healthy() bool { return f.healthy }

func (f *fakeBackend) CompressVideo(ctx context.Context, src media.Source, opts media.VideoOptions, progress media.ProgressFunc) (media.Result, error) {
	return media.Result{}, nil
}

func (f *fakeBackend) ProbeVideo(ctx context.Context, src media.Source) (media.VideoMetadata, error) {
	return media.VideoMetadata{}, nil
}

func (f *fakeBackend) Info(ctx context.Context, src media.Source) (media.VideoInfo, error) {
	return media.VideoInfo{}, nil
}

func TestHealth(t *testing.T) {
	config := &configure.Config{}
	config.Health.Enabled = true
	config.Health.Bind = "127.0.0.1:39000"

	gCtx, cancel := global.WithCancel(global.New(context.Background(), config))
	gCtx.Inst().Backend = &fakeBackend{healthy: true}

	done := New(gCtx)

	time.Sleep(time.Millisecond * 50)

	resp, err := http.DefaultClient.Get("http://127.0.0.1:39000")
	testutil.IsNil(t, err, "No error")
	_ = resp.Body.Close()
	testutil.Assert(t, http.StatusOK, resp.StatusCode, "response code")

	cancel()

	<-done
}

func TestHandlerStates(t *testing.T) {
	gCtx := global.New(context.Background(), &configure.Config{})
	h := Handler(gCtx)

	ctx := &fasthttp.RequestCtx{}
	h(ctx)
	testutil.Assert(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode(), "no backend")

	gCtx.Inst().Backend = &fakeBackend{healthy: false}
	ctx = &fasthttp.RequestCtx{}
	h(ctx)
	testutil.Assert(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode(), "failed engine init")

	gCtx.Inst().Backend = &fakeBackend{healthy: true}
	ctx = &fasthttp.RequestCtx{}
	h(ctx)
	testutil.Assert(t, fasthttp.StatusOK, ctx.Response.StatusCode(), "healthy")
	testutil.Assert(t, "fake", string(ctx.Response.Body()), "backend name")
}
