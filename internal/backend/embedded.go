package backend

import (
	"context"

	"github.com/seventv/optipix/internal/engine"
	"github.com/seventv/optipix/internal/resolve"
	"github.com/seventv/optipix/internal/video_processor"
	"github.com/seventv/optipix/media"
)

// Embedded runs video work on the in-process engine.
type Embedded struct {
	session *engine.Session
	video   *video_processor.Processor
}

func NewEmbedded(session *engine.Session, video *video_processor.Processor) *Embedded {
	return &Embedded{
		session: session,
		video:   video,
	}
}

func (e *Embedded) Name() string {
	return "embedded"
}

func (e *Embedded) Available() bool {
	return e.session.Available()
}

func (e *Embedded) Healthy() bool {
	return e.session.Healthy()
}

func (e *Embedded) CompressVideo(ctx context.Context, src media.Source, opts media.VideoOptions, progress media.ProgressFunc) (media.Result, error) {
	return e.video.Compress(ctx, src, resolve.Video(src, opts), progress)
}

func (e *Embedded) ProbeVideo(ctx context.Context, src media.Source) (media.VideoMetadata, error) {
	info, err := e.video.Probe(ctx, src)
	if err != nil {
		return media.VideoMetadata{}, err
	}

	return info.Metadata(), nil
}

func (e *Embedded) Info(ctx context.Context, src media.Source) (media.VideoInfo, error) {
	return e.video.Probe(ctx, src)
}
