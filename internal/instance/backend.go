package instance

import (
	"context"

	"github.com/seventv/optipix/media"
)

// Backend runs video work on either the embedded engine or the remote service.
type Backend interface {
	Name() string
	CompressVideo(ctx context.Context, src media.Source, opts media.VideoOptions, progress media.ProgressFunc) (media.Result, error)
	ProbeVideo(ctx context.Context, src media.Source) (media.VideoMetadata, error)
	Info(ctx context.Context, src media.Source) (media.VideoInfo, error)
}

// State reports whether an execution backend can currently serve.
type State interface {
	Healthy() bool
}
