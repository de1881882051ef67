package image_processor

import (
	"context"
	"runtime"
	"sync"

	"github.com/seventv/optipix/internal/resolve"
	"github.com/seventv/optipix/media"
	"go.uber.org/zap"
)

// BatchItem is the outcome of one source in a batch, in input order.
type BatchItem struct {
	Result media.Result
	Err    error
}

// CompressOptions probes src, resolves opts against its size and compresses it.
// A probe failure only matters when the options need the intrinsic size.
func (p *Processor) CompressOptions(ctx context.Context, src media.Source, opts media.ImageOptions, cfg resolve.ImageConfig) (media.Result, error) {
	meta, err := p.Probe(src)
	if err != nil {
		zap.S().Debugw("image dimensions unknown",
			"name", src.Name,
			"error", err,
		)
	}

	cmd, err := resolve.Image(src, meta, opts, cfg)
	if err != nil {
		return media.Result{}, err
	}

	return p.Compress(ctx, src, cmd)
}

// CompressAll runs up to jobs compressions at a time. One failure does not
// affect its siblings.
func (p *Processor) CompressAll(ctx context.Context, sources []media.Source, opts media.ImageOptions, cfg resolve.ImageConfig, jobs int) []BatchItem {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	items := make([]BatchItem, len(sources))

	blockers := make(chan struct{}, jobs)
	for i := 0; i < jobs; i++ {
		blockers <- struct{}{}
	}

	wg := sync.WaitGroup{}

	for i, src := range sources {
		select {
		case <-ctx.Done():
			items[i].Err = media.Wrap(media.KindEncode, ctx.Err(), "cancelled")
			continue
		case <-blockers:
		}

		wg.Add(1)
		go func(i int, src media.Source) {
			defer func() {
				blockers <- struct{}{}
				wg.Done()
			}()

			items[i].Result, items[i].Err = p.CompressOptions(ctx, src, opts, cfg)
			if items[i].Err != nil {
				zap.S().Warnw("batch item failed",
					"name", src.Name,
					"error", items[i].Err,
				)
			}
		}(i, src)
	}

	wg.Wait()

	return items
}
