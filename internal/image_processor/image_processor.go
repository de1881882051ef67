package image_processor

import (
	"bytes"
	"context"
	"image"
	"runtime/debug"

	"github.com/disintegration/imaging"
	"github.com/seventv/optipix/internal/instance"
	"github.com/seventv/optipix/media"
	"go.uber.org/zap"

	_ "golang.org/x/image/webp"
)

// intermediateQuality is used for the resized frame of an exact-dimension job
// before the final encode.
const intermediateQuality = 0.95

const taskKind = "image"

type Processor struct {
	prom instance.Prometheus
}

func New(prom instance.Prometheus) *Processor {
	return &Processor{prom: prom}
}

// Probe reads the intrinsic dimensions without decoding pixels.
func (p *Processor) Probe(src media.Source) (media.ImageMetadata, error) {
	done := p.prom.Probe()
	defer done()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(src.Data))
	if err != nil {
		return media.ImageMetadata{}, media.Wrap(media.KindMetadataUnavailable, err, "failed at read image dimensions")
	}

	return media.ImageMetadata{
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

func (p *Processor) Compress(ctx context.Context, src media.Source, cmd media.ImageCommand) (result media.Result, err error) {
	done := p.prom.StartTask(taskKind)
	defer func() {
		if pnk := recover(); pnk != nil {
			zap.S().Errorw("panic in image compress",
				"panic", pnk,
				"stack", string(debug.Stack()),
			)
			err = media.Errorf(media.KindEncode, "panic: %v", pnk)
		}

		done(err == nil)
	}()

	if err := ctx.Err(); err != nil {
		return media.Result{}, media.Wrap(media.KindEncode, err, "cancelled")
	}

	p.prom.TotalBytesIn(src.Size())

	var data []byte
	switch cmd.Mode {
	case media.ModeAspectPreserving:
		data, err = p.aspectPreserving(src.Data, cmd.MaxDimension, cmd)
	case media.ModeExactDimensions:
		data, err = p.exactDimensions(src.Data, cmd)
	default:
		return media.Result{}, media.Errorf(media.KindInvalidInput, "unknown image mode %s", cmd.Mode)
	}
	if err != nil {
		return media.Result{}, err
	}

	p.prom.TotalBytesOut(len(data))

	result = media.NewResult(src, data, cmd.Filename, cmd.MIME)

	zap.S().Infow("image compressed",
		"name", src.Name,
		"mode", cmd.Mode,
		"in", src.Size(),
		"out", result.Size,
		"format", cmd.Format,
	)

	return result, nil
}

func (p *Processor) decode(data []byte) (image.Image, error) {
	done := p.prom.Decode()
	defer done()

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, media.Wrap(media.KindEncode, err, "failed at decode image")
	}

	return img, nil
}

// aspectPreserving fits the image inside maxDim on both edges, never upscaling.
// A maxDim of 0 keeps the decoded size.
func (p *Processor) aspectPreserving(data []byte, maxDim int, cmd media.ImageCommand) ([]byte, error) {
	img, err := p.decode(data)
	if err != nil {
		return nil, err
	}

	if maxDim > 0 {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	return p.encodeTarget(img, cmd.Format, cmd.Quality, cmd.MaxSizeBytes)
}

// exactDimensions resizes to exactly the requested edges, then recompresses
// the intermediate through the aspect-preserving path with no bound.
func (p *Processor) exactDimensions(data []byte, cmd media.ImageCommand) ([]byte, error) {
	img, err := p.decode(data)
	if err != nil {
		return nil, err
	}

	if cmd.ExactWidth <= 0 || cmd.ExactHeight <= 0 {
		return nil, media.Errorf(media.KindInvalidInput, "exact dimensions %dx%d are not positive", cmd.ExactWidth, cmd.ExactHeight)
	}

	img = imaging.Resize(img, cmd.ExactWidth, cmd.ExactHeight, imaging.Lanczos)

	intermediate, err := p.encode(img, cmd.Format, intermediateQuality)
	if err != nil {
		return nil, err
	}

	return p.aspectPreserving(intermediate, 0, cmd)
}
