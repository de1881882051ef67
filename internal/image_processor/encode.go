package image_processor

import (
	"bytes"
	"image"
	"image/png"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/seventv/optipix/media"
	"go.uber.org/zap"
)

const (
	qualityStep     = 0.05
	qualityMaxSteps = 10
	qualityFloor    = 0.1
)

type encoder func(buf *bytes.Buffer, img image.Image, quality float64) error

var encoders = map[media.ImageFormat]encoder{
	media.ImageFormatJPEG: encodeJPEG,
	media.ImageFormatPNG:  encodePNG,
	media.ImageFormatWEBP: encodeWEBP,
}

func lossy(f media.ImageFormat) bool {
	return f != media.ImageFormatPNG
}

func percent(quality float64) int {
	q := int(math.Round(quality * 100))
	if q < 1 {
		return 1
	}

	if q > 100 {
		return 100
	}

	return q
}

func encodeJPEG(buf *bytes.Buffer, img image.Image, quality float64) error {
	return imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(percent(quality)))
}

// quality has no effect on png output.
func encodePNG(buf *bytes.Buffer, img image.Image, _ float64) error {
	return imaging.Encode(buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
}

func encodeWEBP(buf *bytes.Buffer, img image.Image, quality float64) error {
	return webp.Encode(buf, img, &webp.Options{
		Lossless: quality >= 1,
		Quality:  float32(percent(quality)),
	})
}

func (p *Processor) encode(img image.Image, format media.ImageFormat, quality float64) ([]byte, error) {
	enc, ok := encoders[format]
	if !ok {
		return nil, media.Errorf(media.KindEncode, "no encoder for format %q", format)
	}

	done := p.prom.Encode()
	defer done()

	buf := bytes.Buffer{}
	if err := enc(&buf, img, quality); err != nil {
		return nil, media.Wrap(media.KindEncode, err, "failed at encode %s", format)
	}

	return buf.Bytes(), nil
}

// encodeTarget encodes at quality and, for lossy formats, steps the quality
// down while the output exceeds maxSize. The smallest encoding wins. Missing
// the target is not an error.
func (p *Processor) encodeTarget(img image.Image, format media.ImageFormat, quality float64, maxSize int) ([]byte, error) {
	best, err := p.encode(img, format, quality)
	if err != nil {
		return nil, err
	}

	if maxSize <= 0 || len(best) <= maxSize || !lossy(format) {
		return best, nil
	}

	q := quality
	for i := 0; i < qualityMaxSteps && len(best) > maxSize; i++ {
		next := math.Max(q-qualityStep, qualityFloor)
		if next >= q {
			break
		}
		q = next

		out, err := p.encode(img, format, q)
		if err != nil {
			return nil, err
		}

		if len(out) < len(best) {
			best = out
		}
	}

	if len(best) > maxSize {
		zap.S().Debugw("size target missed",
			"target", maxSize,
			"size", len(best),
			"quality", q,
		)
	}

	return best, nil
}
