package image_processor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/chai2010/webp"
	"github.com/seventv/optipix/internal/resolve"
	"github.com/seventv/optipix/internal/svc/prometheus"
	"github.com/seventv/optipix/internal/testutil"
	"github.com/seventv/optipix/media"
)

func newProcessor() *Processor {
	return New(prometheus.New(prometheus.Options{}))
}

func makeImage(w, h int, noisy bool) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	r := rand.New(rand.NewSource(7))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255}
			if noisy {
				c = color.NRGBA{R: uint8(r.Intn(256)), G: uint8(r.Intn(256)), B: uint8(r.Intn(256)), A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}

	return img
}

func pngSource(t *testing.T, name string, w, h int, noisy bool) media.Source {
	t.Helper()

	buf := bytes.Buffer{}
	testutil.IsNil(t, png.Encode(&buf, makeImage(w, h, noisy)), "encode fixture")

	return media.NewSource(name, "image/png", buf.Bytes())
}

func dims(t *testing.T, data []byte) (int, int, string) {
	t.Helper()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	testutil.IsNil(t, err, "decode output")

	return cfg.Width, cfg.Height, format
}

func TestProbe(t *testing.T) {
	p := newProcessor()

	meta, err := p.Probe(pngSource(t, "a.png", 40, 20, false))
	testutil.IsNil(t, err, "probe png")
	testutil.Assert(t, media.ImageMetadata{Width: 40, Height: 20}, meta, "png size")

	buf := bytes.Buffer{}
	testutil.IsNil(t, webp.Encode(&buf, makeImage(30, 60, false), &webp.Options{Quality: 80}), "encode webp")
	meta, err = p.Probe(media.NewSource("a.webp", "image/webp", buf.Bytes()))
	testutil.IsNil(t, err, "probe webp")
	testutil.Assert(t, media.ImageMetadata{Width: 30, Height: 60}, meta, "webp size")

	_, err = p.Probe(media.NewSource("a.png", "image/png", []byte("not an image")))
	testutil.Assert(t, true, errors.Is(err, media.ErrMetadataUnavailable), "garbage")
}

func TestAspectPreserving(t *testing.T) {
	p := newProcessor()
	src := pngSource(t, "wide.png", 400, 200, false)

	res, err := p.Compress(context.Background(), src, media.ImageCommand{
		Mode:         media.ModeAspectPreserving,
		MaxDimension: 100,
		Quality:      0.8,
		Format:       media.ImageFormatJPEG,
		MIME:         "image/jpeg",
		Filename:     "wide_compressed.jpg",
	})
	testutil.IsNil(t, err, "compress")

	w, h, format := dims(t, res.Data)
	testutil.Assert(t, 100, w, "width fitted")
	testutil.Assert(t, 50, h, "height follows aspect")
	testutil.Assert(t, "jpeg", format, "jpeg output")
	testutil.Assert(t, "wide_compressed.jpg", res.Filename, "filename")
	testutil.Assert(t, 128, len(res.SHA3), "sha3-512 hex")
}

func TestAspectPreservingNeverUpscales(t *testing.T) {
	p := newProcessor()

	res, err := p.Compress(context.Background(), pngSource(t, "a.png", 64, 32, false), media.ImageCommand{
		Mode:         media.ModeAspectPreserving,
		MaxDimension: 1000,
		Quality:      0.8,
		Format:       media.ImageFormatPNG,
	})
	testutil.IsNil(t, err, "compress")

	w, h, format := dims(t, res.Data)
	testutil.Assert(t, 64, w, "width kept")
	testutil.Assert(t, 32, h, "height kept")
	testutil.Assert(t, "png", format, "png output")
}

func TestExactDimensions(t *testing.T) {
	p := newProcessor()

	for _, format := range []media.ImageFormat{media.ImageFormatJPEG, media.ImageFormatPNG, media.ImageFormatWEBP} {
		res, err := p.Compress(context.Background(), pngSource(t, "a.png", 400, 200, false), media.ImageCommand{
			Mode:        media.ModeExactDimensions,
			ExactWidth:  123,
			ExactHeight: 77,
			Quality:     0.7,
			Format:      format,
		})
		testutil.IsNil(t, err, "compress "+string(format))

		w, h, got := dims(t, res.Data)
		testutil.Assert(t, 123, w, "exact width "+string(format))
		testutil.Assert(t, 77, h, "exact height "+string(format))
		testutil.Assert(t, string(format), got, "output format")
	}

	_, err := p.Compress(context.Background(), pngSource(t, "a.png", 40, 20, false), media.ImageCommand{
		Mode:    media.ModeExactDimensions,
		Quality: 0.7,
		Format:  media.ImageFormatPNG,
	})
	testutil.Assert(t, true, errors.Is(err, media.ErrInvalidInput), "zero edges")
}

func TestWebpLossless(t *testing.T) {
	p := newProcessor()

	res, err := p.Compress(context.Background(), pngSource(t, "a.png", 16, 16, false), media.ImageCommand{
		Mode:    media.ModeAspectPreserving,
		Quality: 1,
		Format:  media.ImageFormatWEBP,
	})
	testutil.IsNil(t, err, "compress")

	out, err := webp.Decode(bytes.NewReader(res.Data))
	testutil.IsNil(t, err, "decode")

	in := makeImage(16, 16, false)
	r, g, b, _ := out.At(5, 9).RGBA()
	er, eg, eb, _ := in.At(5, 9).RGBA()
	testutil.Assert(t, []uint32{er >> 8, eg >> 8, eb >> 8}, []uint32{r >> 8, g >> 8, b >> 8}, "pixels survive lossless")
}

func TestCorruptInput(t *testing.T) {
	p := newProcessor()

	_, err := p.Compress(context.Background(), media.NewSource("a.png", "image/png", []byte("\x89PNG garbage")), media.ImageCommand{
		Mode:    media.ModeAspectPreserving,
		Quality: 0.8,
		Format:  media.ImageFormatJPEG,
	})
	testutil.Assert(t, true, errors.Is(err, media.ErrEncode), "decode failure is an encode failure")
}

func TestSizeTarget(t *testing.T) {
	p := newProcessor()
	src := pngSource(t, "noise.png", 256, 256, true)

	cmd := media.ImageCommand{
		Mode:    media.ModeAspectPreserving,
		Quality: 1,
		Format:  media.ImageFormatJPEG,
	}

	full, err := p.Compress(context.Background(), src, cmd)
	testutil.IsNil(t, err, "no target")

	cmd.MaxSizeBytes = 1000
	small, err := p.Compress(context.Background(), src, cmd)
	testutil.IsNil(t, err, "missed target is not an error")
	testutil.Assert(t, true, small.Size < full.Size, "quality was stepped down")

	cmd.Format = media.ImageFormatPNG
	pngOut, err := p.Compress(context.Background(), src, cmd)
	testutil.IsNil(t, err, "png over target")
	testutil.Assert(t, true, pngOut.Size > 1000, "png is not stepped")
}

func TestCompressAll(t *testing.T) {
	p := newProcessor()

	sources := []media.Source{
		pngSource(t, "one.png", 50, 40, false),
		media.NewSource("broken.png", "image/png", []byte("nope")),
		pngSource(t, "three.png", 20, 80, false),
	}

	opts := media.DefaultImageOptions()
	opts.Format = media.ImageFormatPNG

	items := p.CompressAll(context.Background(), sources, opts, resolve.ImageConfig{}, 2)
	testutil.Assert(t, 3, len(items), "one item per source")

	testutil.IsNil(t, items[0].Err, "first")
	testutil.Assert(t, "one_compressed.png", items[0].Result.Filename, "first name")
	testutil.Assert(t, true, errors.Is(items[1].Err, media.ErrEncode), "broken item")
	testutil.IsNil(t, items[2].Err, "third")
	testutil.Assert(t, "three_compressed.png", items[2].Result.Filename, "third name")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	items = p.CompressAll(ctx, sources, opts, resolve.ImageConfig{}, 1)
	for _, it := range items {
		testutil.Assert(t, true, it.Err != nil, "cancelled batch")
	}
}

func TestCompressOptionsNeedsMetadata(t *testing.T) {
	p := newProcessor()

	opts := media.DefaultImageOptions()
	opts.LimitMaxDimensions = true
	opts.MaxWidth = 100

	_, err := p.CompressOptions(context.Background(), media.NewSource("broken.png", "image/png", []byte("nope")), opts, resolve.ImageConfig{})
	testutil.Assert(t, true, errors.Is(err, media.ErrMetadataUnavailable), "clamp needs dimensions")

	res, err := p.CompressOptions(context.Background(), pngSource(t, "big.png", 300, 150, false), opts, resolve.ImageConfig{})
	testutil.IsNil(t, err, "clamped")
	w, h, _ := dims(t, res.Data)
	testutil.Assert(t, 100, w, "clamped width")
	testutil.Assert(t, 50, h, "clamped height")
}
