package resolve

import (
	"math"

	"github.com/seventv/optipix/media"
)

// DefaultMaxSizeBytes is the best-effort byte target applied to lossy images.
const DefaultMaxSizeBytes = 1024 * 1024

type ImageConfig struct {
	MaxSizeBytes int
}

// Image turns user facing image options into a concrete command. It only
// fails when a step needs the intrinsic size and meta does not carry it.
func Image(src media.Source, meta media.ImageMetadata, opts media.ImageOptions, cfg ImageConfig) (media.ImageCommand, error) {
	format := opts.Format
	if format == "" {
		format = media.ImageFormatJPEG
	}

	percent := opts.Quality.Percent
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	cmd := media.ImageCommand{
		Mode:         media.ModeAspectPreserving,
		Quality:      float64(percent) / 100,
		Format:       format,
		MIME:         format.MIME(),
		Extension:    format.Extension(),
		Filename:     Filename(src.Stem(), format.Extension()),
		MaxSizeBytes: cfg.MaxSizeBytes,
	}

	if opts.LimitMaxDimensions && (opts.MaxWidth > 0 || opts.MaxHeight > 0) {
		if !meta.Known() {
			return media.ImageCommand{}, media.Errorf(media.KindMetadataUnavailable, "image dimensions are required to limit the maximum size")
		}

		width, height, clamped := Clamp(meta.Width, meta.Height, opts.MaxWidth, opts.MaxHeight, opts.MaintainAspectRatio)
		if clamped {
			if opts.MaintainAspectRatio {
				cmd.MaxDimension = maxInt(width, height)
			} else {
				cmd.Mode = media.ModeExactDimensions
				cmd.ExactWidth = width
				cmd.ExactHeight = height
			}
		}
	}

	if opts.ResizeEnabled && (opts.Width > 0 || opts.Height > 0) {
		if opts.MaintainAspectRatio {
			// the tighter of the resize and clamp bounds wins
			bound := maxInt(opts.Width, opts.Height)
			if cmd.MaxDimension == 0 || bound < cmd.MaxDimension {
				cmd.MaxDimension = bound
			}
		} else {
			width, height := opts.Width, opts.Height
			if width <= 0 || height <= 0 {
				if !meta.Known() {
					return media.ImageCommand{}, media.Errorf(media.KindMetadataUnavailable, "image dimensions are required to fill in the missing edge")
				}

				if width <= 0 {
					width = meta.Width
				}

				if height <= 0 {
					height = meta.Height
				}
			}

			// exact geometry replaces any max-dimension clamp
			cmd.Mode = media.ModeExactDimensions
			cmd.MaxDimension = 0
			cmd.ExactWidth = width
			cmd.ExactHeight = height
		}
	}

	return cmd, nil
}

// Clamp reduces width and height to fit the maxima. Zero maxima are ignored.
// With keepAspect both edges shrink by the same factor, otherwise each axis is
// clamped on its own. It never upscales.
func Clamp(width, height, maxWidth, maxHeight int, keepAspect bool) (int, int, bool) {
	wf := float64(width)
	hf := float64(height)

	needsResize := (maxWidth > 0 && width > maxWidth) || (maxHeight > 0 && height > maxHeight)
	if !needsResize {
		return width, height, false
	}

	if !keepAspect {
		if maxWidth > 0 && width > maxWidth {
			width = maxWidth
		}

		if maxHeight > 0 && height > maxHeight {
			height = maxHeight
		}

		return width, height, true
	}

	if maxWidth > 0 && wf > float64(maxWidth) {
		hf *= float64(maxWidth) / wf
		wf = float64(maxWidth)
	}

	if maxHeight > 0 && hf > float64(maxHeight) {
		wf *= float64(maxHeight) / hf
		hf = float64(maxHeight)
	}

	width = maxInt(1, int(math.Floor(wf+0.5)))
	height = maxInt(1, int(math.Floor(hf+0.5)))

	if maxWidth > 0 && width > maxWidth {
		width = maxWidth
	}

	if maxHeight > 0 && height > maxHeight {
		height = maxHeight
	}

	return width, height, true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
