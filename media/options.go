package media

import "fmt"

type ImageFormat string

const (
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatWEBP ImageFormat = "webp"
)

func ParseImageFormat(s string) (ImageFormat, error) {
	switch ImageFormat(s) {
	case ImageFormatJPEG, ImageFormatPNG, ImageFormatWEBP:
		return ImageFormat(s), nil
	case "jpg":
		return ImageFormatJPEG, nil
	}

	return "", Errorf(KindInvalidInput, "unsupported image format: %q", s)
}

func (f ImageFormat) MIME() string {
	return "image/" + string(f)
}

func (f ImageFormat) Extension() string {
	if f == ImageFormatJPEG {
		return "jpg"
	}

	return string(f)
}

type QualityPreset string

const (
	QualityLow      QualityPreset = "low"
	QualityMedium   QualityPreset = "medium"
	QualityHigh     QualityPreset = "high"
	QualityLossless QualityPreset = "lossless"
)

// PercentForPreset returns the percent a preset selects.
func PercentForPreset(p QualityPreset) int {
	switch p {
	case QualityLow:
		return 50
	case QualityHigh:
		return 95
	case QualityLossless:
		return 100
	default:
		return 80
	}
}

// PresetForPercent returns the preset bucket a percent falls into.
func PresetForPercent(q int) QualityPreset {
	switch {
	case q <= 60:
		return QualityLow
	case q <= 85:
		return QualityMedium
	case q < 100:
		return QualityHigh
	default:
		return QualityLossless
	}
}

// Quality keeps a percent and its preset consistent. The field that was set
// last decides the other one.
type Quality struct {
	Percent int           `json:"percent"`
	Preset  QualityPreset `json:"preset"`
}

func QualityFromPercent(q int) Quality {
	qu := Quality{}
	qu.SetPercent(q)

	return qu
}

func QualityFromPreset(p QualityPreset) Quality {
	qu := Quality{}
	qu.SetPreset(p)

	return qu
}

func (q *Quality) SetPercent(p int) {
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}

	q.Percent = p
	q.Preset = PresetForPercent(p)
}

func (q *Quality) SetPreset(p QualityPreset) {
	switch p {
	case QualityLow, QualityMedium, QualityHigh, QualityLossless:
	default:
		p = QualityMedium
	}

	q.Preset = p
	q.Percent = PercentForPreset(p)
}

type ImageOptions struct {
	Format              ImageFormat `json:"format"`
	Quality             Quality     `json:"quality"`
	ResizeEnabled       bool        `json:"resize_enabled"`
	Width               int         `json:"width"`
	Height              int         `json:"height"`
	MaintainAspectRatio bool        `json:"maintain_aspect_ratio"`
	LimitMaxDimensions  bool        `json:"limit_max_dimensions"`
	MaxWidth            int         `json:"max_width"`
	MaxHeight           int         `json:"max_height"`
}

// DefaultImageOptions mirrors the defaults the upload form starts with.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{
		Format:              ImageFormatJPEG,
		Quality:             QualityFromPercent(80),
		MaintainAspectRatio: true,
	}
}

type VideoPreset string

const (
	VideoPresetLow    VideoPreset = "low"
	VideoPresetMedium VideoPreset = "medium"
	VideoPresetHigh   VideoPreset = "high"
)

type VideoFormat string

const (
	VideoFormatMP4  VideoFormat = "mp4"
	VideoFormatWEBM VideoFormat = "webm"
)

func (f VideoFormat) MIME() string {
	return "video/" + string(f)
}

type VideoOptions struct {
	Preset        VideoPreset `json:"quality"`
	Format        VideoFormat `json:"format"`
	Resolution    string      `json:"resolution,omitempty"`
	CustomBitrate string      `json:"bitrate,omitempty"`
}

func DefaultVideoOptions() VideoOptions {
	return VideoOptions{
		Preset: VideoPresetMedium,
		Format: VideoFormatMP4,
	}
}

func (o VideoOptions) String() string {
	return fmt.Sprintf("preset=%s format=%s resolution=%q bitrate=%q", o.Preset, o.Format, o.Resolution, o.CustomBitrate)
}
