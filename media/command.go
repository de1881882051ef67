package media

import "fmt"

type ImageMode int32

const (
	_ ImageMode = iota
	ModeAspectPreserving
	ModeExactDimensions
)

func (m ImageMode) String() string {
	switch m {
	case ModeAspectPreserving:
		return "ASPECT_PRESERVING"
	case ModeExactDimensions:
		return "EXACT_DIMENSIONS"
	default:
		return fmt.Sprintf("UNKNOWN MODE %d", m)
	}
}

// ImageCommand is the only input the image pipeline consumes.
type ImageCommand struct {
	Mode ImageMode `json:"mode"`

	// MaxDimension bounds the longest edge in aspect-preserving mode. 0 means no bound.
	MaxDimension int `json:"max_dimension"`

	ExactWidth  int `json:"exact_width"`
	ExactHeight int `json:"exact_height"`

	// Quality is on a 0..1 scale.
	Quality float64 `json:"quality"`

	Format    ImageFormat `json:"format"`
	MIME      string      `json:"mime"`
	Extension string      `json:"extension"`
	Filename  string      `json:"filename"`

	// MaxSizeBytes is a best-effort output size target. 0 disables it.
	MaxSizeBytes int `json:"max_size_bytes"`
}

// VideoCommand is the only input the video pipeline consumes.
type VideoCommand struct {
	VideoBitrate string `json:"video_bitrate"`
	AudioBitrate string `json:"audio_bitrate"`

	// Width and Height are a hard scale target. Both 0 keeps the source resolution.
	Width  int `json:"width"`
	Height int `json:"height"`

	Format       VideoFormat `json:"format"`
	MIME         string      `json:"mime"`
	Extension    string      `json:"extension"`
	Filename     string      `json:"filename"`
	VideoCodec   string      `json:"video_codec"`
	AudioCodec   string      `json:"audio_codec"`
	EncoderFlags []string    `json:"encoder_flags"`
	FastStart    bool        `json:"fast_start"`
}

func (c VideoCommand) Scaled() bool {
	return c.Width > 0 && c.Height > 0
}
