package media

import (
	"path"
	"strings"
)

// Source is an input artifact. It is never mutated by the compression core.
type Source struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data []byte `json:"-"`
}

func NewSource(name, mime string, data []byte) Source {
	return Source{
		Name: name,
		MIME: mime,
		Data: data,
	}
}

func (s Source) Size() int {
	return len(s.Data)
}

// Stem is the display name up to the first dot.
func (s Source) Stem() string {
	name := path.Base(strings.ReplaceAll(s.Name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}

	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}

	return name
}

// Ext is the extension after the last dot, without the dot.
func (s Source) Ext() string {
	ext := path.Ext(path.Base(strings.ReplaceAll(s.Name, "\\", "/")))

	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

type ImageMetadata struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (m ImageMetadata) Known() bool {
	return m.Width > 0 && m.Height > 0
}

type VideoMetadata struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

type VideoInfo struct {
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`
	Bitrate  int64   `json:"bitrate"`
	Format   string  `json:"format"`
	Video    struct {
		Codec   string  `json:"codec"`
		Width   int     `json:"width"`
		Height  int     `json:"height"`
		FPS     float64 `json:"fps"`
		Bitrate int64   `json:"bitrate"`
	} `json:"video"`
	Audio struct {
		Codec      string `json:"codec"`
		Bitrate    int64  `json:"bitrate"`
		SampleRate int    `json:"sampleRate"`
	} `json:"audio"`
}

func (i VideoInfo) Metadata() VideoMetadata {
	return VideoMetadata{
		Duration: i.Duration,
		Width:    i.Video.Width,
		Height:   i.Video.Height,
	}
}
