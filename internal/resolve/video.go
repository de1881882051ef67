package resolve

import (
	"regexp"
	"strconv"

	"github.com/seventv/optipix/media"
)

var (
	bitrateRe    = regexp.MustCompile(`^\d+k$`)
	resolutionRe = regexp.MustCompile(`^(\d+)x(\d+)$`)
)

type bitratePair struct {
	video string
	audio string
}

var presetBitrates = map[media.VideoPreset]bitratePair{
	media.VideoPresetLow:    {video: "500k", audio: "64k"},
	media.VideoPresetMedium: {video: "1000k", audio: "128k"},
	media.VideoPresetHigh:   {video: "2500k", audio: "192k"},
}

// Video turns user facing video options into a concrete command. It never fails:
// unknown or malformed optional values fall back to their defaults.
func Video(src media.Source, opts media.VideoOptions) media.VideoCommand {
	pair, ok := presetBitrates[opts.Preset]
	if !ok {
		pair = presetBitrates[media.VideoPresetMedium]
	}

	cmd := media.VideoCommand{
		VideoBitrate: pair.video,
		AudioBitrate: pair.audio,
	}

	if ValidBitrate(opts.CustomBitrate) {
		cmd.VideoBitrate = opts.CustomBitrate
	}

	if w, h, ok := ParseResolution(opts.Resolution); ok {
		cmd.Width = w
		cmd.Height = h
	}

	switch opts.Format {
	case media.VideoFormatWEBM:
		cmd.Format = media.VideoFormatWEBM
		cmd.VideoCodec = "libvpx-vp9"
		cmd.AudioCodec = "libopus"
		cmd.EncoderFlags = []string{"-deadline", "good", "-cpu-used", "4", "-crf", "33"}
	default:
		cmd.Format = media.VideoFormatMP4
		cmd.VideoCodec = "libx264"
		cmd.AudioCodec = "aac"
		cmd.EncoderFlags = []string{"-preset", "fast", "-crf", "28"}
		cmd.FastStart = true
	}

	cmd.MIME = cmd.Format.MIME()
	cmd.Extension = string(cmd.Format)
	cmd.Filename = Filename(src.Stem(), cmd.Extension)

	return cmd
}

func ValidBitrate(s string) bool {
	return bitrateRe.MatchString(s)
}

// ParseResolution parses "WxH". Both edges must be positive.
func ParseResolution(s string) (int, int, bool) {
	m := resolutionRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}

	w, err := strconv.Atoi(m[1])
	if err != nil || w <= 0 {
		return 0, 0, false
	}

	h, err := strconv.Atoi(m[2])
	if err != nil || h <= 0 {
		return 0, 0, false
	}

	return w, h, true
}
