package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/seventv/optipix/internal/resolve"
	"github.com/seventv/optipix/media"
	"go.uber.org/multierr"
)

type probeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		BitRate    string `json:"bit_rate"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		BitRate    string `json:"bit_rate"`
		SampleRate string `json:"sample_rate"`
	} `json:"streams"`
}

func (f *FFmpeg) Probe(ctx context.Context, name string) (media.VideoInfo, error) {
	if f.probeBin == "" {
		return media.VideoInfo{}, media.Errorf(media.KindMetadataUnavailable, "ffprobe is not available")
	}

	if _, err := f.path(name); err != nil {
		return media.VideoInfo{}, err
	}

	cmd := exec.CommandContext(ctx,
		f.probeBin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		name,
	)
	cmd.Dir = f.dir

	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			err = multierr.Append(err, fmt.Errorf("ffprobe failed: %s", tail(ee.Stderr)))
		}

		return media.VideoInfo{}, media.Wrap(media.KindMetadataUnavailable, err, "failed at ffprobe")
	}

	return parseProbe(out)
}

func parseProbe(out []byte) (media.VideoInfo, error) {
	po := probeOutput{}
	if err := json.Unmarshal(out, &po); err != nil {
		return media.VideoInfo{}, media.Wrap(media.KindMetadataUnavailable, err, "failed at parse ffprobe output")
	}

	info := media.VideoInfo{
		Duration: parseFloat(po.Format.Duration),
		Size:     parseInt(po.Format.Size),
		Bitrate:  parseInt(po.Format.BitRate),
		Format:   po.Format.FormatName,
	}

	videoFound := false
	audioFound := false

	for _, s := range po.Streams {
		switch s.CodecType {
		case "video":
			if videoFound {
				continue
			}

			videoFound = true
			info.Video.Codec = s.CodecName
			info.Video.Width = s.Width
			info.Video.Height = s.Height
			info.Video.FPS = resolve.ParseFrameRate(s.RFrameRate)
			info.Video.Bitrate = parseInt(s.BitRate)
		case "audio":
			if audioFound {
				continue
			}

			audioFound = true
			info.Audio.Codec = s.CodecName
			info.Audio.Bitrate = parseInt(s.BitRate)
			info.Audio.SampleRate = int(parseInt(s.SampleRate))
		}
	}

	if !videoFound {
		return info, media.Errorf(media.KindMetadataUnavailable, "no video stream found")
	}

	return info, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return f
}

func parseInt(s string) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}

	return i
}
