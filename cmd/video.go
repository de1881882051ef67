package main

import (
	"github.com/seventv/optipix/container"
	"github.com/seventv/optipix/media"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newVideoCmd() *cobra.Command {
	opts := media.DefaultVideoOptions()
	var (
		preset string
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "video [file]",
		Short: "Compress a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(cmd)
			defer a.close()

			if err := a.selectBackend(); err != nil {
				return err
			}

			src, err := readSource(args[0])
			if err != nil {
				return err
			}

			if !container.IsAllowedVideo(src.MIME) {
				return media.Errorf(media.KindInvalidInput, "unsupported video type %s", src.MIME)
			}

			opts.Preset = media.VideoPreset(preset)
			opts.Format = media.VideoFormat(format)

			b := a.gCtx.Inst().Backend
			res, err := b.CompressVideo(a.gCtx, src, opts, func(percent int) {
				zap.S().Infow("progress",
					"percent", percent,
				)
			})
			if err != nil {
				return err
			}

			pth, err := writeResult(out, res)
			if err != nil {
				return err
			}

			zap.S().Infow("wrote video",
				"path", pth,
				"backend", b.Name(),
				"original", src.Size(),
				"size", res.Size,
				"sha3", res.SHA3,
			)

			return nil
		},
	}

	cmd.Flags().StringVar(&preset, "quality", string(media.VideoPresetMedium), "Preset: low, medium or high")
	cmd.Flags().StringVarP(&format, "format", "f", string(media.VideoFormatMP4), "Output format: mp4 or webm")
	cmd.Flags().StringVar(&opts.Resolution, "resolution", "", "Target resolution WxH")
	cmd.Flags().StringVar(&opts.CustomBitrate, "bitrate", "", "Video bitrate such as 800k")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "Output directory")

	return cmd
}
