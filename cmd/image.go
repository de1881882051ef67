package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/seventv/optipix/container"
	"github.com/seventv/optipix/internal/resolve"
	"github.com/seventv/optipix/media"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func readSource(pth string) (media.Source, error) {
	data, err := os.ReadFile(pth)
	if err != nil {
		return media.Source{}, err
	}

	return media.NewSource(filepath.Base(pth), container.ResolveMIME("", data), data), nil
}

func writeResult(dir string, res media.Result) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	pth := filepath.Join(dir, res.Filename)

	return pth, renameio.WriteFile(pth, res.Data, 0644)
}

// uniqueName returns name, or name with a "-N" suffix before the extension
// when an earlier output in the same run already took it.
func uniqueName(taken map[string]bool, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 1; taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	taken[candidate] = true

	return candidate
}

func newImageCmd() *cobra.Command {
	var (
		format    string
		quality   int
		preset    string
		width     int
		height    int
		noAspect  bool
		maxWidth  int
		maxHeight int
		out       string
		jobs      int
	)

	cmd := &cobra.Command{
		Use:   "image [files...]",
		Short: "Compress images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(cmd)
			defer a.close()

			f, err := media.ParseImageFormat(format)
			if err != nil {
				return err
			}

			opts := media.DefaultImageOptions()
			opts.Format = f
			if preset != "" {
				opts.Quality.SetPreset(media.QualityPreset(preset))
			}
			if cmd.Flags().Changed("quality") || preset == "" {
				opts.Quality.SetPercent(quality)
			}
			opts.ResizeEnabled = width > 0 || height > 0
			opts.Width = width
			opts.Height = height
			opts.MaintainAspectRatio = !noAspect
			opts.LimitMaxDimensions = maxWidth > 0 || maxHeight > 0
			opts.MaxWidth = maxWidth
			opts.MaxHeight = maxHeight

			var errs error
			sources := make([]media.Source, 0, len(args))
			for _, pth := range args {
				src, err := readSource(pth)
				if err != nil {
					errs = multierr.Append(errs, err)
					continue
				}

				if !container.IsAllowedImage(src.MIME) {
					errs = multierr.Append(errs, fmt.Errorf("%s: unsupported image type %s", pth, src.MIME))
					continue
				}

				sources = append(sources, src)
			}

			if jobs <= 0 {
				jobs = a.gCtx.Config().Image.Jobs
			}

			items := a.images.CompressAll(a.gCtx, sources, opts, resolve.ImageConfig{
				MaxSizeBytes: a.gCtx.Config().Image.MaxSizeBytes,
			}, jobs)

			taken := map[string]bool{}
			for i, it := range items {
				if it.Err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%s: %w", sources[i].Name, it.Err))
					continue
				}

				if name := uniqueName(taken, it.Result.Filename); name != it.Result.Filename {
					zap.S().Warnw("output name already used in this run",
						"source", sources[i].Name,
						"name", it.Result.Filename,
						"renamed", name,
					)
					it.Result.Filename = name
				}

				pth, err := writeResult(out, it.Result)
				if err != nil {
					errs = multierr.Append(errs, err)
					continue
				}

				zap.S().Infow("wrote image",
					"path", pth,
					"original", sources[i].Size(),
					"size", it.Result.Size,
					"sha3", it.Result.SHA3,
				)
			}

			return errs
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "jpeg", "Output format: jpeg, png or webp")
	cmd.Flags().IntVarP(&quality, "quality", "q", 80, "Quality percent 0..100")
	cmd.Flags().StringVar(&preset, "preset", "", "Quality preset: low, medium, high or lossless")
	cmd.Flags().IntVar(&width, "width", 0, "Resize width")
	cmd.Flags().IntVar(&height, "height", 0, "Resize height")
	cmd.Flags().BoolVar(&noAspect, "no-aspect", false, "Do not keep the aspect ratio")
	cmd.Flags().IntVar(&maxWidth, "max-width", 0, "Maximum width")
	cmd.Flags().IntVar(&maxHeight, "max-height", 0, "Maximum height")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "Output directory")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Concurrent compressions")

	return cmd
}
