package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/seventv/optipix/internal/configure"
	"github.com/seventv/optipix/internal/instance"
	"github.com/seventv/optipix/media"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Loader resolves a runnable ffmpeg and prepares its working storage.
type Loader struct {
	Sources   []Source
	ProbePath string
	WorkDir   string
}

// NewLoader builds the source list in configured priority order.
// s3 may be nil when no s3 source is configured.
func NewLoader(cfg *configure.Config, s3 instance.S3) *Loader {
	cacheDir := cfg.Engine.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "optipix-cache")
	}

	l := &Loader{
		ProbePath: cfg.Engine.ProbePath,
		WorkDir:   cfg.Engine.WorkDir,
	}

	for _, src := range cfg.Engine.Sources {
		switch src.Kind {
		case configure.EngineSourcePath:
			l.Sources = append(l.Sources, PathSource{Path: src.Path})
		case configure.EngineSourceLookup:
			l.Sources = append(l.Sources, LookupSource{Binary: src.Path})
		case configure.EngineSourceURL:
			l.Sources = append(l.Sources, NewURLSource(src.URL, cacheDir))
		case configure.EngineSourceS3:
			l.Sources = append(l.Sources, &S3Source{
				Bucket:   src.Bucket,
				Key:      src.Key,
				CacheDir: cacheDir,
				S3:       s3,
			})
		default:
			zap.S().Warnw("unknown engine source kind",
				"kind", src.Kind,
			)
		}
	}

	return l
}

// Load tries every source in order and returns the first verified engine.
func (l *Loader) Load(ctx context.Context) (Engine, error) {
	if len(l.Sources) == 0 {
		return nil, media.Errorf(media.KindEngineInit, "no engine sources configured")
	}

	var errs error

	for _, src := range l.Sources {
		bin, err := src.Fetch(ctx)
		if err == nil {
			err = verify(ctx, bin)
		}

		if err != nil {
			zap.S().Warnw("engine source failed",
				"source", src.Name(),
				"error", err,
			)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", src.Name(), err))

			if ctx.Err() != nil {
				break
			}

			continue
		}

		dir, err := l.mkWorkDir()
		if err != nil {
			return nil, media.Wrap(media.KindEngineInit, err, "engine could not be loaded")
		}

		probe := l.findProbe(bin)

		zap.S().Infow("engine loaded",
			"source", src.Name(),
			"bin", bin,
			"probe", probe,
			"dir", dir,
		)

		return NewFFmpeg(bin, probe, dir), nil
	}

	return nil, media.Wrap(media.KindEngineInit, errs, "engine could not be loaded")
}

// Check reports whether Load has a chance of succeeding without running anything.
func (l *Loader) Check() error {
	if len(l.Sources) == 0 {
		return fmt.Errorf("no engine sources configured")
	}

	dir := l.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return multierr.Append(fmt.Errorf("work dir is not creatable"), err)
	}

	return nil
}

func (l *Loader) mkWorkDir() (string, error) {
	base := l.WorkDir
	if base == "" {
		base = os.TempDir()
	}

	if err := os.MkdirAll(base, 0700); err != nil {
		return "", err
	}

	return os.MkdirTemp(base, "optipix-")
}

func (l *Loader) findProbe(bin string) string {
	if l.ProbePath != "" {
		if err := verify(context.Background(), l.ProbePath); err == nil {
			return l.ProbePath
		}
	}

	sibling := filepath.Join(filepath.Dir(bin), "ffprobe")
	if info, err := os.Stat(sibling); err == nil && info.Mode().IsRegular() {
		return sibling
	}

	if pth, err := (LookupSource{Binary: "ffprobe"}).Fetch(context.Background()); err == nil {
		return pth
	}

	return ""
}

func verify(ctx context.Context, bin string) error {
	out, err := exec.CommandContext(ctx, bin, "-version").Output()
	if err != nil {
		return multierr.Append(fmt.Errorf("failed at %s -version", bin), err)
	}

	if !bytes.Contains(out, []byte("version")) {
		return fmt.Errorf("%s -version printed no version", bin)
	}

	return nil
}
