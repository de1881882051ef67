package video_processor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/seventv/optipix/container"
	"github.com/seventv/optipix/internal/engine"
	"github.com/seventv/optipix/internal/instance"
	"github.com/seventv/optipix/media"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Acquirer hands out the loaded engine. *engine.Session implements it.
type Acquirer interface {
	Acquire(ctx context.Context) (engine.Engine, error)
}

type Processor struct {
	session Acquirer
	prom    instance.Prometheus
}

func New(session Acquirer, prom instance.Prometheus) *Processor {
	return &Processor{
		session: session,
		prom:    prom,
	}
}

const (
	progressAcquired   = 5
	progressWritten    = 20
	progressExecStart  = 30
	progressExecEnd    = 85
	progressOutputRead = 90
	progressDone       = 100
)

const (
	taskKind = "video"

	inputNamePrefix       = "input-"
	outputNamePrefix      = "output-"
	defaultInputExtension = "mp4"
)

// Compress runs one transcode. The working storage entries it creates are
// removed on every exit path.
func (p *Processor) Compress(ctx context.Context, src media.Source, cmd media.VideoCommand, progress media.ProgressFunc) (result media.Result, err error) {
	done := p.prom.StartTask(taskKind)
	defer func() {
		if pnk := recover(); pnk != nil {
			zap.S().Errorw("panic in video compress",
				"panic", pnk,
				"stack", string(debug.Stack()),
			)
			err = media.Errorf(media.KindTranscode, "panic: %v", pnk)
		}

		done(err == nil)
	}()

	report := newReporter(progress)
	report.set(0)

	eng, err := p.session.Acquire(ctx)
	if err != nil {
		return media.Result{}, err
	}
	report.set(progressAcquired)

	id := uuid.New().String()
	inName := fmt.Sprintf("%s%s.%s", inputNamePrefix, id, inputExtension(src))
	outName := fmt.Sprintf("%s%s.%s", outputNamePrefix, id, cmd.Extension)

	defer func() {
		for _, name := range []string{inName, outName} {
			if rmErr := eng.Remove(name); rmErr != nil {
				zap.S().Warnw("failed to remove working entry",
					"name", name,
					"error", rmErr,
				)
			}
		}
	}()

	if err := eng.WriteFile(inName, src.Data); err != nil {
		return media.Result{}, media.Wrap(media.KindTranscode, err, "failed at write input")
	}
	p.prom.TotalBytesIn(src.Size())
	report.set(progressWritten)

	var duration time.Duration
	probeDone := p.prom.Probe()
	if info, probeErr := eng.Probe(ctx, inName); probeErr == nil && info.Duration > 0 {
		duration = time.Duration(info.Duration * float64(time.Second))
	} else {
		zap.S().Debugw("video duration unknown, progress held during transcode",
			"error", probeErr,
		)
	}
	probeDone()

	report.set(progressExecStart)

	transcodeDone := p.prom.Transcode()
	err = eng.Exec(ctx, BuildArgs(cmd, inName, outName), func(outTime time.Duration) {
		if duration <= 0 {
			return
		}

		pc := progressExecStart + int(float64(progressExecEnd-progressExecStart)*float64(outTime)/float64(duration))
		if pc > progressExecEnd {
			pc = progressExecEnd
		}

		report.set(pc)
	})
	transcodeDone()
	if err != nil {
		return media.Result{}, media.Wrap(media.KindTranscode, err, "failed at transcode")
	}
	report.set(progressExecEnd)

	data, err := eng.ReadFile(outName)
	if err != nil {
		return media.Result{}, media.Wrap(media.KindTranscode, err, "failed at read output")
	}

	if len(data) == 0 {
		return media.Result{}, media.Errorf(media.KindTranscode, "transcode produced no output")
	}
	report.set(progressOutputRead)

	p.prom.TotalBytesOut(len(data))

	result = media.NewResult(src, data, cmd.Filename, cmd.MIME)
	report.set(progressDone)

	zap.S().Infow("video compressed",
		"name", src.Name,
		"in", src.Size(),
		"out", result.Size,
		"format", cmd.Format,
	)

	return result, nil
}

// Probe reads container metadata through the engine.
func (p *Processor) Probe(ctx context.Context, src media.Source) (info media.VideoInfo, err error) {
	defer func() {
		if pnk := recover(); pnk != nil {
			zap.S().Errorw("panic in video probe",
				"panic", pnk,
				"stack", string(debug.Stack()),
			)
			err = media.Errorf(media.KindMetadataUnavailable, "panic: %v", pnk)
		}
	}()

	eng, err := p.session.Acquire(ctx)
	if err != nil {
		return media.VideoInfo{}, media.Wrap(media.KindMetadataUnavailable, err, "engine unavailable")
	}

	name := fmt.Sprintf("%s%s.%s", inputNamePrefix, uuid.New().String(), inputExtension(src))
	if err := eng.WriteFile(name, src.Data); err != nil {
		return media.VideoInfo{}, media.Wrap(media.KindMetadataUnavailable, err, "failed at write input")
	}
	defer func() {
		err = multierr.Append(err, eng.Remove(name))
	}()

	done := p.prom.Probe()
	defer done()

	info, err = eng.Probe(ctx, name)
	if err != nil {
		return media.VideoInfo{}, media.Wrap(media.KindMetadataUnavailable, err, "failed at probe")
	}

	if info.Size == 0 {
		info.Size = int64(src.Size())
	}

	return info, nil
}

// BuildArgs assembles the transcode argument list for a command.
func BuildArgs(cmd media.VideoCommand, in string, out string) []string {
	args := []string{
		"-i", in,
		"-c:v", cmd.VideoCodec,
		"-b:v", cmd.VideoBitrate,
	}

	args = append(args, cmd.EncoderFlags...)
	args = append(args,
		"-c:a", cmd.AudioCodec,
		"-b:a", cmd.AudioBitrate,
	)

	if cmd.Scaled() {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", cmd.Width, cmd.Height))
	}

	args = append(args, "-f", string(cmd.Format))

	if cmd.FastStart {
		args = append(args, "-movflags", "+faststart")
	}

	return append(args, out)
}

func inputExtension(src media.Source) string {
	if ext := src.Ext(); ext != "" {
		return ext
	}

	if ext := container.VideoExtension(src.MIME); ext != "" {
		return ext
	}

	return defaultInputExtension
}
