package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/seventv/common/utils"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// stderrTail bounds how much ffmpeg output is carried in an error.
const stderrTail = 2048

func (f *FFmpeg) Exec(ctx context.Context, args []string, onProgress func(outTime time.Duration)) error {
	fullArgs := append([]string{"-nostdin", "-hide_banner", "-y", "-progress", "pipe:1"}, args...)

	cmd := exec.CommandContext(ctx, f.bin, fullArgs...)
	cmd.Dir = f.dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr := bytes.Buffer{}
	cmd.Stderr = &stderr

	zap.S().Debugw("ffmpeg exec",
		"args", fullArgs,
	)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	parseProgress(stdout, onProgress)

	if err := cmd.Wait(); err != nil {
		return multierr.Append(fmt.Errorf("ffmpeg failed: %s", tail(stderr.Bytes())), err)
	}

	return nil
}

// parseProgress reads key=value lines from the ffmpeg -progress stream until EOF.
func parseProgress(r io.Reader, onProgress func(time.Duration)) {
	scanner := bufio.NewScanner(r)
	last := time.Duration(-1)

	for scanner.Scan() {
		line := strings.TrimSpace(utils.B2S(scanner.Bytes()))
		key, val, ok := strings.Cut(line, "=")
		if !ok || onProgress == nil {
			continue
		}

		switch key {
		// out_time_ms is reported in microseconds too
		case "out_time_us", "out_time_ms":
			us, err := strconv.ParseInt(val, 10, 64)
			if err != nil || us < 0 {
				continue
			}

			d := time.Duration(us) * time.Microsecond
			if d > last {
				last = d
				onProgress(d)
			}
		}
	}

	// drain so ffmpeg never blocks on a full pipe
	_, _ = io.Copy(io.Discard, r)
}

func tail(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > stderrTail {
		b = b[len(b)-stderrTail:]
	}

	return string(b)
}
