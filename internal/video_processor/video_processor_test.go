package video_processor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/seventv/optipix/internal/engine"
	"github.com/seventv/optipix/internal/resolve"
	"github.com/seventv/optipix/internal/svc/prometheus"
	"github.com/seventv/optipix/internal/testutil"
	"github.com/seventv/optipix/media"
)

type memEngine struct {
	mtx   sync.Mutex
	files map[string][]byte

	args      []string
	calls     [][]string
	execErr   error
	noOutput  bool
	panicExec bool
	duration  float64
	probeErr  error
}

func newMemEngine() *memEngine {
	return &memEngine{files: map[string][]byte{}, duration: 10}
}

func (m *memEngine) WriteFile(name string, data []byte) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.files[name] = append([]byte(nil), data...)
	return nil
}

func (m *memEngine) ReadFile(name string) ([]byte, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: not found", name)
	}

	return data, nil
}

func (m *memEngine) Remove(name string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	delete(m.files, name)
	return nil
}

func (m *memEngine) List() ([]string, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	names := []string{}
	for k := range m.files {
		names = append(names, k)
	}
	sort.Strings(names)

	return names, nil
}

func (m *memEngine) Exec(ctx context.Context, args []string, onProgress func(time.Duration)) error {
	m.mtx.Lock()
	m.args = args
	m.calls = append(m.calls, args)
	m.mtx.Unlock()

	if m.panicExec {
		panic("codec crashed")
	}

	for _, s := range []int{2, 5, 4, 10, 12} {
		if onProgress != nil {
			onProgress(time.Duration(s) * time.Second)
		}
	}

	if m.execErr != nil {
		return m.execErr
	}

	in, err := m.ReadFile(args[1])
	if err != nil {
		return err
	}

	out := []byte("compressed:" + string(in))
	if m.noOutput {
		out = nil
	}

	return m.WriteFile(args[len(args)-1], out)
}

func (m *memEngine) Probe(ctx context.Context, name string) (media.VideoInfo, error) {
	if m.probeErr != nil {
		return media.VideoInfo{}, m.probeErr
	}

	if _, err := m.ReadFile(name); err != nil {
		return media.VideoInfo{}, err
	}

	info := media.VideoInfo{Duration: m.duration, Format: "mov,mp4"}
	info.Video.Codec = "h264"

	return info, nil
}

func (m *memEngine) Close() error {
	return nil
}

type fixedSession struct {
	eng engine.Engine
	err error
}

func (f fixedSession) Acquire(ctx context.Context) (engine.Engine, error) {
	return f.eng, f.err
}

func newProcessor(eng engine.Engine) *Processor {
	return New(fixedSession{eng: eng}, prometheus.New(prometheus.Options{}))
}

func TestBuildArgs(t *testing.T) {
	src := media.NewSource("clip.mov", "video/quicktime", []byte("x"))

	cmd := resolve.Video(src, media.VideoOptions{Preset: media.VideoPresetHigh, Format: media.VideoFormatMP4, Resolution: "1280x720"})
	want := []string{
		"-i", "in.mov",
		"-c:v", "libx264",
		"-b:v", "2500k",
		"-preset", "fast", "-crf", "28",
		"-c:a", "aac",
		"-b:a", "192k",
		"-vf", "scale=1280:720",
		"-f", "mp4",
		"-movflags", "+faststart",
		"out.mp4",
	}
	if diff := cmp.Diff(want, BuildArgs(cmd, "in.mov", "out.mp4")); diff != "" {
		t.Fatalf("mp4 args (-want +got):\n%s", diff)
	}

	cmd = resolve.Video(src, media.VideoOptions{Preset: media.VideoPresetLow, Format: media.VideoFormatWEBM, CustomBitrate: "750k"})
	want = []string{
		"-i", "in.mov",
		"-c:v", "libvpx-vp9",
		"-b:v", "750k",
		"-deadline", "good", "-cpu-used", "4", "-crf", "33",
		"-c:a", "libopus",
		"-b:a", "64k",
		"-f", "webm",
		"out.webm",
	}
	if diff := cmp.Diff(want, BuildArgs(cmd, "in.mov", "out.webm")); diff != "" {
		t.Fatalf("webm args (-want +got):\n%s", diff)
	}
}

func TestCompress(t *testing.T) {
	eng := newMemEngine()
	p := newProcessor(eng)

	src := media.NewSource("holiday.final.mov", "video/quicktime", []byte("raw"))
	cmd := resolve.Video(src, media.DefaultVideoOptions())

	var points []int
	res, err := p.Compress(context.Background(), src, cmd, func(pc int) {
		points = append(points, pc)
	})
	testutil.IsNil(t, err, "compress")

	testutil.Assert(t, "compressed:raw", string(res.Data), "output bytes")
	testutil.Assert(t, "holiday_compressed.mp4", res.Filename, "filename")
	testutil.Assert(t, "video/mp4", res.MIME, "mime")
	testutil.Assert(t, len(res.Data), res.Size, "size")

	testutil.Assert(t, true, strings.HasPrefix(eng.args[1], "input-") && strings.HasSuffix(eng.args[1], ".mov"), "input name "+eng.args[1])
	out := eng.args[len(eng.args)-1]
	testutil.Assert(t, true, strings.HasPrefix(out, "output-") && strings.HasSuffix(out, ".mp4"), "output name "+out)

	names, _ := eng.List()
	testutil.Assert(t, []string{}, names, "working storage is empty")

	testutil.Assert(t, 0, points[0], "starts at 0")
	testutil.Assert(t, 100, points[len(points)-1], "ends at 100")
	for i := 1; i < len(points); i++ {
		testutil.Assert(t, true, points[i] > points[i-1], fmt.Sprintf("monotonic %v", points))
	}
	for _, want := range []int{5, 20, 30, 41, 57, 85, 90} {
		testutil.Assert(t, true, contains(points, want), fmt.Sprintf("checkpoint %d in %v", want, points))
	}
}

func TestCompressConcurrentCallsShareEngine(t *testing.T) {
	const n = 16

	eng := newMemEngine()
	p := newProcessor(eng)

	results := make([]media.Result, n)
	errs := make([]error, n)

	wg := sync.WaitGroup{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			src := media.NewSource(fmt.Sprintf("clip%d.mp4", i), "video/mp4", []byte(fmt.Sprintf("raw-%d", i)))
			results[i], errs[i] = p.Compress(context.Background(), src, resolve.Video(src, media.DefaultVideoOptions()), nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		testutil.IsNil(t, errs[i], fmt.Sprintf("compress %d", i))
		testutil.Assert(t, fmt.Sprintf("compressed:raw-%d", i), string(results[i].Data), fmt.Sprintf("own bytes %d", i))
		testutil.Assert(t, fmt.Sprintf("clip%d_compressed.mp4", i), results[i].Filename, fmt.Sprintf("own filename %d", i))
	}

	testutil.Assert(t, n, len(eng.calls), "one exec per call")

	seen := map[string]bool{}
	for _, args := range eng.calls {
		for _, name := range []string{args[1], args[len(args)-1]} {
			testutil.Assert(t, false, seen[name], "working name reused: "+name)
			seen[name] = true
		}
	}

	names, _ := eng.List()
	testutil.Assert(t, []string{}, names, "working storage is empty")
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}

	return false
}

func TestCompressHoldsProgressWithoutDuration(t *testing.T) {
	eng := newMemEngine()
	eng.probeErr = errors.New("no probe")
	p := newProcessor(eng)

	src := media.NewSource("a.mp4", "video/mp4", []byte("raw"))

	var points []int
	_, err := p.Compress(context.Background(), src, resolve.Video(src, media.DefaultVideoOptions()), func(pc int) {
		points = append(points, pc)
	})
	testutil.IsNil(t, err, "compress")
	testutil.Assert(t, []int{0, 5, 20, 30, 85, 90, 100}, points, "no interpolation")
}

func TestCompressNilProgress(t *testing.T) {
	p := newProcessor(newMemEngine())
	src := media.NewSource("a.webm", "video/webm", []byte("raw"))

	res, err := p.Compress(context.Background(), src, resolve.Video(src, media.VideoOptions{Format: media.VideoFormatWEBM}), nil)
	testutil.IsNil(t, err, "compress")
	testutil.Assert(t, "a_compressed.webm", res.Filename, "filename")
	testutil.Assert(t, "video/webm", res.MIME, "mime")
}

func TestCompressFailuresCleanUp(t *testing.T) {
	cases := map[string]func(*memEngine){
		"exec error": func(m *memEngine) { m.execErr = errors.New("exit status 1") },
		"no output":  func(m *memEngine) { m.noOutput = true },
		"panic":      func(m *memEngine) { m.panicExec = true },
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			eng := newMemEngine()
			setup(eng)
			p := newProcessor(eng)

			src := media.NewSource("a.mp4", "video/mp4", []byte("raw"))
			_, err := p.Compress(context.Background(), src, resolve.Video(src, media.DefaultVideoOptions()), nil)
			testutil.Assert(t, true, errors.Is(err, media.ErrTranscode), "transcode failure")

			names, _ := eng.List()
			testutil.Assert(t, []string{}, names, "working storage is empty")
		})
	}
}

func TestCompressEngineInitFailure(t *testing.T) {
	session := engine.NewSession(engine.SessionOptions{
		Initializer: &engine.Loader{
			Sources: []engine.Source{
				engine.PathSource{Path: t.TempDir() + "/missing"},
				engine.LookupSource{Binary: "optipix-no-such-ffmpeg"},
			},
			WorkDir: t.TempDir(),
		},
		Enabled: true,
	})
	p := New(session, prometheus.New(prometheus.Options{}))

	src := media.NewSource("a.mp4", "video/mp4", []byte("raw"))
	_, err := p.Compress(context.Background(), src, resolve.Video(src, media.DefaultVideoOptions()), nil)
	testutil.Assert(t, true, errors.Is(err, media.ErrEngineInit), "engine init failure")
	testutil.Assert(t, engine.StateInitFailed, session.State(), "session failed")
}

func TestProbe(t *testing.T) {
	eng := newMemEngine()
	p := newProcessor(eng)

	info, err := p.Probe(context.Background(), media.NewSource("a.mp4", "video/mp4", []byte("raw")))
	testutil.IsNil(t, err, "probe")
	testutil.Assert(t, 10.0, info.Duration, "duration")
	testutil.Assert(t, int64(3), info.Size, "size falls back to input length")

	names, _ := eng.List()
	testutil.Assert(t, []string{}, names, "entry removed")

	eng.probeErr = errors.New("moov atom not found")
	_, err = p.Probe(context.Background(), media.NewSource("a.mp4", "video/mp4", []byte("raw")))
	testutil.Assert(t, true, errors.Is(err, media.ErrMetadataUnavailable), "probe failure")

	p = New(fixedSession{err: media.Errorf(media.KindEngineInit, "down")}, prometheus.New(prometheus.Options{}))
	_, err = p.Probe(context.Background(), media.NewSource("a.mp4", "video/mp4", []byte("raw")))
	testutil.Assert(t, true, errors.Is(err, media.ErrMetadataUnavailable), "engine down")
}

func TestInputExtension(t *testing.T) {
	testutil.Assert(t, "mov", inputExtension(media.Source{Name: "a.MOV"}), "from name")
	testutil.Assert(t, "webm", inputExtension(media.Source{Name: "blob", MIME: "video/webm"}), "from mime")
	testutil.Assert(t, "mp4", inputExtension(media.Source{Name: "blob"}), "default")
}
