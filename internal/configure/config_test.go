package configure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/seventv/optipix/internal/testutil"
	"github.com/spf13/pflag"
)

func TestDefaults(t *testing.T) {
	dir := t.TempDir()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", filepath.Join(dir, "missing.yaml"), "")

	c := New(flags)

	testutil.Assert(t, "0.0.0.0:3001", c.API.Bind, "api bind")
	testutil.Assert(t, 500*1024*1024, c.API.MaxUploadBytes, "upload limit")
	testutil.Assert(t, 1, len(c.Engine.Sources), "one engine source")
	testutil.Assert(t, EngineSourceLookup, c.Engine.Sources[0].Kind, "lookup source")
	testutil.Assert(t, 1024*1024, c.Image.MaxSizeBytes, "image size target")
}

func TestFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	testutil.IsNil(t, os.WriteFile(file, []byte(`
level: debug
engine:
  sources:
    - kind: path
      path: /opt/ffmpeg/bin/ffmpeg
    - kind: url
      url: https://example.com/ffmpeg
remote:
  url: http://compressor:3001
`), 0600), "write config")

	t.Setenv("OPTIPIX_API_BIND", "127.0.0.1:4000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", file, "")

	c := New(flags)

	testutil.Assert(t, "debug", c.Level, "level from file")
	testutil.Assert(t, 2, len(c.Engine.Sources), "sources from file")
	testutil.Assert(t, "/opt/ffmpeg/bin/ffmpeg", c.Engine.Sources[0].Path, "path source")
	testutil.Assert(t, EngineSourceURL, c.Engine.Sources[1].Kind, "url source")
	testutil.Assert(t, "http://compressor:3001", c.Remote.URL, "remote from file")
	testutil.Assert(t, "127.0.0.1:4000", c.API.Bind, "bind from env")
}
