package engine

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeFFmpeg copies the -i input to the last argument and reports two
// progress points. An input named "fail" makes it exit non-zero.
const fakeFFmpeg = `#!/bin/sh
if [ "$1" = "-version" ]; then
	echo "ffmpeg version 0.0-fake"
	exit 0
fi
in=""
out=""
prev=""
for a in "$@"; do
	if [ "$prev" = "-i" ]; then
		in="$a"
	fi
	prev="$a"
	out="$a"
done
echo "out_time_us=500000"
echo "progress=continue"
echo "out_time_us=1000000"
echo "progress=end"
if [ "$in" = "fail" ]; then
	echo "boom" >&2
	exit 1
fi
cp "$in" "$out"
`

func writeFakeFFmpeg(t *testing.T) string {
	t.Helper()

	pth := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(pth, []byte(fakeFFmpeg), 0755); err != nil {
		t.Fatal(err)
	}

	return pth
}
