package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/seventv/optipix/media"
)

// Engine is a loaded codec runtime with its own isolated working storage.
// Names are flat: they address entries inside the working storage only.
type Engine interface {
	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	Remove(name string) error
	List() ([]string, error)

	// Exec runs the codec with args relative to the working storage.
	// onProgress receives the output timestamp reached so far and may be nil.
	Exec(ctx context.Context, args []string, onProgress func(outTime time.Duration)) error
	Probe(ctx context.Context, name string) (media.VideoInfo, error)

	Close() error
}

// FFmpeg drives ffmpeg and ffprobe binaries against a private directory.
type FFmpeg struct {
	bin      string
	probeBin string
	dir      string
}

func NewFFmpeg(bin string, probeBin string, dir string) *FFmpeg {
	return &FFmpeg{
		bin:      bin,
		probeBin: probeBin,
		dir:      dir,
	}
}

func (f *FFmpeg) Bin() string {
	return f.bin
}

func (f *FFmpeg) Dir() string {
	return f.dir
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return media.Errorf(media.KindInvalidInput, "invalid working storage name %q", name)
	}

	return nil
}

func (f *FFmpeg) path(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}

	return filepath.Join(f.dir, name), nil
}

func (f *FFmpeg) WriteFile(name string, data []byte) error {
	pth, err := f.path(name)
	if err != nil {
		return err
	}

	return os.WriteFile(pth, data, 0600)
}

func (f *FFmpeg) ReadFile(name string) ([]byte, error) {
	pth, err := f.path(name)
	if err != nil {
		return nil, err
	}

	return os.ReadFile(pth)
}

// Remove deletes an entry. Removing a missing entry is not an error.
func (f *FFmpeg) Remove(name string) error {
	pth, err := f.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(pth); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

func (f *FFmpeg) List() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	sort.Strings(names)

	return names, nil
}

func (f *FFmpeg) Close() error {
	if f.dir == "" {
		return nil
	}

	if err := os.RemoveAll(f.dir); err != nil {
		return fmt.Errorf("failed at remove working storage: %w", err)
	}

	return nil
}
