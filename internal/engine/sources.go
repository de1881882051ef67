package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/renameio/v2"
	"github.com/seventv/optipix/internal/instance"
	"github.com/valyala/fasthttp"
	"go.uber.org/multierr"
)

// Source yields the path of a runnable ffmpeg binary.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (string, error)
}

// PathSource uses a binary already present at a fixed location.
type PathSource struct {
	Path string
}

func (s PathSource) Name() string {
	return "path:" + s.Path
}

func (s PathSource) Fetch(ctx context.Context) (string, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return "", err
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", s.Path)
	}

	return s.Path, nil
}

// LookupSource searches PATH.
type LookupSource struct {
	Binary string
}

func (s LookupSource) Name() string {
	return "lookup:" + s.binary()
}

func (s LookupSource) binary() string {
	if s.Binary == "" {
		return "ffmpeg"
	}

	return s.Binary
}

func (s LookupSource) Fetch(ctx context.Context) (string, error) {
	return exec.LookPath(s.binary())
}

// URLSource downloads a static binary over HTTP into the cache directory.
type URLSource struct {
	URL      string
	CacheDir string
	Client   *fasthttp.Client
	Timeout  time.Duration
}

const maxBinarySize = 512 * 1024 * 1024

func NewURLSource(url string, cacheDir string) *URLSource {
	return &URLSource{
		URL:      url,
		CacheDir: cacheDir,
		Client: &fasthttp.Client{
			Name:                "optipix",
			MaxResponseBodySize: maxBinarySize,
			ReadTimeout:         time.Minute * 5,
		},
		Timeout: time.Minute * 5,
	}
}

func (s *URLSource) Name() string {
	return "url:" + s.URL
}

func cachePath(cacheDir string, key string) string {
	sum := sha256.Sum256([]byte(key))

	return filepath.Join(cacheDir, "ffmpeg-"+hex.EncodeToString(sum[:8]))
}

func (s *URLSource) Fetch(ctx context.Context) (string, error) {
	dst := cachePath(s.CacheDir, s.URL)
	if info, err := os.Stat(dst); err == nil && info.Mode().IsRegular() {
		return dst, nil
	}

	if err := os.MkdirAll(s.CacheDir, 0700); err != nil {
		return "", multierr.Append(fmt.Errorf("failed at mkdir cache dir"), err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.URL)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline := time.Now().Add(s.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := s.Client.DoDeadline(req, resp, deadline); err != nil {
		return "", multierr.Append(fmt.Errorf("failed at download %s", s.URL), err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("failed at download %s: status %d", s.URL, resp.StatusCode())
	}

	if len(resp.Body()) == 0 {
		return "", fmt.Errorf("failed at download %s: empty body", s.URL)
	}

	if err := renameio.WriteFile(dst, resp.Body(), 0700); err != nil {
		return "", multierr.Append(fmt.Errorf("failed at write cached binary"), err)
	}

	return dst, nil
}

// S3Source downloads the binary from an object store bucket into the cache directory.
type S3Source struct {
	Bucket   string
	Key      string
	CacheDir string
	S3       instance.S3
}

func (s *S3Source) Name() string {
	return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Key)
}

func (s *S3Source) Fetch(ctx context.Context) (pth string, err error) {
	if s.S3 == nil {
		return "", fmt.Errorf("s3 is not configured")
	}

	dst := cachePath(s.CacheDir, s.Name())
	if info, err := os.Stat(dst); err == nil && info.Mode().IsRegular() {
		return dst, nil
	}

	if err := os.MkdirAll(s.CacheDir, 0700); err != nil {
		return "", multierr.Append(fmt.Errorf("failed at mkdir cache dir"), err)
	}

	file, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0700))
	if err != nil {
		return "", multierr.Append(fmt.Errorf("failed at create pending file"), err)
	}
	defer func() {
		err = multierr.Append(err, file.Cleanup())
	}()

	n, err := s.S3.DownloadFile(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return "", multierr.Append(fmt.Errorf("failed at s3 download"), err)
	}

	if n == 0 {
		return "", fmt.Errorf("failed at s3 download: empty object")
	}

	if err := file.CloseAtomicallyReplace(); err != nil {
		return "", multierr.Append(fmt.Errorf("failed at replace cached binary"), err)
	}

	return dst, nil
}
