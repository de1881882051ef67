package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/seventv/optipix/internal/resolve"
	"github.com/seventv/optipix/media"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type RemoteOptions struct {
	URL     string
	Timeout time.Duration
	// Dial overrides the transport, mostly for in-memory listeners.
	Dial fasthttp.DialFunc
}

// Remote delegates video work to the compression service over HTTP.
type Remote struct {
	base    string
	timeout time.Duration
	client  *fasthttp.Client
}

func NewRemote(opts RemoteOptions) *Remote {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute * 10
	}

	return &Remote{
		base:    strings.TrimRight(opts.URL, "/"),
		timeout: opts.Timeout,
		client: &fasthttp.Client{
			Name:         "optipix",
			Dial:         opts.Dial,
			ReadTimeout:  opts.Timeout,
			WriteTimeout: opts.Timeout,
		},
	}
}

func (r *Remote) Name() string {
	return "remote"
}

// Healthy is always true; reachability is only known per call.
func (r *Remote) Healthy() bool {
	return true
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func (r *Remote) CompressVideo(ctx context.Context, src media.Source, opts media.VideoOptions, progress media.ProgressFunc) (media.Result, error) {
	fields := map[string]string{
		"quality": string(opts.Preset),
		"format":  string(opts.Format),
	}
	if opts.Resolution != "" {
		fields["resolution"] = opts.Resolution
	}
	if opts.CustomBitrate != "" {
		fields["bitrate"] = opts.CustomBitrate
	}

	if progress != nil {
		progress(0)
	}

	resp, err := r.post(ctx, "/api/compress-video", src, fields)
	if err != nil {
		return media.Result{}, err
	}
	defer fasthttp.ReleaseResponse(resp)

	data := append([]byte(nil), resp.Body()...)

	format := opts.Format
	if format == "" {
		format = media.VideoFormatMP4
	}

	mt := format.MIME()
	if parsed, _, err := mime.ParseMediaType(string(resp.Header.ContentType())); err == nil && strings.HasPrefix(parsed, "video/") {
		mt = parsed
	}

	filename := attachmentName(string(resp.Header.Peek(fasthttp.HeaderContentDisposition)))
	if filename == "" {
		filename = resolve.Filename(src.Stem(), string(format))
	}

	if progress != nil {
		progress(100)
	}

	return media.NewResult(src, data, filename, mt), nil
}

func (r *Remote) ProbeVideo(ctx context.Context, src media.Source) (media.VideoMetadata, error) {
	info, err := r.Info(ctx, src)
	if err != nil {
		return media.VideoMetadata{}, err
	}

	return info.Metadata(), nil
}

func (r *Remote) Info(ctx context.Context, src media.Source) (media.VideoInfo, error) {
	resp, err := r.post(ctx, "/api/video-info", src, nil)
	if err != nil {
		return media.VideoInfo{}, err
	}
	defer fasthttp.ReleaseResponse(resp)

	info := media.VideoInfo{}
	if err := json.Unmarshal(resp.Body(), &info); err != nil {
		return media.VideoInfo{}, media.Wrap(media.KindRemoteService, err, "bad video info response")
	}

	return info, nil
}

// post sends src as the "video" part. The caller releases the response.
func (r *Remote) post(ctx context.Context, route string, src media.Source, fields map[string]string) (*fasthttp.Response, error) {
	body := bytes.Buffer{}
	w := multipart.NewWriter(&body)

	name := src.Name
	if name == "" {
		name = "video"
	}

	part, err := w.CreateFormFile("video", name)
	if err != nil {
		return nil, media.Wrap(media.KindInvalidInput, err, "failed at build request")
	}

	if _, err := part.Write(src.Data); err != nil {
		return nil, media.Wrap(media.KindInvalidInput, err, "failed at build request")
	}

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, media.Wrap(media.KindInvalidInput, err, "failed at build request")
		}
	}

	if err := w.Close(); err != nil {
		return nil, media.Wrap(media.KindInvalidInput, err, "failed at build request")
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(r.base + route)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(w.FormDataContentType())
	req.SetBody(body.Bytes())

	deadline := time.Now().Add(r.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	resp := fasthttp.AcquireResponse()
	if err := r.client.DoDeadline(req, resp, deadline); err != nil {
		fasthttp.ReleaseResponse(resp)
		zap.S().Warnw("remote service request failed",
			"route", route,
			"error", err,
		)

		return nil, media.Wrap(media.KindEngineInit, err, "remote service unreachable")
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		defer fasthttp.ReleaseResponse(resp)

		eb := errorBody{}
		if err := json.Unmarshal(resp.Body(), &eb); err != nil || eb.Error == "" {
			eb.Error = fmt.Sprintf("HTTP error! status: %d", code)
		}

		msg := eb.Error
		if eb.Details != "" {
			msg = eb.Error + ": " + eb.Details
		}

		return nil, media.Errorf(media.KindRemoteService, "%s", msg)
	}

	return resp, nil
}

func attachmentName(header string) string {
	if header == "" {
		return ""
	}

	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}

	name := path.Base(strings.ReplaceAll(params["filename"], "\\", "/"))
	switch name {
	case ".", "..", "/":
		return ""
	}

	return name
}
