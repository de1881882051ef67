package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/seventv/optipix/container"
	"github.com/seventv/optipix/media"
	"go.uber.org/zap"
)

const headerSHA3 = "X-Content-SHA3"

// multipartMemory is how much of an upload is held in memory before spilling to disk.
const multipartMemory = 32 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.S().Warnw("failed to encode response",
				"error", err,
			)
		}
	}
}

func writeResult(w http.ResponseWriter, res media.Result) {
	w.Header().Set("Content-Type", res.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(res.Size))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	w.Header().Set(headerSHA3, res.SHA3)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(res.Data); err != nil {
		zap.S().Warnw("failed to write result",
			"error", err,
		)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Message: "OptiPix Backend API is running",
	})
}

// readUpload returns the named file part. ok is false when a response was written.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string, missing string) (media.Source, bool) {
	if s.cfg.API.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.API.MaxUploadBytes))
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "File too large"})
			return media.Source{}, false
		}

		writeJSON(w, http.StatusBadRequest, errorResponse{Error: missing, Details: err.Error()})
		return media.Source{}, false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: missing})
		return media.Source{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Failed to read upload", Details: err.Error()})
		return media.Source{}, false
	}

	mt := container.ResolveMIME(header.Header.Get("Content-Type"), data)

	return media.NewSource(header.Filename, mt, data), true
}

func (s *Server) compressVideo(w http.ResponseWriter, r *http.Request) {
	src, ok := s.readUpload(w, r, "video", "No video file uploaded")
	if !ok {
		return
	}

	if !container.IsAllowedVideo(src.MIME) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid file type. Only video files are allowed.", Details: src.MIME})
		return
	}

	opts := media.DefaultVideoOptions()
	if v := r.FormValue("quality"); v != "" {
		opts.Preset = media.VideoPreset(v)
	}
	if v := r.FormValue("format"); v != "" {
		opts.Format = media.VideoFormat(v)
	}
	opts.Resolution = r.FormValue("resolution")
	opts.CustomBitrate = r.FormValue("bitrate")

	res, err := s.backend.CompressVideo(r.Context(), src, opts, nil)
	if err != nil {
		zap.S().Errorw("video compression failed",
			"name", src.Name,
			"options", opts.String(),
			"error", err,
		)
		writeJSON(w, statusFor(err), errorResponse{Error: "Failed to compress video", Details: err.Error()})
		return
	}

	writeResult(w, res)
}

func (s *Server) videoInfo(w http.ResponseWriter, r *http.Request) {
	src, ok := s.readUpload(w, r, "video", "No video file uploaded")
	if !ok {
		return
	}

	info, err := s.backend.Info(r.Context(), src)
	if err != nil {
		zap.S().Errorw("video info failed",
			"name", src.Name,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to get video info", Details: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (s *Server) compressImage(w http.ResponseWriter, r *http.Request) {
	src, ok := s.readUpload(w, r, "image", "No image file uploaded")
	if !ok {
		return
	}

	if !container.IsAllowedImage(src.MIME) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid file type. Only image files are allowed.", Details: src.MIME})
		return
	}

	opts, err := imageOptions(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid image options", Details: err.Error()})
		return
	}

	res, err := s.images.CompressOptions(r.Context(), src, opts, s.imageCfg)
	if err != nil {
		zap.S().Errorw("image compression failed",
			"name", src.Name,
			"error", err,
		)
		writeJSON(w, statusFor(err), errorResponse{Error: "Failed to compress image", Details: err.Error()})
		return
	}

	writeResult(w, res)
}

// imageOptions reads the form fields. A numeric quality overrides a preset.
func imageOptions(r *http.Request) (media.ImageOptions, error) {
	opts := media.DefaultImageOptions()

	if v := r.FormValue("format"); v != "" {
		f, err := media.ParseImageFormat(strings.ToLower(v))
		if err != nil {
			return opts, err
		}
		opts.Format = f
	}

	if v := r.FormValue("preset"); v != "" {
		opts.Quality.SetPreset(media.QualityPreset(v))
	}

	ints := []struct {
		field string
		dst   *int
	}{
		{"width", &opts.Width},
		{"height", &opts.Height},
		{"max_width", &opts.MaxWidth},
		{"max_height", &opts.MaxHeight},
	}
	for _, it := range ints {
		v := r.FormValue(it.field)
		if v == "" {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, media.Errorf(media.KindInvalidInput, "%s must be a non-negative integer", it.field)
		}
		*it.dst = n
	}

	if v := r.FormValue("quality"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, media.Errorf(media.KindInvalidInput, "quality must be an integer")
		}
		opts.Quality.SetPercent(n)
	}

	bools := []struct {
		field string
		dst   *bool
	}{
		{"maintain_aspect", &opts.MaintainAspectRatio},
		{"limit_max", &opts.LimitMaxDimensions},
	}
	for _, it := range bools {
		v := r.FormValue(it.field)
		if v == "" {
			continue
		}

		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, media.Errorf(media.KindInvalidInput, "%s must be a boolean", it.field)
		}
		*it.dst = b
	}

	opts.ResizeEnabled = opts.Width > 0 || opts.Height > 0

	return opts, nil
}

func statusFor(err error) int {
	switch media.KindOf(err) {
	case media.KindInvalidInput:
		return http.StatusBadRequest
	case media.KindMetadataUnavailable:
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}
