package container

import (
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

var TypeAvif = types.NewType("avif", "image/avif")

func init() {
	filetype.AddMatcher(TypeAvif, func(data []byte) bool {
		if len(data) < 12 {
			return false
		}

		return data[0] == 0x00 &&
			data[1] == 0x00 &&
			data[4] == 'f' &&
			data[5] == 't' &&
			data[6] == 'y' &&
			data[7] == 'p' &&
			data[8] == 'a' &&
			data[9] == 'v' &&
			data[10] == 'i' &&
			(data[11] == 's' || data[11] == 'f' || data[11] == 'o')
	})
}

func Match(data []byte) types.Type {
	t, _ := filetype.Match(data)

	return t
}

// ResolveMIME trusts a specific declared type and sniffs the bytes otherwise.
func ResolveMIME(declared string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}

	if declared != "" && declared != MimeOctetStream {
		return declared
	}

	if t := Match(data); t != types.Unknown {
		return t.MIME.Value
	}

	return MimeOctetStream
}

func IsAllowedImage(mime string) bool {
	_, ok := allowedImages[mime]

	return ok
}

func IsAllowedVideo(mime string) bool {
	_, ok := allowedVideos[mime]

	return ok
}

var allowedImages = map[string]struct{}{
	MimeJPEG: {},
	MimePNG:  {},
	MimeWEBP: {},
	MimeGIF:  {},
	MimeBMP:  {},
	MimeTIFF: {},
}

var allowedVideos = map[string]struct{}{
	MimeMP4:       {},
	MimeWEBM:      {},
	MimeQuicktime: {},
	MimeAVI:       {},
}

// videoExtensions maps the allowed upload types to the extension the engine
// needs to pick a demuxer.
var videoExtensions = map[string]string{
	MimeMP4:       "mp4",
	MimeWEBM:      "webm",
	MimeQuicktime: "mov",
	MimeAVI:       "avi",
	MimeMKV:       "mkv",
}

func VideoExtension(mime string) string {
	return videoExtensions[mime]
}
