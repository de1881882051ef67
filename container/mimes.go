package container

import "github.com/h2non/filetype/matchers"

const MimeOctetStream = "application/octet-stream"

var (
	MimeAVIF = TypeAvif.MIME.Value
	MimeWEBP = matchers.TypeWebp.MIME.Value
	MimeGIF  = matchers.TypeGif.MIME.Value
	MimePNG  = matchers.TypePng.MIME.Value
	MimeJPEG = matchers.TypeJpeg.MIME.Value
	MimeBMP  = matchers.TypeBmp.MIME.Value
	MimeTIFF = matchers.TypeTiff.MIME.Value

	MimeMP4       = matchers.TypeMp4.MIME.Value
	MimeWEBM      = matchers.TypeWebm.MIME.Value
	MimeQuicktime = matchers.TypeMov.MIME.Value
	MimeAVI       = matchers.TypeAvi.MIME.Value
	MimeMKV       = matchers.TypeMkv.MIME.Value
)
