package media

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Result is a finished artifact. Ownership passes entirely to the caller.
type Result struct {
	Data     []byte `json:"-"`
	Size     int    `json:"size"`
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	SHA3     string `json:"sha3"`
	Source   Source `json:"source"`
}

func NewResult(src Source, data []byte, filename, mime string) Result {
	h := sha3.New512()
	_, _ = h.Write(data)

	return Result{
		Data:     data,
		Size:     len(data),
		Filename: filename,
		MIME:     mime,
		SHA3:     hex.EncodeToString(h.Sum(nil)),
		Source:   src,
	}
}

// ProgressFunc receives a completion percent in [0,100].
type ProgressFunc func(percent int)
