package resolve

import (
	"math"
	"strconv"
	"strings"
)

// Filename derives the suggested output name for a stem and extension.
func Filename(stem string, ext string) string {
	if stem == "" {
		stem = "file"
	}

	return stem + "_compressed." + ext
}

// ParseFrameRate parses a "num/den" rational as reported by ffprobe. Plain
// decimals are accepted too. Malformed input and zero denominators give 0.
func ParseFrameRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	fpsArr := strings.SplitN(s, "/", 2)

	numerator, err := strconv.ParseFloat(fpsArr[0], 64)
	if err != nil {
		return 0
	}

	fps := numerator
	if len(fpsArr) == 2 {
		denominator, err := strconv.ParseFloat(fpsArr[1], 64)
		if err != nil || denominator == 0 {
			return 0
		}

		fps = numerator / denominator
	}

	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps < 0 {
		return 0
	}

	return fps
}
