package video_processor

import (
	"sync"

	"github.com/seventv/optipix/media"
)

// reporter forwards percentages that are clamped to 0..100 and never decrease.
type reporter struct {
	mtx  sync.Mutex
	fn   media.ProgressFunc
	last int
}

func newReporter(fn media.ProgressFunc) *reporter {
	return &reporter{fn: fn, last: -1}
}

func (r *reporter) set(p int) {
	if r.fn == nil {
		return
	}

	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if p <= r.last {
		return
	}

	r.last = p
	r.fn(p)
}
