package backend

import (
	"github.com/seventv/optipix/internal/instance"
	"github.com/seventv/optipix/media"
	"go.uber.org/zap"
)

// Select picks the embedded backend when it can run in this process, the
// remote one otherwise. Either may be nil.
func Select(embedded *Embedded, remote *Remote) (instance.Backend, error) {
	if embedded != nil && embedded.Available() {
		zap.S().Infow("backend selected",
			"backend", embedded.Name(),
		)
		return embedded, nil
	}

	if remote != nil {
		zap.S().Infow("backend selected",
			"backend", remote.Name(),
			"url", remote.base,
		)
		return remote, nil
	}

	return nil, media.Errorf(media.KindEngineInit, "no execution backend is available")
}
