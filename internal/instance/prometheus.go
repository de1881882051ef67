package instance

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Prometheus interface {
	Register(r prometheus.Registerer)

	StartTask(kind string) func(success bool)

	EngineInit() func(success bool)
	Probe() func()
	Decode() func()
	Encode() func()
	Transcode() func()

	TotalBytesIn(int)
	TotalBytesOut(int)
}
