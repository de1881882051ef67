package global

import "github.com/seventv/optipix/internal/instance"

type Instances struct {
	Prometheus instance.Prometheus
	Backend    instance.Backend
}
