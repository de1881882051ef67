package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/seventv/optipix/internal/instance"
)

type Options struct {
	Labels prometheus.Labels
}

func copyLabels(p prometheus.Labels) prometheus.Labels {
	x := prometheus.Labels{}
	for k, v := range p {
		x[k] = v
	}

	return x
}

func seconds(start time.Time) float64 {
	return float64(time.Since(start)/time.Millisecond) / 1000
}

func New(o Options) instance.Prometheus {
	totalBytesIn := copyLabels(o.Labels)
	totalBytesOut := copyLabels(o.Labels)

	totalBytesIn["direction"] = "in"
	totalBytesOut["direction"] = "out"

	return &Instance{
		totalTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "optipix",
			Name:        "total_tasks",
			Help:        "The total number of compression tasks",
			ConstLabels: copyLabels(o.Labels),
		}, []string{"kind", "state"}),
		currentTasks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "optipix",
			Name:        "current_tasks",
			Help:        "The current number of compression tasks",
			ConstLabels: copyLabels(o.Labels),
		}, []string{"kind"}),
		taskDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "optipix",
			Name:        "task_duration_seconds",
			Help:        "The seconds spent running compression tasks",
			ConstLabels: copyLabels(o.Labels),
		}, []string{"kind"}),
		engineInits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "optipix",
			Name:        "engine_inits",
			Help:        "The total number of codec engine bring-up attempts",
			ConstLabels: copyLabels(o.Labels),
		}, []string{"state"}),
		engineInitDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "optipix",
			Name:        "engine_init_duration_seconds",
			Help:        "The seconds spent bringing up the codec engine",
			ConstLabels: copyLabels(o.Labels),
		}),
		probeDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "optipix",
			Name:        "probe_duration_seconds",
			Help:        "The seconds spent probing media",
			ConstLabels: copyLabels(o.Labels),
		}),
		decodeDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "optipix",
			Name:        "decode_duration_seconds",
			Help:        "The seconds spent decoding images",
			ConstLabels: copyLabels(o.Labels),
		}),
		encodeDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "optipix",
			Name:        "encode_duration_seconds",
			Help:        "The seconds spent encoding images",
			ConstLabels: copyLabels(o.Labels),
		}),
		transcodeDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "optipix",
			Name:        "transcode_duration_seconds",
			Help:        "The seconds spent transcoding video",
			ConstLabels: copyLabels(o.Labels),
		}),
		totalBytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "optipix",
			Name:        "total_bytes",
			Help:        "The total number of bytes processed",
			ConstLabels: totalBytesIn,
		}),
		totalBytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "optipix",
			Name:        "total_bytes",
			Help:        "The total number of bytes processed",
			ConstLabels: totalBytesOut,
		}),
	}
}

type Instance struct {
	totalTasks          *prometheus.CounterVec
	currentTasks        *prometheus.GaugeVec
	taskDurationSeconds *prometheus.HistogramVec

	engineInits               *prometheus.CounterVec
	engineInitDurationSeconds prometheus.Histogram
	probeDurationSeconds      prometheus.Histogram
	decodeDurationSeconds     prometheus.Histogram
	encodeDurationSeconds     prometheus.Histogram
	transcodeDurationSeconds  prometheus.Histogram

	totalBytesIn  prometheus.Counter
	totalBytesOut prometheus.Counter
}

func (m *Instance) Register(r prometheus.Registerer) {
	r.MustRegister(
		m.totalTasks,
		m.currentTasks,
		m.taskDurationSeconds,

		m.engineInits,
		m.engineInitDurationSeconds,
		m.probeDurationSeconds,
		m.decodeDurationSeconds,
		m.encodeDurationSeconds,
		m.transcodeDurationSeconds,

		m.totalBytesIn,
		m.totalBytesOut,
	)
}

func (m *Instance) StartTask(kind string) func(success bool) {
	start := time.Now()
	m.currentTasks.WithLabelValues(kind).Inc()

	return func(success bool) {
		m.currentTasks.WithLabelValues(kind).Dec()
		m.taskDurationSeconds.WithLabelValues(kind).Observe(seconds(start))

		state := "failed"
		if success {
			state = "successful"
		}

		m.totalTasks.WithLabelValues(kind, state).Inc()
	}
}

func (m *Instance) EngineInit() func(success bool) {
	start := time.Now()

	return func(success bool) {
		m.engineInitDurationSeconds.Observe(seconds(start))

		state := "failed"
		if success {
			state = "successful"
		}

		m.engineInits.WithLabelValues(state).Inc()
	}
}

func (m *Instance) Probe() func() {
	start := time.Now()

	return func() {
		m.probeDurationSeconds.Observe(seconds(start))
	}
}

func (m *Instance) Decode() func() {
	start := time.Now()

	return func() {
		m.decodeDurationSeconds.Observe(seconds(start))
	}
}

func (m *Instance) Encode() func() {
	start := time.Now()

	return func() {
		m.encodeDurationSeconds.Observe(seconds(start))
	}
}

func (m *Instance) Transcode() func() {
	start := time.Now()

	return func() {
		m.transcodeDurationSeconds.Observe(seconds(start))
	}
}

func (m *Instance) TotalBytesIn(n int) {
	m.totalBytesIn.Add(float64(n))
}

func (m *Instance) TotalBytesOut(n int) {
	m.totalBytesOut.Add(float64(n))
}
