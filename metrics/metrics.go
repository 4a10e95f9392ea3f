// Package metrics exports catcher activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deepnoodle-ai/unwind/catcher"
)

const namespace = "unwind"

// Observer implements catcher.Observer by updating Prometheus collectors.
type Observer struct {
	throws   *prometheus.CounterVec
	catches  *prometheus.CounterVec
	relays   *prometheus.CounterVec
	depth    prometheus.Gauge
	gatherer prometheus.Gatherer
}

var _ catcher.Observer = (*Observer)(nil)

// New creates the collectors and registers them with reg. If reg is nil a
// private registry is used.
func New(reg *prometheus.Registry) (*Observer, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	o := &Observer{
		throws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throws_total",
			Help:      "Aborts thrown, by reason and error kind.",
		}, []string{"reason", "kind"}),
		catches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catches_total",
			Help:      "Aborts intercepted by a catcher, by reason.",
		}, []string{"reason"}),
		relays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relays_total",
			Help:      "Aborts declined by a catcher and passed outward, by reason.",
		}, []string{"reason"}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catcher_depth",
			Help:      "Number of active catchers.",
		}),
		gatherer: reg,
	}
	for _, c := range []prometheus.Collector{o.throws, o.catches, o.relays, o.depth} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) OnAcquire(e catcher.ScopeEvent) {
	o.depth.Set(float64(e.Depth))
}

func (o *Observer) OnRelease(e catcher.ScopeEvent) {
	o.depth.Set(float64(e.Depth - 1))
}

func (o *Observer) OnThrow(e catcher.ThrowEvent) {
	o.throws.WithLabelValues(e.Record.Reason.String(), e.Record.Kind.String()).Inc()
}

func (o *Observer) OnCatch(e catcher.ThrowEvent) {
	o.catches.WithLabelValues(e.Record.Reason.String()).Inc()
}

func (o *Observer) OnRelay(e catcher.ThrowEvent) {
	o.relays.WithLabelValues(e.Record.Reason.String()).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{})
}
