package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHandler serves the default process collectors plus the given ones from
// a private registry.
func NewHandler(cs ...prometheus.Collector) http.Handler {
	registry := prometheus.NewRegistry()

	// default collectors
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	for _, c := range cs {
		registry.MustRegister(c)
	}

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
