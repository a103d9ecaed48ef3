package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}

var (
	ChangesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_changes_published_total",
		Help: "Change events published to the bus, by topic kind.",
	}, []string{"kind"})

	ChangesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_changes_delivered_total",
		Help: "Change events delivered to subscribers, by topic kind.",
	}, []string{"kind"})

	ChangesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_changes_dropped_total",
		Help: "Change events dropped because a subscriber was too slow.",
	}, []string{"kind"})
)
