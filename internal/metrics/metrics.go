// Package metrics collects Prometheus metrics for session and catalog activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector is the interface the app layer records through.
type MetricsCollector interface {
	RecordSessionEvent(event string)
	RecordAuthFailure(action string)
	RecordDealOpened(category string)
	RecordCategorySelected(category string)
}

// Collector is the Prometheus implementation of MetricsCollector.
type Collector struct {
	sessionEvents      *prometheus.CounterVec
	authFailures       *prometheus.CounterVec
	dealOpens          *prometheus.CounterVec
	categorySelections *prometheus.CounterVec
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bogo_session_events_total",
			Help: "Session change notifications applied by the session store",
		}, []string{"event"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bogo_auth_failures_total",
			Help: "Failed auth form actions",
		}, []string{"action"}),
		dealOpens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bogo_deal_opens_total",
			Help: "Deals opened in the detail view",
		}, []string{"category"}),
		categorySelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bogo_category_selections_total",
			Help: "Category filter selections",
		}, []string{"category"}),
	}

	reg.MustRegister(
		c.sessionEvents,
		c.authFailures,
		c.dealOpens,
		c.categorySelections,
	)

	return c
}

func (c *Collector) RecordSessionEvent(event string) {
	c.sessionEvents.WithLabelValues(event).Inc()
}

func (c *Collector) RecordAuthFailure(action string) {
	c.authFailures.WithLabelValues(action).Inc()
}

func (c *Collector) RecordDealOpened(category string) {
	c.dealOpens.WithLabelValues(category).Inc()
}

func (c *Collector) RecordCategorySelected(category string) {
	c.categorySelections.WithLabelValues(category).Inc()
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// NopCollector discards everything.
type NopCollector struct{}

var _ MetricsCollector = NopCollector{}

func (NopCollector) RecordSessionEvent(string)     {}
func (NopCollector) RecordAuthFailure(string)      {}
func (NopCollector) RecordDealOpened(string)       {}
func (NopCollector) RecordCategorySelected(string) {}
