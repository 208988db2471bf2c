package observability

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Metrics holds the bot's process counters. Thread-safe; all counters
// are monotonic for the process lifetime. A nil *Metrics is valid and
// records nothing, so callers never need to branch on whether metrics
// are enabled.
type Metrics struct {
	namespace string

	ordersAdded       atomic.Int64
	ordersDropped     atomic.Int64
	summariesRendered atomic.Int64
	storeErrors       atomic.Int64
	repliesSent       atomic.Int64
	httpRequests      atomic.Int64
}

// NewMetrics creates a Metrics collector. The namespace prefixes every
// exported metric name.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lunchbreakbot"
	}
	return &Metrics{namespace: namespace}
}

// RecordOrderAdded counts an item accepted into an order list.
func (m *Metrics) RecordOrderAdded() {
	if m == nil {
		return
	}
	m.ordersAdded.Add(1)
}

// RecordOrderDropped counts an item ignored because the collection
// window was closed.
func (m *Metrics) RecordOrderDropped() {
	if m == nil {
		return
	}
	m.ordersDropped.Add(1)
}

// RecordSummaryRendered counts a rendered order summary.
func (m *Metrics) RecordSummaryRendered() {
	if m == nil {
		return
	}
	m.summariesRendered.Add(1)
}

// RecordStoreError counts a failed key-value store operation.
func (m *Metrics) RecordStoreError() {
	if m == nil {
		return
	}
	m.storeErrors.Add(1)
}

// RecordReplySent counts a chat message sent by the bot.
func (m *Metrics) RecordReplySent() {
	if m == nil {
		return
	}
	m.repliesSent.Add(1)
}

// RecordHTTPRequest counts a request served by the ops server.
func (m *Metrics) RecordHTTPRequest() {
	if m == nil {
		return
	}
	m.httpRequests.Add(1)
}

// Handler serves the counters in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		counters := []struct {
			name  string
			help  string
			value int64
		}{
			{"orders_added_total", "Items accepted into order lists.", m.ordersAdded.Load()},
			{"orders_dropped_total", "Items ignored outside a collection window.", m.ordersDropped.Load()},
			{"summaries_rendered_total", "Order summaries rendered.", m.summariesRendered.Load()},
			{"store_errors_total", "Failed key-value store operations.", m.storeErrors.Load()},
			{"replies_sent_total", "Chat messages sent by the bot.", m.repliesSent.Load()},
			{"http_requests_total", "Requests served by the ops server.", m.httpRequests.Load()},
		}
		for _, c := range counters {
			fmt.Fprintf(w, "# HELP %s_%s %s\n", m.namespace, c.name, c.help)
			fmt.Fprintf(w, "# TYPE %s_%s counter\n", m.namespace, c.name)
			fmt.Fprintf(w, "%s_%s %d\n", m.namespace, c.name, c.value)
		}
	})
}
