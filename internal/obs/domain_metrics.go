package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InvoiceMetrics tracks invoice pricing, persistence and rendering. A nil
// *InvoiceMetrics is valid and records nothing.
type InvoiceMetrics struct {
	Created            *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	GrandTotal         *prometheus.HistogramVec
	Renders            *prometheus.CounterVec
	RenderDuration     prometheus.Histogram
	SearchCache        *prometheus.CounterVec
}

// NewInvoiceMetrics registers the invoice collectors on reg.
func NewInvoiceMetrics(namespace string, reg prometheus.Registerer) *InvoiceMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &InvoiceMetrics{
		Created: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_created_total",
			Help:      "Count of invoice creation attempts by outcome.",
		}, []string{"result"})),
		ValidationFailures: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_validation_failures_total",
			Help:      "Count of rejected invoice inputs by field and reason.",
		}, []string{"field", "reason"})),
		GrandTotal: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invoice_grand_total",
			Help:      "Grand total of persisted invoices in major currency units.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"currency"})),
		Renders: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_renders_total",
			Help:      "Count of invoice PDF render tasks by outcome.",
		}, []string{"result"})),
		RenderDuration: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invoice_render_duration_ms",
			Help:      "Latency of invoice PDF rendering in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		})),
		SearchCache: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_search_cache_total",
			Help:      "Product search cache lookups by result.",
		}, []string{"result"})),
	}
}

// InvoiceCreated records a persisted invoice.
func (m *InvoiceMetrics) InvoiceCreated(currency string, grandTotal float64) {
	if m == nil {
		return
	}
	m.Created.WithLabelValues("ok").Inc()
	m.GrandTotal.WithLabelValues(currency).Observe(grandTotal)
}

// InvoiceFailed records a creation attempt that did not persist.
func (m *InvoiceMetrics) InvoiceFailed(result string) {
	if m == nil {
		return
	}
	m.Created.WithLabelValues(result).Inc()
}

// ValidationFailed records a rejected line item or rate.
func (m *InvoiceMetrics) ValidationFailed(field, reason string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(field, reason).Inc()
}

// Rendered records a render outcome and its latency.
func (m *InvoiceMetrics) Rendered(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Renders.WithLabelValues(result).Inc()
	m.RenderDuration.Observe(DurationMillis(d))
}

// SearchCacheLookup records a cache hit or miss.
func (m *InvoiceMetrics) SearchCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SearchCache.WithLabelValues(result).Inc()
}
