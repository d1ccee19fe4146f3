package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. All recording methods are safe on a nil
// receiver so components can run without metrics enabled.
type Metrics struct {
	registry          *prometheus.Registry
	httpReqCnt        *prometheus.CounterVec
	httpDur           *prometheus.HistogramVec
	couponTransitions *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
	memberships       prometheus.Counter
	jobRuns           *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route and status."}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency.", Buckets: prometheus.DefBuckets}, []string{"method", "route"})
	couponTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "coupon_status_transitions_total", Help: "Coupon moderation status changes."}, []string{"from", "to"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "payment_webhook_events_total", Help: "Payment webhook events by type and outcome."}, []string{"type", "outcome"})
	memberships := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "memberships_activated_total", Help: "Memberships activated by completed checkouts."})
	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "maintenance_job_runs_total", Help: "Maintenance job runs by outcome."}, []string{"job", "outcome"})
	r.MustRegister(httpReqCnt, httpDur, couponTransitions, webhookEvents, memberships, jobRuns)

	return &Metrics{
		registry:          r,
		httpReqCnt:        httpReqCnt,
		httpDur:           httpDur,
		couponTransitions: couponTransitions,
		webhookEvents:     webhookEvents,
		memberships:       memberships,
		jobRuns:           jobRuns,
	}
}

func (m *Metrics) CouponTransition(from, to string) {
	if m == nil {
		return
	}
	m.couponTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) WebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) MembershipActivated() {
	if m == nil {
		return
	}
	m.memberships.Inc()
}

func (m *Metrics) JobRun(job, outcome string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		start := time.Now()
		c.Next()
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
