// Package metrics provides Prometheus metrics for the wallet bridge client.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bridge.
type Metrics struct {
	mu sync.Mutex

	// Request metrics
	requestsSentTotal  *prometheus.CounterVec
	repliesRoutedTotal *prometheus.CounterVec
	pendingRequests    prometheus.Gauge
	replyLatency       prometheus.Histogram

	// Push/proxy metrics
	pushNotificationsTotal   prometheus.Counter
	unroutableRepliesTotal   prometheus.Counter
	droppedQueryRepliesTotal prometheus.Counter

	// Internal tracking
	requestStartTimes map[uint64]time.Time
}

// NewMetrics creates a Metrics instance registered on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsOn(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsOn creates a Metrics instance registered on the given registerer.
func NewMetricsOn(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		requestStartTimes: make(map[uint64]time.Time),
	}

	m.requestsSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_sent_total",
		Help:      "Total number of requests sent to the engine by kind",
	}, []string{"kind"})

	m.repliesRoutedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replies_routed_total",
		Help:      "Total number of correlated replies routed to handlers by kind",
	}, []string{"kind"})

	m.pendingRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_requests",
		Help:      "Number of requests currently awaiting an engine reply",
	})

	m.replyLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reply_latency_seconds",
		Help:      "Time between sending a request and routing its reply",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
	})

	m.pushNotificationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "push_notifications_total",
		Help:      "Total number of network-query push notifications received",
	})

	m.unroutableRepliesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unroutable_replies_total",
		Help:      "Total number of replies dropped for lack of a pending handler",
	})

	m.droppedQueryRepliesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_query_replies_total",
		Help:      "Total number of proxy replies dropped after client teardown",
	})

	reg.MustRegister(
		m.requestsSentTotal,
		m.repliesRoutedTotal,
		m.pendingRequests,
		m.replyLatency,
		m.pushNotificationsTotal,
		m.unroutableRepliesTotal,
		m.droppedQueryRepliesTotal,
	)

	return m
}

// RequestSent records an outbound request.
func (m *Metrics) RequestSent(requestID uint64, kind string) {
	m.requestsSentTotal.WithLabelValues(kind).Inc()

	m.mu.Lock()
	m.requestStartTimes[requestID] = time.Now()
	m.pendingRequests.Set(float64(len(m.requestStartTimes)))
	m.mu.Unlock()
}

// ReplyRouted records a correlated reply handed to its handler.
func (m *Metrics) ReplyRouted(requestID uint64, kind string) {
	m.repliesRoutedTotal.WithLabelValues(kind).Inc()

	m.mu.Lock()
	startTime, exists := m.requestStartTimes[requestID]
	if exists {
		delete(m.requestStartTimes, requestID)
	}
	m.pendingRequests.Set(float64(len(m.requestStartTimes)))
	m.mu.Unlock()

	if exists {
		m.replyLatency.Observe(time.Since(startTime).Seconds())
	}
}

// IncPushNotifications increments the push notification counter.
func (m *Metrics) IncPushNotifications() {
	m.pushNotificationsTotal.Inc()
}

// IncUnroutableReplies increments the unroutable reply counter.
func (m *Metrics) IncUnroutableReplies() {
	m.unroutableRepliesTotal.Inc()
}

// IncDroppedQueryReplies increments the dropped proxy reply counter.
func (m *Metrics) IncDroppedQueryReplies() {
	m.droppedQueryRepliesTotal.Inc()
}

// Server provides the HTTP server for Prometheus scraping.
type Server struct {
	addr   string
	server *http.Server
}

// NewServer creates a new metrics HTTP server.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		addr: addr,
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start starts the metrics server.
func (s *Server) Start() error {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()
	return nil
}

// Stop stops the metrics server.
func (s *Server) Stop() error {
	return s.server.Close()
}
