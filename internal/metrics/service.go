package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github/keyless/go-connector/internal/config"
)

const namespace = "keyless"

// Service 持有连接器的业务指标，每个实例使用独立的 Registry
type Service struct {
	Registry *prometheus.Registry

	ProviderRequests  *prometheus.CounterVec
	Logins            *prometheus.CounterVec
	Signatures        *prometheus.CounterVec
	PendingRejections *prometheus.CounterVec
	BroadcastOutcomes *prometheus.CounterVec
	BroadcastDuration *prometheus.HistogramVec
}

func New(cfg config.Server) (*Service, error) {
	reg := prometheus.NewRegistry()
	if cfg.Management.EnableMetrics {
		if err := reg.Register(collectors.NewGoCollector()); err != nil {
			return nil, err
		}
		if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, err
		}
	}

	factory := promauto.With(reg)

	return &Service{
		Registry: reg,
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Provider requests by method and result",
		}, []string{"method", "result"}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result",
		}, []string{"result"}),
		Signatures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signatures_total",
			Help:      "Signing attempts by chain family and result",
		}, []string{"family", "result"}),
		PendingRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_rejections_total",
			Help:      "Pending requests rejected by the user",
		}, []string{"kind"}),
		BroadcastOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_outcomes_total",
			Help:      "Broadcast outcomes by chain and status",
		}, []string{"chain_id", "status"}),
		BroadcastDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_duration_seconds",
			Help:      "Time from submission to outcome",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"chain_id"}),
	}, nil
}

// Handler 返回 /metrics 端点
func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})
}

func (s *Service) ObserveProviderRequest(method string, failed bool) {
	s.ProviderRequests.WithLabelValues(method, result(failed)).Inc()
}

func (s *Service) ObserveLogin(failed bool) {
	s.Logins.WithLabelValues(result(failed)).Inc()
}

func (s *Service) ObserveSignature(family string, failed bool) {
	s.Signatures.WithLabelValues(family, result(failed)).Inc()
}

func (s *Service) ObserveRejection(kind string) {
	s.PendingRejections.WithLabelValues(kind).Inc()
}

func (s *Service) ObserveBroadcast(chainID int64, status string, elapsed time.Duration) {
	id := strconv.FormatInt(chainID, 10)
	s.BroadcastOutcomes.WithLabelValues(id, status).Inc()
	s.BroadcastDuration.WithLabelValues(id).Observe(elapsed.Seconds())
}

func result(failed bool) string {
	if failed {
		return "error"
	}

	return "ok"
}
