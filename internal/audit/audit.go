// Package audit implements the cross-tenant audit sink named in §6.3:
// logCrossTenantRead. It is the only caller path permitted to reach
// tenant.Router.DefaultGraph() (internal/adminaudit wraps it for that
// purpose) — every other caller goes through the namespace-scoped
// tenant.GraphHandle instead.
package audit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// CrossTenantRead is one audited cross-tenant access (§6.3).
type CrossTenantRead struct {
	UserID       string
	UserOrgID    string
	TargetOrgID  string
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
}

// Sink logs and counts cross-tenant reads.
type Sink struct {
	logger        *zap.Logger
	accessCounter *prometheus.CounterVec
}

// NewSink constructs a Sink. namespace is the Prometheus metric namespace
// (mirrors the teacher's promauto.NewCounterVec(prometheus.CounterOpts{
// Namespace: namespace, ...}) convention). reg is the registerer the
// counter is registered into; pass prometheus.DefaultRegisterer in
// production, or a fresh prometheus.NewRegistry() per test to avoid
// duplicate-registration panics across test cases.
func NewSink(logger *zap.Logger, namespace string, reg prometheus.Registerer) *Sink {
	return &Sink{
		logger: logger,
		accessCounter: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_cross_tenant_reads_total",
				Help:      "Total number of cross-tenant graph reads via the admin escape hatch",
			},
			[]string{"user_id", "target_org_id", "resource_type"},
		),
	}
}

// LogCrossTenantRead records r at warn level (cross-tenant reads are
// inherently noteworthy) and increments the access counter.
func (s *Sink) LogCrossTenantRead(ctx context.Context, r CrossTenantRead) {
	s.accessCounter.WithLabelValues(r.UserID, r.TargetOrgID, r.ResourceType).Inc()
	s.logger.Warn("cross_tenant_read",
		zap.String("user_id", r.UserID),
		zap.String("user_org_id", r.UserOrgID),
		zap.String("target_org_id", r.TargetOrgID),
		zap.String("resource_type", r.ResourceType),
		zap.String("resource_id", r.ResourceID),
		zap.String("ip_address", r.IPAddress),
		zap.String("user_agent", r.UserAgent),
	)
}
