package monitoring

import (
	"context"
	"time"

	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/pkg/circuitbreaker"
	"github.com/akeren/clothiq-api/pkg/mailer"
	"gorm.io/gorm"
)

type ComponentStatus string

const (
	StatusUp       ComponentStatus = "up"
	StatusDegraded ComponentStatus = "degraded"
	StatusDown     ComponentStatus = "down"
	StatusDisabled ComponentStatus = "disabled"
)

type HealthReport struct {
	Status        ComponentStatus            `json:"status"`
	Components    map[string]ComponentStatus `json:"components"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
}

// Healthy is false only when a critical component is down.
func (r HealthReport) Healthy() bool {
	return r.Status != StatusDown
}

type Cache interface {
	Ping(ctx context.Context) error
}

// BreakerState is implemented by senders guarded by a circuit breaker.
type BreakerState interface {
	State() circuitbreaker.CircuitState
}

// probe reports one dependency. A critical probe that is down takes the
// whole service down; any other failure only degrades it.
type probe struct {
	name     string
	critical bool
	check    func(ctx context.Context) ComponentStatus
}

func databaseProbe(db *gorm.DB) probe {
	return probe{name: "database", critical: true, check: func(ctx context.Context) ComponentStatus {
		if db == nil {
			return StatusDown
		}
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			return StatusDown
		}
		return StatusUp
	}}
}

func cacheProbe(cache Cache) probe {
	return probe{name: "cache", check: func(ctx context.Context) ComponentStatus {
		if cache == nil {
			return StatusDisabled
		}
		if cache.Ping(ctx) != nil {
			return StatusDown
		}
		return StatusUp
	}}
}

func emailProbe(sender mailer.Sender) probe {
	return probe{name: "email", check: func(context.Context) ComponentStatus {
		if sender == nil {
			return StatusDisabled
		}
		breaker, ok := sender.(BreakerState)
		if !ok {
			return StatusUp
		}
		switch breaker.State() {
		case circuitbreaker.Closed:
			return StatusUp
		case circuitbreaker.HalfOpen:
			return StatusDegraded
		default:
			return StatusDown
		}
	}}
}

type healthChecker struct {
	probes  []probe
	started time.Time
	now     func() time.Time
}

func newHealthChecker(probes ...probe) *healthChecker {
	return &healthChecker{probes: probes, started: time.Now(), now: time.Now}
}

func (h *healthChecker) run(ctx context.Context, logger *log.Logger) HealthReport {
	report := HealthReport{
		Status:        StatusUp,
		Components:    make(map[string]ComponentStatus, len(h.probes)),
		UptimeSeconds: int64(h.now().Sub(h.started).Seconds()),
	}

	for _, p := range h.probes {
		status := p.check(ctx)
		report.Components[p.name] = status

		switch {
		case status == StatusDown && p.critical:
			report.Status = StatusDown
			logger.Error("Health probe failed", "component", p.name)
		case status == StatusDown || status == StatusDegraded:
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
			logger.Warn("Health probe degraded", "component", p.name, "status", string(status))
		}
	}

	return report
}
