// Package health probes the service's dependencies and serves liveness and
// readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// severity orders statuses so the report can carry the worst one.
func (s Status) severity() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check probes one dependency.
type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// Checker holds named checks. Checks may be registered while probes are
// being served.
type Checker struct {
	mu           sync.RWMutex
	checks       map[string]Check
	checkTimeout time.Duration
	logger       *slog.Logger
}

const defaultCheckTimeout = 2 * time.Second

func NewChecker() *Checker {
	return &Checker{
		checks:       make(map[string]Check),
		checkTimeout: defaultCheckTimeout,
		logger:       slog.Default().With("component", "health"),
	}
}

func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// Run executes every check in parallel, each bounded by its own timeout, and
// reports the worst component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := maps.Clone(c.checks)
	c.mu.RUnlock()

	results := make(map[string]ComponentHealth, len(checks))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for name, check := range checks {
		g.Go(func() error {
			res := c.probe(gctx, name, check)
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusUp
	for _, res := range results {
		if res.Status.severity() > overall.severity() {
			overall = res.Status
		}
	}
	return Report{Status: overall, Components: results, Timestamp: time.Now().UTC()}
}

func (c *Checker) probe(ctx context.Context, name string, check Check) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()
	start := time.Now()
	res := check(ctx)
	res.Latency = time.Since(start).Round(time.Microsecond).String()
	if res.Status != StatusUp {
		c.logger.Warn("dependency unhealthy", "check", name, "status", res.Status, "message", res.Message)
	}
	return res
}

// LiveHandler answers liveness probes; it never consults dependencies.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers readiness probes. A degraded service still takes
// traffic; only a down component fails the probe.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// PingCheck reports down when ping fails.
func PingCheck(ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// ThresholdCheck reports degraded once used/limit reaches ratio. A limit of
// zero means unbounded.
func ThresholdCheck(usage func() (used, limit int), ratio float64) Check {
	return func(context.Context) ComponentHealth {
		used, limit := usage()
		switch {
		case limit <= 0:
			return ComponentHealth{Status: StatusUp}
		case used >= limit:
			return ComponentHealth{Status: StatusDegraded, Message: fmt.Sprintf("%d/%d used, capacity reached", used, limit)}
		case float64(used) >= ratio*float64(limit):
			return ComponentHealth{Status: StatusDegraded, Message: fmt.Sprintf("%d/%d used", used, limit)}
		}
		return ComponentHealth{Status: StatusUp}
	}
}
