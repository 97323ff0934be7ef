package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status — состояние компонента или сервиса целиком.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

const probeTimeout = 3 * time.Second

// CheckFunc — проверка одного компонента. Ошибка означает unhealthy.
type CheckFunc func(ctx context.Context) error

// Check — результат одной проверки в ответе.
type Check struct {
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// Response — тело ответа /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Handler собирает проверки зависимостей (Postgres, Kafka) и отдаёт
// агрегированный статус витрины.
type Handler struct {
	mu        sync.RWMutex
	checks    map[string]CheckFunc
	critical  map[string]bool
	version   string
	startTime time.Time
}

// NewHandler создаёт handler с версией сборки в ответе.
func NewHandler(version string) *Handler {
	return &Handler{
		checks:    make(map[string]CheckFunc),
		critical:  make(map[string]bool),
		version:   version,
		startTime: time.Now(),
	}
}

// Register добавляет критичную проверку: её провал роняет readiness.
func (h *Handler) Register(name string, check CheckFunc) {
	h.register(name, check, true)
}

// RegisterOptional добавляет некритичную проверку: её провал даёт degraded,
// но сервис остаётся ready (шина событий, кэш).
func (h *Handler) RegisterOptional(name string, check CheckFunc) {
	h.register(name, check, false)
}

func (h *Handler) register(name string, check CheckFunc, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
	h.critical[name] = critical
}

func (h *Handler) snapshot() (map[string]CheckFunc, map[string]bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	checks := make(map[string]CheckFunc, len(h.checks))
	critical := make(map[string]bool, len(h.critical))
	for name, check := range h.checks {
		checks[name] = check
		critical[name] = h.critical[name]
	}
	return checks, critical
}

func (h *Handler) run(ctx context.Context, name string, check CheckFunc) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := check(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{
			Status:    StatusUnhealthy,
			Message:   err.Error(),
			LatencyMs: latency.Milliseconds(),
		}
	}
	return Check{Status: StatusHealthy, LatencyMs: latency.Milliseconds()}
}

// ServeHTTP отдаёт полный отчёт по всем зарегистрированным проверкам.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks, critical := h.snapshot()

	results := make(map[string]Check, len(checks))
	overall := StatusHealthy
	for name, check := range checks {
		result := h.run(r.Context(), name, check)
		results[name] = result

		if result.Status != StatusUnhealthy {
			continue
		}
		if critical[name] {
			overall = StatusUnhealthy
		} else if overall == StatusHealthy {
			overall = StatusDegraded
		}
	}

	response := Response{
		Status:        overall,
		Timestamp:     time.Now().UTC(),
		Checks:        results,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	statusCode := http.StatusOK
	if overall == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler — liveness probe, всегда 200.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler возвращает 503, пока хоть одна критичная проверка падает.
// Некритичные проверки на readiness не влияют.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	checks, critical := h.snapshot()

	for name, check := range checks {
		if !critical[name] {
			continue
		}
		if result := h.run(r.Context(), name, check); result.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
