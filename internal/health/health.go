// Package health отдаёт /healthz и /readyz по зарегистрированным проверкам
// хранилища и фоновых компонентов.
//
// Проверки бывают критичными и необязательными. Отказ критичной снимает
// готовность сервиса, отказ необязательной только переводит его в degraded.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout ограничивает одну проверку, если таймаут не задан.
const DefaultCheckTimeout = 2 * time.Second

// ErrDegraded помечает ошибку проверки, которая не означает отказ компонента.
var ErrDegraded = errors.New("degraded")

// Status представляет статус компонента
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check — результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Critical   bool   `json:"critical"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response представляет ответ health check
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Ready сообщает, что ни одна критичная проверка не упала.
func (r Response) Ready() bool {
	for _, c := range r.Checks {
		if c.Critical && c.Status == StatusUnhealthy {
			return false
		}
	}
	return true
}

// CheckFunc проверяет компонент. nil — здоров, ошибка с ErrDegraded — degraded.
type CheckFunc func(ctx context.Context) error

type component struct {
	name     string
	check    CheckFunc
	critical bool
	timeout  time.Duration
}

// Option настраивает регистрацию проверки.
type Option func(*component)

// Optional делает проверку некритичной для готовности.
func Optional() Option {
	return func(c *component) { c.critical = false }
}

// WithTimeout задаёт собственный таймаут проверки.
func WithTimeout(d time.Duration) Option {
	return func(c *component) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Handler выполняет проверки и отдаёт их результат по HTTP.
type Handler struct {
	mu         sync.RWMutex
	components map[string]component
	last       map[string]Status
	version    string
	startTime  time.Time
	now        func() time.Time
	logger     *log.Entry
}

// NewHandler создаёт новый health handler
func NewHandler(version string) *Handler {
	return &Handler{
		components: make(map[string]component),
		last:       make(map[string]Status),
		version:    version,
		startTime:  time.Now(),
		now:        time.Now,
		logger:     log.WithField("component", "health"),
	}
}

// Register добавляет проверку; по умолчанию она критична.
// Повторная регистрация с тем же именем заменяет проверку.
func (h *Handler) Register(name string, check CheckFunc, opts ...Option) {
	c := component{name: name, check: check, critical: true, timeout: DefaultCheckTimeout}
	for _, opt := range opts {
		opt(&c)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = c
}

// Evaluate выполняет все проверки параллельно, каждую под своим таймаутом.
func (h *Handler) Evaluate(ctx context.Context) Response {
	h.mu.RLock()
	components := make([]component, 0, len(h.components))
	for _, c := range h.components {
		components = append(components, c)
	}
	h.mu.RUnlock()
	sort.Slice(components, func(i, j int) bool { return components[i].name < components[j].name })

	results := make([]Check, len(components))
	var g errgroup.Group
	for i, c := range components {
		g.Go(func() error {
			results[i] = run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	resp := Response{
		Status:        StatusHealthy,
		Timestamp:     h.now(),
		Checks:        make(map[string]Check, len(results)),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
	for _, check := range results {
		resp.Checks[check.Name] = check
		resp.Status = worse(resp.Status, effective(check))
	}
	h.noteTransitions(results)
	return resp
}

func run(ctx context.Context, c component) Check {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.check(checkCtx)
	check := Check{
		Name:       c.name,
		Status:     StatusHealthy,
		Critical:   c.critical,
		DurationMs: time.Since(start).Milliseconds(),
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrDegraded):
		check.Status = StatusDegraded
		check.Message = err.Error()
	default:
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// effective — вклад проверки в общий статус: упавшая необязательная даёт degraded.
func effective(c Check) Status {
	if c.Status == StatusUnhealthy && !c.Critical {
		return StatusDegraded
	}
	return c.Status
}

func worse(a, b Status) Status {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// noteTransitions пишет в лог только смену статуса компонента.
func (h *Handler) noteTransitions(results []Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, check := range results {
		prev, seen := h.last[check.Name]
		h.last[check.Name] = check.Status
		if prev == check.Status || (!seen && check.Status == StatusHealthy) {
			continue
		}
		entry := h.logger.WithFields(log.Fields{
			"check":    check.Name,
			"status":   check.Status,
			"critical": check.Critical,
		})
		if check.Status == StatusHealthy {
			entry.Info("check recovered")
			continue
		}
		entry.WithField("reason", check.Message).Warn("check failed")
	}
}

// ServeHTTP отдаёт полный отчёт; 503, если упала критичная проверка.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h.Evaluate(r.Context())

	statusCode := http.StatusOK
	if !resp.Ready() {
		statusCode = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// ReadinessHandler отвечает "ready", пока критичные проверки проходят.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if !h.Evaluate(r.Context()).Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// LivenessHandler всегда отвечает 200, пока процесс обслуживает HTTP.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Threshold переводит компонент в degraded, когда значение превышает порог,
// например размер backlog outbox.
func Threshold(limit int64, value func(ctx context.Context) (int64, error)) CheckFunc {
	return func(ctx context.Context) error {
		v, err := value(ctx)
		if err != nil {
			return err
		}
		if v > limit {
			return fmt.Errorf("%w: %d exceeds %d", ErrDegraded, v, limit)
		}
		return nil
	}
}
