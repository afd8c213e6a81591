package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"montoit/internal/caching"
	"montoit/internal/services"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobStatusReporter is satisfied by *background.JobScheduler
type JobStatusReporter interface {
	GetJobStatus() map[string]interface{}
}

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db        Pinger
	cache     caching.CacheService
	storage   services.MinioService
	jobs      JobStatusReporter
	version   string
	startedAt time.Time
}

// NewHealthHandlers creates a new health handlers instance
func NewHealthHandlers(db Pinger, cache caching.CacheService, storage services.MinioService, jobs JobStatusReporter, version string) *HealthHandlers {
	return &HealthHandlers{
		db:        db,
		cache:     cache,
		storage:   storage,
		jobs:      jobs,
		version:   version,
		startedAt: time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status     string                 `json:"status"`
	Timestamp  string                 `json:"timestamp"`
	Services   map[string]string      `json:"services"`
	Uptime     string                 `json:"uptime"`
	Version    string                 `json:"version"`
	Goroutines int                    `json:"goroutines"`
	Jobs       map[string]interface{} `json:"jobs,omitempty"`
}

// LivenessCheck determines if the application is running
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessCheck reports 503 when the database is down; cache and storage only degrade
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	health := &HealthStatus{
		Status:     "ready",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Services:   make(map[string]string),
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
		Version:    h.version,
		Goroutines: runtime.NumGoroutine(),
	}

	statusCode := http.StatusOK
	if err := h.checkDatabase(ctx); err != nil {
		health.Services["database"] = "unhealthy"
		health.Status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	} else {
		health.Services["database"] = "healthy"
	}

	if err := h.checkRedis(ctx); err != nil {
		health.Services["redis"] = "unhealthy"
		if health.Status == "ready" {
			health.Status = "degraded"
		}
	} else {
		health.Services["redis"] = "healthy"
	}

	if err := h.checkStorage(ctx); err != nil {
		health.Services["storage"] = "unhealthy"
		if health.Status == "ready" {
			health.Status = "degraded"
		}
	} else {
		health.Services["storage"] = "healthy"
	}

	if h.jobs != nil {
		health.Jobs = h.jobs.GetJobStatus()
	}

	return c.JSON(statusCode, health)
}

func (h *HealthHandlers) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return errUnavailable
	}
	return h.db.Ping(ctx)
}

func (h *HealthHandlers) checkRedis(ctx context.Context) error {
	if h.cache == nil {
		return errUnavailable
	}
	return h.cache.Ping(ctx)
}

func (h *HealthHandlers) checkStorage(ctx context.Context) error {
	if h.storage == nil {
		return errUnavailable
	}
	for _, bucket := range services.AllBuckets {
		ok, err := h.storage.BucketExists(ctx, bucket)
		if err != nil {
			return err
		}
		if !ok {
			return errUnavailable
		}
	}
	return nil
}
