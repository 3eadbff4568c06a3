package wiring

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sophialabs/perfaudit/internal/domain/audit"
	"github.com/sophialabs/perfaudit/internal/domain/metric"
	inboundhttp "github.com/sophialabs/perfaudit/internal/infrastructure/inbound/http"
	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
	"github.com/sophialabs/perfaudit/internal/infrastructure/usecases"
)

// Params holds the subset of configuration needed to construct infrastructure components.
type Params struct {
	RootDir         string
	HistorySize     int
	CacheSize       int
	RateLimiterTTL  time.Duration
	Rate            float64 // requests per second per client; 0 disables limiting
	Burst           int
	CalibrationFile string // "" = default curves
	RankKey         string // "" = uniform candidate rank
	Logger          ports.Logger
}

// Container owns the construction and lifecycle of all infrastructure components.
type Container struct {
	logger           ports.Logger
	server           *inboundhttp.Server
	loadUC           *usecases.LoadCapturesUseCase
	auditsUC         *usecases.RunAuditsUseCase
	rateLimiterStore *ratelimit.TokenBucketStore
	history          *audit.History
	capturesDir      string
	closeOnce        sync.Once
}

// New constructs all infrastructure components. Fallible operations (root
// directory, calibration) run before goroutine-starting operations (rate
// limiter store) to avoid goroutine leaks on early failure.
func New(p Params) (*Container, error) {
	if _, err := os.Stat(p.RootDir); err != nil {
		return nil, fmt.Errorf("failed to access root directory: %w", err)
	}

	repo, err := filesystem.NewCaptureRepository(p.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	calibration, err := loadCalibration(p.CalibrationFile)
	if err != nil {
		return nil, err
	}

	clk := clock.New()
	history := audit.NewHistory(p.HistorySize)

	// Start background goroutine only after all fallible ops succeed.
	rateLimiterStore := ratelimit.NewTokenBucketStore(p.RateLimiterTTL, clk)

	loadUC := usecases.NewLoadCapturesUseCase(repo, p.Logger)
	auditsUC := usecases.NewRunAuditsUseCase(calibration, ranker(p.RankKey), clk, p.Logger, history)
	importUC := usecases.NewImportCaptureUseCase(repo, p.Logger)
	deleteUC := usecases.NewDeleteCaptureUseCase(repo, p.Logger)

	server := inboundhttp.NewServer(loadUC, auditsUC, history, p.Logger)
	server.SetAdminDeps(importUC, deleteUC)
	server.SetCacheSize(p.CacheSize)
	if p.Rate > 0 {
		server.SetRateLimit(rateLimiterStore, p.Rate, p.Burst)
	}

	return &Container{
		logger:           p.Logger,
		server:           server,
		loadUC:           loadUC,
		auditsUC:         auditsUC,
		rateLimiterStore: rateLimiterStore,
		history:          history,
		capturesDir:      repo.CapturesDir(),
	}, nil
}

func loadCalibration(path string) (metric.Calibration, error) {
	if path == "" {
		return metric.DefaultCalibration(), nil
	}
	cal, err := filesystem.LoadCalibration(path)
	if err != nil {
		return metric.Calibration{}, fmt.Errorf("failed to load calibration: %w", err)
	}
	return cal, nil
}

func ranker(key string) metric.Ranker {
	if key == "" {
		return metric.UniformRank()
	}
	return metric.ArgRanker(key)
}

// Close releases resources held by the container. It is idempotent.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		c.rateLimiterStore.Stop()
	})
}

// Logger returns the logger passed at construction time.
func (c *Container) Logger() ports.Logger {
	return c.logger
}

// Server returns the HTTP API server.
func (c *Container) Server() *inboundhttp.Server {
	return c.server
}

// LoadCapturesUseCase returns the use case for loading and indexing captures.
func (c *Container) LoadCapturesUseCase() *usecases.LoadCapturesUseCase {
	return c.loadUC
}

// RunAuditsUseCase returns the use case that audits a capture pass.
func (c *Container) RunAuditsUseCase() *usecases.RunAuditsUseCase {
	return c.auditsUC
}

// RateLimiterStore returns the token bucket store for rate limiting.
func (c *Container) RateLimiterStore() *ratelimit.TokenBucketStore {
	return c.rateLimiterStore
}

// History returns the audit run history.
func (c *Container) History() *audit.History {
	return c.history
}

// CapturesDir returns the directory the capture repository reads from.
func (c *Container) CapturesDir() string {
	return c.capturesDir
}
