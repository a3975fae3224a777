package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
)

const (
	dashboardKeyPrefix  = "analytics:dashboard"
	dashboardKeyPattern = dashboardKeyPrefix + ":*"
	defaultBoundKey     = "default"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// DashboardKey identifies one cached dashboard report. Bounds the caller
// left out are keyed as "default" so repeated default requests share an entry.
type DashboardKey struct {
	Start           *time.Time
	End             *time.Time
	IncludeArchived bool
}

// String renders the Redis key, e.g.
// analytics:dashboard:default:2025-03-01T15|59|59Z:false.
func (k DashboardKey) String() string {
	var b strings.Builder
	b.WriteString(dashboardKeyPrefix)
	for _, bound := range []*time.Time{k.Start, k.End} {
		b.WriteByte(':')
		if bound == nil {
			b.WriteString(defaultBoundKey)
			continue
		}
		b.WriteString(strings.ReplaceAll(bound.UTC().Format(time.RFC3339), ":", "|"))
	}
	b.WriteByte(':')
	b.WriteString(strconv.FormatBool(k.IncludeArchived))
	return b.String()
}

// CacheService holds cached dashboard reports and records cache metrics.
// Every method is a no-op on a nil or disabled service.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewCacheService constructs a cache service. A non-positive ttl means five minutes.
func NewCacheService(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// GetDashboard loads the report cached under key into dest and reports a hit.
// Read failures are logged and treated as misses.
func (s *CacheService) GetDashboard(ctx context.Context, key DashboardKey, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key.String(), dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key.String()), zap.Error(err))
	}
	return err == nil
}

// SetDashboard stores report under key for the configured TTL.
func (s *CacheService) SetDashboard(ctx context.Context, key DashboardKey, report interface{}) error {
	if !s.Enabled() {
		return nil
	}
	start := time.Now()
	err := s.repo.Set(ctx, key.String(), report, s.ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key.String()), zap.Error(err))
	}
	return err
}

// InvalidateDashboards drops every cached report. Clearance, event and
// participant writes call it.
func (s *CacheService) InvalidateDashboards(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, dashboardKeyPattern); err != nil {
		s.logger.Warn("dashboard cache invalidate failed", zap.Error(err))
		return err
	}
	return nil
}
