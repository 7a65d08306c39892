package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trialops/internal/config"
	"trialops/internal/constants"
	"trialops/internal/logger"
	"trialops/internal/sla"
	pkgerrors "trialops/pkg/errors"
	"trialops/pkg/metrics"
)

// SnapshotSource supplies the engine-facing item snapshots. Satisfied by
// items.Repository.
type SnapshotSource interface {
	ListSnapshots(ctx context.Context, studyID string) ([]sla.ItemSnapshot, error)
}

type Service interface {
	KPIs(ctx context.Context, studyID string) (*KPIResponse, error)
	Pareto(ctx context.Context, studyID string, topN int) (*ParetoResponse, error)
	Burndown(ctx context.Context, studyID string, days int) (*BurndownResponse, error)
}

type service struct {
	source SnapshotSource
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

func NewService(source SnapshotSource, cache Cache, cfg config.DashboardConfig, log logger.Logger) Service {
	return &service{
		source: source,
		cache:  cache,
		ttl:    time.Duration(cfg.CacheTTLSeconds) * time.Second,
		logger: log,
		now:    time.Now,
	}
}

func (s *service) KPIs(ctx context.Context, studyID string) (*KPIResponse, error) {
	key := cacheKey("kpis", studyID, 0)

	var cached KPIResponse
	if s.fromCache(ctx, "kpis", key, &cached) {
		return &cached, nil
	}

	now := s.now()
	start := now

	snapshots, err := s.source.ListSnapshots(ctx, studyID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	response := buildKPIResponse(sla.ComputeKPIs(snapshots, now), now)
	metrics.ObserveDashboardCompute("kpis", time.Since(start))

	s.toCache(ctx, key, response)
	return &response, nil
}

func (s *service) Pareto(ctx context.Context, studyID string, topN int) (*ParetoResponse, error) {
	topN = clamp(topN, constants.MinParetoTopN, constants.MaxParetoTopN, constants.DefaultParetoTopN)
	key := cacheKey("pareto", studyID, topN)

	var cached ParetoResponse
	if s.fromCache(ctx, "pareto", key, &cached) {
		return &cached, nil
	}

	now := s.now()
	start := now

	snapshots, err := s.source.ListSnapshots(ctx, studyID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	response := buildParetoResponse(sla.Pareto(snapshots, topN), topN, now)
	metrics.ObserveDashboardCompute("pareto", time.Since(start))

	s.toCache(ctx, key, response)
	return &response, nil
}

func (s *service) Burndown(ctx context.Context, studyID string, days int) (*BurndownResponse, error) {
	days = clamp(days, constants.MinBurndownDays, constants.MaxBurndownDays, constants.DefaultBurndownDays)
	key := cacheKey("burndown", studyID, days)

	var cached BurndownResponse
	if s.fromCache(ctx, "burndown", key, &cached) {
		return &cached, nil
	}

	now := s.now()
	start := now

	snapshots, err := s.source.ListSnapshots(ctx, studyID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	response := buildBurndownResponse(sla.Burndown(snapshots, now, days), days, now)
	metrics.ObserveDashboardCompute("burndown", time.Since(start))

	s.toCache(ctx, key, response)
	return &response, nil
}

// fromCache is best effort: a cache failure degrades to a recompute, never to
// a request error.
func (s *service) fromCache(ctx context.Context, endpoint, key string, out interface{}) bool {
	if s.cache == nil || s.ttl <= 0 {
		return false
	}

	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Dashboard cache read failed",
			"key", key,
			"error", err,
		)
		metrics.IncDashboardRequest(endpoint, "miss")
		return false
	}
	if !found {
		metrics.IncDashboardRequest(endpoint, "miss")
		return false
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.logger.WarnwCtx(ctx, "Dashboard cache entry corrupt",
			"key", key,
			"error", err,
		)
		metrics.IncDashboardRequest(endpoint, "miss")
		return false
	}

	metrics.IncDashboardRequest(endpoint, "hit")
	return true
}

func (s *service) toCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		s.logger.WarnwCtx(ctx, "Dashboard cache write failed",
			"key", key,
			"error", err,
		)
	}
}

func cacheKey(endpoint, studyID string, param int) string {
	if studyID == "" {
		studyID = "all"
	}
	return fmt.Sprintf("%s%s:%s:%d", constants.CacheKeyPrefixDashboard, endpoint, studyID, param)
}

func clamp(value, min, max, fallback int) int {
	if value == 0 {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
