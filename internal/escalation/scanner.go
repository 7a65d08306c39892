package escalation

import (
	"context"
	"time"

	"trialops/internal/config"
	"trialops/internal/items"
	"trialops/internal/logger"
	"trialops/internal/sla"
	"trialops/pkg/metrics"
	"trialops/pkg/models"
)

// ItemStore is the slice of the item repository the scanner needs.
type ItemStore interface {
	ListEscalationCandidates(ctx context.Context, now time.Time, limit int) ([]items.ActionItem, error)
	MarkEscalated(ctx context.Context, id string) (bool, error)
	CountOpenByStatus(ctx context.Context) (map[items.WorkflowStatus]int, error)
}

// Scanner periodically finds items whose escalation deadline has passed and
// signals the configured role. The level-zero compare-and-set in the store
// keeps the signal at-most-once even with several scanner replicas.
type Scanner struct {
	store    ItemStore
	notifier *Notifier
	cfg      config.EscalationConfig
	logger   logger.Logger
	now      func() time.Time
}

func NewScanner(store ItemStore, notifier *Notifier, cfg config.EscalationConfig, log logger.Logger) *Scanner {
	return &Scanner{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

// Scan runs one pass. Notification failures are logged and counted but do
// not fail the pass: the level was already raised, and re-signaling would
// break the at-most-once contract.
func (s *Scanner) Scan(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.ObserveEscalationScan(time.Since(start))
	}()

	now := s.now()
	candidates, err := s.store.ListEscalationCandidates(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	signaled := 0
	for i := range candidates {
		item := &candidates[i]

		if item.Snapshot().Status(now) != sla.StatusEscalationDue {
			continue
		}

		won, err := s.store.MarkEscalated(ctx, item.ID)
		if err != nil {
			s.logger.ErrorwCtx(ctx, "Failed to raise escalation level",
				"item_id", item.ID,
				"error", err,
			)
			continue
		}
		if !won {
			// Another replica signaled this item first.
			continue
		}

		metrics.EscalationsSignaledTotal.WithLabelValues(item.EscalationRole).Inc()
		signaled++

		event := buildEscalationEvent(item, now)
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.logger.ErrorwCtx(ctx, "Failed to notify escalation",
				"item_id", item.ID,
				"escalation_role", item.EscalationRole,
				"error", err,
			)
		}
	}

	s.updateOpenItemsGauge(ctx)

	s.logger.InfowCtx(ctx, "Escalation scan finished",
		"candidates", len(candidates),
		"signaled", signaled,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Start runs the scan loop until the context is canceled.
func (s *Scanner) Start(ctx context.Context) error {
	interval := time.Duration(s.cfg.ScanIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.Scan(ctx); err != nil {
		s.logger.ErrorwCtx(ctx, "Escalation scan failed", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Escalation scan failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scanner) batchSize() int {
	if s.cfg.BatchSize > 0 {
		return s.cfg.BatchSize
	}
	return 200
}

func (s *Scanner) updateOpenItemsGauge(ctx context.Context) {
	counts, err := s.store.CountOpenByStatus(ctx)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to count open items", "error", err)
		return
	}

	for _, status := range items.WorkflowStatuses() {
		if !status.Open() {
			continue
		}
		metrics.EscalationOpenItems.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

func buildEscalationEvent(item *items.ActionItem, now time.Time) models.EscalationEvent {
	return models.EscalationEvent{
		ItemID:             item.ID,
		StudyID:            item.StudyID,
		SiteID:             item.SiteID,
		Category:           item.Category,
		Severity:           item.Severity,
		Title:              item.Title,
		EscalationRole:     item.EscalationRole,
		EscalationLevel:    1,
		ResolutionDeadline: item.ResolutionDeadline,
		SignaledAt:         now,
	}
}
