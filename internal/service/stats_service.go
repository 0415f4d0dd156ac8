package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type statusCounter interface {
	CountByStatus(ctx context.Context, resolverID string) ([]models.StatusCount, error)
}

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// StatsService aggregates complaint counts, classifying dirty status strings through NormalizeStatus.
type StatsService struct {
	repo    statusCounter
	users   userLookup
	metrics queryObserver
	logger  *zap.Logger
}

// NewStatsService constructs the aggregator. metrics may be nil.
func NewStatsService(repo statusCounter, users userLookup, metrics queryObserver, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{repo: repo, users: users, metrics: metrics, logger: logger}
}

// Global counts every complaint.
func (s *StatsService) Global(ctx context.Context) (*models.ComplaintStats, error) {
	return s.aggregate(ctx, "stats_global", "")
}

// ForResolver counts complaints assigned to resolverID, which must exist.
func (s *StatsService) ForResolver(ctx context.Context, actor *models.JWTClaims, resolverID string) (*models.ComplaintStats, error) {
	if !isSelfOrAdmin(actor, resolverID) {
		return nil, appErrors.ErrForbidden
	}
	if _, err := s.users.FindByID(ctx, resolverID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resolver not found")
		}
		return nil, appErrors.Internal(err, "failed to load resolver")
	}
	return s.aggregate(ctx, "stats_resolver", resolverID)
}

// Breakdown lists each distinct stored status with its count and classification.
func (s *StatsService) Breakdown(ctx context.Context) ([]models.StatusBreakdown, error) {
	counts, err := s.count(ctx, "stats_breakdown", "")
	if err != nil {
		return nil, err
	}
	out := make([]models.StatusBreakdown, 0, len(counts))
	for _, c := range counts {
		canonical, ok := models.NormalizeStatus(c.Status)
		row := models.StatusBreakdown{Raw: c.Status, Count: c.Count, Recognized: ok}
		if ok {
			row.Canonical = canonical
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

func (s *StatsService) aggregate(ctx context.Context, label, resolverID string) (*models.ComplaintStats, error) {
	counts, err := s.count(ctx, label, resolverID)
	if err != nil {
		return nil, err
	}
	stats := &models.ComplaintStats{}
	var unknown int
	for _, c := range counts {
		if _, ok := models.NormalizeStatus(c.Status); !ok {
			unknown += c.Count
		}
		stats.Add(c.Status, c.Count)
	}
	if unknown > 0 {
		s.logger.Debug("unclassified complaint statuses", zap.Int("count", unknown), zap.String("resolver_id", resolverID))
	}
	return stats, nil
}

func (s *StatsService) count(ctx context.Context, label, resolverID string) ([]models.StatusCount, error) {
	start := time.Now()
	counts, err := s.repo.CountByStatus(ctx, resolverID)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to aggregate complaint statuses")
	}
	return counts, nil
}
