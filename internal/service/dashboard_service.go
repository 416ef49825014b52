package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/doc-review-api/internal/dto"
	"github.com/noah-isme/doc-review-api/internal/models"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
)

type statusCounter interface {
	CountByStatus(ctx context.Context, periodID string) (map[models.DocumentStatus]int, error)
}

type dashboardPeriodFinder interface {
	FindActive(ctx context.Context) (*models.Period, error)
}

type periodLoadLister interface {
	ListByPeriod(ctx context.Context, periodID string) ([]models.TeachingLoadDetail, error)
}

type obligationResolver interface {
	ForTeacher(ctx context.Context, teacherID, periodID string) (*models.ObligationSet, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes cached review and compliance summaries for the
// vicerrector.
type DashboardService struct {
	documents   statusCounter
	periods     dashboardPeriodFinder
	loads       periodLoadLister
	obligations obligationResolver
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Documents   statusCounter
	Periods     dashboardPeriodFinder
	Loads       periodLoadLister
	Obligations obligationResolver
	Cache       *CacheService
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		documents:   params.Documents,
		periods:     params.Periods,
		loads:       params.Loads,
		obligations: params.Obligations,
		cache:       params.Cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Summary returns the review workload of a period and indicates cache
// utilisation. An empty periodID resolves to the active period.
func (s *DashboardService) Summary(ctx context.Context, periodID string, actor *models.JWTClaims) (*dto.ReviewDashboardResponse, bool, error) {
	if err := s.requireVicerrector(actor); err != nil {
		return nil, false, err
	}
	periodID, err := s.resolvePeriod(ctx, periodID)
	if err != nil {
		return nil, false, err
	}

	cacheKey := fmt.Sprintf("dash:review:%s", periodID)
	if s.cache != nil {
		var cached dto.ReviewDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	counts, err := s.documents.CountByStatus(ctx, periodID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count documents by status")
	}

	total := 0
	for _, count := range counts {
		total += count
	}
	summary := &dto.ReviewDashboardResponse{
		PeriodID:      periodID,
		Total:         total,
		ByStatus:      counts,
		PendingReview: counts[models.StatusEnviado] + counts[models.StatusEnRevision],
		GeneratedAt:   s.now().UTC(),
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Compliance aggregates per-docente obligation progress for a period.
func (s *DashboardService) Compliance(ctx context.Context, periodID string, actor *models.JWTClaims) (*dto.ComplianceDashboardResponse, bool, error) {
	if err := s.requireVicerrector(actor); err != nil {
		return nil, false, err
	}
	periodID, err := s.resolvePeriod(ctx, periodID)
	if err != nil {
		return nil, false, err
	}

	cacheKey := fmt.Sprintf("dash:compliance:%s", periodID)
	if s.cache != nil {
		var cached dto.ComplianceDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	loads, err := s.loads.ListByPeriod(ctx, periodID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list period teaching loads")
	}

	teacherNames := map[string]string{}
	for _, load := range loads {
		if _, seen := teacherNames[load.TeacherID]; seen {
			continue
		}
		name := ""
		if load.TeacherName != nil {
			name = *load.TeacherName
		}
		teacherNames[load.TeacherID] = name
	}

	teacherIDs := make([]string, 0, len(teacherNames))
	for teacherID := range teacherNames {
		teacherIDs = append(teacherIDs, teacherID)
	}
	sort.Strings(teacherIDs)

	entries := make([]dto.TeacherComplianceEntry, 0, len(teacherIDs))
	for _, teacherID := range teacherIDs {
		set, err := s.obligations.ForTeacher(ctx, teacherID, periodID)
		if err != nil {
			return nil, false, err
		}
		entry := dto.TeacherComplianceEntry{
			TeacherID:   teacherID,
			TeacherName: teacherNames[teacherID],
			Total:       len(set.Obligations),
		}
		for _, obligation := range set.Obligations {
			if obligation.Pending {
				entry.Pending++
			} else {
				entry.Satisfied++
			}
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Pending != entries[j].Pending {
			return entries[i].Pending > entries[j].Pending
		}
		return entries[i].TeacherID < entries[j].TeacherID
	})

	summary := &dto.ComplianceDashboardResponse{
		PeriodID:    periodID,
		Teachers:    entries,
		GeneratedAt: s.now().UTC(),
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// InvalidatePeriod drops cached summaries after a submission or review
// decision changes the underlying counts.
func (s *DashboardService) InvalidatePeriod(ctx context.Context, periodID string) {
	if s.cache == nil || periodID == "" {
		return
	}
	for _, pattern := range []string{
		fmt.Sprintf("dash:review:%s", periodID),
		fmt.Sprintf("dash:compliance:%s", periodID),
	} {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			s.logger.Warn("dashboard invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

func (s *DashboardService) resolvePeriod(ctx context.Context, periodID string) (string, error) {
	if periodID != "" {
		return periodID, nil
	}
	period, err := s.periods.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "no active period")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve active period")
	}
	return period.ID, nil
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *DashboardService) requireVicerrector(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector {
		return appErrors.ErrForbidden
	}
	return nil
}
