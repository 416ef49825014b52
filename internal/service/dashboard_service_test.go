package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/doc-review-api/internal/models"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
)

type statusCounterStub struct {
	counts map[models.DocumentStatus]int
	calls  int
}

func (s *statusCounterStub) CountByStatus(_ context.Context, _ string) (map[models.DocumentStatus]int, error) {
	s.calls++
	return s.counts, nil
}

type dashboardPeriodStub struct {
	active *models.Period
}

func (s *dashboardPeriodStub) FindActive(_ context.Context) (*models.Period, error) {
	return s.active, nil
}

type periodLoadListerStub struct {
	loads []models.TeachingLoadDetail
}

func (s *periodLoadListerStub) ListByPeriod(_ context.Context, _ string) ([]models.TeachingLoadDetail, error) {
	return s.loads, nil
}

type obligationResolverStub struct {
	sets map[string]*models.ObligationSet
}

func (s *obligationResolverStub) ForTeacher(_ context.Context, teacherID, _ string) (*models.ObligationSet, error) {
	return s.sets[teacherID], nil
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	delete(m.entries, pattern)
	return nil
}

func newDashboardFixture(counter *statusCounterStub, cache CacheRepository) *DashboardService {
	var cacheSvc *CacheService
	if cache != nil {
		cacheSvc = NewCacheService(cache, nil, time.Minute, nil, true)
	}
	loadName := "Rivas Elena"
	return NewDashboardService(DashboardServiceParams{
		Documents: counter,
		Periods:   &dashboardPeriodStub{active: &models.Period{ID: "period-1", Active: true}},
		Loads: &periodLoadListerStub{loads: []models.TeachingLoadDetail{
			{TeachingLoad: models.TeachingLoad{ID: "load-1", TeacherID: "teacher-1", PeriodID: "period-1"}, TeacherName: &loadName},
			{TeachingLoad: models.TeachingLoad{ID: "load-2", TeacherID: "teacher-1", PeriodID: "period-1"}, TeacherName: &loadName},
			{TeachingLoad: models.TeachingLoad{ID: "load-3", TeacherID: "teacher-2", PeriodID: "period-1"}},
		}},
		Obligations: &obligationResolverStub{sets: map[string]*models.ObligationSet{
			"teacher-1": {Obligations: []models.ObligationStatus{
				{Pending: true},
				{Pending: false},
				{Pending: true},
			}},
			"teacher-2": {Obligations: []models.ObligationStatus{
				{Pending: false},
			}},
		}},
		Cache: cacheSvc,
	})
}

func TestDashboardSummaryComputesPendingReview(t *testing.T) {
	counter := &statusCounterStub{counts: map[models.DocumentStatus]int{
		models.StatusEnviado:    4,
		models.StatusEnRevision: 2,
		models.StatusAprobado:   7,
		models.StatusObservado:  1,
	}}
	svc := newDashboardFixture(counter, nil)

	summary, cached, err := svc.Summary(context.Background(), "", vicerrectorClaims())
	require.NoError(t, err)
	require.False(t, cached)
	require.Equal(t, "period-1", summary.PeriodID)
	require.Equal(t, 14, summary.Total)
	require.Equal(t, 6, summary.PendingReview)
}

func TestDashboardSummaryUsesCacheOnSecondCall(t *testing.T) {
	counter := &statusCounterStub{counts: map[models.DocumentStatus]int{
		models.StatusEnviado: 3,
	}}
	svc := newDashboardFixture(counter, newMemoryCacheRepo())

	_, cached, err := svc.Summary(context.Background(), "period-1", vicerrectorClaims())
	require.NoError(t, err)
	require.False(t, cached)

	summary, cached, err := svc.Summary(context.Background(), "period-1", vicerrectorClaims())
	require.NoError(t, err)
	require.True(t, cached)
	require.Equal(t, 3, summary.Total)
	require.Equal(t, 1, counter.calls)
}

func TestDashboardSummaryForbiddenForDocente(t *testing.T) {
	svc := newDashboardFixture(&statusCounterStub{}, nil)

	_, _, err := svc.Summary(context.Background(), "period-1", docenteClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDashboardComplianceAggregatesPerTeacher(t *testing.T) {
	svc := newDashboardFixture(&statusCounterStub{}, nil)

	summary, cached, err := svc.Compliance(context.Background(), "period-1", vicerrectorClaims())
	require.NoError(t, err)
	require.False(t, cached)
	require.Len(t, summary.Teachers, 2)

	// Most pending first.
	first := summary.Teachers[0]
	require.Equal(t, "teacher-1", first.TeacherID)
	require.Equal(t, "Rivas Elena", first.TeacherName)
	require.Equal(t, 3, first.Total)
	require.Equal(t, 2, first.Pending)
	require.Equal(t, 1, first.Satisfied)

	second := summary.Teachers[1]
	require.Equal(t, "teacher-2", second.TeacherID)
	require.Equal(t, 0, second.Pending)
	require.Equal(t, 1, second.Satisfied)
}

func TestDashboardInvalidatePeriodDropsCachedSummary(t *testing.T) {
	counter := &statusCounterStub{counts: map[models.DocumentStatus]int{models.StatusEnviado: 1}}
	repo := newMemoryCacheRepo()
	svc := newDashboardFixture(counter, repo)

	_, _, err := svc.Summary(context.Background(), "period-1", vicerrectorClaims())
	require.NoError(t, err)
	require.NotEmpty(t, repo.entries)

	svc.InvalidatePeriod(context.Background(), "period-1")

	_, cached, err := svc.Summary(context.Background(), "period-1", vicerrectorClaims())
	require.NoError(t, err)
	require.False(t, cached)
	require.Equal(t, 2, counter.calls)
}
