package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/doc-review-api/internal/models"
)

type deliverableListerStub struct {
	items []models.DeliverableDetail
}

func (s *deliverableListerStub) List(ctx context.Context, filter models.DeliverableFilter) ([]models.DeliverableDetail, error) {
	return s.items, nil
}

type typeResolverStub struct {
	items map[string]models.DocumentType
}

func (s *typeResolverStub) FindByIDs(ctx context.Context, ids []string) (map[string]models.DocumentType, error) {
	return s.items, nil
}

type loadListerStub struct {
	items []models.TeachingLoadDetail
}

func (s *loadListerStub) ListByTeacherAndPeriod(ctx context.Context, teacherID, periodID string) ([]models.TeachingLoadDetail, error) {
	return s.items, nil
}

type documentListerStub struct {
	items []models.Document
}

func (s *documentListerStub) ListByTeacherAndPeriod(ctx context.Context, teacherID, periodID string) ([]models.Document, error) {
	return s.items, nil
}

type periodFinderStub struct {
	active *models.Period
	items  map[string]*models.Period
}

func (s *periodFinderStub) FindByID(ctx context.Context, id string) (*models.Period, error) {
	if period, ok := s.items[id]; ok {
		return period, nil
	}
	return nil, sql.ErrNoRows
}

func (s *periodFinderStub) FindActive(ctx context.Context) (*models.Period, error) {
	if s.active == nil {
		return nil, sql.ErrNoRows
	}
	return s.active, nil
}

func TestObligationServiceForTeacher(t *testing.T) {
	due := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	svc := NewObligationService(
		&deliverableListerStub{items: []models.DeliverableDetail{
			deliverableFixture("del-plan", "type-plan", due),
			deliverableFixture("del-report", "type-report", due.Add(time.Hour)),
			deliverableFixture("del-ghost", "type-missing", due.Add(2*time.Hour)),
		}},
		&typeResolverStub{items: map[string]models.DocumentType{
			"type-plan":   {ID: "type-plan", Name: "Planificacion", RequiresSubject: true},
			"type-report": {ID: "type-report", Name: "Informe"},
		}},
		&loadListerStub{items: []models.TeachingLoadDetail{
			loadFixture("load-1", "Octavo A", "Matematica"),
		}},
		&documentListerStub{},
		&periodFinderStub{active: &models.Period{ID: "period-1", Active: true}},
		nil,
	)

	set, err := svc.ForTeacher(context.Background(), "teacher-1", "")
	require.NoError(t, err)
	require.Equal(t, 1, set.DanglingTypes)
	require.Len(t, set.Obligations, 2)
	for _, status := range set.Obligations {
		require.True(t, status.Pending)
	}
}

func TestObligationServiceNoActivePeriod(t *testing.T) {
	svc := NewObligationService(
		&deliverableListerStub{},
		&typeResolverStub{},
		&loadListerStub{},
		&documentListerStub{},
		&periodFinderStub{},
		nil,
	)

	_, err := svc.ForTeacher(context.Background(), "teacher-1", "")
	require.Error(t, err)
}
