package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/doc-review-api/internal/dto"
	"github.com/noah-isme/doc-review-api/internal/models"
	"github.com/noah-isme/doc-review-api/internal/repository"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
	"github.com/noah-isme/doc-review-api/pkg/jobs"
)

type reportStoreStub struct {
	created *models.ReportJob
	byID    map[string]*models.ReportJob
	updates []repository.UpdateReportJobParams
}

func (s *reportStoreStub) Create(_ context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	s.created = job
	if s.byID == nil {
		s.byID = map[string]*models.ReportJob{}
	}
	s.byID[job.ID] = job
	return nil
}

func (s *reportStoreStub) FindByID(_ context.Context, id string) (*models.ReportJob, error) {
	if job, ok := s.byID[id]; ok {
		return job, nil
	}
	return nil, sql.ErrNoRows
}

func (s *reportStoreStub) Update(_ context.Context, id string, params repository.UpdateReportJobParams) error {
	s.updates = append(s.updates, params)
	if job, ok := s.byID[id]; ok && params.Status != nil {
		job.Status = *params.Status
		if params.ResultURL != nil {
			job.ResultURL = params.ResultURL
		}
	}
	return nil
}

func (s *reportStoreStub) ListQueued(_ context.Context, _ int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, job := range s.byID {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (s *reportStoreStub) ListFinishedBefore(_ context.Context, _ time.Time, _ int) ([]models.ReportJob, error) {
	return nil, nil
}

type queueStub struct {
	enqueued []jobs.Job
	err      error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

type exportGeneratorStub struct {
	result *ExportResult
	err    error
}

func (g *exportGeneratorStub) Generate(_ context.Context, _ *models.ReportJob) (*ExportResult, error) {
	return g.result, g.err
}

func TestReportCreateJobQueuesAndPersists(t *testing.T) {
	store := &reportStoreStub{}
	queue := &queueStub{}
	svc := NewReportService(store, queue, nil, nil, ReportServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:     models.ReportTypeDocuments,
		PeriodID: "period-1",
		Format:   models.ReportFormatCSV,
	}, vicerrectorClaims())

	require.NoError(t, err)
	require.Equal(t, models.ReportStatusQueued, resp.Status)
	require.NotNil(t, store.created)
	require.Equal(t, "period-1", store.created.Params.PeriodID)
	require.Len(t, queue.enqueued, 1)
	require.Equal(t, store.created.ID, queue.enqueued[0].ID)
}

func TestReportCreateJobPinsDocenteToSelf(t *testing.T) {
	store := &reportStoreStub{}
	svc := NewReportService(store, &queueStub{}, nil, nil, ReportServiceConfig{})

	other := "teacher-2"
	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:      models.ReportTypeCompliance,
		PeriodID:  "period-1",
		TeacherID: &other,
		Format:    models.ReportFormatPDF,
	}, docenteClaims())

	require.NoError(t, err)
	require.NotNil(t, store.created.Params.TeacherID)
	require.Equal(t, docenteClaims().UserID, *store.created.Params.TeacherID)
}

func TestReportCreateJobRejectsUnknownType(t *testing.T) {
	svc := NewReportService(&reportStoreStub{}, &queueStub{}, nil, nil, ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:     models.ReportType("INVENTARIO"),
		PeriodID: "period-1",
		Format:   models.ReportFormatCSV,
	}, vicerrectorClaims())

	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportCreateJobMarksFailedWhenEnqueueFails(t *testing.T) {
	store := &reportStoreStub{}
	queue := &queueStub{err: errors.New("queue stopped")}
	svc := NewReportService(store, queue, nil, nil, ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:     models.ReportTypeDocuments,
		PeriodID: "period-1",
		Format:   models.ReportFormatCSV,
	}, vicerrectorClaims())

	require.Error(t, err)
	require.NotEmpty(t, store.updates)
	require.Equal(t, models.ReportStatusFailed, *store.updates[0].Status)
}

func TestReportGetStatusEnforcesOwnership(t *testing.T) {
	store := &reportStoreStub{byID: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", Status: models.ReportStatusQueued, CreatedBy: "someone-else"},
	}}
	svc := NewReportService(store, &queueStub{}, nil, nil, ReportServiceConfig{})

	_, err := svc.GetStatus(context.Background(), "job-1", docenteClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	status, err := svc.GetStatus(context.Background(), "job-1", vicerrectorClaims())
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusQueued, status.Status)
}

func TestReportWorkerFinishesJob(t *testing.T) {
	store := &reportStoreStub{byID: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", Status: models.ReportStatusQueued, Params: models.ReportJobParams{Format: models.ReportFormatCSV}},
	}}
	worker := NewReportWorker(store, &exportGeneratorStub{result: &ExportResult{
		URL: "/api/v1/reports/download/tok",
	}}, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusFinished, store.byID["job-1"].Status)
	require.NotNil(t, store.byID["job-1"].ResultURL)
	require.Equal(t, "/api/v1/reports/download/tok", *store.byID["job-1"].ResultURL)
}

func TestReportWorkerRequeuesBeforeRetryBudget(t *testing.T) {
	store := &reportStoreStub{byID: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", Status: models.ReportStatusQueued},
	}}
	worker := NewReportWorker(store, &exportGeneratorStub{err: errors.New("render failed")}, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusQueued, store.byID["job-1"].Status)
}

func TestReportWorkerFailsAfterRetryBudget(t *testing.T) {
	store := &reportStoreStub{byID: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", Status: models.ReportStatusQueued},
	}}
	worker := NewReportWorker(store, &exportGeneratorStub{err: errors.New("render failed")}, 2, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusFailed, store.byID["job-1"].Status)
}
