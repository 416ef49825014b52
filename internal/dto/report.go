package dto

import "github.com/noah-isme/doc-review-api/internal/models"

// ReportRequest asks for an asynchronous export.
type ReportRequest struct {
	Type      models.ReportType   `json:"type" validate:"required"`
	PeriodID  string              `json:"period_id" validate:"required"`
	TeacherID *string             `json:"teacher_id,omitempty"`
	Status    *string             `json:"status,omitempty"`
	Format    models.ReportFormat `json:"format" validate:"required"`
}

// ReportJobResponse acknowledges a queued job.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress to polling clients.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
