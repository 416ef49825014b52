package dto

import (
	"time"

	"github.com/noah-isme/doc-review-api/internal/models"
)

// ReviewDashboardResponse summarises the review workload of a period.
type ReviewDashboardResponse struct {
	PeriodID      string                        `json:"period_id"`
	Total         int                           `json:"total"`
	ByStatus      map[models.DocumentStatus]int `json:"by_status"`
	PendingReview int                           `json:"pending_review"`
	GeneratedAt   time.Time                     `json:"generated_at"`
}

// TeacherComplianceEntry aggregates one docente's obligation progress.
type TeacherComplianceEntry struct {
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name,omitempty"`
	Total       int    `json:"total"`
	Pending     int    `json:"pending"`
	Satisfied   int    `json:"satisfied"`
}

// ComplianceDashboardResponse lists per-docente obligation progress for a period.
type ComplianceDashboardResponse struct {
	PeriodID    string                   `json:"period_id"`
	Teachers    []TeacherComplianceEntry `json:"teachers"`
	GeneratedAt time.Time                `json:"generated_at"`
}
