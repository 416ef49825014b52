package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ReportType enumerates supported report kinds.
type ReportType string

const (
	ReportTypeDocuments  ReportType = "DOCUMENTS"
	ReportTypeCompliance ReportType = "COMPLIANCE"
)

// ParseReportType validates a raw report type value.
func ParseReportType(raw string) (ReportType, bool) {
	switch ReportType(strings.ToUpper(strings.TrimSpace(raw))) {
	case ReportTypeDocuments:
		return ReportTypeDocuments, true
	case ReportTypeCompliance:
		return ReportTypeCompliance, true
	default:
		return "", false
	}
}

// ReportFormat enumerates rendered output formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ParseReportFormat validates a raw format value.
func ParseReportFormat(raw string) (ReportFormat, bool) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case ReportFormatCSV:
		return ReportFormatCSV, true
	case ReportFormatPDF:
		return ReportFormatPDF, true
	default:
		return "", false
	}
}

// ReportStatus enumerates the lifecycle of a report job.
type ReportStatus string

const (
	ReportStatusQueued   ReportStatus = "QUEUED"
	ReportStatusRunning  ReportStatus = "RUNNING"
	ReportStatusFinished ReportStatus = "FINISHED"
	ReportStatusFailed   ReportStatus = "FAILED"
)

// ReportJobParams captures the generation parameters stored with the job.
type ReportJobParams struct {
	PeriodID  string       `json:"period_id"`
	TeacherID *string      `json:"teacher_id,omitempty"`
	Status    *string      `json:"status,omitempty"`
	Format    ReportFormat `json:"format"`
}

// Value implements driver.Valuer so params persist as JSONB.
func (p ReportJobParams) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB params columns.
func (p *ReportJobParams) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = ReportJobParams{}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported params type %T", src)
	}
}

// ReportJob is an asynchronous export request tracked in the database.
type ReportJob struct {
	ID           string          `db:"id" json:"id"`
	Type         ReportType      `db:"type" json:"type"`
	Params       ReportJobParams `db:"params" json:"params"`
	Status       ReportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}
