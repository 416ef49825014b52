package models

import "time"

// Deliverable is a scheduled requirement to submit a document of a given
// type by a deadline within a stage of an academic period
// ("entrega programada").
type Deliverable struct {
	ID             string    `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	DocumentTypeID string    `db:"document_type_id" json:"document_type_id"`
	StageID        string    `db:"stage_id" json:"stage_id"`
	PeriodID       string    `db:"period_id" json:"period_id"`
	OpensAt        time.Time `db:"opens_at" json:"opens_at"`
	DueAt          time.Time `db:"due_at" json:"due_at"`
	Mandatory      bool      `db:"mandatory" json:"mandatory"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DeliverableDetail enriches deliverables with display fields.
type DeliverableDetail struct {
	Deliverable
	TypeName   string `db:"type_name" json:"type_name"`
	StageName  string `db:"stage_name" json:"stage_name"`
	StageOrder int    `db:"stage_order" json:"stage_order"`
}

// DeliverableFilter narrows listing queries.
type DeliverableFilter struct {
	PeriodID   string `form:"period_id"`
	StageID    string `form:"stage_id"`
	ActiveOnly bool   `form:"active_only"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}
