package dto

// UploadDocumentRequest carries the metadata of a submission. The file
// itself travels as a multipart part next to these fields.
type UploadDocumentRequest struct {
	DeliverableID  string  `form:"deliverable_id" json:"deliverable_id" validate:"required"`
	TeachingLoadID *string `form:"teaching_load_id" json:"teaching_load_id,omitempty"`
	TeacherComment *string `form:"teacher_comment" json:"teacher_comment,omitempty"`
}

// ReviewDocumentRequest carries a reviewer decision.
type ReviewDocumentRequest struct {
	Status  string  `json:"status" validate:"required"`
	Comment *string `json:"comment,omitempty"`
}

// DocumentListQuery narrows the reviewer triage listing.
type DocumentListQuery struct {
	Status        string `form:"status"`
	PeriodID      string `form:"period_id"`
	TeacherID     string `form:"teacher_id"`
	DeliverableID string `form:"deliverable_id"`
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
}
