package models

import "strings"

// SentinelLoadKey stands in for a missing teaching-load reference so that
// obligation keys remain comparable. Documents store a nullable reference;
// both sides must normalise through NormalizeLoadRef before comparison.
const SentinelLoadKey = "-"

// NormalizeLoadRef maps a nullable teaching-load reference to its key form.
// This is the only place the sentinel decision lives.
func NormalizeLoadRef(ref *string) string {
	if ref == nil {
		return SentinelLoadKey
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return SentinelLoadKey
	}
	return trimmed
}

// ObligationKey identifies one concrete submission requirement.
type ObligationKey struct {
	DeliverableID string `json:"deliverable_id"`
	LoadKey       string `json:"load_key"`
}

// Obligation is a concrete (deliverable, teaching-load) instance a docente
// must fulfil, produced by expanding deliverables against teaching load.
type Obligation struct {
	Key             ObligationKey `json:"key"`
	Deliverable     Deliverable   `json:"deliverable"`
	TypeName        string        `json:"type_name"`
	RequiresSubject bool          `json:"requires_subject"`
	TeachingLoadID  *string       `json:"teaching_load_id,omitempty"`
	CourseName      string        `json:"course_name,omitempty"`
	SubjectName     string        `json:"subject_name,omitempty"`
}

// ObligationStatus pairs an obligation with its reconciliation outcome.
type ObligationStatus struct {
	Obligation
	Pending bool      `json:"pending"`
	Current *Document `json:"current,omitempty"`
}

// ObligationSet is the result of expanding and reconciling a docente's
// obligations for a period.
type ObligationSet struct {
	Obligations []ObligationStatus `json:"obligations"`
	// DanglingTypes counts deliverables dropped because their document
	// type could not be resolved.
	DanglingTypes int `json:"dangling_types,omitempty"`
}
