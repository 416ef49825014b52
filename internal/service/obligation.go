package service

import (
	"sort"

	"github.com/noah-isme/doc-review-api/internal/models"
)

// ExpandObligations crosses active deliverables with the docente's teaching
// load. A deliverable whose type requires a subject yields one obligation
// per teaching load; otherwise it yields exactly one obligation keyed by the
// shared sentinel. Deliverables whose document type cannot be resolved are
// dropped and counted.
func ExpandObligations(deliverables []models.DeliverableDetail, types map[string]models.DocumentType, loads []models.TeachingLoadDetail) ([]models.Obligation, int) {
	obligations := make([]models.Obligation, 0, len(deliverables))
	dangling := 0

	for _, deliverable := range deliverables {
		docType, ok := types[deliverable.DocumentTypeID]
		if !ok {
			dangling++
			continue
		}

		if !docType.RequiresSubject {
			obligations = append(obligations, models.Obligation{
				Key: models.ObligationKey{
					DeliverableID: deliverable.ID,
					LoadKey:       models.SentinelLoadKey,
				},
				Deliverable:     deliverable.Deliverable,
				TypeName:        docType.Name,
				RequiresSubject: false,
			})
			continue
		}

		for _, load := range loads {
			loadID := load.ID
			obligations = append(obligations, models.Obligation{
				Key: models.ObligationKey{
					DeliverableID: deliverable.ID,
					LoadKey:       loadID,
				},
				Deliverable:     deliverable.Deliverable,
				TypeName:        docType.Name,
				RequiresSubject: true,
				TeachingLoadID:  &loadID,
				CourseName:      load.CourseName,
				SubjectName:     load.SubjectName,
			})
		}
	}

	return obligations, dangling
}

// currentDocument picks the authoritative submission among candidates:
// latest uploaded_at wins, then the greater version, then the
// lexicographically greater ID so the choice is deterministic.
func currentDocument(docs []models.Document) *models.Document {
	var current *models.Document
	for i := range docs {
		doc := &docs[i]
		if current == nil {
			current = doc
			continue
		}
		if doc.UploadedAt.After(current.UploadedAt) {
			current = doc
			continue
		}
		if doc.UploadedAt.Equal(current.UploadedAt) {
			if doc.Version > current.Version || (doc.Version == current.Version && doc.ID > current.ID) {
				current = doc
			}
		}
	}
	return current
}

// ReconcileObligations matches submitted documents against obligations.
// A document is attributed through its normalised (deliverable, load) key.
// An obligation is pending when it has no current document or the current
// one was returned or rejected.
func ReconcileObligations(obligations []models.Obligation, docs []models.Document) []models.ObligationStatus {
	byKey := make(map[models.ObligationKey][]models.Document)
	for _, doc := range docs {
		if doc.DeliverableID == nil {
			continue
		}
		key := models.ObligationKey{
			DeliverableID: *doc.DeliverableID,
			LoadKey:       models.NormalizeLoadRef(doc.TeachingLoadID),
		}
		byKey[key] = append(byKey[key], doc)
	}

	statuses := make([]models.ObligationStatus, 0, len(obligations))
	for _, obligation := range obligations {
		status := models.ObligationStatus{Obligation: obligation, Pending: true}
		if current := currentDocument(byKey[obligation.Key]); current != nil {
			status.Current = current
			status.Pending = current.Status.ActionableByTeacher()
		}
		statuses = append(statuses, status)
	}

	sort.SliceStable(statuses, func(i, j int) bool {
		a, b := statuses[i], statuses[j]
		if !a.Deliverable.DueAt.Equal(b.Deliverable.DueAt) {
			return a.Deliverable.DueAt.Before(b.Deliverable.DueAt)
		}
		if a.Key.DeliverableID != b.Key.DeliverableID {
			return a.Key.DeliverableID < b.Key.DeliverableID
		}
		return a.Key.LoadKey < b.Key.LoadKey
	})
	return statuses
}
