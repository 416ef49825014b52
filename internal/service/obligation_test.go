package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/doc-review-api/internal/models"
)

func deliverableFixture(id, typeID string, due time.Time) models.DeliverableDetail {
	return models.DeliverableDetail{
		Deliverable: models.Deliverable{
			ID:             id,
			Title:          "Deliverable " + id,
			DocumentTypeID: typeID,
			StageID:        "stage-1",
			PeriodID:       "period-1",
			DueAt:          due,
			Mandatory:      true,
			Active:         true,
		},
	}
}

func loadFixture(id, course, subject string) models.TeachingLoadDetail {
	return models.TeachingLoadDetail{
		TeachingLoad: models.TeachingLoad{
			ID:        id,
			TeacherID: "teacher-1",
			PeriodID:  "period-1",
			Active:    true,
		},
		CourseName:  course,
		SubjectName: subject,
	}
}

func TestExpandObligationsSubjectTypeCrossesLoads(t *testing.T) {
	due := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	types := map[string]models.DocumentType{
		"type-plan": {ID: "type-plan", Name: "Planificacion", RequiresSubject: true},
	}
	loads := []models.TeachingLoadDetail{
		loadFixture("load-1", "Octavo A", "Matematica"),
		loadFixture("load-2", "Noveno B", "Fisica"),
	}

	obligations, dangling := ExpandObligations([]models.DeliverableDetail{deliverableFixture("del-1", "type-plan", due)}, types, loads)
	require.Zero(t, dangling)
	require.Len(t, obligations, 2)
	require.Equal(t, "load-1", obligations[0].Key.LoadKey)
	require.Equal(t, "load-2", obligations[1].Key.LoadKey)
	require.Equal(t, "Matematica", obligations[0].SubjectName)
	require.NotNil(t, obligations[0].TeachingLoadID)
}

func TestExpandObligationsGeneralTypeUsesSentinel(t *testing.T) {
	due := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	types := map[string]models.DocumentType{
		"type-report": {ID: "type-report", Name: "Informe", RequiresSubject: false},
	}
	loads := []models.TeachingLoadDetail{
		loadFixture("load-1", "Octavo A", "Matematica"),
		loadFixture("load-2", "Noveno B", "Fisica"),
	}

	obligations, dangling := ExpandObligations([]models.DeliverableDetail{deliverableFixture("del-1", "type-report", due)}, types, loads)
	require.Zero(t, dangling)
	require.Len(t, obligations, 1)
	require.Equal(t, models.SentinelLoadKey, obligations[0].Key.LoadKey)
	require.Nil(t, obligations[0].TeachingLoadID)
}

func TestExpandObligationsDropsDanglingTypes(t *testing.T) {
	due := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	types := map[string]models.DocumentType{
		"type-report": {ID: "type-report", Name: "Informe"},
	}

	obligations, dangling := ExpandObligations([]models.DeliverableDetail{
		deliverableFixture("del-1", "type-report", due),
		deliverableFixture("del-2", "type-ghost", due),
	}, types, nil)
	require.Equal(t, 1, dangling)
	require.Len(t, obligations, 1)
	require.Equal(t, "del-1", obligations[0].Key.DeliverableID)
}

func TestExpandObligationsSubjectTypeWithoutLoads(t *testing.T) {
	due := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	types := map[string]models.DocumentType{
		"type-plan": {ID: "type-plan", Name: "Planificacion", RequiresSubject: true},
	}

	obligations, dangling := ExpandObligations([]models.DeliverableDetail{deliverableFixture("del-1", "type-plan", due)}, types, nil)
	require.Zero(t, dangling)
	require.Empty(t, obligations)
}

func TestReconcileObligationsPendingStates(t *testing.T) {
	due := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	obligations := []models.Obligation{
		{Key: models.ObligationKey{DeliverableID: "del-1", LoadKey: models.SentinelLoadKey}, Deliverable: models.Deliverable{ID: "del-1", DueAt: due}},
		{Key: models.ObligationKey{DeliverableID: "del-2", LoadKey: models.SentinelLoadKey}, Deliverable: models.Deliverable{ID: "del-2", DueAt: due.Add(time.Hour)}},
		{Key: models.ObligationKey{DeliverableID: "del-3", LoadKey: models.SentinelLoadKey}, Deliverable: models.Deliverable{ID: "del-3", DueAt: due.Add(2 * time.Hour)}},
		{Key: models.ObligationKey{DeliverableID: "del-4", LoadKey: models.SentinelLoadKey}, Deliverable: models.Deliverable{ID: "del-4", DueAt: due.Add(3 * time.Hour)}},
	}
	del1, del2, del3 := "del-1", "del-2", "del-3"
	now := time.Now().UTC()
	docs := []models.Document{
		{ID: "doc-1", DeliverableID: &del1, Status: models.StatusAprobado, Version: 1, UploadedAt: now},
		{ID: "doc-2", DeliverableID: &del2, Status: models.StatusObservado, Version: 1, UploadedAt: now},
		{ID: "doc-3", DeliverableID: &del3, Status: models.StatusEnviado, Version: 1, UploadedAt: now},
	}

	statuses := ReconcileObligations(obligations, docs)
	require.Len(t, statuses, 4)

	require.False(t, statuses[0].Pending, "approved submission settles the obligation")
	require.True(t, statuses[1].Pending, "returned submission keeps it pending")
	require.NotNil(t, statuses[1].Current)
	require.False(t, statuses[2].Pending, "submitted document awaiting review is not pending")
	require.True(t, statuses[3].Pending, "no submission at all")
	require.Nil(t, statuses[3].Current)
}

func TestReconcileObligationsCurrentTieBreaks(t *testing.T) {
	due := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	obligations := []models.Obligation{
		{Key: models.ObligationKey{DeliverableID: "del-1", LoadKey: models.SentinelLoadKey}, Deliverable: models.Deliverable{ID: "del-1", DueAt: due}},
	}
	del1 := "del-1"
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	// Latest upload wins regardless of insertion order.
	docs := []models.Document{
		{ID: "doc-b", DeliverableID: &del1, Status: models.StatusEnviado, Version: 2, UploadedAt: base.Add(time.Minute)},
		{ID: "doc-a", DeliverableID: &del1, Status: models.StatusObservado, Version: 1, UploadedAt: base},
	}
	statuses := ReconcileObligations(obligations, docs)
	require.Equal(t, "doc-b", statuses[0].Current.ID)
	require.False(t, statuses[0].Pending)

	// Equal timestamps fall back to the greater version.
	docs = []models.Document{
		{ID: "doc-a", DeliverableID: &del1, Status: models.StatusObservado, Version: 1, UploadedAt: base},
		{ID: "doc-b", DeliverableID: &del1, Status: models.StatusEnviado, Version: 2, UploadedAt: base},
	}
	statuses = ReconcileObligations(obligations, docs)
	require.Equal(t, "doc-b", statuses[0].Current.ID)

	// Equal timestamp and version fall back to the greater ID.
	docs = []models.Document{
		{ID: "doc-z", DeliverableID: &del1, Status: models.StatusEnviado, Version: 1, UploadedAt: base},
		{ID: "doc-a", DeliverableID: &del1, Status: models.StatusObservado, Version: 1, UploadedAt: base},
	}
	statuses = ReconcileObligations(obligations, docs)
	require.Equal(t, "doc-z", statuses[0].Current.ID)
}

func TestReconcileObligationsNormalisesLoadRefs(t *testing.T) {
	due := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	obligations := []models.Obligation{
		{Key: models.ObligationKey{DeliverableID: "del-1", LoadKey: models.SentinelLoadKey}, Deliverable: models.Deliverable{ID: "del-1", DueAt: due}},
	}
	del1 := "del-1"
	empty := "  "
	docs := []models.Document{
		{ID: "doc-1", DeliverableID: &del1, TeachingLoadID: &empty, Status: models.StatusAprobado, Version: 1, UploadedAt: time.Now()},
	}

	statuses := ReconcileObligations(obligations, docs)
	require.NotNil(t, statuses[0].Current, "blank load reference matches the sentinel key")
	require.False(t, statuses[0].Pending)
}

func TestReconcileObligationsIgnoresAdHocDocuments(t *testing.T) {
	due := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	obligations := []models.Obligation{
		{Key: models.ObligationKey{DeliverableID: "del-1", LoadKey: models.SentinelLoadKey}, Deliverable: models.Deliverable{ID: "del-1", DueAt: due}},
	}
	docs := []models.Document{
		{ID: "doc-1", DeliverableID: nil, Status: models.StatusAprobado, Version: 1, UploadedAt: time.Now()},
	}

	statuses := ReconcileObligations(obligations, docs)
	require.True(t, statuses[0].Pending)
	require.Nil(t, statuses[0].Current)
}

func TestReconcileObligationsSeparatesLoadKeys(t *testing.T) {
	due := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	load1, load2 := "load-1", "load-2"
	obligations := []models.Obligation{
		{Key: models.ObligationKey{DeliverableID: "del-1", LoadKey: load1}, Deliverable: models.Deliverable{ID: "del-1", DueAt: due}, TeachingLoadID: &load1},
		{Key: models.ObligationKey{DeliverableID: "del-1", LoadKey: load2}, Deliverable: models.Deliverable{ID: "del-1", DueAt: due}, TeachingLoadID: &load2},
	}
	del1 := "del-1"
	docs := []models.Document{
		{ID: "doc-1", DeliverableID: &del1, TeachingLoadID: &load1, Status: models.StatusAprobado, Version: 1, UploadedAt: time.Now()},
	}

	statuses := ReconcileObligations(obligations, docs)
	require.Len(t, statuses, 2)
	require.False(t, statuses[0].Pending)
	require.True(t, statuses[1].Pending, "submission on one load leaves the other pending")
}

func TestReconcileObligationsOrdersByDueDate(t *testing.T) {
	due := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	obligations := []models.Obligation{
		{Key: models.ObligationKey{DeliverableID: "del-late", LoadKey: models.SentinelLoadKey}, Deliverable: models.Deliverable{ID: "del-late", DueAt: due.Add(48 * time.Hour)}},
		{Key: models.ObligationKey{DeliverableID: "del-early", LoadKey: models.SentinelLoadKey}, Deliverable: models.Deliverable{ID: "del-early", DueAt: due}},
	}

	statuses := ReconcileObligations(obligations, nil)
	require.Equal(t, "del-early", statuses[0].Key.DeliverableID)
	require.Equal(t, "del-late", statuses[1].Key.DeliverableID)
}
