package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/doc-review-api/internal/models"
	"github.com/noah-isme/doc-review-api/pkg/export"
	"github.com/noah-isme/doc-review-api/pkg/storage"
)

type exportDocumentLister interface {
	List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentDetail, int, error)
}

type exportLoadLister interface {
	ListByPeriod(ctx context.Context, periodID string) ([]models.TeachingLoadDetail, error)
}

type exportObligationResolver interface {
	ForTeacher(ctx context.Context, teacherID, periodID string) (*models.ObligationSet, error)
}

type exportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	documents   exportDocumentLister
	loads       exportLoadLister
	obligations exportObligationResolver
	storage     exportFileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(documents exportDocumentLister, loads exportLoadLister, obligations exportObligationResolver, fileStore exportFileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		documents:   documents,
		loads:       loads,
		obligations: obligations,
		storage:     fileStore,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	signedURL := fmt.Sprintf("%s/reports/download/%s", prefix, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	periodPart := sanitizeFilename(job.Params.PeriodID)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), periodPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeDocuments:
		return s.buildDocumentsDataset(ctx, job.Params)
	case models.ReportTypeCompliance:
		return s.buildComplianceDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildDocumentsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	filter := models.DocumentFilter{
		PeriodID:  params.PeriodID,
		TeacherID: deref(params.TeacherID),
		Page:      1,
		PageSize:  10000,
	}
	if params.Status != nil {
		if status, ok := models.ParseDocumentStatus(*params.Status); ok {
			filter.Status = status
		}
	}
	rows, _, err := s.documents.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}

	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Docente":    row.TeacherName,
			"Tipo":       row.TypeName,
			"Entregable": deref(row.DeliverableTitle),
			"Curso":      deref(row.CourseName),
			"Asignatura": deref(row.SubjectName),
			"Archivo":    row.OriginalName,
			"Version":    fmt.Sprintf("%d", row.Version),
			"Estado":     string(row.Status),
			"Subido":     row.UploadedAt.UTC().Format(time.RFC3339),
			"Revisado":   formatReportTime(row.ReviewedAt),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Docente", "Tipo", "Entregable", "Curso", "Asignatura", "Archivo", "Version", "Estado", "Subido", "Revisado"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Documentos %s", params.PeriodID)
	return dataset, title, nil
}

func (s *ExportService) buildComplianceDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	teacherIDs, teacherNames, err := s.resolveTeachers(ctx, params)
	if err != nil {
		return export.Dataset{}, "", err
	}

	dataRows := make([]map[string]string, 0, len(teacherIDs))
	for _, teacherID := range teacherIDs {
		set, err := s.obligations.ForTeacher(ctx, teacherID, params.PeriodID)
		if err != nil {
			return export.Dataset{}, "", err
		}
		pending, satisfied := 0, 0
		for _, obligation := range set.Obligations {
			if obligation.Pending {
				pending++
			} else {
				satisfied++
			}
		}
		dataRows = append(dataRows, map[string]string{
			"Docente":          teacherNames[teacherID],
			"ID":               teacherID,
			"Total":            fmt.Sprintf("%d", len(set.Obligations)),
			"Pendientes":       fmt.Sprintf("%d", pending),
			"Cumplidas":        fmt.Sprintf("%d", satisfied),
			"Cumplimiento (%)": compliancePercentage(satisfied, len(set.Obligations)),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Docente", "ID", "Total", "Pendientes", "Cumplidas", "Cumplimiento (%)"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Cumplimiento %s", params.PeriodID)
	return dataset, title, nil
}

func (s *ExportService) resolveTeachers(ctx context.Context, params models.ReportJobParams) ([]string, map[string]string, error) {
	names := map[string]string{}
	if params.TeacherID != nil && *params.TeacherID != "" {
		return []string{*params.TeacherID}, names, nil
	}
	loads, err := s.loads.ListByPeriod(ctx, params.PeriodID)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(loads))
	for _, load := range loads {
		if _, seen := names[load.TeacherID]; seen {
			continue
		}
		name := ""
		if load.TeacherName != nil {
			name = *load.TeacherName
		}
		names[load.TeacherID] = name
		ids = append(ids, load.TeacherID)
	}
	return ids, names, nil
}

func compliancePercentage(satisfied, total int) string {
	if total == 0 {
		return "100.00"
	}
	return fmt.Sprintf("%.2f", float64(satisfied)/float64(total)*100)
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
