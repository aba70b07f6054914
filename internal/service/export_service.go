package service

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/pkg/export"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

var contentTypes = map[string]string{
	FormatCSV:  "text/csv; charset=utf-8",
	FormatPDF:  "application/pdf",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type timetableRenderer interface {
	Render(t export.Timetable) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	MaxAge    time.Duration
}

// RenderedExport is an export held in memory.
type RenderedExport struct {
	Data        []byte
	Format      string
	ContentType string
	Filename    string
}

// ExportResult captures a stored export and its signed download link.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       string
	ExpiresAt    time.Time
}

// ExportDownload is a resolved signed download.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService renders run timetables and keeps stored copies behind signed URLs.
type ExportService struct {
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[string]timetableRenderer
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService. storage and signer may be nil
// when only streamed exports are needed.
func NewExportService(storage fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 7 * 24 * time.Hour
	}
	return &ExportService{
		storage: storage,
		signer:  signer,
		renderers: map[string]timetableRenderer{
			FormatCSV:  export.NewCSVExporter(),
			FormatPDF:  export.NewPDFExporter(),
			FormatXLSX: export.NewXLSXExporter(),
		},
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// Render builds the export of run's best schedule in format.
func (s *ExportService) Render(run dto.RunResponse, format, title string) (*RenderedExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", format))
	}
	if run.Result == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "generation run has no schedule yet")
	}

	data, err := renderer.Render(TimetableFromRun(run, title))
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to render export")
	}
	s.metrics.ExportRendered(format)
	return &RenderedExport{
		Data:        data,
		Format:      format,
		ContentType: contentTypes[format],
		Filename:    buildFilename(run.RunID, format, time.Now().UTC()),
	}, nil
}

// Store renders and saves an export, returning a signed download URL.
func (s *ExportService) Store(run dto.RunResponse, format, title string) (*ExportResult, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "export storage is not configured")
	}
	rendered, err := s.Render(run, format, title)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(path.Join(run.RunID, rendered.Filename), rendered.Data)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to store export")
	}
	token, expiresAt, err := s.signer.Sign(relPath)
	if err != nil {
		if delErr := s.storage.Delete(relPath); delErr != nil {
			s.logger.Warn("failed to remove unsigned export", zap.String("path", relPath), zap.Error(delErr))
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to sign export url")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export stored", zap.String("run_id", run.RunID), zap.String("format", rendered.Format), zap.String("path", relPath))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:       rendered.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// Resolve validates a download token and opens the stored file.
func (s *ExportService) Resolve(token string) (*ExportDownload, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	claims, err := s.signer.Verify(token)
	if errors.Is(err, storage.ErrTokenExpired) {
		return nil, appErrors.WrapAs(err, appErrors.ErrForbidden, "download link expired")
	}
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrForbidden, "invalid download token")
	}
	relPath, expiresAt := claims.RelPath, claims.ExpiresAt
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrNotFound, "export not found")
	}
	ext := strings.TrimPrefix(path.Ext(relPath), ".")
	return &ExportDownload{
		File:        file,
		Filename:    path.Base(relPath),
		ContentType: contentTypes[ext],
		ExpiresAt:   expiresAt,
	}, nil
}

// Cleanup removes stored exports older than maxAge, or the configured MaxAge
// when maxAge <= 0.
func (s *ExportService) Cleanup(maxAge time.Duration) ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	if maxAge <= 0 {
		maxAge = s.cfg.MaxAge
	}
	removed, err := s.storage.CleanupOlderThan(maxAge)
	if err != nil {
		return removed, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

// TimetableFromRun converts a run's best schedule into renderer input.
func TimetableFromRun(run dto.RunResponse, title string) export.Timetable {
	if title == "" {
		title = "Timetable"
		if run.Department != "" {
			title = fmt.Sprintf("Timetable - %s", run.Department)
		}
	}
	t := export.Timetable{Title: title}
	if run.Result == nil {
		t.Days = run.Window.Days
		t.StartHour, t.EndHour = run.Window.StartHour, run.Window.EndHour
		return t
	}

	window := coverLessons(run.Window, run.Result.Schedule)
	t.Days, t.StartHour, t.EndHour = window.Days, window.StartHour, window.EndHour

	names := make(map[string]string)
	if run.Analysis != nil {
		for _, load := range run.Analysis.TeacherLoad {
			if load.Name != "" {
				names[load.TeacherID] = load.Name
			}
		}
	}
	t.Rows = make([]export.Row, 0, len(run.Result.Schedule))
	for _, l := range run.Result.Schedule {
		teacher := names[l.TeacherID]
		if teacher == "" {
			teacher = l.TeacherID
		}
		t.Rows = append(t.Rows, export.Row{
			Day:        l.Day,
			Start:      l.Hour,
			End:        l.End(),
			Teacher:    teacher,
			Subject:    l.Subject,
			Room:       l.RoomID,
			Department: l.Department,
			Lab:        l.RequiresLab,
			Priority:   l.IsPriority,
		})
	}
	t.Footer = []string{
		fmt.Sprintf("Score: %d", run.Result.Score),
		fmt.Sprintf("Attempts: %d", run.Result.Attempts),
		fmt.Sprintf("Unscheduled lessons: %d", run.Result.Unscheduled),
	}
	if run.Result.StopReason != "" {
		t.Footer = append(t.Footer, fmt.Sprintf("Stop reason: %s", run.Result.StopReason))
	}
	return t
}

func buildFilename(runID, format string, at time.Time) string {
	return fmt.Sprintf("timetable_%s_%s.%s", sanitizeFilename(runID), at.Format("20060102_150405"), format)
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
