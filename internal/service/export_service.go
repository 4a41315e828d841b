package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
	"github.com/zahraAghaee77/School-Management-API/pkg/export"
)

// ExportFormat selects the rendered grade sheet format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type exportSolutionReader interface {
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.SolutionDetail, error)
}

// ExportResult carries a rendered grade sheet.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders an assignment's grade sheet for its class teacher.
type ExportService struct {
	assignments assignmentRepository
	classes     assignmentClassReader
	solutions   exportSolutionReader
	engine      *authz.Engine
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(assignments assignmentRepository, classes assignmentClassReader, solutions exportSolutionReader, engine *authz.Engine, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		assignments: assignments,
		classes:     classes,
		solutions:   solutions,
		engine:      engine,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// GradeSheet renders the submissions and grades of an assignment.
func (s *ExportService) GradeSheet(ctx context.Context, actor authz.Actor, assignmentID string, format ExportFormat) (*ExportResult, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	class, err := s.classes.FindByID(ctx, assignment.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.engine.Allowed(ctx, actor, authz.ActionAssignmentExport, authz.Resource{Class: class, Assignment: assignment}); err != nil {
		return nil, err
	}

	solutions, err := s.solutions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load solutions")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Submitted At", "Grade", "Max Grade"},
	}
	for _, sol := range solutions {
		grade := ""
		if sol.Grade != nil {
			grade = strconv.FormatFloat(*sol.Grade, 'f', 2, 64)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":      sol.StudentName,
			"Submitted At": sol.CreatedAt.UTC().Format(time.RFC3339),
			"Grade":        grade,
			"Max Grade":    strconv.FormatFloat(assignment.MaxGrade, 'f', 2, 64),
		})
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("grades-%s-%s.csv", assignmentID, stamp),
			ContentType: "text/csv",
			Payload:     payload,
		}, nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, assignment.Title+" grades")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("grades-%s-%s.pdf", assignmentID, stamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
