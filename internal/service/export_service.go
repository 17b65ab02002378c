package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurpe/amc-schedule/internal/model"
	"github.com/nurpe/amc-schedule/internal/report"
)

type DocumentGenerator interface {
	Generate(doc report.Document) ([]byte, error)
}

type ArtifactStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var contentTypes = map[Format]string{
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatPDF:  "application/pdf",
	FormatCSV:  "text/csv",
	FormatJSON: "application/json",
}

func ParseFormat(value string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := contentTypes[f]; !ok {
		return "", fmt.Errorf("%w: unsupported export format %q", ErrInvalidInput, value)
	}
	return f, nil
}

type ExportRequest struct {
	Kind    model.ScheduleKind
	Format  Format
	Results []model.ProductResult
	// Scope selects the payment statuses shown in the report; empty means
	// every quarter is pending.
	Scope string
	Store bool
}

type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
	URL         string
}

type ExportService struct {
	payments *PaymentService
	excel    DocumentGenerator
	pdf      DocumentGenerator
	store    ArtifactStore
	metrics  Metrics
	log      zerolog.Logger
	now      func() time.Time
}

type ExportDeps struct {
	Payments *PaymentService
	Excel    DocumentGenerator
	PDF      DocumentGenerator
	Store    ArtifactStore
	Metrics  Metrics
	Log      zerolog.Logger
	Now      func() time.Time
}

func NewExportService(deps ExportDeps) *ExportService {
	s := &ExportService{
		payments: deps.Payments,
		excel:    deps.Excel,
		pdf:      deps.PDF,
		store:    deps.Store,
		metrics:  deps.Metrics,
		log:      deps.Log.With().Str("component", "export").Logger(),
		now:      deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *ExportService) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown schedule kind %q", ErrInvalidInput, req.Kind)
	}
	contentType, ok := contentTypes[req.Format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported export format %q", ErrInvalidInput, req.Format)
	}
	if req.Results == nil {
		return nil, fmt.Errorf("%w: results are required", ErrInvalidInput)
	}
	if req.Store && s.store == nil {
		return nil, ErrStorageDisabled
	}

	statuses := model.PaymentStatuses{}
	if s.payments != nil && req.Scope != "" {
		loaded, err := s.payments.Statuses(ctx, req.Scope)
		if err != nil {
			return nil, err
		}
		statuses = loaded
	}

	now := s.now()
	doc := report.Build(req.Kind, req.Results, statuses, now)
	content, err := s.render(req.Format, doc)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.Format, err)
	}

	result := &ExportResult{
		FileName:    buildFileName(req.Kind, req.Scope, req.Format, now),
		ContentType: contentType,
		Content:     content,
	}
	if req.Store {
		url, err := s.store.Put(ctx, result.FileName, contentType, content)
		if err != nil {
			return nil, err
		}
		result.URL = url
	}

	if s.metrics != nil {
		s.metrics.ExportCreated(string(req.Format))
	}
	s.log.Info().
		Str("kind", string(req.Kind)).
		Str("format", string(req.Format)).
		Int("products", len(req.Results)).
		Bool("stored", req.Store).
		Msg("export created")
	return result, nil
}

func (s *ExportService) render(format Format, doc report.Document) ([]byte, error) {
	switch format {
	case FormatXLSX:
		return s.excel.Generate(doc)
	case FormatPDF:
		return s.pdf.Generate(doc)
	case FormatCSV:
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf, doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		if err := report.WriteJSON(&buf, doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

func buildFileName(kind model.ScheduleKind, scope string, format Format, now time.Time) string {
	name := fmt.Sprintf("%s-schedule", kind)
	if scope := sanitizeFileName(scope); scope != "" {
		name += "-" + scope
	}
	return fmt.Sprintf("%s-%s.%s", name, now.Format("20060102"), format)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
