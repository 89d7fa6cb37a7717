package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/merrykids-api/internal/repository"
	"github.com/noah-isme/merrykids-api/pkg/database"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
)

// MaxIdentifierRetries bounds how many times allocation is retried after a
// unique violation on the identifier column.
const MaxIdentifierRetries = 3

const tracerName = "github.com/noah-isme/merrykids-api/internal/service"

// IdentifierKind describes one family of year-scoped identifiers.
type IdentifierKind struct {
	Name       string
	Prefix     string
	Width      int
	Constraint string
}

var (
	// StaffIDs issues MK-STF-<year>-NNNN employment ids.
	StaffIDs = IdentifierKind{Name: "staff", Prefix: "MK-STF", Width: 4, Constraint: repository.TeacherEmploymentIDConstraint}
	// AdmissionIDs issues MK-ADM-<year>-NNNNNN reference numbers.
	AdmissionIDs = IdentifierKind{Name: "admission", Prefix: "MK-ADM", Width: 6, Constraint: repository.SubmissionReferenceConstraint}
)

// YearPrefix is the shared prefix of every identifier issued in year.
func (k IdentifierKind) YearPrefix(year int) string {
	return fmt.Sprintf("%s-%d-", k.Prefix, year)
}

// Format renders the identifier for sequence seq.
func (k IdentifierKind) Format(year, seq int) string {
	return fmt.Sprintf("%s%0*d", k.YearPrefix(year), k.Width, seq)
}

// CountFunc returns how many identifiers already start with prefix.
type CountFunc func(ctx context.Context, prefix string) (int, error)

// PersistFunc stores the entity under the candidate identifier.
type PersistFunc func(ctx context.Context, candidate string) error

// IdentifierIssuer allocates human-readable identifiers from a row count,
// retrying when a concurrent writer took the same candidate.
type IdentifierIssuer struct {
	maxRetries int
	metrics    *MetricsService
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewIdentifierIssuer builds an issuer. maxRetries <= 0 falls back to MaxIdentifierRetries.
func NewIdentifierIssuer(maxRetries int, metrics *MetricsService, logger *zap.Logger) *IdentifierIssuer {
	if maxRetries <= 0 {
		maxRetries = MaxIdentifierRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentifierIssuer{
		maxRetries: maxRetries,
		metrics:    metrics,
		tracer:     otel.Tracer(tracerName),
		logger:     logger,
	}
}

// Issue counts, formats and persists a candidate. A unique violation on the
// kind's constraint re-reads the count and tries count+1+attempt; every other
// persist error is returned untouched.
func (s *IdentifierIssuer) Issue(ctx context.Context, kind IdentifierKind, year int, count CountFunc, persist PersistFunc) (string, error) {
	ctx, span := s.tracer.Start(ctx, "identifier.issue", trace.WithAttributes(
		attribute.String("identifier.kind", kind.Name),
		attribute.Int("identifier.year", year),
	))
	defer span.End()

	prefix := kind.YearPrefix(year)
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		existing, err := count(ctx, prefix)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "count failed")
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count identifiers")
		}

		candidate := kind.Format(year, existing+1+attempt)
		err = persist(ctx, candidate)
		if err == nil {
			span.SetAttributes(attribute.String("identifier.value", candidate), attribute.Int("identifier.attempts", attempt+1))
			s.metrics.IdentifierIssued(kind.Name)
			return candidate, nil
		}
		if !database.IsUniqueViolation(err, kind.Constraint) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist failed")
			return "", err
		}

		s.metrics.IdentifierConflict(kind.Name)
		span.AddEvent("identifier.conflict", trace.WithAttributes(
			attribute.String("identifier.candidate", candidate),
			attribute.Int("identifier.attempt", attempt),
		))
		s.logger.Debug("identifier conflict, retrying",
			zap.String("kind", kind.Name),
			zap.String("candidate", candidate),
			zap.Int("attempt", attempt),
		)
	}

	s.metrics.IdentifierExhausted(kind.Name)
	span.SetStatus(codes.Error, "retries exhausted")
	s.logger.Warn("identifier retries exhausted", zap.String("kind", kind.Name), zap.Int("year", year))
	return "", appErrors.Clone(appErrors.ErrDuplicateIdentifier, fmt.Sprintf("could not allocate a unique %s identifier", kind.Name))
}
