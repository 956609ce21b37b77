// Package finalize is the write path of the external processing worker. It
// is the only code allowed to move a clip out of processing, and each clip
// moves exactly once.
package finalize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clipmaster/internal/clipstore"
	"clipmaster/models"
)

// ErrInvalidReport is returned when worker input fails validation.
var ErrInvalidReport = errors.New("invalid worker report")

// MaxReasonLength caps stored failure reasons.
const MaxReasonLength = 1000

// Finalizer records worker results on clip records.
type Finalizer struct {
	repo     clipstore.Repository
	validate *validator.Validate
	now      func() time.Time
	log      *logrus.Entry
}

// NewFinalizer writes through repo.
func NewFinalizer(repo clipstore.Repository, logger *logrus.Logger) *Finalizer {
	return &Finalizer{
		repo:     repo,
		validate: validator.New(),
		now:      time.Now,
		log:      logger.WithField("component", "finalize"),
	}
}

// ReportMetadata stores duration, thumbnail and aspect ratio while the clip
// is still processing.
func (f *Finalizer) ReportMetadata(ctx context.Context, id uuid.UUID, meta models.ClipMetadata) (*models.Clip, error) {
	if meta.Empty() {
		return nil, fmt.Errorf("%w: no metadata fields set", ErrInvalidReport)
	}
	if err := f.validate.Struct(meta); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	return f.repo.UpdateMetadata(ctx, id, meta, f.now())
}

// Complete marks the clip completed with its final artifact.
func (f *Finalizer) Complete(ctx context.Context, id uuid.UUID, artifactURI string, meta models.ClipMetadata) (*models.Clip, error) {
	artifactURI = strings.TrimSpace(artifactURI)
	if err := f.validate.Var(artifactURI, "required,url"); err != nil {
		return nil, fmt.Errorf("%w: artifact uri: %w", ErrInvalidReport, err)
	}
	if err := f.validate.Struct(meta); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}

	clip, err := f.repo.Finalize(ctx, id, models.Finalization{
		Status:      models.StatusCompleted,
		ArtifactURI: artifactURI,
		Metadata:    meta,
	}, f.now())
	if err != nil {
		f.log.WithError(err).WithField("clip_id", id).Warn("Complete rejected")
		return nil, err
	}
	return clip, nil
}

// Fail marks the clip failed. reason is optional.
func (f *Finalizer) Fail(ctx context.Context, id uuid.UUID, reason string) (*models.Clip, error) {
	reason = strings.TrimSpace(reason)
	reason = truncateReason(reason)

	clip, err := f.repo.Finalize(ctx, id, models.Finalization{
		Status:        models.StatusFailed,
		FailureReason: reason,
	}, f.now())
	if err != nil {
		f.log.WithError(err).WithField("clip_id", id).Warn("Fail rejected")
		return nil, err
	}
	return clip, nil
}

// truncateReason cuts reason to at most MaxReasonLength bytes without
// splitting a rune.
func truncateReason(reason string) string {
	if len(reason) <= MaxReasonLength {
		return reason
	}
	n := MaxReasonLength
	for n > 0 && !utf8.RuneStart(reason[n]) {
		n--
	}
	return reason[:n]
}
