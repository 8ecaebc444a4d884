package service

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"order-tracking-service/internal/model"
	"order-tracking-service/internal/recognition"
)

// Reasons attached to ingest results that need an operator.
const (
	ReasonCodeNotFound   = "CODE_NOT_FOUND"
	ReasonAliasNotMapped = "ALIAS_NOT_MAPPED"
)

// CodeResolver turns an uploaded photo into a code.
type CodeResolver interface {
	Resolve(ctx context.Context, img image.Image, filename, hint string) recognition.Resolution
}

// IngestInput is one uploaded photo, already stored and decoded.
type IngestInput struct {
	Filename string
	// ImagePath is the public path recorded on the order.
	ImagePath string
	Image     image.Image
	Hint      string
	Status    string
	// Err is set when the upload could not be stored or decoded.
	Err error
}

type IngestResult struct {
	Filename     string
	Order        *model.Order
	NeedsReview  bool
	Reason       string
	DetectedCode string
	Source       recognition.Source
	Err          error
}

func (r IngestResult) OK() bool { return r.Err == nil && !r.NeedsReview && r.Order != nil }

type IngestSummary struct {
	Total       int
	Succeeded   int
	NeedsReview int
}

// Ingest resolves the photo's code and attaches the photo to the order.
//
// A hinted code the registry does not know creates the order, since the
// operator asserted it. A detected code that resolves to nothing is returned
// for review instead.
func (s *OrderService) Ingest(ctx context.Context, in IngestInput) IngestResult {
	out := IngestResult{Filename: in.Filename}
	if in.Err != nil {
		out.Err = in.Err
		return out
	}

	// Recognition runs before, and outside, the transaction.
	res := s.codes.Resolve(ctx, in.Image, in.Filename, in.Hint)
	out.Source = res.Source
	if res.NeedsReview || res.Code == "" {
		out.NeedsReview = true
		out.Reason = ReasonCodeNotFound
		slog.Info("ingest needs review", "file", in.Filename, "reason", out.Reason)
		return out
	}

	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.resolver.ResolveAny(ctx, res.Code)
		if errors.Is(err, ErrNotFound) {
			if res.Source != recognition.SourceHint {
				out.NeedsReview = true
				out.Reason = ReasonAliasNotMapped
				out.DetectedCode = res.Code
				return nil
			}
			o, err = s.ensureOrder(ctx, res.Code)
		}
		if err != nil {
			return err
		}
		out.Order, err = s.attach(ctx, o, in.ImagePath, in.Status)
		return err
	})
	if err != nil {
		out.Err = err
		out.Order = nil
		slog.Error("ingest failed", "file", in.Filename, "code", res.Code, "error", err)
		return out
	}
	if out.NeedsReview {
		slog.Info("ingest needs review", "file", in.Filename, "reason", out.Reason, "detected", out.DetectedCode)
	}
	return out
}

// IngestMany ingests every input independently; one failing file never stops
// the batch.
func (s *OrderService) IngestMany(ctx context.Context, inputs []IngestInput) ([]IngestResult, IngestSummary) {
	results := make([]IngestResult, 0, len(inputs))
	summary := IngestSummary{Total: len(inputs)}
	for _, in := range inputs {
		r := s.Ingest(ctx, in)
		switch {
		case r.OK():
			summary.Succeeded++
		case r.NeedsReview:
			summary.NeedsReview++
		}
		results = append(results, r)
	}
	return results, summary
}
