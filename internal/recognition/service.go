package recognition

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"strings"
	"time"
)

// Source says where a resolved code came from.
type Source string

const (
	SourceHint        Source = "hint"
	SourceFilename    Source = "filename"
	SourceRecognition Source = "recognition"
)

// Resolution is the outcome of resolving one image. When NeedsReview is set
// no code could be determined and Code is empty.
type Resolution struct {
	Code        string
	Source      Source
	NeedsReview bool
	// Candidates holds every extracted candidate when recognition ran.
	Candidates []string
}

// Service decides the code for an uploaded image: operator hint first, then
// the file name, then the recognition backends over every variant.
type Service struct {
	backends    []Backend
	pre         Preprocessor
	timeout     time.Duration
	callTimeout time.Duration
	logger      *slog.Logger
}

type Option func(*Service)

// WithPreprocessor replaces the default variant pipeline.
func WithPreprocessor(p Preprocessor) Option {
	return func(s *Service) { s.pre = p }
}

// WithTimeouts bounds the whole pipeline and each backend call.
func WithTimeouts(total, perCall time.Duration) Option {
	return func(s *Service) {
		if total > 0 {
			s.timeout = total
		}
		if perCall > 0 {
			s.callTimeout = perCall
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService keeps backends in the given order; that order decides which
// candidate wins a tie.
func NewService(backends []Backend, opts ...Option) *Service {
	s := &Service{
		backends:    backends,
		pre:         DefaultPreprocessor(),
		timeout:     90 * time.Second,
		callTimeout: 20 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether at least one backend can run.
func (s *Service) Available() bool {
	return len(s.available()) > 0
}

func (s *Service) available() []Backend {
	var out []Backend
	for _, b := range s.backends {
		if b.Available() {
			out = append(out, b)
		}
	}
	return out
}

// Resolve never fails: everything that goes wrong inside recognition ends in
// a NeedsReview resolution.
func (s *Service) Resolve(ctx context.Context, img image.Image, filename, hint string) Resolution {
	if code := NormalizeCode(hint); code != "" {
		resolutionsTotal.WithLabelValues(string(SourceHint)).Inc()
		return Resolution{Code: code, Source: SourceHint}
	}
	if code := GuessFromFilename(filename); code != "" {
		resolutionsTotal.WithLabelValues(string(SourceFilename)).Inc()
		return Resolution{Code: code, Source: SourceFilename}
	}

	res := s.Recognize(ctx, img)
	if res.NeedsReview {
		resolutionsTotal.WithLabelValues("needs_review").Inc()
	} else {
		resolutionsTotal.WithLabelValues(string(SourceRecognition)).Inc()
	}
	return res
}

// Recognize runs only the backend pipeline, skipping hint and file name.
func (s *Service) Recognize(ctx context.Context, img image.Image) Resolution {
	review := Resolution{NeedsReview: true}
	if img == nil {
		return review
	}
	backends := s.available()
	if len(backends) == 0 {
		s.logger.Debug("no recognition backend available")
		return review
	}

	start := time.Now()
	defer func() { resolutionDuration.Observe(time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var texts []string
	for v := range s.pre.Variants(img) {
		for _, b := range backends {
			for _, mode := range b.Modes() {
				if ctx.Err() != nil {
					s.logger.Warn("recognition aborted", "error", ctx.Err(), "variant", v.Name, "angle", v.Angle)
					return review
				}
				if text := s.call(ctx, b, v, mode); text != "" {
					texts = append(texts, text)
				}
			}
		}
	}

	candidates := Extract(strings.Join(texts, "\n"))
	best, ok := ChooseBest(candidates)
	if !ok {
		return Resolution{NeedsReview: true}
	}
	s.logger.Debug("code recognized", "code", best, "candidates", candidates)
	return Resolution{Code: best, Source: SourceRecognition, Candidates: candidates}
}

func (s *Service) call(ctx context.Context, b Backend, v Variant, mode Mode) string {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	text, err := recognizeWithTimeout(callCtx, b, v.Image, mode)
	backendCallDuration.WithLabelValues(b.Name()).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		backendCallsTotal.WithLabelValues(b.Name(), "timeout").Inc()
		s.logger.Warn("recognition call timed out", "backend", b.Name(), "variant", v.Name, "angle", v.Angle, "mode", mode)
		return ""
	case err != nil:
		backendCallsTotal.WithLabelValues(b.Name(), "error").Inc()
		s.logger.Warn("recognition call failed", "backend", b.Name(), "variant", v.Name, "mode", mode, "error", err)
		return ""
	case strings.TrimSpace(text) == "":
		backendCallsTotal.WithLabelValues(b.Name(), "empty").Inc()
		return ""
	default:
		backendCallsTotal.WithLabelValues(b.Name(), "text").Inc()
		return text
	}
}
