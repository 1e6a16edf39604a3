package service

import (
	"log/slog"

	"github.com/viant/imgsim/embed"
	"github.com/viant/imgsim/index"
)

// Option configures a Service.
type Option func(*Service)

// WithScorer replaces the exact scorer.
func WithScorer(scorer index.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithMinScore drops query results scoring below min. It must lie in [-1, 1].
func WithMinScore(min float64) Option {
	return func(s *Service) { s.minScore, s.filter = min, true }
}

// WithProvider sets the embedding provider used for image queries and
// rebuilds. Stores built by a different provider are refused.
func WithProvider(p embed.Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithRecorder journals every reindex.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithWorkers bounds concurrent embedding calls during reindex.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
