// Package service keeps an index resident and answers concurrent similarity
// queries while rebuilds replace it.
//
// A published store is never mutated. Queries load the current snapshot once
// and score against it without locking; installs publish a new snapshot with
// one atomic pointer store, so a query sees either the old index or the new
// one, never a mix. Installs and reindexes are serialized by a mutex that
// queries never take.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"

	"github.com/viant/imgsim/builder"
	"github.com/viant/imgsim/embed"
	"github.com/viant/imgsim/index"
	"github.com/viant/imgsim/index/bruteforce"
	"github.com/viant/imgsim/journal"
)

// ErrNotReady is returned by queries issued before any store is installed.
var ErrNotReady = errors.New("service: index not ready")

// Recorder persists build outcomes.
type Recorder interface {
	Record(ctx context.Context, rec journal.Record) error
}

// Status is a point-in-time view of the service.
type Status struct {
	State     State  `json:"state"`
	Ready     bool   `json:"ready"`
	IndexSize int    `json:"index_size"`
	Dimension int    `json:"dimension"`
	Provider  string `json:"provider,omitempty"`
	BuildID   string `json:"build_id,omitempty"`
}

// Service owns the current index snapshot.
type Service struct {
	snapshot atomic.Pointer[index.Store]
	state    atomic.Int32
	rebuild  sync.Mutex

	scorer   index.Scorer
	minScore float64
	filter   bool
	provider embed.Provider
	recorder Recorder
	workers  int
	logger   *slog.Logger
}

// New creates a service in the Uninitialized state.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		scorer:  bruteforce.New(),
		workers: 4,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := index.FilterMinScore(nil, s.minScore); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the store persisted under dir and installs it. On failure the
// service moves to Failed unless a store is already serving; Load may be
// retried.
func (s *Service) Load(dir string) error {
	s.rebuild.Lock()
	defer s.rebuild.Unlock()

	prev := s.State()
	s.setState(Loading)
	store, err := index.Load(dir)
	if err == nil {
		err = s.install(store)
	}
	if err != nil {
		s.fail(prev)
		s.logger.Error("index load failed", "dir", dir, "error", err)
		return err
	}
	s.logger.Info("index loaded", "dir", dir, "rows", store.Len(), "dim", store.Dim(), "provider", store.Meta().Provider)
	return nil
}

// Install validates store and makes it the serving snapshot. On failure the
// previous snapshot keeps serving and the state is restored.
func (s *Service) Install(store *index.Store) error {
	s.rebuild.Lock()
	defer s.rebuild.Unlock()

	prev := s.State()
	s.setState(Loading)
	if err := s.install(store); err != nil {
		s.restore(prev)
		return err
	}
	return nil
}

// install must be called with the rebuild lock held.
func (s *Service) install(store *index.Store) error {
	report := index.Validate(store)
	if err := report.Err(); err != nil {
		return err
	}
	for _, w := range report.Warnings() {
		s.logger.Warn("index warning", "warning", w)
	}
	if err := s.checkProvider(store); err != nil {
		return err
	}
	s.snapshot.Store(store)
	s.setState(Ready)
	return nil
}

func (s *Service) checkProvider(store *index.Store) error {
	if s.provider == nil {
		return nil
	}
	got := store.Meta().Provider
	if got != "" && got != s.provider.ID() {
		return pkgerrors.Wrapf(index.ErrProviderMismatch, "index built by %q, service embeds with %q", got, s.provider.ID())
	}
	return nil
}

// restore returns to prev after a failed install, keeping any serving
// snapshot.
func (s *Service) restore(prev State) {
	if prev == Loading {
		prev = Uninitialized
	}
	s.setState(prev)
}

// fail records a failed load. A service already serving stays Ready.
func (s *Service) fail(prev State) {
	if s.snapshot.Load() != nil && prev == Ready {
		s.setState(Ready)
		return
	}
	s.setState(Failed)
}

// Search returns the top k matches for query from the current snapshot,
// dropping results under the configured minimum score.
func (s *Service) Search(query []float32, k int) ([]index.Result, error) {
	store := s.snapshot.Load()
	if store == nil {
		return nil, ErrNotReady
	}
	results, err := s.scorer.Search(store, query, k)
	if err != nil {
		return nil, err
	}
	if !s.filter {
		return results, nil
	}
	return index.FilterMinScore(results, s.minScore)
}

// SearchImage embeds an encoded image with the configured provider and
// searches for it.
func (s *Service) SearchImage(ctx context.Context, image []byte, k int) ([]index.Result, error) {
	if s.snapshot.Load() == nil {
		return nil, ErrNotReady
	}
	if s.provider == nil {
		return nil, pkgerrors.Wrap(embed.ErrEmbedding, "no embedding provider configured")
	}
	query, err := s.provider.Embed(ctx, image)
	if err != nil {
		return nil, err
	}
	return s.Search(query, k)
}

// Status reports the current state and snapshot shape.
func (s *Service) Status() Status {
	st := Status{State: s.State()}
	if store := s.snapshot.Load(); store != nil {
		meta := store.Meta()
		st.Ready = true
		st.IndexSize = store.Len()
		st.Dimension = store.Dim()
		st.Provider = meta.Provider
		st.BuildID = meta.BuildID
	}
	return st
}

// State returns the lifecycle state.
func (s *Service) State() State { return State(s.state.Load()) }

func (s *Service) setState(st State) { s.state.Store(int32(st)) }

// Reindex rebuilds the index from dataset, persists it under dir and installs
// it. It blocks while another rebuild runs. When the build, save or install
// fails the previous snapshot keeps serving.
func (s *Service) Reindex(ctx context.Context, dataset, dir string) (*builder.Report, error) {
	s.rebuild.Lock()
	defer s.rebuild.Unlock()
	return s.reindex(ctx, dataset, dir)
}

func (s *Service) reindex(ctx context.Context, dataset, dir string) (report *builder.Report, err error) {
	if s.provider == nil {
		return nil, pkgerrors.Wrap(embed.ErrEmbedding, "no embedding provider configured")
	}
	prev := s.State()
	s.setState(Loading)
	defer func() {
		if err != nil {
			s.restore(prev)
		}
		if report != nil {
			s.record(ctx, journal.Record{Report: report, Dataset: dataset, IndexDir: dir, Err: err})
		}
	}()

	paths, err := builder.Scan(dataset)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reindex started", "dataset", dataset, "images", len(paths))
	store, report, err := builder.Build(ctx, dataset, paths, s.provider,
		builder.WithWorkers(s.workers), builder.WithLogger(s.logger))
	if err != nil {
		return report, err
	}
	if err = index.Save(store, dir); err != nil {
		return report, err
	}
	if err = s.install(store); err != nil {
		return report, err
	}
	s.logger.Info("reindex finished", "build", report.BuildID, "rows", store.Len(), "skipped", len(report.Skipped))
	return report, nil
}

func (s *Service) record(ctx context.Context, rec journal.Record) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("failed to journal build", "build", rec.Report.BuildID, "error", err)
	}
}
