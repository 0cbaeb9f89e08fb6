package run

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/maauso/offervideo/internal/pipeline"
)

// ErrRunInProgress is returned when a run is requested while another one is
// still executing.
var ErrRunInProgress = errors.New("a run is already in progress")

// Pipeline executes one generation pass.
type Pipeline interface {
	Run(ctx context.Context, feeds []string) (pipeline.Summary, error)
}

// Service records runs and makes sure only one executes at a time.
type Service struct {
	repo     Repository
	pipeline Pipeline
	logger   *slog.Logger

	mu     sync.Mutex
	active string

	// bg is the parent context of runs started with Start.
	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a new Service.
func NewService(repo Repository, p Pipeline, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	bg, cancel := context.WithCancel(context.Background())
	return &Service{
		repo:     repo,
		pipeline: p,
		logger:   logger,
		bg:       bg,
		cancel:   cancel,
	}
}

// Execute runs the pipeline synchronously and returns the finished run.
// The returned error is the pipeline's error, if any; the run is recorded
// as FAILED in that case.
func (s *Service) Execute(ctx context.Context, feeds []string) (*Run, error) {
	r, err := s.begin(ctx, feeds)
	if err != nil {
		return nil, err
	}
	err = s.execute(ctx, r)
	return r.Clone(), err
}

// Start records a new run and executes it in the background. It returns the
// run in IN_QUEUE state.
func (s *Service) Start(ctx context.Context, feeds []string) (*Run, error) {
	r, err := s.begin(ctx, feeds)
	if err != nil {
		return nil, err
	}
	snapshot := r.Clone()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.execute(s.bg, r)
	}()

	return snapshot, nil
}

// Get retrieves a run by ID.
func (s *Service) Get(ctx context.Context, id string) (*Run, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns all runs, most recent first.
func (s *Service) List(ctx context.Context) ([]*Run, error) {
	return s.repo.List(ctx)
}

// Active returns the ID of the executing run, or "" when idle.
func (s *Service) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Wait blocks until all background runs have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown stops background runs from scheduling further offers and waits
// for them to finish. Offers already being encoded run to completion.
func (s *Service) Shutdown() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) begin(ctx context.Context, feeds []string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != "" {
		return nil, ErrRunInProgress
	}

	r := New(slices.Clone(feeds))
	if err := s.repo.Save(ctx, r); err != nil {
		s.logger.Error("failed to save run",
			slog.String("run_id", r.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	s.active = r.ID

	s.logger.Info("run accepted",
		slog.String("run_id", r.ID),
		slog.Any("feeds", feeds),
	)
	return r, nil
}

func (s *Service) execute(ctx context.Context, r *Run) error {
	defer s.release(r.ID)

	if err := r.Start(); err != nil {
		return err
	}
	s.save(r)

	sum, runErr := s.pipeline.Run(ctx, r.Feeds)
	if runErr != nil {
		_ = r.Fail(runErr.Error())
		s.logger.Error("run failed",
			slog.String("run_id", r.ID),
			slog.String("error", runErr.Error()),
		)
	} else {
		_ = r.Complete(sum)
		s.logger.Info("run completed",
			slog.String("run_id", r.ID),
			slog.Int("created", sum.Created),
			slog.Int("failed", sum.Failed),
		)
	}

	// The run is recorded even when the caller's context is gone.
	s.save(r)
	return runErr
}

func (s *Service) save(r *Run) {
	if err := s.repo.Save(context.Background(), r); err != nil {
		s.logger.Error("failed to save run",
			slog.String("run_id", r.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == id {
		s.active = ""
	}
}
