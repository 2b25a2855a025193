// Package services keeps track of live environments created through any
// registered backend.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/ports"
)

var (
	ErrUnknownBackend     = errors.New("backend not registered")
	ErrEnvironmentMissing = errors.New("environment not found")
)

// Entry is a live environment and the kind it was created with.
type Entry struct {
	ID   string
	Kind domain.BackendKind
	Env  ports.TargetEnvironment
}

// EnvironmentService builds environments by backend kind and keeps them
// until they are shut down.
type EnvironmentService struct {
	logger *slog.Logger

	mu           sync.RWMutex
	constructors map[domain.BackendKind]ports.EnvironmentConstructor
	live         map[string]Entry
}

func NewEnvironmentService(logger *slog.Logger) *EnvironmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnvironmentService{
		logger:       logger,
		constructors: make(map[domain.BackendKind]ports.EnvironmentConstructor),
		live:         make(map[string]Entry),
	}
}

// Register makes kind available. A later registration replaces an earlier one.
func (s *EnvironmentService) Register(kind domain.BackendKind, ctor ports.EnvironmentConstructor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constructors[kind] = ctor
}

// Kinds lists the registered backends in sorted order.
func (s *EnvironmentService) Kinds() []domain.BackendKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kinds := make([]domain.BackendKind, 0, len(s.constructors))
	for k := range s.constructors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Create constructs an environment for spec and returns its ID.
func (s *EnvironmentService) Create(ctx context.Context, spec domain.EnvironmentSpec) (Entry, error) {
	s.mu.RLock()
	ctor, ok := s.constructors[spec.Kind]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, fmt.Errorf("%q: %w", spec.Kind, ErrUnknownBackend)
	}

	env, err := ctor(ctx, spec)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{ID: uuid.NewString(), Kind: spec.Kind, Env: env}

	s.mu.Lock()
	s.live[entry.ID] = entry
	s.mu.Unlock()
	s.logger.Info("environment created", "id", entry.ID, "kind", spec.Kind)
	return entry, nil
}

func (s *EnvironmentService) Get(id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.live[id]
	if !ok {
		return Entry{}, fmt.Errorf("%s: %w", id, ErrEnvironmentMissing)
	}
	return entry, nil
}

// List returns every live environment ordered by ID.
func (s *EnvironmentService) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.live))
	for _, e := range s.live {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Run launches cmd in environment id and waits for it to exit.
func (s *EnvironmentService) Run(ctx context.Context, id string, cmd domain.TargetedCommandLine, progress ports.ProgressIndicator) (pid, exitCode int, err error) {
	entry, err := s.Get(id)
	if err != nil {
		return 0, 0, err
	}
	if progress == nil {
		progress = ports.NopProgress{}
	}
	proc, err := entry.Env.CreateProcess(ctx, cmd, progress)
	if err != nil {
		return 0, 0, err
	}
	exitCode, err = proc.Wait()
	if err != nil {
		return proc.Pid(), exitCode, fmt.Errorf("waiting for process %d: %w", proc.Pid(), err)
	}
	s.logger.Debug("process exited", "id", id, "pid", proc.Pid(), "exit_code", exitCode)
	return proc.Pid(), exitCode, nil
}

// Shutdown shuts environment id down and forgets it. An environment whose
// shutdown fails stays tracked so the call can be retried.
func (s *EnvironmentService) Shutdown(ctx context.Context, id string) error {
	entry, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := entry.Env.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down %s: %w", id, err)
	}

	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
	s.logger.Info("environment shut down", "id", id, "kind", entry.Kind)
	return nil
}

// ShutdownAll shuts every live environment down, returning the joined errors.
func (s *EnvironmentService) ShutdownAll(ctx context.Context) error {
	var errs []error
	for _, e := range s.List() {
		if err := s.Shutdown(ctx, e.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
