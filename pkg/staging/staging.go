package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nitro-repo/nitro-repo/pkg/storage"
)

// ErrStageNotFound is returned for an unknown or already-resolved stage id.
var ErrStageNotFound = errors.New("staging: stage not found")

// Stage is a multi-file upload held on local disk until promoted or
// abandoned.
type Stage struct {
	ID            uuid.UUID
	RepositoryID  uuid.UUID
	CreatorUserID int64
	State         json.RawMessage
	CreatedAt     time.Time
	dir           string
}

// Manager owns every in-flight stage's directory and bookkeeping. A stage's
// authoritative existence is this in-memory map plus its directory on
// disk; nothing about staging is persisted to the catalog.
type Manager struct {
	root string

	mu     sync.Mutex
	stages map[uuid.UUID]*Stage
}

func NewManager(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("staging: creating root: %w", err)
	}
	return &Manager{root: root, stages: make(map[uuid.UUID]*Stage)}, nil
}

func (m *Manager) CreateStage(ctx context.Context, repositoryID uuid.UUID, creatorUserID int64, state json.RawMessage) (*Stage, error) {
	id := uuid.New()
	dir := filepath.Join(m.root, id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("staging: creating stage directory: %w", err)
	}
	stage := &Stage{
		ID:            id,
		RepositoryID:  repositoryID,
		CreatorUserID: creatorUserID,
		State:         state,
		CreatedAt:     time.Now().UTC(),
		dir:           dir,
	}

	m.mu.Lock()
	m.stages[id] = stage
	m.mu.Unlock()
	return stage, nil
}

// Stage returns a snapshot of a live stage's bookkeeping fields, for
// callers that need to authorize an operation against its owning
// repository before calling AddFile/ListFiles/PromoteStage/AbandonStage.
func (m *Manager) Stage(id uuid.UUID) (Stage, error) {
	stage, err := m.get(id)
	if err != nil {
		return Stage{}, err
	}
	return Stage{
		ID:            stage.ID,
		RepositoryID:  stage.RepositoryID,
		CreatorUserID: stage.CreatorUserID,
		State:         stage.State,
		CreatedAt:     stage.CreatedAt,
	}, nil
}

func (m *Manager) get(id uuid.UUID) (*Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stage, ok := m.stages[id]
	if !ok {
		return nil, ErrStageNotFound
	}
	return stage, nil
}

// AddFile buffers one file's bytes into the stage directory. name is
// validated to stay within the stage, same as an object path into storage.
func (m *Manager) AddFile(ctx context.Context, id uuid.UUID, name string, content io.Reader) error {
	stage, err := m.get(id)
	if err != nil {
		return err
	}
	if err := validateStageRelativeName(name); err != nil {
		return err
	}

	dest := filepath.Join(stage.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("staging: creating parent directories: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("staging: creating file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, content); err != nil {
		return fmt.Errorf("staging: writing file: %w", err)
	}
	return nil
}

// ListFiles returns stage-relative file paths, sorted for determinism.
func (m *Manager) ListFiles(ctx context.Context, id uuid.UUID) ([]string, error) {
	stage, err := m.get(id)
	if err != nil {
		return nil, err
	}
	var names []string
	err = filepath.Walk(stage.dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(stage.dir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("staging: listing files: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// PromoteStage moves every staged file into backend under the same
// relative path, then removes the stage. Catalog reconciliation for any
// recognized manifests is the caller's responsibility, same as a direct
// upload — promotion only moves bytes.
func (m *Manager) PromoteStage(ctx context.Context, id uuid.UUID, backend storage.Backend) error {
	stage, err := m.get(id)
	if err != nil {
		return err
	}
	names, err := m.ListFiles(ctx, id)
	if err != nil {
		return err
	}

	for _, name := range names {
		f, err := os.Open(filepath.Join(stage.dir, filepath.FromSlash(name)))
		if err != nil {
			return fmt.Errorf("staging: opening staged file %q: %w", name, err)
		}
		_, err = backend.SaveFile(ctx, stage.RepositoryID, name, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("staging: promoting %q: %w", name, err)
		}
	}

	return m.discard(id)
}

// AbandonStage discards a stage without promoting it.
func (m *Manager) AbandonStage(ctx context.Context, id uuid.UUID) error {
	if _, err := m.get(id); err != nil {
		return err
	}
	return m.discard(id)
}

func (m *Manager) discard(id uuid.UUID) error {
	m.mu.Lock()
	stage, ok := m.stages[id]
	if ok {
		delete(m.stages, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrStageNotFound
	}
	return os.RemoveAll(stage.dir)
}

// Sweep discards every stage created before now-ttl. Intended to be called
// on a schedule (cmd/nitro-repo wires this through robfig/cron/v3).
func (m *Manager) Sweep(ctx context.Context, ttl time.Duration) (swept int, err error) {
	cutoff := time.Now().UTC().Add(-ttl)

	m.mu.Lock()
	var stale []uuid.UUID
	for id, stage := range m.stages {
		if stage.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		if discardErr := m.discard(id); discardErr != nil && discardErr != ErrStageNotFound {
			err = discardErr
			continue
		}
		swept++
	}
	return swept, err
}

func validateStageRelativeName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") {
		return fmt.Errorf("staging: invalid file name %q", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("staging: invalid path segment in %q", name)
		}
	}
	return nil
}
