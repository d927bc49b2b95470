package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// LocalBackend stores objects under <root>/<repository-uuid>/<path>, with a
// JSON sidecar file per stored object carrying its metadata rather than one
// module.json per entity.
type LocalBackend struct {
	root string
}

var _ Backend = (*LocalBackend)(nil)

// NewLocalBackend creates a backend rooted at root, creating it if absent.
func NewLocalBackend(root string) (*LocalBackend, error) {
	if root == "" {
		return nil, fmt.Errorf("local backend: root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("local backend: create root: %w", err)
	}
	return &LocalBackend{root: root}, nil
}

func (b *LocalBackend) repoRoot(repo uuid.UUID) string {
	return filepath.Join(b.root, repo.String())
}

func (b *LocalBackend) objectPath(repo uuid.UUID, path string) string {
	components := Components(path)
	parts := append([]string{b.repoRoot(repo)}, components...)
	return filepath.Join(parts...)
}

func (b *LocalBackend) sidecarPath(repo uuid.UUID, path string) string {
	dir := filepath.Dir(b.objectPath(repo, path))
	components := Components(path)
	name := "."
	if len(components) > 0 {
		name = components[len(components)-1]
	}
	return filepath.Join(dir, sidecarName(name))
}

func (b *LocalBackend) SaveFile(ctx context.Context, repo uuid.UUID, path string, content io.Reader) (SaveResult, error) {
	if err := ValidatePath(repo.String(), path); err != nil {
		return SaveResult{}, err
	}
	target := b.objectPath(repo, path)
	parent := filepath.Dir(target)

	if fi, err := os.Stat(parent); err == nil && !fi.IsDir() {
		return SaveResult{}, newErr(ErrParentIsFile, repo.String(), path, nil)
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		if isNotDirErr(err) {
			return SaveResult{}, newErr(ErrParentIsFile, repo.String(), path, err)
		}
		return SaveResult{}, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}

	data, hashes, err := hashAndBuffer(content)
	if err != nil {
		return SaveResult{}, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}

	_, statErr := os.Stat(target)
	isNew := errors.Is(statErr, os.ErrNotExist)
	if statErr != nil && !isNew {
		return SaveResult{}, newErr(ErrBackendUnavailable, repo.String(), path, statErr)
	}
	if fi, err := os.Stat(target); err == nil && fi.IsDir() {
		return SaveResult{}, newErr(ErrExpectedFile, repo.String(), path, nil)
	}

	// Create-then-rename to avoid torn writes under concurrent save_file
	// calls for the same path; the last rename wins (linearizability).
	tmp := target + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return SaveResult{}, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return SaveResult{}, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}

	now := time.Now().UTC()
	meta := FileMeta{
		Name:       filepath.Base(target),
		Kind:       KindFile,
		SizeBytes:  int64(len(data)),
		MimeType:   mimeFromExt(target),
		Hashes:     hashes,
		ModifiedAt: now,
	}
	if existing, err := b.readSidecar(repo, path); err == nil {
		meta.CreatedAt = existing.CreatedAt
	} else {
		meta.CreatedAt = now
	}
	if err := b.writeSidecar(repo, path, meta); err != nil {
		return SaveResult{}, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}

	return SaveResult{BytesWritten: int64(len(data)), IsNew: isNew, Meta: meta}, nil
}

func (b *LocalBackend) DeleteFile(ctx context.Context, repo uuid.UUID, path string) (bool, error) {
	if err := ValidatePath(repo.String(), path); err != nil {
		return false, err
	}
	target := b.objectPath(repo, path)
	err := os.Remove(target)
	existed := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}
	os.Remove(b.sidecarPath(repo, path))
	return existed, nil
}

func (b *LocalBackend) OpenFile(ctx context.Context, repo uuid.UUID, path string) (*OpenResult, error) {
	if err := ValidatePath(repo.String(), path); err != nil {
		return nil, err
	}
	target := b.objectPath(repo, path)
	fi, err := os.Stat(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, newErr(ErrNotFound, repo.String(), path, nil)
	}
	if err != nil {
		return nil, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}

	if fi.IsDir() {
		meta := FileMeta{Name: fi.Name(), Kind: KindDirectory, ModifiedAt: fi.ModTime()}
		entries, _ := os.ReadDir(target)
		count := 0
		for _, e := range entries {
			if !isSidecar(e.Name()) {
				count++
			}
		}
		meta.ChildCount = count
		children, err := b.StreamDirectory(ctx, repo, path)
		if err != nil {
			return nil, err
		}
		return &OpenResult{Meta: meta, Children: children}, nil
	}

	f, err := os.Open(target)
	if err != nil {
		return nil, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}
	meta, err := b.readSidecar(repo, path)
	if err != nil {
		meta = FileMeta{Name: fi.Name(), Kind: KindFile, SizeBytes: fi.Size(), ModifiedAt: fi.ModTime(), CreatedAt: fi.ModTime()}
	}
	return &OpenResult{Meta: meta, Body: f}, nil
}

func (b *LocalBackend) StreamDirectory(ctx context.Context, repo uuid.UUID, path string) (<-chan ChildResult, error) {
	if err := ValidatePath(repo.String(), path); err != nil {
		return nil, err
	}
	dir := b.objectPath(repo, path)
	fi, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, newErr(ErrNotFound, repo.String(), path, nil)
	}
	if err != nil {
		return nil, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}
	if !fi.IsDir() {
		return nil, newErr(ErrExpectedDirectory, repo.String(), path, nil)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	out := make(chan ChildResult, len(entries))
	go func() {
		defer close(out)
		for _, e := range entries {
			name := e.Name()
			if isSidecar(name) {
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			childPath := join(path, name)
			info, err := e.Info()
			if err != nil {
				out <- ChildResult{Err: err}
				continue
			}
			kind := KindFile
			if info.IsDir() {
				kind = KindDirectory
			}
			meta := FileMeta{Name: name, Kind: kind, SizeBytes: info.Size(), ModifiedAt: info.ModTime()}
			if kind == KindFile {
				if sc, err := b.readSidecar(repo, childPath); err == nil {
					meta = sc
				}
			}
			out <- ChildResult{Meta: meta}
		}
	}()
	return out, nil
}

func (b *LocalBackend) GetFileInformation(ctx context.Context, repo uuid.UUID, path string) (*FileMeta, error) {
	res, err := b.OpenFile(ctx, repo, path)
	if err != nil {
		return nil, err
	}
	if res.Body != nil {
		res.Body.Close()
	}
	meta := res.Meta
	return &meta, nil
}

func (b *LocalBackend) FileExists(ctx context.Context, repo uuid.UUID, path string) (bool, error) {
	if err := ValidatePath(repo.String(), path); err != nil {
		return false, err
	}
	_, err := os.Stat(b.objectPath(repo, path))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, newErr(ErrBackendUnavailable, repo.String(), path, err)
	}
	return true, nil
}

func (b *LocalBackend) PutRepositoryMeta(ctx context.Context, repo uuid.UUID, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode repository meta: %w", err)
	}
	root := b.repoRoot(repo)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return newErr(ErrBackendUnavailable, repo.String(), "", err)
	}
	return os.WriteFile(filepath.Join(root, "repository"+sidecarSuffix), data, 0o644)
}

func (b *LocalBackend) GetRepositoryMeta(ctx context.Context, repo uuid.UUID, dest any) error {
	data, err := os.ReadFile(filepath.Join(b.repoRoot(repo), "repository"+sidecarSuffix))
	if errors.Is(err, os.ErrNotExist) {
		return newErr(ErrNotFound, repo.String(), "", nil)
	}
	if err != nil {
		return newErr(ErrBackendUnavailable, repo.String(), "", err)
	}
	return json.Unmarshal(data, dest)
}

func (b *LocalBackend) ValidateConfigChange(ctx context.Context, candidate Config) error {
	if candidate.Kind != KindLocal {
		return fmt.Errorf("local backend: candidate config is not kind=local")
	}
	if err := candidate.Local.Validate(); err != nil {
		return err
	}
	return os.MkdirAll(candidate.Local.Path, 0o755)
}

func (b *LocalBackend) Unload(ctx context.Context) error { return nil }

func (b *LocalBackend) readSidecar(repo uuid.UUID, path string) (FileMeta, error) {
	data, err := os.ReadFile(b.sidecarPath(repo, path))
	if err != nil {
		return FileMeta{}, err
	}
	var meta FileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return FileMeta{}, err
	}
	return meta, nil
}

func (b *LocalBackend) writeSidecar(repo uuid.UUID, path string, meta FileMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(b.sidecarPath(repo, path), data, 0o644)
}

func mimeFromExt(path string) string {
	t := mime.TypeByExtension(filepath.Ext(path))
	if t == "" {
		return "application/octet-stream"
	}
	return t
}

func isNotDirErr(err error) bool {
	return errors.Is(err, syscall.ENOTDIR)
}
