package storage

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// SaveResult is returned by Backend.SaveFile.
type SaveResult struct {
	BytesWritten int64
	IsNew        bool
	Meta         FileMeta
}

// OpenResult is returned by Backend.OpenFile. Exactly one of Body or
// Children is populated, matching Meta.Kind.
type OpenResult struct {
	Meta     FileMeta
	Body     io.ReadCloser      // set when Meta.Kind == KindFile
	Children <-chan ChildResult // set when Meta.Kind == KindDirectory
}

// ChildResult is one entry in a directory stream.
type ChildResult struct {
	Meta FileMeta
	Err  error
}

// Backend is the uniform contract implemented by the local filesystem and S3
// backends. It addresses objects by (repository UUID, storage
// path), where storage path is a "/"-joined sequence of non-empty UTF-8
// components.
type Backend interface {
	// SaveFile writes bytes, creating parent directories as needed,
	// computes the sidecar hashes, and persists the sidecar atomically
	// with the object.
	SaveFile(ctx context.Context, repo uuid.UUID, path string, content io.Reader) (SaveResult, error)

	// DeleteFile removes an object and its sidecar. existed reports
	// whether the object was present beforehand.
	DeleteFile(ctx context.Context, repo uuid.UUID, path string) (existed bool, err error)

	// OpenFile yields a File (reader + meta) or a Directory (child stream
	// + meta), or ErrNotFound.
	OpenFile(ctx context.Context, repo uuid.UUID, path string) (*OpenResult, error)

	// StreamDirectory lists the immediate children of path, ordered by
	// backend discovery, filtering sidecar entries. The returned channel
	// is finite and closes when exhausted or on error.
	StreamDirectory(ctx context.Context, repo uuid.UUID, path string) (<-chan ChildResult, error)

	// GetFileInformation returns meta only, without reading the body.
	GetFileInformation(ctx context.Context, repo uuid.UUID, path string) (*FileMeta, error)

	// FileExists is a cheap existence probe.
	FileExists(ctx context.Context, repo uuid.UUID, path string) (bool, error)

	// PutRepositoryMeta/GetRepositoryMeta persist a typed JSON sidecar at
	// the repository root, used for handler bootstrap state.
	PutRepositoryMeta(ctx context.Context, repo uuid.UUID, value any) error
	GetRepositoryMeta(ctx context.Context, repo uuid.UUID, dest any) error

	// ValidateConfigChange probes the backend with a candidate config
	// before it is persisted against a Storage row (e.g. bucket
	// reachability, root writability).
	ValidateConfigChange(ctx context.Context, candidate Config) error

	// Unload flushes and releases any held resources (file handles,
	// client connections).
	Unload(ctx context.Context) error
}
