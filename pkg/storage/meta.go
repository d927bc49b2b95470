package storage

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"time"
)

// ObjectKind discriminates a stored entry.
type ObjectKind string

const (
	KindFile      ObjectKind = "file"
	KindDirectory ObjectKind = "directory"
)

// Hashes holds the three digests computed over an object's bytes at write
// time, per the sidecar policy.
type Hashes struct {
	SHA1   string `json:"sha1"`
	SHA256 string `json:"sha256"`
	MD5    string `json:"md5"`
}

// FileMeta is the sidecar record persisted alongside every object: hashes,
// mime, size, timestamps. For directories only Kind, ChildCount and the
// timestamps are meaningful.
type FileMeta struct {
	Name       string     `json:"name"`
	Kind       ObjectKind `json:"kind"`
	SizeBytes  int64      `json:"size_bytes"`
	MimeType   string     `json:"mime_type,omitempty"`
	Hashes     Hashes     `json:"hashes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt time.Time  `json:"modified_at"`
	ChildCount int        `json:"child_count,omitempty"`
}

func nowUTC() time.Time { return time.Now().UTC() }

// hashingWriter tees writes through sha1/sha256/md5 so a backend that cannot
// hash while streaming (S3) can still compute the sidecar hashes from an
// in-memory tee before committing the object.
type hashingWriter struct {
	sha1   hash.Hash
	sha256 hash.Hash
	md5    hash.Hash
	n      int64
}

func newHashingWriter() *hashingWriter {
	return &hashingWriter{sha1: sha1.New(), sha256: sha256.New(), md5: md5.New()}
}

func (h *hashingWriter) Write(p []byte) (int, error) {
	h.sha1.Write(p)
	h.sha256.Write(p)
	h.md5.Write(p)
	h.n += int64(len(p))
	return len(p), nil
}

func (h *hashingWriter) Hashes() Hashes {
	return Hashes{
		SHA1:   hex.EncodeToString(h.sha1.Sum(nil)),
		SHA256: hex.EncodeToString(h.sha256.Sum(nil)),
		MD5:    hex.EncodeToString(h.md5.Sum(nil)),
	}
}

// hashAndBuffer reads content fully, computing all three hashes, and returns
// the buffered bytes for backends that need to write in a second pass (S3)
// or that want hashes available before the bytes hit disk (local, via
// io.MultiWriter during the create-then-rename write).
func hashAndBuffer(content io.Reader) ([]byte, Hashes, error) {
	hw := newHashingWriter()
	data, err := io.ReadAll(io.TeeReader(content, hw))
	if err != nil {
		return nil, Hashes{}, err
	}
	return data, hw.Hashes(), nil
}
