// Package upload is the boundary to the raster upload collaborator: it
// enforces the extension allowlist and size cap, stores the byte stream
// and hands back an opaque locator the decoder consumes.
//
// The allowlist is owned here, at the boundary. UI layers advertising a
// different list (historically the cloud-optimized .cog extension was
// accepted client-side only) reconcile against this one; the decoder
// itself never looks at file extensions, only at structure.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrExtensionNotAllowed rejects files outside the allowlist.
	ErrExtensionNotAllowed = errors.New("upload: extension not allowed")
	// ErrTooLarge rejects streams over the configured size cap.
	ErrTooLarge = errors.New("upload: stream exceeds maximum size")
)

// Locator is an opaque reference to a stored raster object.
type Locator string

// Store accepts raster byte streams and serves them back by locator.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) (Locator, error)
	Open(ctx context.Context, loc Locator) (io.ReadCloser, error)
}

// Options configures admission.
type Options struct {
	// AllowedExtensions are matched case-insensitively, dot included.
	AllowedExtensions []string
	// MaxSize is the admission cap in bytes.
	MaxSize int64
}

// DefaultOptions is the superset allowlist: plain and geo TIFF plus the
// cloud-optimized extension.
func DefaultOptions() Options {
	return Options{
		AllowedExtensions: []string{".tif", ".tiff", ".gtiff", ".cog"},
		MaxSize:           256 << 20,
	}
}

// LocalStore keeps uploads in a directory on the local filesystem.
type LocalStore struct {
	dir  string
	opts Options
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir string, opts Options) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &LocalStore{dir: dir, opts: opts}, nil
}

// Put admits a stream under the allowlist and size cap. On success the
// object is stored under a fresh name and its locator returned.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader) (Locator, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !s.allowed(ext) {
		return "", fmt.Errorf("%q: %w", ext, ErrExtensionNotAllowed)
	}

	key := uuid.NewString() + ext
	path := filepath.Join(s.dir, key)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating object: %w", err)
	}
	defer f.Close()

	// read one byte past the cap to distinguish at-limit from over-limit
	n, err := io.Copy(f, io.LimitReader(r, s.opts.MaxSize+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("storing object: %w", err)
	}
	if n > s.opts.MaxSize {
		os.Remove(path)
		return "", fmt.Errorf("%d bytes over %d cap: %w", n, s.opts.MaxSize, ErrTooLarge)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(path)
		return "", err
	}

	slog.Debug("stored upload",
		slog.String("name", name),
		slog.String("locator", key),
		slog.Int64("bytes", n))
	return Locator(key), nil
}

// Open serves a stored object back for decoding.
func (s *LocalStore) Open(_ context.Context, loc Locator) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(string(loc))))
	if err != nil {
		return nil, fmt.Errorf("opening object %s: %w", loc, err)
	}
	return f, nil
}

func (s *LocalStore) allowed(ext string) bool {
	for _, a := range s.opts.AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}
