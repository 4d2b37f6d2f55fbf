// Package blob stores generated audio objects on the local filesystem and
// resolves their public URLs.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/llehouerou/castdeck/internal/player"
)

// AudioRoute is the public path prefix objects are served under.
const AudioRoute = "/api/audio/"

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,199}$`)

// Object describes a stored object.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store is an object store for audio.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (url string, err error)
	Open(ctx context.Context, key string) (io.ReadSeekCloser, Object, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// FileStore keeps objects as files in a single directory.
type FileStore struct {
	root    string
	baseURL string
}

// NewFileStore creates the root directory if needed. baseURL is the public
// origin, e.g. http://localhost:8080.
func NewFileStore(root, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// ValidateKey rejects keys that could escape the store directory.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// KeyFromURL extracts the object key from a public URL, or "".
func KeyFromURL(url string) string {
	_, key, ok := strings.Cut(url, AudioRoute)
	if !ok || ValidateKey(key) != nil {
		return ""
	}
	return key
}

// URL returns the public URL of key.
func (s *FileStore) URL(key string) string {
	return s.baseURL + AudioRoute + key
}

// Put writes data under key, replacing any existing object.
func (s *FileStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.root, key)); err != nil {
		return "", err
	}
	return s.URL(key), nil
}

// Open opens key for reading. The content type follows the key's extension.
func (s *FileStore) Open(ctx context.Context, key string) (io.ReadSeekCloser, Object, error) {
	if err := ValidateKey(key); err != nil {
		return nil, Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Object{}, err
	}

	f, err := os.Open(filepath.Join(s.root, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Object{}, ErrNotFound
	}
	if err != nil {
		return nil, Object{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Object{}, err
	}
	return f, Object{
		Key:         key,
		Size:        info.Size(),
		ContentType: player.ContentType(player.FormatFromName(key)),
		ModTime:     info.ModTime(),
	}, nil
}

// Delete removes key. Missing objects are not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Verify FileStore implements Store at compile time.
var _ Store = (*FileStore)(nil)
