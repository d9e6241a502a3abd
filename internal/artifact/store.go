// Package artifact persists generated transcripts and evaluations as JSON files under a data directory,
// one file per kind and key.
package artifact

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/models"
)

var (
	ErrNotFound   = errors.NewSentinel("artifact not found")
	ErrInvalidKey = errors.NewSentinel("invalid artifact key")
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidKey reports whether key can name an artifact. Keys never contain path separators.
func ValidKey(key string) bool {
	return validKey.MatchString(key)
}

// Store keeps artifacts at <root>/<kind>/<key>.json.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) path(kind models.ArtifactKind, key string) (string, error) {
	if !ValidKey(key) {
		return "", errors.Wrap(ErrInvalidKey, "validate key", slog.String("key", key))
	}
	return filepath.Join(s.root, string(kind), key+".json"), nil
}

// Read returns the raw artifact. It returns [ErrNotFound] when no artifact has been written.
func (s *Store) Read(kind models.ArtifactKind, key string) ([]byte, error) {
	path, err := s.path(kind, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(ErrNotFound, "read artifact", slog.String("path", path))
	}
	if err != nil {
		return nil, errors.Wrap(err, "read artifact", slog.String("path", path))
	}
	return data, nil
}

// Write replaces the artifact with the indented JSON encoding of v.
//
// The document is written to a temporary file in the same directory and renamed into place, so concurrent
// readers see either the previous or the new artifact and never a partial one.
func (s *Store) Write(kind models.ArtifactKind, key string, v any) error {
	path, err := s.path(kind, key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal artifact", slog.String("path", path))
	}

	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create artifact directory", slog.String("dir", dir))
	}
	tmp, err := os.CreateTemp(dir, "."+key+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temporary artifact", slog.String("dir", dir))
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temporary artifact", slog.String("path", tmpName))
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temporary artifact", slog.String("path", tmpName))
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return errors.Wrap(err, "chmod temporary artifact", slog.String("path", tmpName))
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "rename artifact", slog.String("path", path))
	}
	return nil
}

// Remove deletes the artifact. Removing a missing artifact is not an error.
func (s *Store) Remove(kind models.ArtifactKind, key string) error {
	path, err := s.path(kind, key)
	if err != nil {
		return err
	}
	if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "remove artifact", slog.String("path", path))
	}
	return nil
}
