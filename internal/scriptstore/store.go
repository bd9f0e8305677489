// Package scriptstore keeps compiled scripts on disk, one source file and
// one JSON metadata sidecar per script.
package scriptstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/dgnsrekt/har2grinder/internal/grinder"
	"github.com/dgnsrekt/har2grinder/internal/storage"
	"github.com/dgnsrekt/har2grinder/internal/types"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

const sourceExt = ".py"

// ScriptMeta describes a stored script.
type ScriptMeta struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	CreatedAt         time.Time     `json:"created_at"`
	SizeBytes         int           `json:"size_bytes"`
	SHA256            string        `json:"sha256"`
	ExcludedDomains   []string      `json:"excluded_domains"`
	SleepBetweenPages int           `json:"sleep_between_pages"`
	FirstPageNumber   int           `json:"first_page_number"`
	Stats             grinder.Stats `json:"stats"`
}

// Store manages script files on disk.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("script store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) validateID(id string) error {
	if !uuidRe.MatchString(id) {
		return types.NewError(types.CodeValidation, fmt.Sprintf("invalid script id: %q", id), nil)
	}
	return nil
}

func (s *Store) sourcePath(id string) string { return filepath.Join(s.dir, id+sourceExt) }

func (s *Store) metaPath(id string) string { return filepath.Join(s.dir, id+".json") }

// Save writes both the script source and its metadata sidecar.
func (s *Store) Save(meta ScriptMeta, source []byte) error {
	if err := s.validateID(meta.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	srcPath := s.sourcePath(meta.ID)
	if err := storage.WriteFileAtomic(srcPath, source); err != nil {
		return fmt.Errorf("script store: write source: %w", err)
	}

	data, err := json.Marshal(meta, jsontext.WithIndent("  "))
	if err != nil {
		_ = os.Remove(srcPath)
		return fmt.Errorf("script store: marshal meta: %w", err)
	}
	if err := storage.WriteFileAtomic(s.metaPath(meta.ID), data); err != nil {
		_ = os.Remove(srcPath)
		return fmt.Errorf("script store: write meta: %w", err)
	}
	return nil
}

// Get reads script metadata by ID.
func (s *Store) Get(id string) (ScriptMeta, error) {
	if err := s.validateID(id); err != nil {
		return ScriptMeta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readMeta(s.metaPath(id), id)
}

func (s *Store) readMeta(path, id string) (ScriptMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ScriptMeta{}, types.NewError(types.CodeScriptNotFound, "script not found: "+id, nil)
		}
		return ScriptMeta{}, fmt.Errorf("script store: read meta: %w", err)
	}
	var meta ScriptMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return ScriptMeta{}, fmt.Errorf("script store: unmarshal meta: %w", err)
	}
	return meta, nil
}

// List returns all scripts sorted by creation time (newest first).
func (s *Store) List() ([]ScriptMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("script store: glob: %w", err)
	}

	metas := make([]ScriptMeta, 0, len(matches))
	for _, path := range matches {
		meta, err := s.readMeta(path, filepath.Base(path))
		if err != nil {
			slog.Debug("skipping unreadable script metadata", "path", path, "error", err)
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// ReadSource returns the script text.
func (s *Store) ReadSource(id string) ([]byte, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.sourcePath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.NewError(types.CodeScriptNotFound, "script source not found: "+id, nil)
		}
		return nil, fmt.Errorf("script store: read source: %w", err)
	}
	return data, nil
}

// Delete removes both the source and metadata files.
func (s *Store) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.sourcePath(id)); err != nil {
		slog.Debug("script source cleanup failed", "id", id, "error", err)
	}
	if err := os.Remove(s.metaPath(id)); err != nil {
		return fmt.Errorf("script store: remove meta: %w", err)
	}
	return nil
}
