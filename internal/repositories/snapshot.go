package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

// snapshotTable is an in-memory table of T persisted as a JSON array of R records.
//
// Reads share the lock; every mutation holds it exclusively through the file rewrite,
// so writes to the snapshot file are serialized.
type snapshotTable[T models.Entity, R any] struct {
	mu     sync.RWMutex
	path   string
	rows   map[string]T
	order  []string
	encode func(T) R
	decode func(R) (T, error)
	logger *log.Logger
}

func openSnapshot[T models.Entity, R any](path string, logger *log.Logger, encode func(T) R, decode func(R) (T, error)) *snapshotTable[T, R] {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	s := &snapshotTable[T, R]{
		path:   path,
		rows:   make(map[string]T),
		encode: encode,
		decode: decode,
		logger: shared.WithLogger(logger, "component", "snapshot", "path", path),
	}
	s.load()
	return s
}

// load reads the snapshot file. It never fails: problems are logged and the table starts empty.
func (s *snapshotTable[T, R]) load() {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("no snapshot file, starting empty")
		return
	}
	if err != nil {
		s.logger.Error("failed to read snapshot, starting empty", "error", err)
		return
	}

	rows, order, err := s.decodeAll(data)
	if err != nil {
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
		s.logger.Error("corrupt snapshot, starting empty", "error", err, "backup", backup)
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			s.logger.Error("failed to move corrupt snapshot aside", "error", renameErr)
		}
		return
	}

	s.rows, s.order = rows, order
	s.logger.Debug("snapshot loaded", "rows", len(order))
}

func (s *snapshotTable[T, R]) decodeAll(data []byte) (map[string]T, []string, error) {
	var records []R
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrCorruptSnapshot, err)
	}

	rows := make(map[string]T, len(records))
	order := make([]string, 0, len(records))
	for i, rec := range records {
		entity, err := s.decode(rec)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: record %d: %v", shared.ErrCorruptSnapshot, i, err)
		}
		if _, seen := rows[entity.ID()]; !seen {
			order = append(order, entity.ID())
		}
		rows[entity.ID()] = entity
	}
	return rows, order, nil
}

func (s *snapshotTable[T, R]) get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.rows[id]
	return v, ok
}

func (s *snapshotTable[T, R]) has(id string) bool {
	_, ok := s.get(id)
	return ok
}

// filter returns matching rows in insertion order. A nil match returns all rows.
func (s *snapshotTable[T, R]) filter(match func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		v := s.rows[id]
		if match == nil || match(v) {
			out = append(out, v)
		}
	}
	return out
}

func (s *snapshotTable[T, R]) put(entity T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := entity.ID()
	if _, ok := s.rows[id]; !ok {
		s.order = append(s.order, id)
	}
	s.rows[id] = entity
	return s.persistLocked()
}

// removeWhere deletes matching rows and reports how many were removed. Nothing is written when nothing matched.
func (s *snapshotTable[T, R]) removeWhere(match func(T) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.order)
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		if match(s.rows[id]) {
			delete(s.rows, id)
			return true
		}
		return false
	})

	removed := before - len(s.order)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.persistLocked()
}

// persistLocked rewrites the snapshot file through a temp file in the same directory.
func (s *snapshotTable[T, R]) persistLocked() error {
	records := make([]R, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, s.encode(s.rows[id]))
	}

	if err := writeFileAtomic(s.path, records); err != nil {
		s.logger.Error("failed to persist snapshot", "error", err)
		return fmt.Errorf("%w: %s: %v", shared.ErrPersistence, s.path, err)
	}
	return nil
}

func writeFileAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
