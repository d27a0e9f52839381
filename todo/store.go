package todo

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/petasbytes/todo-agent/internal/fsops"
)

// DefaultFile is the to-do file name used when none is configured.
const DefaultFile = "todos.json"

const fileIndent = "    "

// Store reads and rewrites the to-do file at Path.
// It holds no list state of its own; mu only serialises mutations
// made through the same Store.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *log.Logger
}

// NewStore returns a store backed by the file at path. A nil logger falls back to log.Default().
func NewStore(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// List returns the current items in insertion order. It never fails:
// a missing, blank or malformed file is treated as an empty list.
func (s *Store) List() []string {
	var items []string
	err := fsops.ReadJSON(s.path, &items)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist), errors.Is(err, fsops.ErrEmpty):
		return []string{}
	default:
		s.logger.Warn("todo file unreadable; treating as empty", "path", s.path, "err", err)
		return []string{}
	}
	if items == nil {
		items = []string{}
	}
	return items
}

// Count returns the number of items currently stored.
func (s *Store) Count() int {
	return len(s.List())
}

// Contains reports whether item is on the list, compared byte for byte.
func (s *Store) Contains(item string) bool {
	return indexOf(s.List(), item) >= 0
}

// Add appends item unless an identical entry already exists.
// The returned error is non-nil only when the list could not be written.
func (s *Store) Add(item string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.List()
	if indexOf(items, item) >= 0 {
		return Result{Status: StatusDuplicate, Item: item}, nil
	}
	items = append(items, item)
	if err := s.save(items); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusAdded, Item: item}, nil
}

// Remove deletes the first entry exactly equal to item.
// The returned error is non-nil only when the list could not be written.
func (s *Store) Remove(item string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.List()
	i := indexOf(items, item)
	if i < 0 {
		return Result{Status: StatusNotFound, Item: item}, nil
	}
	items = append(items[:i], items[i+1:]...)
	if err := s.save(items); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusRemoved, Item: item}, nil
}

func (s *Store) save(items []string) error {
	if err := fsops.WriteJSON(s.path, items, fileIndent); err != nil {
		return fmt.Errorf("save to-do list: %w", err)
	}
	return nil
}

func indexOf(items []string, item string) int {
	for i, it := range items {
		if it == item {
			return i
		}
	}
	return -1
}
