package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store is the authoritative in-memory task collection, persisted as a JSON
// file under the user's config directory. Mutations mark the store dirty;
// Save is a no-op until something changed.
type Store struct {
	Path  string
	tasks []Task
	mu    sync.RWMutex
	dirty bool
}

const storeFile = "tasks.json"

// NewStore opens the store at the default path, loading the file if present.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(filepath.Join(home, ".config", "cue", storeFile))
}

// NewStoreAt opens the store at an explicit path.
func NewStoreAt(path string) (*Store, error) {
	s := &Store{Path: path}
	if _, err := os.Stat(path); err == nil {
		if err := s.Load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Load() error {
	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	if err := json.NewDecoder(f).Decode(&s.tasks); err != nil {
		return fmt.Errorf("failed to decode task file %s: %w", s.Path, err)
	}
	return nil
}

func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.tasks); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Tasks returns a copy of the collection.
func (s *Store) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Replace swaps in a new collection, e.g. the result of a reconcile pass.
func (s *Store) Replace(tasks []Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
	s.dirty = true
}

// Add appends a task to the collection.
func (s *Store) Add(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
	s.dirty = true
}

// Update overwrites the task with the same id, refreshing updated_at.
// It returns false if no task matches.
func (s *Store) Update(t Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == t.ID {
			t.CreatedAt = s.tasks[i].CreatedAt
			t.UpdatedAt = time.Now()
			s.tasks[i] = t
			s.dirty = true
			return true
		}
	}
	return false
}

// Delete removes the task with the given id. Removal is immediate and final.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			s.dirty = true
			return true
		}
	}
	return false
}

// Toggle flips the completed flag on the task with the given id.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].Completed = !s.tasks[i].Completed
			s.tasks[i].UpdatedAt = time.Now()
			s.dirty = true
			return true
		}
	}
	return false
}

// ExportToFile writes the collection as a pretty-printed JSON array, one
// record per task, ISO-formatted dates. The file shape is the Task entity
// itself, so an export can be imported back losslessly.
func (s *Store) ExportToFile(path string) error {
	tasks := s.Tasks()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(tasks); err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	return nil
}

// ImportFromFile parses a JSON task array and validates every record before
// anything is applied: one bad record rejects the whole import and leaves
// the collection untouched.
func (s *Store) ImportFromFile(path string) ([]Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	var tasks []Task
	if err := json.NewDecoder(f).Decode(&tasks); err != nil {
		return nil, fmt.Errorf("import file is not a valid task array: %w", err)
	}

	seen := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		if err := validateRecord(t); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("record %d: duplicate id %s", i, t.ID)
		}
		seen[t.ID] = true
	}

	s.mu.Lock()
	s.tasks = tasks
	s.dirty = true
	s.mu.Unlock()
	return tasks, nil
}

func validateRecord(t Task) error {
	if t.ID == "" {
		return fmt.Errorf("missing id")
	}
	if t.Text == "" {
		return fmt.Errorf("missing text")
	}
	if t.Date.IsZero() {
		return fmt.Errorf("missing date")
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("unknown priority %q", t.Priority)
	}
	if !ValidScheduledTime(t.ScheduledTime) {
		return fmt.Errorf("invalid scheduled_time %q", t.ScheduledTime)
	}
	if !t.CreatedAt.IsZero() && !t.UpdatedAt.IsZero() && t.UpdatedAt.Before(t.CreatedAt) {
		return fmt.Errorf("updated_at precedes created_at")
	}
	return nil
}
