package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store is a directory of one JSON file per history item, named
// "<id>.json". It has no in-memory cache: every call re-reads the
// filesystem, since history is a low-volume, low-contention surface
// (a developer's own machine, not a shared service).
type Store struct {
	dir  string
	rand *rand.Rand
}

// Open ensures dir exists and returns a Store rooted at it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create store dir: %w", err)
	}
	return &Store{dir: dir, rand: rand.New(rand.NewSource(randSeed()))}, nil
}

// Append stores item under a freshly generated ID and returns it.
func (s *Store) Append(item Item) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id := s.newID()
		path := s.pathFor(id)
		if _, err := os.Stat(path); err == nil {
			continue // collision, try again
		}
		data, err := json.Marshal(item)
		if err != nil {
			return "", fmt.Errorf("history: marshal item: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", fmt.Errorf("history: write item: %w", err)
		}
		return id, nil
	}
	return "", errors.New("history: could not allocate a unique id")
}

// Get loads one item by ID. It returns (Item{}, false, nil) if no such
// item exists.
func (s *Store) Get(id string) (Item, bool, error) {
	data, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Item{}, false, nil
		}
		return Item{}, false, fmt.Errorf("history: read item: %w", err)
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return Item{}, false, fmt.Errorf("history: decode item %s: %w", id, err)
	}
	item.ID = id
	return item, true, nil
}

// List returns every stored item, ordered by ID for stable output.
func (s *Store) List() ([]Item, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("history: read store dir: %w", err)
	}
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		item, ok, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Delete removes one item. Deleting a nonexistent ID is not an error.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.pathFor(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("history: delete item: %w", err)
	}
	return nil
}

// Clear removes every stored item.
func (s *Store) Clear() error {
	items, err := s.List()
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := s.Delete(item.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) pathFor(id string) string {
	return filepath.Join(s.dir, id+".json")
}
