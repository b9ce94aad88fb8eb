package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/idilsaglam/grocery/internal/model"
	"github.com/idilsaglam/grocery/internal/store/memstore"
)

// JSON-backed storage. Single file, human-readable, portable.
// Every mutation rewrites the file before it becomes visible.

const DefaultFileName = "groceries.json"

// DefaultPath is groceries.json in the working directory.
func DefaultPath() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	return filepath.Join(wd, DefaultFileName), nil
}

// Open loads path (a missing file is an empty list) and returns a store that
// saves back to it on every mutation.
func Open(path string) (*memstore.Store, error) {
	items, err := Load(path)
	if err != nil {
		return nil, err
	}
	return memstore.New(
		memstore.WithItems(items),
		memstore.WithPersist(func(items []model.GroceryItem) error {
			return Save(path, items)
		}),
	), nil
}

func Load(path string) ([]model.GroceryItem, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.GroceryItem{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(b) == 0 {
		return []model.GroceryItem{}, nil
	}
	var items []model.GroceryItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("item %d (%q): missing id", i, it.Name)
		}
		if seen[it.ID] {
			return nil, fmt.Errorf("item %d (%q): duplicate id %s", i, it.Name, it.ID)
		}
		seen[it.ID] = true
	}
	return items, nil
}

// Save writes items via a temp file + rename so a crash never leaves a torn file.
func Save(path string, items []model.GroceryItem) error {
	if items == nil {
		items = []model.GroceryItem{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".groceries-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
