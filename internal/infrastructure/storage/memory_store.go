package storage

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"plant-monitor/internal/domain/port"
)

// MemoryStore in-memory дерево с семантикой Realtime Database:
// значения хранятся как JSON-дерево, nil и пустые объекты удаляют узел.
type MemoryStore struct {
	mu   sync.RWMutex
	root map[string]any
}

// NewMemoryStore создаёт пустое хранилище
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{root: make(map[string]any)}
}

// NewMemoryStoreFromJSON создаёт хранилище из JSON-выгрузки базы
func NewMemoryStoreFromJSON(r io.Reader) (*MemoryStore, error) {
	var root map[string]any
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, errors.Wrap(err, "decode seed")
	}
	if root == nil {
		root = make(map[string]any)
	}
	return &MemoryStore{root: root}, nil
}

// Get читает поддерево по пути в dest
func (s *MemoryStore) Get(ctx context.Context, path string, dest any) error {
	s.mu.RLock()
	node, ok := lookup(s.root, splitPath(path))
	var data []byte
	var err error
	if ok {
		data, err = json.Marshal(node)
	}
	s.mu.RUnlock()

	if !ok {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "encode %q", path)
	}
	return errors.Wrapf(json.Unmarshal(data, dest), "decode %q", path)
}

// Set заменяет поддерево по пути
func (s *MemoryStore) Set(ctx context.Context, path string, value any) error {
	v, err := normalize(value)
	if err != nil {
		return errors.Wrapf(err, "set %q", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(splitPath(path), v)
	return nil
}

// Update сливает поля с узлом; ключ поля может быть составным путём
func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]any) error {
	normalized := make(map[string]any, len(fields))
	for k, value := range fields {
		v, err := normalize(value)
		if err != nil {
			return errors.Wrapf(err, "update %q field %q", path, k)
		}
		normalized[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	base := splitPath(path)
	for k, v := range normalized {
		s.put(append(append([]string{}, base...), splitPath(k)...), v)
	}
	return nil
}

// Snapshot возвращает копию поддерева (для тестов и отладки)
func (s *MemoryStore) Snapshot(path string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := lookup(s.root, splitPath(path))
	if !ok {
		return nil
	}
	v, _ := normalize(node)
	return v
}

func (s *MemoryStore) put(keys []string, value any) {
	if len(keys) == 0 {
		if m, ok := value.(map[string]any); ok {
			s.root = m
		} else {
			s.root = make(map[string]any)
		}
		return
	}

	if isEmpty(value) {
		remove(s.root, keys)
		return
	}

	node := s.root
	for _, k := range keys[:len(keys)-1] {
		child, ok := node[k].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[k] = child
		}
		node = child
	}
	node[keys[len(keys)-1]] = value
}

// remove удаляет узел и опустевших родителей
func remove(node map[string]any, keys []string) {
	if len(keys) == 1 {
		delete(node, keys[0])
		return
	}
	child, ok := node[keys[0]].(map[string]any)
	if !ok {
		return
	}
	remove(child, keys[1:])
	if len(child) == 0 {
		delete(node, keys[0])
	}
}

func lookup(root map[string]any, keys []string) (any, bool) {
	var node any = root
	for _, k := range keys {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

func splitPath(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalize приводит значение к виду json.Unmarshal в any
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	m, ok := v.(map[string]any)
	return ok && len(m) == 0
}

var _ port.Store = (*MemoryStore)(nil)
