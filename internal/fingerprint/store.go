package fingerprint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Baseline is the pair of fingerprints recorded after an incremental task succeeded.
type Baseline struct {
	Input  Fingerprint `yaml:"input"`
	Output Fingerprint `yaml:"output"`
}

// BaselineStore keeps one baseline per task identity.
type BaselineStore interface {
	Get(id string) (Baseline, bool, error)
	Put(id string, baseline Baseline) error
}

// MemoryStore is a BaselineStore that lives for one process.
type MemoryStore struct {
	mu        sync.RWMutex
	baselines map[string]Baseline
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{baselines: make(map[string]Baseline)}
}

// Get implements BaselineStore.
func (s *MemoryStore) Get(id string) (Baseline, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.baselines[id]
	return b, ok, nil
}

// Put implements BaselineStore.
func (s *MemoryStore) Put(id string, baseline Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baselines[id] = baseline
	return nil
}

const fileStoreVersion = "1"

type storeFile struct {
	Version   string              `yaml:"version"`
	Baselines map[string]Baseline `yaml:"baselines"`
}

// FileStore persists baselines as YAML so incremental state survives between runs.
// Every Put rewrites the file through a temporary file and rename.
type FileStore struct {
	path      string
	mu        sync.RWMutex
	baselines map[string]Baseline
}

// NewFileStore opens the store at path, loading existing baselines if present.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, baselines: make(map[string]Baseline)}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create baseline directory: %w", err)
	}

	if err := s.load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse baselines %s: %w", s.path, err)
	}
	if file.Version != "" && file.Version != fileStoreVersion {
		// Unknown layout: start over rather than trusting stale digests.
		return nil
	}
	if file.Baselines != nil {
		s.baselines = file.Baselines
	}
	return nil
}

// Get implements BaselineStore.
func (s *FileStore) Get(id string) (Baseline, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.baselines[id]
	return b, ok, nil
}

// Put implements BaselineStore.
func (s *FileStore) Put(id string, baseline Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.baselines[id] = baseline
	return s.saveLocked()
}

func (s *FileStore) saveLocked() error {
	data, err := yaml.Marshal(storeFile{Version: fileStoreVersion, Baselines: s.baselines})
	if err != nil {
		return fmt.Errorf("marshal baselines: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temporary baseline file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temporary baseline file: %w", err)
	}
	return nil
}
