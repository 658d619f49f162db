// Package fsutiltest provides an in-memory fsutil.FS for unit tests.
package fsutiltest

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/shinji-kodama/patchqueue/internal/fsutil"
	"github.com/shinji-kodama/patchqueue/internal/model"
)

var _ fsutil.FS = (*MemFS)(nil)

// MemFS is a flat map of paths to contents. Directories are implied by
// any path stored beneath them.
type MemFS struct {
	mu    sync.Mutex
	files map[string]string

	// Err, when set for an operation name ("remove", "rename"), makes that
	// operation fail with an *model.FSError wrapping it.
	Err map[string]error
}

// NewMemFS creates a MemFS holding the given files.
func NewMemFS(files map[string]string) *MemFS {
	m := &MemFS{files: make(map[string]string), Err: make(map[string]error)}
	for p, c := range files {
		m.files[filepath.Clean(p)] = c
	}
	return m
}

// Put stores a file.
func (m *MemFS) Put(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = content
}

// Get returns a file's content and whether it exists.
func (m *MemFS) Get(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.files[filepath.Clean(path)]
	return c, ok
}

// Paths returns every stored file path in sorted order.
func (m *MemFS) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m *MemFS) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if _, ok := m.files[path]; ok {
		return true
	}
	prefix := path + string(filepath.Separator)
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (m *MemFS) RemoveTree(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Err["remove"]; err != nil {
		return &model.FSError{Op: "remove", Path: path, Err: err}
	}
	path = filepath.Clean(path)
	prefix := path + string(filepath.Separator)
	for p := range m.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
	return nil
}

func (m *MemFS) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Err["remove"]; err != nil {
		return &model.FSError{Op: "remove", Path: path, Err: err}
	}
	path = filepath.Clean(path)
	if _, ok := m.files[path]; !ok {
		return &model.FSError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	delete(m.files, path)
	return nil
}

func (m *MemFS) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Err["rename"]; err != nil {
		return &model.FSError{Op: "rename", Path: oldPath, Err: err}
	}
	oldPath, newPath = filepath.Clean(oldPath), filepath.Clean(newPath)
	c, ok := m.files[oldPath]
	if !ok {
		return &model.FSError{Op: "rename", Path: oldPath, Err: fs.ErrNotExist}
	}
	if _, taken := m.files[newPath]; taken {
		return &model.FSError{Op: "rename", Path: oldPath, Err: errors.New("destination exists")}
	}
	delete(m.files, oldPath)
	m.files[newPath] = c
	return nil
}
