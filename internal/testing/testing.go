// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"path"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/musicvault/internal/shared"
)

// MemoryKV is an in-memory key-value store. Setting Err makes every call fail.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string][]byte
	Err    error
	Puts   int
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string][]byte{}}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	v, ok := m.values[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *MemoryKV) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Puts++
	m.values[key] = slices.Clone(value)
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.values, key)
	return nil
}

// Raw sets a value directly, bypassing Err.
func (m *MemoryKV) Raw(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// MemoryDocuments is an in-memory document store keyed by slash-separated paths.
type MemoryDocuments struct {
	mu      sync.Mutex
	docs    map[string]string
	folders map[string]bool

	// ReadErr and WriteErr fail operations on specific paths.
	ReadErr  map[string]error
	WriteErr map[string]error
	Writes   []string
}

func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{
		docs:     map[string]string{},
		folders:  map[string]bool{},
		ReadErr:  map[string]error{},
		WriteErr: map[string]error{},
	}
}

// Seed adds a document without recording a write.
func (m *MemoryDocuments) Seed(p, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[p] = content
	m.folders[path.Dir(p)] = true
}

func (m *MemoryDocuments) List(ctx context.Context, folder string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := strings.TrimSuffix(folder, "/") + "/"
	var out []string
	for _, p := range slices.Sorted(maps.Keys(m.docs)) {
		if strings.HasPrefix(p, prefix) && strings.HasSuffix(p, ".md") {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryDocuments) Read(ctx context.Context, p string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ReadErr[p]; err != nil {
		return "", err
	}
	doc, ok := m.docs[p]
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrNotFound, p)
	}
	return doc, nil
}

func (m *MemoryDocuments) Write(ctx context.Context, p, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.WriteErr[p]; err != nil {
		return err
	}
	m.docs[p] = content
	m.Writes = append(m.Writes, p)
	return nil
}

func (m *MemoryDocuments) CreateFolder(ctx context.Context, folder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders[folder] = true
	return nil
}

func (m *MemoryDocuments) Exists(ctx context.Context, p string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[p]
	return ok || m.folders[p], nil
}

// Content returns a stored document.
func (m *MemoryDocuments) Content(p string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[p]
	return doc, ok
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
