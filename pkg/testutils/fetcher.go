// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package testutils holds fakes shared by package tests.
package testutils

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/walteh/repotext/pkg/reference"
	"github.com/walteh/repotext/pkg/remote"
)

// Context returns a context carrying a logger that writes through t.
func Context(t testing.TB) context.Context {
	logger := zerolog.New(zerolog.TestWriter{T: t}).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

// 🔧 MockFetcher is a mock implementation of remote.Fetcher
type MockFetcher struct {
	mock.Mock
}

var _ remote.Fetcher = (*MockFetcher)(nil)

func (m *MockFetcher) ListDirectory(ctx context.Context, ref *reference.Reference, path string) ([]remote.TreeEntry, error) {
	result := m.Called(ctx, ref, path)
	entries, _ := result.Get(0).([]remote.TreeEntry)
	return entries, result.Error(1)
}

func (m *MockFetcher) ReadFile(ctx context.Context, ref *reference.Reference, entry remote.TreeEntry) (string, error) {
	result := m.Called(ctx, ref, entry)
	return result.String(0), result.Error(1)
}

// 🌳 Tree is an in-memory repository. Directories are implied by file paths
// and listed in the order given to Add, unless sorted with Sort.
type Tree struct {
	mu       sync.Mutex
	children map[string][]remote.TreeEntry
	contents map[string]string
	// ListErrors makes listing the keyed directory fail.
	ListErrors map[string]error
	// ReadErrors makes reading the keyed file fail.
	ReadErrors map[string]error

	Listed []string
	Read   []string
}

var _ remote.Fetcher = (*Tree)(nil)

func NewTree() *Tree {
	return &Tree{
		children:   map[string][]remote.TreeEntry{},
		contents:   map[string]string{},
		ListErrors: map[string]error{},
		ReadErrors: map[string]error{},
	}
}

// Add registers a file, creating parent directory entries as needed.
func (t *Tree) Add(path, content string) *Tree {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.contents[path] = content
	t.link(path, remote.TreeEntry{Path: path, Kind: remote.KindFile, Size: int64(len(content))})
	return t
}

// AddEntry registers an arbitrary entry, for symlinks, submodules and sizes
// that do not match the content.
func (t *Tree) AddEntry(entry remote.TreeEntry, content string) *Tree {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.contents[entry.Path] = content
	t.link(entry.Path, entry)
	return t
}

func (t *Tree) link(path string, entry remote.TreeEntry) {
	parent := ""
	if i := strings.LastIndex(path, "/"); i >= 0 {
		parent = path[:i]
	}
	for _, e := range t.children[parent] {
		if e.Path == path {
			return
		}
	}
	t.children[parent] = append(t.children[parent], entry)
	if parent != "" {
		t.link(parent, remote.TreeEntry{Path: parent, Kind: remote.KindDirectory})
	}
}

// Sort orders every listing by path, directories and files interleaved.
func (t *Tree) Sort() *Tree {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entries := range t.children {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	}
	return t
}

// Reverse flips the order of every listing.
func (t *Tree) Reverse() *Tree {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entries := range t.children {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return t
}

func (t *Tree) ListDirectory(ctx context.Context, ref *reference.Reference, path string) ([]remote.TreeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.Listed = append(t.Listed, path)
	if err, ok := t.ListErrors[path]; ok {
		return nil, err
	}
	entries, ok := t.children[path]
	if !ok && path != "" {
		return nil, remote.NewError(http.StatusNotFound, path, "Not Found")
	}
	return append([]remote.TreeEntry(nil), entries...), nil
}

func (t *Tree) ReadFile(ctx context.Context, ref *reference.Reference, entry remote.TreeEntry) (string, error) {
	if entry.Size > remote.MaxFileSize {
		return remote.TooLargePlaceholder(entry.Path), nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	// checked under the lock so no read is recorded once ctx is done
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.Read = append(t.Read, entry.Path)
	if err, ok := t.ReadErrors[entry.Path]; ok {
		return "", err
	}
	return t.contents[entry.Path], nil
}

// ReadCount returns how many file reads reached the tree.
func (t *Tree) ReadCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Read)
}
