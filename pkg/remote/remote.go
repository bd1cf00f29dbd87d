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

// Package remote defines the port used to read a hosted repository one directory
// or one file at a time.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/walteh/repotext/pkg/reference"
)

// MaxFileSize is the default size above which file content is never transferred.
const MaxFileSize int64 = 1024 * 1024

// Kind is the type of a tree entry
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
	// KindOther covers symlinks and submodules, which are neither read nor recursed into.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "dir"
	default:
		return "other"
	}
}

// ParseKind maps the contents API "type" field to a Kind.
func ParseKind(s string) Kind {
	switch s {
	case "file":
		return KindFile
	case "dir":
		return KindDirectory
	default:
		return KindOther
	}
}

// 📄 TreeEntry is one child returned by a directory listing
type TreeEntry struct {
	Path string
	Kind Kind
	Size int64
	SHA  string
}

// 🔌 Fetcher performs single remote reads against a hosting API. Every call costs
// one unit of request quota; implementations do not retry.
type Fetcher interface {
	// ListDirectory returns the children of path ("" for the repository root).
	ListDirectory(ctx context.Context, ref *reference.Reference, path string) ([]TreeEntry, error)
	// ReadFile returns the decoded text of a file, or the too-large placeholder.
	ReadFile(ctx context.Context, ref *reference.Reference, entry TreeEntry) (string, error)
}

// 🏭 Factory builds a Fetcher for a parsed reference. The credential may be empty.
type Factory func(ctx context.Context, ref *reference.Reference, credential string) (Fetcher, error)

// ErrorKind classifies non-success responses
type ErrorKind int

const (
	ErrorOther ErrorKind = iota
	ErrorNotFound
	ErrorRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNotFound:
		return "not found"
	case ErrorRateLimited:
		return "rate limited"
	default:
		return "remote error"
	}
}

// KindForStatus maps an HTTP status code to an ErrorKind.
func KindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusNotFound:
		return ErrorNotFound
	case http.StatusForbidden, http.StatusTooManyRequests:
		return ErrorRateLimited
	default:
		return ErrorOther
	}
}

// ❌ Error is a non-success response from the hosting API
type Error struct {
	Status  int
	Kind    ErrorKind
	Path    string
	Message string
	// Reset is when the rate limit window reopens, if the API said so.
	Reset time.Time
}

// NewError builds an Error with the kind derived from status.
func NewError(status int, path, message string) *Error {
	return &Error{
		Status:  status,
		Kind:    KindForStatus(status),
		Path:    path,
		Message: message,
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	// no status when the request never got a response
	if e.Status == 0 {
		return fmt.Sprintf("API error: %s (%s)", msg, e.Kind)
	}
	return fmt.Sprintf("API error: %d %s (%s)", e.Status, msg, e.Kind)
}

const (
	tooLargePrefix = "[File too large to display: "
	binaryPrefix   = "[Binary file or error: "
)

// TooLargePlaceholder is the content substituted for files over the size limit.
func TooLargePlaceholder(path string) string {
	return tooLargePrefix + path + "]"
}

// BinaryPlaceholder is the content substituted for files that could not be read.
func BinaryPlaceholder(path string) string {
	return binaryPrefix + path + "]"
}

// IsPlaceholder reports whether content is one of the placeholders for path.
func IsPlaceholder(path, content string) bool {
	return content == TooLargePlaceholder(path) || content == BinaryPlaceholder(path)
}
