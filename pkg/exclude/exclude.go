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

// Package exclude decides which repository paths are never fetched or emitted.
package exclude

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// DefaultNames are directory and file names skipped wherever they appear.
var DefaultNames = []string{
	// Directories
	".gitignore",
	".git",
	"node_modules",
	".idea",
	".vscode",
	".vercel",
	".next",
	"dist",
	"build",
	"coverage",
	".github",
	".husky",
	".cache",
	"storybook-static",
	".storybook",
	"out",
	"logs",
	"tmp",

	// Files
	".DS_Store",
	".env",
	".env.local",
	".env.development",
	".env.production",
	".eslintcache",
	".npmrc",
	".yarnrc",
	".dockerignore",
}

// DefaultExtensions are file extensions that are never text worth sending to a model.
var DefaultExtensions = []string{
	// Images
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".bmp", ".tiff", ".lockb",

	// Fonts
	".ttf", ".otf", ".woff", ".woff2", ".eot",

	// Media
	".mp4", ".mp3", ".wav", ".ogg", ".avi", ".mov", ".webm",

	// Archives
	".zip", ".rar", ".7z", ".tar", ".gz",

	// Documents
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",

	// Binaries
	".exe", ".dll", ".so", ".dylib", ".bin",

	// Cache and lock files
	".lock", ".cache",

	// Data files
	".csv", ".xml",
}

// 🚫 Policy is an exclusion rule set. The zero value excludes nothing.
type Policy struct {
	names      map[string]struct{}
	extensions map[string]struct{}
	patterns   []string
}

// New builds a policy from explicit tables. Patterns are doublestar globs matched
// against the full relative path.
func New(names, extensions, patterns []string) (*Policy, error) {
	p := &Policy{
		names:      make(map[string]struct{}, len(names)),
		extensions: make(map[string]struct{}, len(extensions)),
	}
	if err := p.add(names, extensions, patterns); err != nil {
		return nil, err
	}
	return p, nil
}

// Default returns the built-in policy.
func Default() *Policy {
	p, err := New(DefaultNames, DefaultExtensions, nil)
	if err != nil {
		panic(err) // the built-in tables carry no patterns
	}
	return p
}

// Extend returns a copy of p with the additions applied; p is left untouched.
func (p *Policy) Extend(names, extensions, patterns []string) (*Policy, error) {
	cp := &Policy{
		names:      make(map[string]struct{}, len(p.names)+len(names)),
		extensions: make(map[string]struct{}, len(p.extensions)+len(extensions)),
		patterns:   append([]string(nil), p.patterns...),
	}
	for n := range p.names {
		cp.names[n] = struct{}{}
	}
	for e := range p.extensions {
		cp.extensions[e] = struct{}{}
	}
	if err := cp.add(names, extensions, patterns); err != nil {
		return nil, err
	}
	return cp, nil
}

func (p *Policy) add(names, extensions, patterns []string) error {
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			p.names[n] = struct{}{}
		}
	}
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		p.extensions[e] = struct{}{}
	}
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return errors.Errorf("invalid exclude pattern %q", pat)
		}
		p.patterns = append(p.patterns, pat)
	}
	return nil
}

// ShouldExclude reports whether path must be skipped. Checked in order: exact
// name, any path segment, file extension, then glob patterns.
func (p *Policy) ShouldExclude(path string) bool {
	if p == nil {
		return false
	}

	if _, ok := p.names[path]; ok {
		return true
	}

	segments := strings.Split(path, "/")
	for _, seg := range segments {
		if _, ok := p.names[seg]; ok {
			return true
		}
	}

	if ext := Extension(path); ext != "" {
		if _, ok := p.extensions[strings.ToLower(ext)]; ok {
			return true
		}
	}

	for _, pat := range p.patterns {
		if ok, _ := doublestar.Match(pat, path); ok {
			return true
		}
	}

	return false
}

// Extension returns the substring of the final path segment from its last dot.
// Segments without a dot, and dotfiles whose only dot is the leading one, have
// no extension.
func Extension(path string) string {
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return ""
	}
	return name[i:]
}
