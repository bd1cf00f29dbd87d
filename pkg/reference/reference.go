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

// Package reference turns a free-form repository locator into an owner/name pair.
package reference

import (
	"fmt"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrInvalidReference is returned for locators that do not look like host/owner/repo.
var ErrInvalidReference = errors.Base("invalid repository reference")

// DefaultHost is the host used by the public GitHub API.
const DefaultHost = "github.com"

// scheme and userinfo are optional, the host needs a dot (or is localhost), and
// anything after owner/repo (tree/main/src, ?tab=, #readme) is ignored. The repo
// name must end at a separator or the end of the locator.
var locatorPattern = regexp.MustCompile(`^(?:[A-Za-z][A-Za-z0-9+.-]*://)?(?:[^@/\s]+@)?([^/\s]+\.[^/\s]+|localhost(?::\d+)?)/([^/\s?#]+)/([^/\s?#]+)(?:[/?#].*)?$`)

// 📦 Reference identifies a hosted repository
type Reference struct {
	Host  string
	Owner string
	Name  string
}

// String returns owner/name
func (r Reference) String() string {
	return r.Owner + "/" + r.Name
}

// URL returns the web URL of the repository
func (r Reference) URL() string {
	return fmt.Sprintf("https://%s/%s/%s", r.Host, r.Owner, r.Name)
}

// IsDefaultHost reports whether the reference points at github.com
func (r Reference) IsDefaultHost() bool {
	return strings.EqualFold(r.Host, DefaultHost) || strings.EqualFold(r.Host, "www."+DefaultHost)
}

// 🔍 Parser parses locators, optionally restricted to a set of hosts
type Parser struct {
	// Hosts limits accepted hosts (case-insensitive). Empty accepts any host.
	Hosts []string
}

// Parse parses a locator with no host restriction.
func Parse(locator string) (*Reference, error) {
	return (&Parser{}).Parse(locator)
}

// Parse extracts the repository reference from locator. It never touches the
// network and returns ErrInvalidReference for anything it cannot match.
func (p *Parser) Parse(locator string) (*Reference, error) {
	s := strings.TrimSpace(locator)
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	m := locatorPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, errors.WithDetails(ErrInvalidReference, "locator", locator)
	}

	ref := &Reference{
		Host:  strings.ToLower(m[1]),
		Owner: m[2],
		Name:  m[3],
	}

	if !p.allowed(ref.Host) {
		return nil, errors.WithDetails(ErrInvalidReference, "locator", locator, "host", ref.Host)
	}

	return ref, nil
}

func (p *Parser) allowed(host string) bool {
	if len(p.Hosts) == 0 {
		return true
	}
	for _, h := range p.Hosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}
