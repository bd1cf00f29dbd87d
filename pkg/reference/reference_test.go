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

package reference_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/repotext/pkg/reference"
	"gitlab.com/tozd/go/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantHost  string
		wantOwner string
		wantName  string
		wantErr   bool
	}{
		{
			name:      "plain_https",
			input:     "https://host.com/acme/widget",
			wantHost:  "host.com",
			wantOwner: "acme",
			wantName:  "widget",
		},
		{
			name:      "git_suffix",
			input:     "https://host.com/acme/widget.git",
			wantHost:  "host.com",
			wantOwner: "acme",
			wantName:  "widget",
		},
		{
			name:      "trailing_slash",
			input:     "https://host.com/acme/widget/",
			wantHost:  "host.com",
			wantOwner: "acme",
			wantName:  "widget",
		},
		{
			name:      "git_suffix_and_trailing_slash",
			input:     "https://github.com/walteh/repotext.git/",
			wantHost:  "github.com",
			wantOwner: "walteh",
			wantName:  "repotext",
		},
		{
			name:      "no_scheme",
			input:     "github.com/walteh/repotext",
			wantHost:  "github.com",
			wantOwner: "walteh",
			wantName:  "repotext",
		},
		{
			name:      "deep_link_ignores_rest",
			input:     "https://github.com/walteh/repotext/tree/main/pkg",
			wantHost:  "github.com",
			wantOwner: "walteh",
			wantName:  "repotext",
		},
		{
			name:      "surrounding_whitespace",
			input:     "  https://github.com/walteh/repotext  ",
			wantHost:  "github.com",
			wantOwner: "walteh",
			wantName:  "repotext",
		},
		{
			name:      "localhost_with_port",
			input:     "http://localhost:9090/acme/widget",
			wantHost:  "localhost:9090",
			wantOwner: "acme",
			wantName:  "widget",
		},
		{
			name:      "query_and_fragment_ignored",
			input:     "https://github.com/acme/widget?tab=readme#top",
			wantHost:  "github.com",
			wantOwner: "acme",
			wantName:  "widget",
		},
		{
			name:      "host_is_lowercased",
			input:     "https://GitHub.com/Acme/Widget",
			wantHost:  "github.com",
			wantOwner: "Acme",
			wantName:  "Widget",
		},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace_only", input: "   ", wantErr: true},
		{name: "owner_only", input: "https://host.com/acme", wantErr: true},
		{name: "owner_and_repo_without_host", input: "acme/widget", wantErr: true},
		{name: "host_only", input: "https://host.com/", wantErr: true},
		{name: "free_text", input: "not a repository", wantErr: true},
		{name: "empty_owner", input: "https://host.com//widget", wantErr: true},
		{name: "scp_style", input: "git@github.com:acme/widget.git", wantErr: true},
		{name: "space_inside_repo_name", input: "https://github.com/acme/my repo", wantErr: true},
		{name: "space_inside_owner", input: "https://github.com/ac me/widget", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := reference.Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err, "Parse should fail")
				assert.True(t, errors.Is(err, reference.ErrInvalidReference), "error should be ErrInvalidReference")
				assert.Nil(t, ref, "no partial reference should be returned")
				return
			}

			require.NoError(t, err, "Parse should succeed")
			assert.Equal(t, tt.wantHost, ref.Host, "host should match")
			assert.Equal(t, tt.wantOwner, ref.Owner, "owner should match")
			assert.Equal(t, tt.wantName, ref.Name, "name should match")
		})
	}
}

func TestParser_Hosts(t *testing.T) {
	p := &reference.Parser{Hosts: []string{"github.com", "git.example.com"}}

	t.Run("test_allowed_host", func(t *testing.T) {
		ref, err := p.Parse("https://git.example.com/acme/widget")
		require.NoError(t, err, "allowed host should parse")
		assert.Equal(t, "acme/widget", ref.String(), "reference should match")
	})

	t.Run("test_rejected_host", func(t *testing.T) {
		_, err := p.Parse("https://gitlab.com/acme/widget")
		require.Error(t, err, "unlisted host should be rejected")
		assert.True(t, errors.Is(err, reference.ErrInvalidReference), "error should be ErrInvalidReference")
	})
}

func TestReference(t *testing.T) {
	ref := reference.Reference{Host: "github.com", Owner: "walteh", Name: "repotext"}

	assert.Equal(t, "walteh/repotext", ref.String(), "string form should be owner/name")
	assert.Equal(t, "https://github.com/walteh/repotext", ref.URL(), "url should include host")
	assert.True(t, ref.IsDefaultHost(), "github.com should be the default host")
	assert.False(t, reference.Reference{Host: "git.example.com"}.IsDefaultHost(), "enterprise host is not default")
}
