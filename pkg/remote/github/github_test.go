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

package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/repotext/pkg/reference"
	"github.com/walteh/repotext/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

const contentsPrefix = "/repos/octo/demo/contents/"

// fakeContents serves canned contents API responses keyed by path.
type fakeContents struct {
	mu       sync.Mutex
	bodies   map[string]string
	statuses map[string]int
	headers  map[string]http.Header
	requests atomic.Int32
	auth     []string
	accept   []string
}

func newFakeContents() *fakeContents {
	return &fakeContents{
		bodies:   map[string]string{},
		statuses: map[string]int{},
		headers:  map[string]http.Header{},
	}
}

func (f *fakeContents) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)

	f.mu.Lock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.accept = append(f.accept, r.Header.Get("Accept"))
	path := strings.TrimPrefix(r.URL.Path, contentsPrefix)
	body, ok := f.bodies[path]
	status := f.statuses[path]
	hdr := f.headers[path]
	f.mu.Unlock()

	for k, vs := range hdr {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Content-Type", "application/json")

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
		return
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func setup(t *testing.T, credential string, opts Options) (*Fetcher, *fakeContents) {
	t.Helper()

	fake := newFakeContents()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	opts.APIURL = server.URL
	f, err := New(context.Background(), &reference.Reference{Host: "github.com", Owner: "octo", Name: "demo"}, credential, opts)
	require.NoError(t, err, "creating fetcher should succeed")
	return f, fake
}

var demo = &reference.Reference{Host: "github.com", Owner: "octo", Name: "demo"}

func TestListDirectory(t *testing.T) {
	f, fake := setup(t, "secret", Options{})

	fake.bodies[""] = `[
		{"type":"dir","path":"src","size":0,"sha":"d1"},
		{"type":"file","path":"README.md","size":12,"sha":"f1"},
		{"type":"symlink","path":"link","size":4,"sha":"s1"}
	]`

	entries, err := f.ListDirectory(context.Background(), demo, "")
	require.NoError(t, err, "listing root should succeed")
	require.Len(t, entries, 3, "should return every child")

	assert.Equal(t, remote.TreeEntry{Path: "src", Kind: remote.KindDirectory, SHA: "d1"}, entries[0], "directory entry should map")
	assert.Equal(t, remote.TreeEntry{Path: "README.md", Kind: remote.KindFile, Size: 12, SHA: "f1"}, entries[1], "file entry should map")
	assert.Equal(t, remote.KindOther, entries[2].Kind, "symlink should be other")

	t.Run("test_headers", func(t *testing.T) {
		require.NotEmpty(t, fake.auth, "server should have seen a request")
		assert.Equal(t, "token secret", fake.auth[0], "credential should use the token scheme")
		assert.Equal(t, "application/vnd.github.v3+json", fake.accept[0], "accept header should request the v3 media type")
	})
}

func TestListDirectory_Anonymous(t *testing.T) {
	f, fake := setup(t, "", Options{})
	fake.bodies[""] = `[]`

	entries, err := f.ListDirectory(context.Background(), demo, "")
	require.NoError(t, err, "listing should succeed")
	assert.Empty(t, entries, "empty repository has no entries")
	assert.Equal(t, "", fake.auth[0], "anonymous requests carry no authorization")
}

func TestListDirectory_FilePath(t *testing.T) {
	f, fake := setup(t, "", Options{})
	fake.bodies["main.go"] = `{"type":"file","path":"main.go","size":3,"encoding":"base64","content":"Zm9v"}`

	entries, err := f.ListDirectory(context.Background(), demo, "main.go")
	require.NoError(t, err, "listing a file path should succeed")
	require.Len(t, entries, 1, "a file path lists as itself")
	assert.Equal(t, "main.go", entries[0].Path, "entry should be the file")
}

func TestReadFile(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		entry    remote.TreeEntry
		want     string
		requests int32
	}{
		{
			name:     "base64_with_line_breaks",
			body:     `{"type":"file","path":"a.txt","size":11,"encoding":"base64","content":"aGVsbG8g\nd29ybGQ=\n"}`,
			entry:    remote.TreeEntry{Path: "a.txt", Kind: remote.KindFile, Size: 11},
			want:     "hello world",
			requests: 1,
		},
		{
			name:     "non_base64_encoding",
			body:     `{"type":"file","path":"a.txt","size":11,"encoding":"none","content":""}`,
			entry:    remote.TreeEntry{Path: "a.txt", Kind: remote.KindFile, Size: 11},
			want:     "",
			requests: 1,
		},
		{
			name:     "empty_file",
			body:     `{"type":"file","path":"a.txt","size":0,"encoding":"base64","content":""}`,
			entry:    remote.TreeEntry{Path: "a.txt", Kind: remote.KindFile},
			want:     "",
			requests: 1,
		},
		{
			name:     "too_large_skips_request",
			body:     `{}`,
			entry:    remote.TreeEntry{Path: "a.txt", Kind: remote.KindFile, Size: remote.MaxFileSize + 1},
			want:     remote.TooLargePlaceholder("a.txt"),
			requests: 0,
		},
		{
			name:     "size_at_limit_is_fetched",
			body:     `{"type":"file","path":"a.txt","size":1048576,"encoding":"base64","content":"eA=="}`,
			entry:    remote.TreeEntry{Path: "a.txt", Kind: remote.KindFile, Size: remote.MaxFileSize},
			want:     "x",
			requests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, fake := setup(t, "", Options{})
			fake.bodies["a.txt"] = tt.body

			got, err := f.ReadFile(context.Background(), demo, tt.entry)
			require.NoError(t, err, "reading should succeed")
			assert.Equal(t, tt.want, got, "content should match")
			assert.Equal(t, tt.requests, fake.requests.Load(), "request count should match")
		})
	}
}

func TestReadFile_CustomLimit(t *testing.T) {
	f, fake := setup(t, "", Options{MaxFileSize: 10})

	got, err := f.ReadFile(context.Background(), demo, remote.TreeEntry{Path: "big.go", Size: 11})
	require.NoError(t, err, "oversized file is not an error")
	assert.Equal(t, remote.TooLargePlaceholder("big.go"), got, "custom limit should apply")
	assert.Zero(t, fake.requests.Load(), "no request should be made")
}

func TestErrors(t *testing.T) {
	t.Run("test_not_found", func(t *testing.T) {
		f, _ := setup(t, "", Options{})

		_, err := f.ListDirectory(context.Background(), demo, "")
		require.Error(t, err, "missing repository should fail")

		var rerr *remote.Error
		require.True(t, errors.As(err, &rerr), "error should be a remote error")
		assert.Equal(t, remote.ErrorNotFound, rerr.Kind, "kind should be not found")
		assert.Equal(t, http.StatusNotFound, rerr.Status, "status should be kept")
	})

	t.Run("test_rate_limited", func(t *testing.T) {
		f, fake := setup(t, "", Options{})
		reset := time.Now().Add(time.Hour).Truncate(time.Second)

		fake.bodies[""] = `{"message":"API rate limit exceeded for 127.0.0.1."}`
		fake.statuses[""] = http.StatusForbidden
		fake.headers[""] = http.Header{
			"X-Ratelimit-Limit":     []string{"60"},
			"X-Ratelimit-Remaining": []string{"0"},
			"X-Ratelimit-Reset":     []string{fmt.Sprint(reset.Unix())},
		}

		_, err := f.ListDirectory(context.Background(), demo, "")
		require.Error(t, err, "exhausted quota should fail")

		var rerr *remote.Error
		require.True(t, errors.As(err, &rerr), "error should be a remote error")
		assert.Equal(t, remote.ErrorRateLimited, rerr.Kind, "kind should be rate limited")
		assert.True(t, reset.Equal(rerr.Reset), "reset should come from the headers")
	})

	t.Run("test_forbidden_without_quota_headers", func(t *testing.T) {
		f, fake := setup(t, "", Options{})
		fake.bodies[""] = `{"message":"Resource not accessible"}`
		fake.statuses[""] = http.StatusForbidden

		_, err := f.ListDirectory(context.Background(), demo, "")

		var rerr *remote.Error
		require.True(t, errors.As(err, &rerr), "error should be a remote error")
		assert.Equal(t, remote.ErrorRateLimited, rerr.Kind, "403 is treated as quota exhaustion")
	})

	t.Run("test_server_error", func(t *testing.T) {
		f, fake := setup(t, "", Options{})
		fake.bodies[""] = `{"message":"boom"}`
		fake.statuses[""] = http.StatusBadGateway

		_, err := f.ListDirectory(context.Background(), demo, "")

		var rerr *remote.Error
		require.True(t, errors.As(err, &rerr), "error should be a remote error")
		assert.Equal(t, remote.ErrorOther, rerr.Kind, "5xx should be other")
	})

	t.Run("test_cancelled_context", func(t *testing.T) {
		f, fake := setup(t, "", Options{})
		fake.bodies[""] = `[]`

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.ListDirectory(ctx, demo, "")
		require.Error(t, err, "cancelled context should fail")
		assert.ErrorIs(t, err, context.Canceled, "cancellation should be visible")
	})
}

func TestRateLimiter(t *testing.T) {
	f, fake := setup(t, "", Options{RequestsPerSecond: 1})
	fake.bodies[""] = `[]`

	_, err := f.ListDirectory(context.Background(), demo, "")
	require.NoError(t, err, "first request uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = f.ListDirectory(ctx, demo, "")
	require.Error(t, err, "second request should wait past the deadline")
	assert.Equal(t, int32(1), fake.requests.Load(), "limited request should never reach the server")
}

func TestNew_EnterpriseHost(t *testing.T) {
	client, err := newClient(&reference.Reference{Host: "git.example.com", Owner: "o", Name: "r"}, "", Options{})
	require.NoError(t, err, "enterprise client should build")
	assert.Equal(t, "https://git.example.com/api/v3/", client.BaseURL.String(), "enterprise hosts use the v3 api path")

	client, err = newClient(demo, "", Options{})
	require.NoError(t, err, "default client should build")
	assert.Equal(t, "https://api.github.com/", client.BaseURL.String(), "default host uses the public api")
}

func TestRequestTimeout(t *testing.T) {
	t.Run("test_default_bound", func(t *testing.T) {
		tests := []struct {
			name       string
			credential string
			opts       Options
			want       time.Duration
		}{
			{name: "no_options", want: DefaultRequestTimeout},
			{name: "with_credential", credential: "secret", want: DefaultRequestTimeout},
			{name: "client_without_timeout", opts: Options{HTTPClient: &http.Client{}}, want: DefaultRequestTimeout},
			{name: "configured", opts: Options{RequestTimeout: 5 * time.Second}, want: 5 * time.Second},
			{name: "client_timeout_wins", opts: Options{RequestTimeout: 5 * time.Second, HTTPClient: &http.Client{Timeout: 2 * time.Second}}, want: 2 * time.Second},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				client, err := newClient(demo, tt.credential, tt.opts)
				require.NoError(t, err, "client should build")
				assert.Equal(t, tt.want, client.Client().Timeout, "every request should be bounded")
			})
		}
	})

	t.Run("test_stalled_server", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(server.Close)
		t.Cleanup(func() { close(release) })

		f, err := New(context.Background(), demo, "", Options{APIURL: server.URL, RequestTimeout: 100 * time.Millisecond})
		require.NoError(t, err, "creating fetcher should succeed")

		done := make(chan error, 1)
		go func() {
			_, err := f.ListDirectory(context.Background(), demo, "")
			done <- err
		}()

		select {
		case err := <-done:
			require.Error(t, err, "a stalled listing should fail")

			var rerr *remote.Error
			require.True(t, errors.As(err, &rerr), "timeout should be a remote error")
			assert.Equal(t, remote.ErrorOther, rerr.Kind, "timeout is not a rate limit or a missing path")
			assert.Equal(t, "API error: no response before the request timeout (remote error)", rerr.Error(), "message should say the request timed out")
		case <-time.After(5 * time.Second):
			t.Fatal("listing against a stalled server never returned")
		}
	})
}

func TestDecodeContent(t *testing.T) {
	bad := "!!!"
	_, err := decodeContent(&github.RepositoryContent{Encoding: github.String("base64"), Content: &bad, Path: github.String("x")})
	require.Error(t, err, "malformed base64 should fail")
	assert.Contains(t, err.Error(), "decoding base64 content of x", "error should name the file")
}
