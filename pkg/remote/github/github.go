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
	"encoding/base64"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"github.com/walteh/repotext/pkg/reference"
	"github.com/walteh/repotext/pkg/remote"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// GitHubClient defines the GitHub API operations we need
type GitHubClient interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
}

// githubClientWrapper wraps the GitHub client to implement our interface
type githubClientWrapper struct {
	client *github.Client
}

func (w *githubClientWrapper) GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	return w.client.Repositories.GetContents(ctx, owner, repo, path, opts)
}

// 🔧 Options configures a Fetcher
type Options struct {
	// APIURL overrides the API base URL (tests, proxies). When empty the URL is
	// derived from the reference host.
	APIURL string
	// Ref is the branch, tag or commit to read. Empty means the default branch.
	Ref string
	// MaxFileSize is the size above which content is never transferred.
	// Zero means remote.MaxFileSize.
	MaxFileSize int64
	// RequestsPerSecond caps the request rate across every call made through the
	// fetcher. Zero means unlimited.
	RequestsPerSecond float64
	// RequestTimeout bounds every single API call. Zero means
	// DefaultRequestTimeout.
	RequestTimeout time.Duration
	// HTTPClient supplies the base transport. A zero Timeout on it is replaced
	// by RequestTimeout.
	HTTPClient *http.Client
}

// DefaultRequestTimeout bounds an API call when no timeout is configured.
const DefaultRequestTimeout = 30 * time.Second

// 🎯 Fetcher implements remote.Fetcher on the GitHub contents API
type Fetcher struct {
	client      GitHubClient
	limiter     *rate.Limiter
	maxFileSize int64
	ref         string
}

var _ remote.Fetcher = (*Fetcher)(nil)

// Factory returns a remote.Factory that builds fetchers with opts.
func Factory(opts Options) remote.Factory {
	return func(ctx context.Context, ref *reference.Reference, credential string) (remote.Fetcher, error) {
		return New(ctx, ref, credential, opts)
	}
}

// 🏭 New creates a fetcher for the host of ref. The credential is only ever held
// by the HTTP transport.
func New(ctx context.Context, ref *reference.Reference, credential string, opts Options) (*Fetcher, error) {
	client, err := newClient(ref, credential, opts)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("api", client.BaseURL.String()).
		Bool("authenticated", credential != "").
		Msg("created github client")

	return NewWithClient(&githubClientWrapper{client: client}, opts), nil
}

// NewWithClient creates a fetcher around an existing client.
func NewWithClient(client GitHubClient, opts Options) *Fetcher {
	f := &Fetcher{
		client:      client,
		maxFileSize: opts.MaxFileSize,
		ref:         opts.Ref,
	}
	if f.maxFileSize <= 0 {
		f.maxFileSize = remote.MaxFileSize
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return f
}

func newClient(ref *reference.Reference, credential string, opts Options) (*github.Client, error) {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if opts.HTTPClient != nil {
		c := *opts.HTTPClient
		if c.Timeout == 0 {
			c.Timeout = timeout
		}
		httpClient = &c
	}

	if credential != "" {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		// TokenType "token" makes the header "Authorization: token <credential>".
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "token"})
		httpClient = &http.Client{
			Transport: &oauth2.Transport{Source: ts, Base: base},
			Timeout:   httpClient.Timeout,
		}
	}

	client := github.NewClient(httpClient)

	switch {
	case opts.APIURL != "":
		u, err := url.Parse(strings.TrimSuffix(opts.APIURL, "/") + "/")
		if err != nil {
			return nil, errors.Errorf("parsing api url: %w", err)
		}
		client.BaseURL = u
	case ref != nil && !ref.IsDefaultHost():
		enterprise := "https://" + ref.Host + "/"
		c, err := client.WithEnterpriseURLs(enterprise, enterprise)
		if err != nil {
			return nil, errors.Errorf("configuring enterprise urls for %s: %w", ref.Host, err)
		}
		client = c
	}

	return client, nil
}

func (f *Fetcher) getOptions() *github.RepositoryContentGetOptions {
	if f.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.ref}
}

func (f *Fetcher) wait(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return errors.Errorf("waiting for request slot: %w", err)
	}
	return nil
}

// 📂 ListDirectory returns the children of path
func (f *Fetcher) ListDirectory(ctx context.Context, ref *reference.Reference, path string) ([]remote.TreeEntry, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("repo", ref.String()).Str("path", path).Msg("listing directory")

	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	file, dir, resp, err := f.client.GetContents(ctx, ref.Owner, ref.Name, path, f.getOptions())
	if err != nil {
		return nil, toRemoteError(ctx, resp, err, path)
	}

	// the contents endpoint answers a file path with the file itself
	if dir == nil && file != nil {
		return []remote.TreeEntry{toEntry(file)}, nil
	}

	entries := make([]remote.TreeEntry, 0, len(dir))
	for _, c := range dir {
		entries = append(entries, toEntry(c))
	}
	return entries, nil
}

// 📄 ReadFile returns the decoded text of a file. Oversized files are answered
// with the placeholder without any request.
func (f *Fetcher) ReadFile(ctx context.Context, ref *reference.Reference, entry remote.TreeEntry) (string, error) {
	logger := zerolog.Ctx(ctx)

	if entry.Size > f.maxFileSize {
		logger.Debug().Str("path", entry.Path).Int64("size", entry.Size).Msg("file too large, not fetching")
		return remote.TooLargePlaceholder(entry.Path), nil
	}

	logger.Debug().Str("repo", ref.String()).Str("path", entry.Path).Int64("size", entry.Size).Msg("reading file")

	if err := f.wait(ctx); err != nil {
		return "", err
	}

	file, _, resp, err := f.client.GetContents(ctx, ref.Owner, ref.Name, entry.Path, f.getOptions())
	if err != nil {
		return "", toRemoteError(ctx, resp, err, entry.Path)
	}
	if file == nil {
		return "", errors.Errorf("%s is a directory, not a file", entry.Path)
	}

	if int64(file.GetSize()) > f.maxFileSize {
		return remote.TooLargePlaceholder(entry.Path), nil
	}

	return decodeContent(file)
}

// decodeContent returns "" for anything that is not inline base64 content.
func decodeContent(c *github.RepositoryContent) (string, error) {
	if c.GetEncoding() != "base64" || c.Content == nil || *c.Content == "" {
		return "", nil
	}

	raw := strings.ReplaceAll(*c.Content, "\n", "")
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", errors.Errorf("decoding base64 content of %s: %w", c.GetPath(), err)
	}
	return string(data), nil
}

func toEntry(c *github.RepositoryContent) remote.TreeEntry {
	return remote.TreeEntry{
		Path: c.GetPath(),
		Kind: remote.ParseKind(c.GetType()),
		Size: int64(c.GetSize()),
		SHA:  c.GetSHA(),
	}
}

// toRemoteError maps go-github failures onto the remote error taxonomy.
func toRemoteError(ctx context.Context, resp *github.Response, err error, path string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Errorf("request for %q interrupted: %w", path, ctxErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &remote.Error{Kind: remote.ErrorOther, Path: path, Message: "no response before the request timeout"}
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		rerr := remote.NewError(statusOf(rateErr.Response, http.StatusForbidden), path, rateErr.Message)
		rerr.Kind = remote.ErrorRateLimited
		rerr.Reset = rateErr.Rate.Reset.Time
		return rerr
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		rerr := remote.NewError(statusOf(abuseErr.Response, http.StatusForbidden), path, abuseErr.Message)
		rerr.Kind = remote.ErrorRateLimited
		if abuseErr.RetryAfter != nil {
			rerr.Reset = time.Now().Add(*abuseErr.RetryAfter)
		}
		return rerr
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		return remote.NewError(statusOf(respErr.Response, http.StatusInternalServerError), path, respErr.Message)
	}

	if resp != nil && resp.Response != nil && resp.StatusCode >= http.StatusMultipleChoices {
		return remote.NewError(resp.StatusCode, path, err.Error())
	}

	return errors.Errorf("requesting %q: %w", path, err)
}

func statusOf(resp *http.Response, fallback int) int {
	if resp == nil {
		return fallback
	}
	return resp.StatusCode
}
