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

package operation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/walteh/repotext/pkg/exclude"
	"github.com/walteh/repotext/pkg/format"
	"github.com/walteh/repotext/pkg/reference"
	"github.com/walteh/repotext/pkg/remote"
	"github.com/walteh/repotext/pkg/walk"
	"github.com/zeebo/xxh3"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Operation is a unit of work the runner can execute
type Operation interface {
	Execute(ctx context.Context) error
}

// 🔧 Options configures a fetch
type Options struct {
	// Locator is the repository URL as the user typed it.
	Locator string
	// Credential is an optional personal access token. It is handed to the
	// factory and never logged.
	Credential string
	// Factory builds the fetcher for the parsed reference.
	Factory remote.Factory
	// Parser overrides the default reference parser.
	Parser *reference.Parser
	// Policy decides what is skipped. Nil means exclude.Default().
	Policy      *exclude.Policy
	Concurrency int
	Observer    walk.Observer
}

// 📦 Result is the aggregated repository
type Result struct {
	Repository string
	Files      []walk.File
	Document   string
	Count      int
	// Digest is the xxh3 hash of Document, equal across runs over an unchanged tree.
	Digest string
}

// 📥 FetchOperation turns a locator into a Result
type FetchOperation struct {
	opts   Options
	result *Result
}

var _ Operation = (*FetchOperation)(nil)

// 🏭 NewFetchOperation creates a fetch operation
func NewFetchOperation(opts Options) *FetchOperation {
	return &FetchOperation{opts: opts}
}

// Result returns the outcome of the last successful Execute, or nil.
func (op *FetchOperation) Result() *Result {
	return op.result
}

// 🏃 Execute parses the locator, walks the repository and renders the document.
// Failures are returned as *Error.
func (op *FetchOperation) Execute(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	hasCredential := op.opts.Credential != ""

	parser := op.opts.Parser
	if parser == nil {
		parser = &reference.Parser{}
	}

	ref, err := parser.Parse(op.opts.Locator)
	if err != nil {
		return classify(err, hasCredential)
	}

	if op.opts.Factory == nil {
		return &Error{Kind: KindInternal, Guidance: "no repository fetcher configured", Err: errors.New("factory is required")}
	}

	fetcher, err := op.opts.Factory(ctx, ref, op.opts.Credential)
	if err != nil {
		return classify(errors.Errorf("creating fetcher for %s: %w", ref, err), hasCredential)
	}

	policy := op.opts.Policy
	if policy == nil {
		policy = exclude.Default()
	}

	logger.Info().
		Str("repo", ref.String()).
		Str("host", ref.Host).
		Bool("authenticated", hasCredential).
		Msg("fetching repository")

	walker := walk.New(fetcher, walk.Options{
		Policy:      policy,
		Concurrency: op.opts.Concurrency,
		Observer:    op.opts.Observer,
	})

	files, err := walker.Walk(ctx, ref, "")
	if err != nil {
		logger.Debug().Err(err).Int("partial", len(files)).Msg("walk failed")
		return classify(err, hasCredential)
	}

	doc := format.Format(FromFiles(files))
	op.result = &Result{
		Repository: ref.String(),
		Files:      files,
		Document:   doc,
		Count:      len(files),
		Digest:     Digest(doc),
	}

	logger.Info().
		Str("repo", ref.String()).
		Int("files", len(files)).
		Str("digest", op.result.Digest).
		Msg("fetched repository")

	return nil
}

// Fetch runs a fetch operation directly and returns its result.
func Fetch(ctx context.Context, opts Options) (*Result, error) {
	op := NewFetchOperation(opts)
	if err := op.Execute(ctx); err != nil {
		return nil, err
	}
	return op.Result(), nil
}

// FromFiles converts walked files into document records, all selected.
func FromFiles(files []walk.File) []format.Record {
	records := make([]format.Record, 0, len(files))
	for _, f := range files {
		records = append(records, format.Record{Path: f.Path, Content: f.Content})
	}
	return records
}

// Digest returns the hex xxh3 hash of a document.
func Digest(doc string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(doc))
}

// Summary is the one-line success message shown to users.
func (r *Result) Summary() string {
	return fmt.Sprintf("Found %d files in %s", r.Count, r.Repository)
}
