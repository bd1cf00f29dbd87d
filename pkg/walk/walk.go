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

// Package walk expands a repository tree into an ordered list of files, one
// directory listing and one file read at a time.
package walk

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/repotext/pkg/exclude"
	"github.com/walteh/repotext/pkg/reference"
	"github.com/walteh/repotext/pkg/remote"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// 📄 File is one fetched file. Content is decoded text or a placeholder.
type File struct {
	Path    string
	Content string
}

// 👀 Observer receives progress callbacks. In parallel mode the callbacks may
// arrive from several goroutines at once.
type Observer interface {
	Excluded(path string)
	Fetched(file File)
	Failed(path string, err error)
}

type nopObserver struct{}

func (nopObserver) Excluded(string)      {}
func (nopObserver) Fetched(File)         {}
func (nopObserver) Failed(string, error) {}

// 🔧 Options configures a Walker
type Options struct {
	// Policy decides which entries are skipped. Nil excludes nothing.
	Policy *exclude.Policy
	// Concurrency is the number of remote calls allowed in flight. Values <= 1
	// walk sequentially.
	Concurrency int
	Observer    Observer
}

// 🌲 Walker performs the depth-first expansion
type Walker struct {
	fetcher     remote.Fetcher
	policy      *exclude.Policy
	concurrency int
	observer    Observer
}

// 🏗️ New creates a walker over fetcher
func New(fetcher remote.Fetcher, opts Options) *Walker {
	w := &Walker{
		fetcher:     fetcher,
		policy:      opts.Policy,
		concurrency: opts.Concurrency,
		observer:    opts.Observer,
	}
	if w.observer == nil {
		w.observer = nopObserver{}
	}
	return w
}

// 🚶 Walk lists path ("" for the root) and returns every non-excluded file beneath
// it in listing order, directories expanded in place.
//
// Only listing failures and cancellation are returned as errors. A file that
// cannot be read becomes the binary placeholder. On error the files collected
// before the failure are returned alongside it.
func (w *Walker) Walk(ctx context.Context, ref *reference.Reference, path string) ([]File, error) {
	zerolog.Ctx(ctx).Debug().
		Str("repo", ref.String()).
		Str("path", path).
		Int("concurrency", w.concurrency).
		Msg("walking tree")

	if w.concurrency <= 1 {
		return w.walk(ctx, ref, path)
	}

	sem := semaphore.NewWeighted(int64(w.concurrency))
	return w.walkParallel(ctx, ref, path, sem)
}

func interrupted(ctx context.Context, path string) error {
	return errors.Errorf("walk interrupted at %q: %w", path, ctx.Err())
}

func (w *Walker) list(ctx context.Context, ref *reference.Reference, path string) ([]remote.TreeEntry, error) {
	if ctx.Err() != nil {
		return nil, interrupted(ctx, path)
	}
	entries, err := w.fetcher.ListDirectory(ctx, ref, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, interrupted(ctx, path)
		}
		w.observer.Failed(path, err)
		return nil, errors.Errorf("listing %q: %w", path, err)
	}
	return entries, nil
}

func (w *Walker) read(ctx context.Context, ref *reference.Reference, entry remote.TreeEntry) (File, error) {
	if ctx.Err() != nil {
		return File{}, interrupted(ctx, entry.Path)
	}

	content, err := w.fetcher.ReadFile(ctx, ref, entry)
	if err != nil {
		if ctx.Err() != nil {
			return File{}, interrupted(ctx, entry.Path)
		}
		zerolog.Ctx(ctx).Debug().Err(err).Str("path", entry.Path).Msg("substituting placeholder for unreadable file")
		w.observer.Failed(entry.Path, err)
		content = remote.BinaryPlaceholder(entry.Path)
	}

	f := File{Path: entry.Path, Content: content}
	w.observer.Fetched(f)
	return f, nil
}

// skip reports whether an entry takes no part in the output.
func (w *Walker) skip(entry remote.TreeEntry) bool {
	if w.policy.ShouldExclude(entry.Path) {
		w.observer.Excluded(entry.Path)
		return true
	}
	return entry.Kind == remote.KindOther
}

func (w *Walker) walk(ctx context.Context, ref *reference.Reference, path string) ([]File, error) {
	entries, err := w.list(ctx, ref, path)
	if err != nil {
		return nil, err
	}

	var files []File
	for _, entry := range entries {
		if w.skip(entry) {
			continue
		}

		switch entry.Kind {
		case remote.KindFile:
			f, err := w.read(ctx, ref, entry)
			if err != nil {
				return files, err
			}
			files = append(files, f)
		case remote.KindDirectory:
			sub, err := w.walk(ctx, ref, entry.Path)
			files = append(files, sub...)
			if err != nil {
				return files, err
			}
		}
	}

	return files, nil
}

// slot holds the outcome of one listing entry so results can be stitched in
// listing order regardless of completion order.
type slot struct {
	files []File
	err   error
}

func (w *Walker) walkParallel(ctx context.Context, ref *reference.Reference, path string, sem *semaphore.Weighted) ([]File, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, interrupted(ctx, path)
	}
	entries, err := w.list(ctx, ref, path)
	sem.Release(1)
	if err != nil {
		return nil, err
	}

	slots := make([]slot, len(entries))

	// each slot runs under its own context so a failure in slot i can stop the
	// slots after it without touching the ones before, whose files are still part
	// of the stitched output
	ctxs := make([]context.Context, len(entries))
	cancels := make([]context.CancelFunc, len(entries))
	for i := range entries {
		ctxs[i], cancels[i] = context.WithCancel(ctx)
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	settle := func(i int, s slot) {
		slots[i] = s
		if s.err != nil {
			for _, cancel := range cancels[i+1:] {
				cancel()
			}
		}
	}

	var g errgroup.Group
	for i, entry := range entries {
		if w.skip(entry) {
			continue
		}

		switch entry.Kind {
		case remote.KindFile:
			g.Go(func() error {
				if err := sem.Acquire(ctxs[i], 1); err != nil {
					settle(i, slot{err: interrupted(ctxs[i], entry.Path)})
					return nil
				}
				defer sem.Release(1)

				f, err := w.read(ctxs[i], ref, entry)
				if err != nil {
					settle(i, slot{err: err})
					return nil
				}
				settle(i, slot{files: []File{f}})
				return nil
			})
		case remote.KindDirectory:
			g.Go(func() error {
				sub, err := w.walkParallel(ctxs[i], ref, entry.Path, sem)
				settle(i, slot{files: sub, err: err})
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Errorf("waiting for %q: %w", path, err)
	}

	var files []File
	for _, s := range slots {
		files = append(files, s.files...)
		if s.err != nil {
			return files, s.err
		}
	}
	return files, nil
}
