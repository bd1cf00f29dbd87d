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

package commands

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/walteh/repotext/cmd/repotext/opts"
	"github.com/walteh/repotext/pkg/exclude"
	"github.com/walteh/repotext/pkg/format"
	"github.com/walteh/repotext/pkg/log"
	"github.com/walteh/repotext/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

type splitFlags struct {
	dir        string
	extensions []string
}

// NewSplitCmd creates the split command
func NewSplitCmd(o *opts.RootOpts) *cobra.Command {
	f := &splitFlags{}

	cmd := &cobra.Command{
		Use:   "split <document>",
		Short: "Split a fetched document back into files",
		Long: `Split re-parses a document written by fetch. With --dir every selected
record is written below that directory; without it the selected records are
written back to stdout as a smaller document. Placeholders are never written
as files. Use "-" to read the document from stdin.`,
		Example: `  repotext split repo.txt -d ./out
  repotext split repo.txt --ext .go --ext .mod > go-only.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd.Context(), cmd, f, args[0])
		},
	}

	cmd.Flags().StringVarP(&f.dir, "dir", "d", "", "directory to write files into")
	cmd.Flags().StringSliceVar(&f.extensions, "ext", nil, "only keep records with these extensions")

	return cmd
}

func readDocument(cmd *cobra.Command, name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return "", errors.Errorf("reading document: %w", err)
	}
	return string(data), nil
}

// selectRecords marks records outside the extension filter as deselected.
func selectRecords(records []format.Record, extensions []string) {
	if len(extensions) == 0 {
		return
	}

	want := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		want[e] = struct{}{}
	}

	for i := range records {
		_, ok := want[strings.ToLower(exclude.Extension(records[i].Path))]
		records[i].Deselected = !ok
	}
}

func runSplit(ctx context.Context, cmd *cobra.Command, f *splitFlags, name string) error {
	doc, err := readDocument(cmd, name)
	if err != nil {
		return err
	}

	records := format.Parse(doc)
	selectRecords(records, f.extensions)

	if f.dir == "" {
		return format.Write(cmd.OutOrStdout(), records)
	}

	user := log.NewUserLogger(ctx, cmd.ErrOrStderr())

	for _, r := range records {
		if r.Deselected {
			continue
		}
		if remote.IsPlaceholder(r.Path, r.Content) {
			user.LogSkipped(r.Path, "content was not fetched")
			continue
		}

		rel := filepath.FromSlash(r.Path)
		if !filepath.IsLocal(rel) {
			user.LogSkipped(r.Path, "path leaves the output directory")
			continue
		}

		dest := filepath.Join(f.dir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return errors.Errorf("creating directory for %s: %w", r.Path, err)
		}
		if err := os.WriteFile(dest, []byte(r.Content), 0o644); err != nil {
			return errors.Errorf("writing %s: %w", r.Path, err)
		}
		user.LogWritten(dest, len(r.Content))
	}

	return nil
}
