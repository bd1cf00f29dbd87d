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
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/repotext/cmd/repotext/opts"
	"github.com/walteh/repotext/pkg/config"
	"github.com/walteh/repotext/pkg/format"
	"github.com/walteh/repotext/pkg/log"
	"github.com/walteh/repotext/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

type fetchFlags struct {
	token       string
	output      string
	concurrency int
	rate        float64
	exclude     []string
	excludeExt  []string
	excludeGlob []string
	list        bool
}

// NewFetchCmd creates the fetch command
func NewFetchCmd(o *opts.RootOpts) *cobra.Command {
	f := &fetchFlags{}

	cmd := &cobra.Command{
		Use:   "fetch <repository-url>",
		Short: "Fetch a repository as one text document",
		Long: `Fetch walks the repository tree and writes every text file as
a "File: <path>" record. Dependency folders, build output, media and other
binary formats are skipped.

The token is read from --token or $GITHUB_TOKEN. Without one, GitHub allows
60 requests per hour and each directory and file costs one request.`,
		Example: `  repotext fetch https://github.com/owner/repo -o repo.txt
  repotext fetch github.com/owner/repo --exclude-ext .md --concurrency 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "fetch").Logger().WithContext(cmd.Context())
			return runFetch(ctx, cmd, o, f, args[0])
		},
	}

	cmd.Flags().StringVarP(&f.token, "token", "t", "", "personal access token (default $"+opts.TokenEnv+")")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the document to a file instead of stdout")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "requests in flight (1 walks sequentially)")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "maximum requests per second (0 for unlimited)")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "additional directory or file names to skip")
	cmd.Flags().StringSliceVar(&f.excludeExt, "exclude-ext", nil, "additional extensions to skip")
	cmd.Flags().StringSliceVar(&f.excludeGlob, "exclude-glob", nil, "glob patterns of paths to skip")
	cmd.Flags().BoolVar(&f.list, "list", false, "print the fetched paths instead of the document")

	return cmd
}

// applyFlags lays command line values over the configuration file.
func (f *fetchFlags) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if cmd.Flags().Changed("rate") {
		cfg.RequestsPerSecond = f.rate
	}
	if f.output != "" {
		cfg.Output = f.output
	}
	if len(f.exclude)+len(f.excludeExt)+len(f.excludeGlob) > 0 {
		if cfg.Exclude == nil {
			cfg.Exclude = &config.ExcludeArgs{}
		}
		cfg.Exclude.Names = append(cfg.Exclude.Names, f.exclude...)
		cfg.Exclude.Extensions = append(cfg.Exclude.Extensions, f.excludeExt...)
		cfg.Exclude.Patterns = append(cfg.Exclude.Patterns, f.excludeGlob...)
	}
	if err := cfg.Validate(); err != nil {
		return errors.Errorf("validating flags: %w", err)
	}
	return nil
}

func runFetch(ctx context.Context, cmd *cobra.Command, o *opts.RootOpts, f *fetchFlags, locator string) error {
	cfg, err := o.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if err := f.applyFlags(cmd, cfg); err != nil {
		return err
	}

	if d := cfg.TimeoutDuration(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	user := log.NewUserLogger(ctx, cmd.ErrOrStderr())
	console := log.NewConsole(cmd.ErrOrStderr(), o.Verbose)

	options, err := opts.FetchOptions(cfg, locator, opts.Credential(f.token), console)
	if err != nil {
		return err
	}

	user.LogStart(locator)
	if o.Verbose {
		console.Header(locator)
	}

	op := operation.NewFetchOperation(options)
	if err := operation.NewRunner(zerolog.Ctx(ctx), true).Run(ctx, op); err != nil {
		return err
	}
	result := op.Result()

	counts := console.Counts()
	zerolog.Ctx(ctx).Debug().
		Int("fetched", counts.Fetched).
		Int("placeholders", counts.Placeholders).
		Int("excluded", counts.Excluded).
		Int("failed", counts.Failed).
		Str("digest", result.Digest).
		Msg("fetch complete")

	if f.list {
		for _, file := range result.Files {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), file.Path); err != nil {
				return errors.Errorf("writing path list: %w", err)
			}
		}
		user.LogSuccess(result)
		return nil
	}

	if cfg.Output == "" {
		if err := format.Write(cmd.OutOrStdout(), operation.FromFiles(result.Files)); err != nil {
			return err
		}
		user.LogSuccess(result)
		return nil
	}

	if err := os.WriteFile(cfg.Output, []byte(result.Document), 0o644); err != nil {
		return errors.Errorf("writing %s: %w", cfg.Output, err)
	}
	user.LogWritten(cfg.Output, len(result.Document))
	user.LogSuccess(result)

	return nil
}
