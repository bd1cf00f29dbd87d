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

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/repotext/cmd/repotext/opts"
	"github.com/walteh/repotext/pkg/config"
	"github.com/walteh/repotext/pkg/operation"
	"github.com/walteh/repotext/pkg/server"
)

// NewServeCmd creates the serve command
func NewServeCmd(o *opts.RootOpts) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fetch API over HTTP",
		Long: `Serve exposes POST /api/v1/fetch, taking {"url", "token"} and returning
the document with its file count and digest. The token is used for that request
only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "serve").Logger().WithContext(cmd.Context())

			cfg, err := o.LoadConfig(ctx)
			if err != nil {
				return err
			}

			if !o.Debug {
				gin.SetMode(gin.ReleaseMode)
			}

			return server.New(ctx, newServerFetch(cfg)).Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}

func newServerFetch(cfg *config.Config) server.FetchFunc {
	return func(ctx context.Context, locator, credential string) (*operation.Result, error) {
		if d := cfg.TimeoutDuration(); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		options, err := opts.FetchOptions(cfg, locator, credential, nil)
		if err != nil {
			return nil, err
		}
		return operation.Fetch(ctx, options)
	}
}
