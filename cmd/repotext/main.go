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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/walteh/repotext/cmd/repotext/opts"
	"github.com/walteh/repotext/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := setupLogging(os.Stderr, false)
	ctx = logger.WithContext(ctx)

	rootCmd := newRootCmd(&opts.RootOpts{})

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.NewUserLogger(ctx, os.Stderr).LogFailure(err)
		stop()
		os.Exit(1)
	}
}
