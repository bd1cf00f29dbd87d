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

package log

import (
	"context"
	"io"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/walteh/repotext/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// 📢 UserLogger prints summaries and guidance for people at a terminal
type UserLogger struct {
	log zerolog.Logger // for debug/error logging
	out io.Writer
}

// 🎯 NewUserLogger creates a new user logger writing to out
func NewUserLogger(ctx context.Context, out io.Writer) *UserLogger {
	return &UserLogger{
		log: *zerolog.Ctx(ctx),
		out: out,
	}
}

// LogStart announces a fetch.
func (u *UserLogger) LogStart(locator string) {
	pterm.Info.WithWriter(u.out).WithPrefix(pterm.Prefix{Text: "📥"}).Printfln("Fetching %s", locator)
	u.log.Debug().Str("locator", locator).Msg("fetch started")
}

// LogSuccess prints the "Found N files" summary.
func (u *UserLogger) LogSuccess(result *operation.Result) {
	pterm.Success.WithWriter(u.out).WithPrefix(pterm.Prefix{Text: "✅"}).Println(result.Summary())
	u.log.Info().Str("repo", result.Repository).Int("files", result.Count).Msg(result.Summary())
}

// LogFailure prints the guidance for err, plus the reset time of an exhausted
// rate limit when the API reported one.
func (u *UserLogger) LogFailure(err error) {
	var oerr *operation.Error
	if !errors.As(err, &oerr) {
		pterm.Error.WithWriter(u.out).WithPrefix(pterm.Prefix{Text: "❌"}).Println(err.Error())
		u.log.Error().Err(err).Msg("fetch failed")
		return
	}

	pterm.Error.WithWriter(u.out).WithPrefix(pterm.Prefix{Text: "❌"}).Println(oerr.Guidance)
	if !oerr.Reset.IsZero() {
		pterm.Warning.WithWriter(u.out).WithPrefix(pterm.Prefix{Text: "⏳"}).
			Printfln("Rate limit resets at %s", oerr.Reset.Local().Format(time.Kitchen))
	}
	u.log.Error().Err(oerr.Err).Str("kind", oerr.Kind.String()).Msg("fetch failed")
}

// LogWritten reports a file written to disk.
func (u *UserLogger) LogWritten(path string, size int) {
	pterm.Success.WithWriter(u.out).WithPrefix(pterm.Prefix{Text: "💾"}).Printfln("Wrote %s (%d bytes)", path, size)
	u.log.Debug().Str("path", path).Int("size", size).Msg("wrote file")
}

// LogSkipped reports a record that was not written.
func (u *UserLogger) LogSkipped(path, reason string) {
	pterm.Warning.WithWriter(u.out).WithPrefix(pterm.Prefix{Text: "⏭️"}).Printfln("Skipped %s (%s)", path, reason)
	u.log.Debug().Str("path", path).Str("reason", reason).Msg("skipped file")
}
