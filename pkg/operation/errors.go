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
	"time"

	"github.com/walteh/repotext/pkg/reference"
	"github.com/walteh/repotext/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

const (
	GuidanceInvalidReference  = "Invalid GitHub repository URL. Please provide a URL like https://github.com/owner/repo"
	GuidanceNotFound          = "Repository not found. If this is a private repository, you'll need to provide a personal access token."
	GuidanceNotFoundWithToken = "Repository not found or access denied. Check if the repository exists and your token has sufficient permissions."
	GuidanceRateLimited       = "API rate limit exceeded. Please provide a GitHub personal access token to increase your rate limit."
	GuidanceInterrupted       = "The fetch was cancelled before the repository was fully read."
)

// Kind classifies why a fetch failed
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidReference
	KindNotFound
	KindRateLimited
	KindRemote
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindInvalidReference:
		return "invalid reference"
	case KindNotFound:
		return "not found"
	case KindRateLimited:
		return "rate limited"
	case KindRemote:
		return "remote error"
	case KindInterrupted:
		return "interrupted"
	default:
		return "internal error"
	}
}

// ❌ Error is a failed fetch with a message fit for the person who asked for it
type Error struct {
	Kind     Kind
	Guidance string
	// Reset is when a rate limit window reopens, when the API reported it.
	Reset time.Time
	Err   error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func classify(err error, hasCredential bool) *Error {
	if errors.Is(err, reference.ErrInvalidReference) {
		return &Error{Kind: KindInvalidReference, Guidance: GuidanceInvalidReference, Err: err}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindInterrupted, Guidance: GuidanceInterrupted, Err: err}
	}

	var rerr *remote.Error
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case remote.ErrorNotFound:
			guidance := GuidanceNotFound
			if hasCredential {
				guidance = GuidanceNotFoundWithToken
			}
			return &Error{Kind: KindNotFound, Guidance: guidance, Err: err}
		case remote.ErrorRateLimited:
			return &Error{Kind: KindRateLimited, Guidance: GuidanceRateLimited, Reset: rerr.Reset, Err: err}
		default:
			return &Error{Kind: KindRemote, Guidance: rerr.Error(), Err: err}
		}
	}

	return &Error{Kind: KindInternal, Guidance: err.Error(), Err: err}
}
