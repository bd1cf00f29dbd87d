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

// Package server exposes repository aggregation over a small JSON API.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/walteh/repotext/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// FetchFunc aggregates the repository at locator.
type FetchFunc func(ctx context.Context, locator, credential string) (*operation.Result, error)

// FetchRequest is the body of POST /api/v1/fetch
type FetchRequest struct {
	URL string `json:"url" binding:"required"`
	// Token may also be sent as "Authorization: token <pat>".
	Token string `json:"token,omitempty"`
}

// FetchResponse is the success body of POST /api/v1/fetch
type FetchResponse struct {
	Content    string `json:"content"`
	Count      int    `json:"count"`
	Digest     string `json:"digest"`
	Repository string `json:"repository"`
	Summary    string `json:"summary"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string     `json:"error"`
	Kind  string     `json:"kind"`
	Reset *time.Time `json:"reset,omitempty"`
}

// 🌐 Server serves the fetch API
type Server struct {
	engine *gin.Engine
	fetch  FetchFunc
}

// 🏭 New creates a server. Request logs go to the logger carried by ctx.
func New(ctx context.Context, fetch FetchFunc) *Server {
	s := &Server{
		engine: gin.New(),
		fetch:  fetch,
	}

	s.engine.Use(gin.Recovery(), requestLogger(*zerolog.Ctx(ctx)))
	s.engine.GET("/healthz", s.healthz)

	api := s.engine.Group("/api/v1")
	api.POST("/fetch", s.handleFetch)

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	zerolog.Ctx(ctx).Info().Str("addr", addr).Msg("serving")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLogger := logger.With().Str("method", c.Request.Method).Str("route", c.FullPath()).Logger()
		c.Request = c.Request.WithContext(reqLogger.WithContext(c.Request.Context()))

		c.Next()

		reqLogger.Info().
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleFetch(c *gin.Context) {
	var req FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "request body must be JSON with a url field", Kind: "bad request"})
		return
	}

	credential := req.Token
	if credential == "" {
		credential = credentialFromHeader(c.GetHeader("Authorization"))
	}

	result, err := s.fetch(c.Request.Context(), req.URL, credential)
	if err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, FetchResponse{
		Content:    result.Document,
		Count:      result.Count,
		Digest:     result.Digest,
		Repository: result.Repository,
		Summary:    result.Summary(),
	})
}

func credentialFromHeader(h string) string {
	scheme, value, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "token", "bearer":
		return strings.TrimSpace(value)
	default:
		return ""
	}
}

func errorResponse(err error) (int, ErrorResponse) {
	var oerr *operation.Error
	if !errors.As(err, &oerr) {
		return http.StatusInternalServerError, ErrorResponse{Error: "internal error", Kind: operation.KindInternal.String()}
	}

	body := ErrorResponse{Error: oerr.Guidance, Kind: oerr.Kind.String()}
	if !oerr.Reset.IsZero() {
		reset := oerr.Reset.UTC()
		body.Reset = &reset
	}

	switch oerr.Kind {
	case operation.KindInvalidReference:
		return http.StatusBadRequest, body
	case operation.KindNotFound:
		return http.StatusNotFound, body
	case operation.KindRateLimited:
		return http.StatusTooManyRequests, body
	case operation.KindRemote:
		return http.StatusBadGateway, body
	case operation.KindInterrupted:
		return http.StatusServiceUnavailable, body
	default:
		body.Error = "internal error"
		return http.StatusInternalServerError, body
	}
}
