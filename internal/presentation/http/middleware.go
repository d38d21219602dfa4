package http

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pagecraft/app/internal/presentation/http/templates"
)

const (
	rateLimitMessage = "Too many requests from your address. Please wait a moment and try again."

	metadataAuth    = "auth"
	metadataLimited = "rate-limited"

	authAPI   = "api"
	authAdmin = "admin"
)

func (s *Server) requestIDMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		reqID := uuid.NewString()
		goCtx := context.WithValue(ctx.Context(), requestIDContextKey, reqID)
		ctx = huma.WithContext(ctx, goCtx)
		ctx.SetHeader("X-Request-ID", reqID)

		if hub := sentry.GetHubFromContext(goCtx); hub != nil {
			hub.Scope().SetTag("request_id", reqID)
		}

		next(ctx)
	}
}

func (s *Server) rateLimitMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.rateLimiter == nil || !operationFlag(ctx.Operation(), metadataLimited) {
			next(ctx)
			return
		}

		req, _ := humago.Unwrap(ctx)
		if req == nil {
			next(ctx)
			return
		}

		ip := clientIPFromRequest(req)
		if s.rateLimiter.Allow(ip) {
			next(ctx)
			return
		}

		if s.logger != nil {
			fields := logrus.Fields{
				"ip":   ip,
				"path": req.URL.Path,
			}
			if requestID := RequestIDFromContext(ctx.Context()); requestID != "" {
				fields["request_id"] = requestID
			}
			s.logger.WithFields(fields).Warn("request rate limited")
		}

		body, err := renderComponent(ctx.Context(), templates.StatusPage(templates.StatusPageData{
			Title:       "Slow down",
			StatusLabel: "429",
			Message:     rateLimitMessage,
		}))
		if err != nil {
			s.recordError(ctx.Context(), err, "rendering rate limit response", logrus.Fields{"ip": ip})
			body = []byte(rateLimitMessage)
		}

		ctx.SetHeader("Content-Type", htmlContentType)
		ctx.SetHeader("Retry-After", "1")
		ctx.SetStatus(stdhttp.StatusTooManyRequests)
		_, _ = ctx.BodyWriter().Write(body)
	}
}

func (s *Server) authMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		var expected string
		switch operationAuth(ctx.Operation()) {
		case authAPI:
			expected = s.apiToken
		case authAdmin:
			expected = s.adminToken
			if expected == "" {
				_ = huma.WriteErr(s.api, ctx, stdhttp.StatusNotFound, "admin API is disabled")
				return
			}
		}

		if expected == "" || bearerMatches(ctx.Header("Authorization"), expected) {
			next(ctx)
			return
		}

		ctx.SetHeader("WWW-Authenticate", `Bearer realm="pagecraft"`)
		_ = huma.WriteErr(s.api, ctx, stdhttp.StatusUnauthorized, "missing or invalid bearer token")
	}
}

func (s *Server) loggingMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.logger == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		fields := logrus.Fields{
			"method":      ctx.Method(),
			"status":      status,
			"host":        ctx.Host(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		}

		if op := ctx.Operation(); op != nil {
			fields["route"] = op.Path
		}

		if req, _ := humago.Unwrap(ctx); req != nil {
			fields["path"] = req.URL.Path
			fields["remote_addr"] = req.RemoteAddr
		}

		if requestID := RequestIDFromContext(ctx.Context()); requestID != "" {
			fields["request_id"] = requestID
		}

		entry := s.logger.WithFields(fields)
		if status >= 500 {
			entry.Error("request failed")
		} else {
			entry.Info("request completed")
		}
	}
}

func (s *Server) recoveryMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			if rec := recover(); rec != nil {
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("panic: %v", v)
				}

				s.logError(ctx.Context(), err, "panic recovered", nil)

				if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
					hub.RecoverWithContext(ctx.Context(), rec)
				}

				if operationAuth(ctx.Operation()) != "" {
					_ = huma.WriteErr(s.api, ctx, stdhttp.StatusInternalServerError, "internal server error")
					return
				}

				doc := s.statusDocument(ctx.Context(), stdhttp.StatusInternalServerError)
				ctx.SetHeader("Content-Type", doc.ContentType)
				ctx.SetStatus(doc.Status)
				_, _ = ctx.BodyWriter().Write(doc.Body)
			}
		}()

		next(ctx)
	}
}

func (s *Server) sentryMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		hub := s.sentry.Clone()
		scope := hub.Scope()
		scope.SetTag("http.method", ctx.Method())
		scope.SetTag("http.host", ctx.Host())
		if op := ctx.Operation(); op != nil {
			scope.SetTag("http.route", op.Path)
		}

		goCtx := sentry.SetHubOnContext(ctx.Context(), hub)
		ctx = huma.WithContext(ctx, goCtx)

		next(ctx)
	}
}

func operationAuth(op *huma.Operation) string {
	if op == nil || op.Metadata == nil {
		return ""
	}
	value, _ := op.Metadata[metadataAuth].(string)
	return value
}

func operationFlag(op *huma.Operation, key string) bool {
	if op == nil || op.Metadata == nil {
		return false
	}
	value, _ := op.Metadata[key].(bool)
	return value
}

func bearerMatches(header, expected string) bool {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	token = strings.TrimSpace(token)
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

func clientIPFromRequest(req *stdhttp.Request) string {
	if req == nil {
		return ""
	}

	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if candidate := strings.TrimSpace(first); candidate != "" {
			return candidate
		}
	}

	if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
