package http

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pagecraft/app/internal/domain/publishing"
	applog "pagecraft/app/internal/platform/log"
)

// apiError maps a domain error onto a JSON problem response. Internal failures are logged,
// reported to Sentry, and described in detail to the authenticated caller.
func (s *Server) apiError(ctx context.Context, err error, operation string, fields logrus.Fields) error {
	switch {
	case eris.Is(err, publishing.ErrNotFound):
		return huma.Error404NotFound(eris.Cause(err).Error())
	case eris.Is(err, publishing.ErrConflict):
		return huma.Error409Conflict(err.Error())
	case eris.Is(err, publishing.ErrInvalidSlug),
		eris.Is(err, publishing.ErrInvalidInput),
		eris.Is(err, publishing.ErrInvalidDomain):
		return huma.Error400BadRequest(err.Error())
	}

	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["operation"] = operation
	s.recordError(ctx, err, operation+" failed", fields)

	return huma.Error500InternalServerError(operation + " failed: " + err.Error())
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	s.logError(ctx, err, message, fields)

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

func (s *Server) logError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		merged := logrus.Fields{"request_id": requestID}
		for key, value := range fields {
			merged[key] = value
		}
		fields = merged
	}

	applog.ComponentError(s.logger, "http", fields, err, message)
}
