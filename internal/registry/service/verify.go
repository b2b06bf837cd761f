package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bothub/internal/registry/identifier"
	"bothub/pkg/requestcontext"
)

// Verify reports whether botID names an existing agent with status ACTIVE.
//
// Verify is fail-closed: a malformed id, a cache or store error, or a missing
// row all yield false, and no error ever reaches the caller. Malformed ids are
// rejected before any cache or storage access.
func (s *Service) Verify(ctx context.Context, botID string) bool {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "registry.Verify")
	defer span.End()

	if botID == "" || !identifier.IsValidFormat(botID) {
		s.metrics.ObserveVerify("malformed", start)
		span.SetAttributes(attribute.String("verify.result", "malformed"))
		return false
	}
	span.SetAttributes(attribute.String("bot_id", botID))

	if s.cache != nil {
		authorized, found, err := s.cache.Get(ctx, botID)
		if err != nil {
			s.logger.WarnContext(ctx, "authorization cache read failed",
				"bot_id", botID,
				"error", err,
			)
		} else if found {
			s.recordVerify(ctx, span, botID, authorized, "cache", start)
			return authorized
		}
	}

	active, err := s.store.IsAgentActive(ctx, botID)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveVerify("error", start)
		s.logger.ErrorContext(ctx, "authorization check failed, denying",
			"request_id", requestcontext.RequestID(ctx),
			"bot_id", botID,
			"error", err,
		)
		return false
	}

	if s.cache != nil {
		if err := s.cache.Fill(ctx, botID, active); err != nil {
			s.logger.WarnContext(ctx, "authorization cache write failed",
				"bot_id", botID,
				"error", err,
			)
		}
	}
	s.recordVerify(ctx, span, botID, active, "store", start)
	return active
}

func (s *Service) recordVerify(ctx context.Context, span trace.Span, botID string, authorized bool, source string, start time.Time) {
	result := "denied"
	if authorized {
		result = "authorized"
	}
	s.metrics.ObserveVerify(result, start)
	span.SetAttributes(
		attribute.String("verify.result", result),
		attribute.String("verify.source", source),
	)
	s.logger.InfoContext(ctx, "bot verification",
		"request_id", requestcontext.RequestID(ctx),
		"bot_id", botID,
		"authorized", authorized,
		"source", source,
		"client_ip", requestcontext.ClientIP(ctx),
		"client_platform", requestcontext.ClientPlatform(ctx),
	)
}
