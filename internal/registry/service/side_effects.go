package service

import (
	"context"

	"bothub/internal/audit"
	"bothub/pkg/requestcontext"
)

// invalidate drops cached authorization decisions. Failures only delay
// convergence until the cache TTL expires.
func (s *Service) invalidate(ctx context.Context, botIDs ...string) {
	if s.cache == nil || len(botIDs) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, botIDs...); err != nil {
		s.logger.WarnContext(ctx, "authorization cache invalidation failed",
			"bot_ids", botIDs,
			"error", err,
		)
	}
}

// revoke pins denials for deleted bots. A failure leaves any cached approval
// in place until its TTL expires.
func (s *Service) revoke(ctx context.Context, botIDs ...string) {
	if s.cache == nil || len(botIDs) == 0 {
		return
	}
	if err := s.cache.Revoke(ctx, botIDs...); err != nil {
		s.logger.WarnContext(ctx, "authorization cache revocation failed",
			"bot_ids", botIDs,
			"error", err,
		)
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"client_id", event.ClientID,
			"error", err,
		)
	}
}
