package service

import (
	"context"

	"bothub/internal/audit"
	dErrors "bothub/pkg/domain-errors"
	"bothub/pkg/requestcontext"
)

// DeleteClient removes a client and its bots in one transaction, bots first
// so the foreign key never dangles. The id is not format-checked; deleting an
// unknown id succeeds without changing anything.
func (s *Service) DeleteClient(ctx context.Context, clientID string) error {
	ctx, span := s.tracer.Start(ctx, "registry.DeleteClient")
	defer span.End()

	var (
		botIDs  []string
		existed bool
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		ids, err := s.store.DeleteAgentsByClient(txCtx, clientID)
		if err != nil {
			return err
		}
		found, err := s.store.DeleteClient(txCtx, clientID)
		if err != nil {
			return err
		}
		botIDs, existed = ids, found
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.IncrementDeletion("error")
		s.logger.ErrorContext(ctx, "client deletion failed",
			"request_id", requestcontext.RequestID(ctx),
			"client_id", clientID,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete client")
	}

	s.revoke(ctx, botIDs...)
	if !existed && len(botIDs) == 0 {
		s.metrics.IncrementDeletion("noop")
		return nil
	}
	s.emitAudit(ctx, audit.Event{
		Action:   audit.ActionClientDeleted,
		ClientID: clientID,
		BotIDs:   botIDs,
	})
	s.metrics.IncrementDeletion("success")
	s.logger.InfoContext(ctx, "client deleted",
		"request_id", requestcontext.RequestID(ctx),
		"client_id", clientID,
		"bot_ids", botIDs,
	)
	return nil
}
