package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"bothub/internal/audit"
	"bothub/internal/registry/identifier"
	"bothub/internal/registry/models"
	dErrors "bothub/pkg/domain-errors"
	"bothub/pkg/platform/sentinel"
	"bothub/pkg/requestcontext"
)

// Register issues a client identifier and its companion bot identifier and
// persists both rows as one atomic unit.
//
// Failure categories:
//   - CodeValidation: name, email or phone missing; no storage access happens
//   - CodeConflict: email or phone already registered; nothing is written
//   - CodeCapacityExceeded: identifier space of either class is exhausted
//   - CodeInternal: any other storage failure, cause attached for diagnostics
//
// Both sequence allocations happen inside the transaction, so concurrent
// registrations serialize on the sequence rows and a rolled-back attempt
// releases its indexes.
func (s *Service) Register(ctx context.Context, name, email, phone string) (*models.Registration, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "registry.Register")
	defer span.End()

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if err := validateContact(name, email, phone); err != nil {
		s.metrics.ObserveRegister("invalid", start)
		return nil, err
	}

	var reg models.Registration
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		clientIndex, err := s.store.AllocateIndex(txCtx, models.EntityClient)
		if err != nil {
			return err
		}
		botIndex, err := s.store.AllocateIndex(txCtx, models.EntityAgent)
		if err != nil {
			return err
		}

		clientID, err := identifier.Next(models.EntityClient, clientIndex)
		if err != nil {
			return err
		}
		botID, err := identifier.Next(models.EntityAgent, botIndex)
		if err != nil {
			return err
		}

		client := &models.Client{
			ClientID:  clientID,
			Name:      name,
			Email:     email,
			Phone:     phone,
			CreatedAt: requestcontext.Now(txCtx),
		}
		if err := s.store.CreateClient(txCtx, client); err != nil {
			return err
		}
		agent := &models.Agent{
			BotID:    botID,
			ClientID: clientID,
			Status:   models.AgentStatusActive,
		}
		if err := s.store.CreateAgent(txCtx, agent); err != nil {
			return err
		}

		reg = models.Registration{ClientID: clientID, BotID: botID}
		return nil
	})
	if err != nil {
		cause := err
		err = classifyRegisterErr(err)
		code := dErrors.CodeOf(err)
		s.metrics.ObserveRegister(string(code), start)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		s.logger.WarnContext(ctx, "registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error_code", code,
			"error", cause,
		)
		return nil, err
	}

	s.invalidate(ctx, reg.BotID)
	s.emitAudit(ctx, audit.Event{
		Action:   audit.ActionClientRegistered,
		ClientID: reg.ClientID,
		BotIDs:   []string{reg.BotID},
	})
	s.metrics.ObserveRegister("success", start)
	s.logger.InfoContext(ctx, "client registered",
		"request_id", requestcontext.RequestID(ctx),
		"client_id", reg.ClientID,
		"bot_id", reg.BotID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &reg, nil
}

func validateContact(name, email, phone string) error {
	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if phone == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation, "missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

func classifyRegisterErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "email or phone already exists")
	case errors.Is(err, identifier.ErrCapacityExceeded):
		return dErrors.Wrap(err, dErrors.CodeCapacityExceeded, "cannot issue identifier")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register client")
	}
}
