package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"bothub/internal/registry/models"
)

// Stats returns the client, bot and active-bot totals.
//
// Stats is fail-soft. Any failure yields all zeros, logs at warn level and
// increments bothub_degraded_reads_total.
func (s *Service) Stats(ctx context.Context) models.Stats {
	ctx, span := s.tracer.Start(ctx, "registry.Stats")
	defer span.End()

	var stats models.Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountClients(gctx)
		stats.TotalClients = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountAgents(gctx)
		stats.TotalBots = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountActiveAgents(gctx)
		stats.ActiveBots = n
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		s.metrics.IncrementDegradedRead("stats")
		s.logger.WarnContext(ctx, "stats unavailable, reporting zeros", "error", err)
		return models.Stats{}
	}
	return stats
}

// ListClients returns every client joined with its bot, oldest first.
// Like Stats it is fail-soft: any failure yields an empty, non-nil slice.
func (s *Service) ListClients(ctx context.Context) []models.ClientListing {
	ctx, span := s.tracer.Start(ctx, "registry.ListClients")
	defer span.End()

	listings, err := s.store.ListClients(ctx)
	if err != nil {
		span.RecordError(err)
		s.metrics.IncrementDegradedRead("list_clients")
		s.logger.WarnContext(ctx, "client listing unavailable, reporting empty list", "error", err)
		return []models.ClientListing{}
	}
	if listings == nil {
		listings = []models.ClientListing{}
	}
	return listings
}
