package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"bothub/internal/audit"
	registrymetrics "bothub/internal/registry/metrics"
	"bothub/internal/registry/models"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store is the persistence port for clients, agents and identifier sequences.
// Methods called with a context produced by StoreTx.RunInTx run inside that
// transaction; all others run against committed state.
//
// Stores report a duplicate email or phone as sentinel.ErrAlreadyUsed.
type Store interface {
	// AllocateIndex returns the next zero-based sequence index for class.
	// Indexes are never handed out twice, even after deletions.
	AllocateIndex(ctx context.Context, class models.EntityClass) (int, error)
	CreateClient(ctx context.Context, client *models.Client) error
	CreateAgent(ctx context.Context, agent *models.Agent) error
	// DeleteAgentsByClient removes every agent owned by clientID and returns their ids.
	DeleteAgentsByClient(ctx context.Context, clientID string) ([]string, error)
	// DeleteClient removes the client row and reports whether one existed.
	DeleteClient(ctx context.Context, clientID string) (bool, error)
	IsAgentActive(ctx context.Context, botID string) (bool, error)
	CountClients(ctx context.Context) (int, error)
	CountAgents(ctx context.Context) (int, error)
	CountActiveAgents(ctx context.Context) (int, error)
	ListClients(ctx context.Context) ([]models.ClientListing, error)
}

// StoreTx provides the transactional boundary for registry mutations.
// Implementations may wrap a database transaction or, in-memory, a coarse lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// AuthCache memoizes authorization decisions in front of the store.
type AuthCache interface {
	Get(ctx context.Context, botID string) (authorized bool, found bool, err error)
	// Fill caches a store result unless an entry is already present.
	Fill(ctx context.Context, botID string, authorized bool) error
	Invalidate(ctx context.Context, botIDs ...string) error
	// Revoke pins a denial for deleted bots so a concurrent Fill cannot
	// re-authorize them.
	Revoke(ctx context.Context, botIDs ...string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service orchestrates registration, authorization and the client directory.
type Service struct {
	store          Store
	tx             StoreTx
	cache          AuthCache
	auditPublisher AuditPublisher
	metrics        *registrymetrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuthCache puts a read-through cache in front of IsAgentActive.
func WithAuthCache(cache AuthCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service. Store and tx are required.
func New(store Store, tx StoreTx, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if tx == nil {
		return nil, errors.New("tx is required")
	}
	s := &Service{store: store, tx: tx}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("bothub/registry")
	}
	return s, nil
}
