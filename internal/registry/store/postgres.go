package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"bothub/internal/registry/models"
	"bothub/pkg/platform/sentinel"
	txcontext "bothub/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

const pgUniqueViolation = "23505"

// contactConstraints are the unique constraints that make a registration a
// duplicate contact rather than a storage fault.
var contactConstraints = map[string]bool{
	"clients_email_key": true,
	"clients_phone_key": true,
}

// PostgresStore persists clients, bots and identifier sequences in PostgreSQL.
// This store is pure I/O; identifier derivation and error classification into
// domain codes belong in the service. Calls made with a context carrying a
// transaction (see pkg/platform/tx) run inside it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the registry tables if they do not exist and seeds the
// identifier sequences from any rows already present.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate registry schema: %w", err)
		}
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) q(ctx context.Context) txcontext.Querier {
	return txcontext.QuerierFrom(ctx, s.db)
}

// AllocateIndex atomically increments the class sequence and returns the
// previous value. The row lock is held until the surrounding transaction ends,
// which serializes concurrent registrations.
func (s *PostgresStore) AllocateIndex(ctx context.Context, class models.EntityClass) (int, error) {
	query := `
		INSERT INTO id_sequences (entity_class, next_index)
		VALUES ($1, 1)
		ON CONFLICT (entity_class) DO UPDATE SET
			next_index = id_sequences.next_index + 1
		RETURNING next_index - 1
	`
	var index int64
	if err := s.q(ctx).QueryRowContext(ctx, query, string(class)).Scan(&index); err != nil {
		return 0, fmt.Errorf("allocate %s index: %w", class, err)
	}
	return int(index), nil
}

func (s *PostgresStore) CreateClient(ctx context.Context, client *models.Client) error {
	if client == nil {
		return fmt.Errorf("client is required")
	}
	query := `
		INSERT INTO clients (client_id, name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		client.ClientID,
		client.Name,
		client.Email,
		client.Phone,
		client.CreatedAt,
	)
	if err != nil {
		return classifyWrite("insert client", err)
	}
	return nil
}

func (s *PostgresStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	if agent == nil {
		return fmt.Errorf("agent is required")
	}
	status := agent.Status
	if status == "" {
		status = models.AgentStatusActive
	}
	query := `
		INSERT INTO bots (bot_id, client_id, status)
		VALUES ($1, $2, $3)
	`
	if _, err := s.q(ctx).ExecContext(ctx, query, agent.BotID, agent.ClientID, string(status)); err != nil {
		return classifyWrite("insert bot", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAgentsByClient(ctx context.Context, clientID string) ([]string, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `DELETE FROM bots WHERE client_id = $1 RETURNING bot_id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("delete bots: %w", err)
	}
	defer rows.Close()

	var botIDs []string
	for rows.Next() {
		var botID string
		if err := rows.Scan(&botID); err != nil {
			return nil, fmt.Errorf("scan deleted bot: %w", err)
		}
		botIDs = append(botIDs, botID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted bots: %w", err)
	}
	return botIDs, nil
}

func (s *PostgresStore) DeleteClient(ctx context.Context, clientID string) (bool, error) {
	result, err := s.q(ctx).ExecContext(ctx, `DELETE FROM clients WHERE client_id = $1`, clientID)
	if err != nil {
		return false, fmt.Errorf("delete client: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete client rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) IsAgentActive(ctx context.Context, botID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM bots WHERE bot_id = $1 AND status = $2)`
	var active bool
	if err := s.q(ctx).QueryRowContext(ctx, query, botID, string(models.AgentStatusActive)).Scan(&active); err != nil {
		return false, fmt.Errorf("check bot status: %w", err)
	}
	return active, nil
}

func (s *PostgresStore) CountClients(ctx context.Context) (int, error) {
	return s.count(ctx, "count clients", `SELECT COUNT(*) FROM clients`)
}

func (s *PostgresStore) CountAgents(ctx context.Context) (int, error) {
	return s.count(ctx, "count bots", `SELECT COUNT(*) FROM bots`)
}

func (s *PostgresStore) CountActiveAgents(ctx context.Context) (int, error) {
	return s.count(ctx, "count active bots", `SELECT COUNT(*) FROM bots WHERE status = $1`, string(models.AgentStatusActive))
}

func (s *PostgresStore) count(ctx context.Context, op, query string, args ...any) (int, error) {
	var n int
	if err := s.q(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (s *PostgresStore) ListClients(ctx context.Context) ([]models.ClientListing, error) {
	query := `
		SELECT c.client_id, c.name, c.email, c.phone, b.bot_id, c.created_at
		FROM clients c
		LEFT JOIN bots b ON c.client_id = b.client_id
		ORDER BY c.created_at ASC NULLS LAST, c.client_id ASC, b.bot_id ASC NULLS LAST
	`
	rows, err := s.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	listings := []models.ClientListing{}
	for rows.Next() {
		var (
			l         models.ClientListing
			botID     sql.NullString
			createdAt sql.NullTime
		)
		if err := rows.Scan(&l.ClientID, &l.Name, &l.Email, &l.Phone, &botID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		if botID.Valid {
			l.BotID = &botID.String
		}
		if createdAt.Valid {
			l.CreatedAt = &createdAt.Time
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return listings, nil
}

// classifyWrite maps unique violations on email or phone to
// sentinel.ErrAlreadyUsed. Both supported drivers are recognized.
func classifyWrite(op string, err error) error {
	if constraint, ok := uniqueViolation(err); ok && contactConstraints[constraint] {
		return fmt.Errorf("%s: %s: %w: %w", op, constraint, sentinel.ErrAlreadyUsed, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return pqErr.Constraint, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
