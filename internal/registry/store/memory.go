package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bothub/internal/registry/models"
	"bothub/pkg/platform/sentinel"
)

// InMemory is a process-local registry store for development and tests.
//
// Transactions are serialized by txMu and work on a private copy of the state
// that replaces the committed state only when the callback succeeds, so other
// readers never observe a client without its agent.
type InMemory struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *memState
}

type memState struct {
	clients map[string]models.Client
	agents  map[string]models.Agent
	emails  map[string]string
	phones  map[string]string
	seq     map[models.EntityClass]int
}

func newMemState() *memState {
	return &memState{
		clients: make(map[string]models.Client),
		agents:  make(map[string]models.Agent),
		emails:  make(map[string]string),
		phones:  make(map[string]string),
		seq:     make(map[models.EntityClass]int),
	}
}

func (m *memState) clone() *memState {
	c := newMemState()
	for k, v := range m.clients {
		c.clients[k] = v
	}
	for k, v := range m.agents {
		c.agents[k] = v
	}
	for k, v := range m.emails {
		c.emails[k] = v
	}
	for k, v := range m.phones {
		c.phones[k] = v
	}
	for k, v := range m.seq {
		c.seq[k] = v
	}
	return c
}

type memTxKey struct{}

// NewInMemory constructs an empty store.
func NewInMemory() *InMemory {
	return &InMemory{st: newMemState()}
}

// RunInTx implements service.StoreTx. A call made inside a running
// transaction joins it, as PostgresTx does.
func (s *InMemory) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, joined := ctx.Value(memTxKey{}).(*memState); joined {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, work)); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = work
	s.mu.Unlock()
	return nil
}

// view runs fn against the transaction's working copy when ctx carries one,
// otherwise against committed state under the appropriate lock.
func (s *InMemory) view(ctx context.Context, write bool, fn func(st *memState) error) error {
	if work, ok := ctx.Value(memTxKey{}).(*memState); ok {
		return fn(work)
	}
	if write {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	return fn(s.st)
}

func (s *InMemory) AllocateIndex(ctx context.Context, class models.EntityClass) (int, error) {
	var index int
	err := s.view(ctx, true, func(st *memState) error {
		index = st.seq[class]
		st.seq[class] = index + 1
		return nil
	})
	return index, err
}

func (s *InMemory) CreateClient(ctx context.Context, client *models.Client) error {
	return s.view(ctx, true, func(st *memState) error {
		if _, ok := st.clients[client.ClientID]; ok {
			return fmt.Errorf("client %s already exists", client.ClientID)
		}
		if _, ok := st.emails[client.Email]; ok {
			return fmt.Errorf("email: %w", sentinel.ErrAlreadyUsed)
		}
		if _, ok := st.phones[client.Phone]; ok {
			return fmt.Errorf("phone: %w", sentinel.ErrAlreadyUsed)
		}
		st.clients[client.ClientID] = *client
		st.emails[client.Email] = client.ClientID
		st.phones[client.Phone] = client.ClientID
		return nil
	})
}

func (s *InMemory) CreateAgent(ctx context.Context, agent *models.Agent) error {
	return s.view(ctx, true, func(st *memState) error {
		if _, ok := st.agents[agent.BotID]; ok {
			return fmt.Errorf("bot %s already exists", agent.BotID)
		}
		if _, ok := st.clients[agent.ClientID]; !ok {
			return fmt.Errorf("bot %s references unknown client %s: %w", agent.BotID, agent.ClientID, sentinel.ErrNotFound)
		}
		st.agents[agent.BotID] = *agent
		return nil
	})
}

func (s *InMemory) DeleteAgentsByClient(ctx context.Context, clientID string) ([]string, error) {
	var deleted []string
	err := s.view(ctx, true, func(st *memState) error {
		for id, a := range st.agents {
			if a.ClientID == clientID {
				deleted = append(deleted, id)
				delete(st.agents, id)
			}
		}
		return nil
	})
	sort.Strings(deleted)
	return deleted, err
}

func (s *InMemory) DeleteClient(ctx context.Context, clientID string) (bool, error) {
	var found bool
	err := s.view(ctx, true, func(st *memState) error {
		c, ok := st.clients[clientID]
		if !ok {
			return nil
		}
		for _, a := range st.agents {
			if a.ClientID == clientID {
				return fmt.Errorf("client %s still owns bot %s", clientID, a.BotID)
			}
		}
		delete(st.clients, clientID)
		delete(st.emails, c.Email)
		delete(st.phones, c.Phone)
		found = true
		return nil
	})
	return found, err
}

func (s *InMemory) IsAgentActive(ctx context.Context, botID string) (bool, error) {
	var active bool
	err := s.view(ctx, false, func(st *memState) error {
		a, ok := st.agents[botID]
		active = ok && a.IsActive()
		return nil
	})
	return active, err
}

func (s *InMemory) CountClients(ctx context.Context) (int, error) {
	var n int
	err := s.view(ctx, false, func(st *memState) error {
		n = len(st.clients)
		return nil
	})
	return n, err
}

func (s *InMemory) CountAgents(ctx context.Context) (int, error) {
	var n int
	err := s.view(ctx, false, func(st *memState) error {
		n = len(st.agents)
		return nil
	})
	return n, err
}

func (s *InMemory) CountActiveAgents(ctx context.Context) (int, error) {
	var n int
	err := s.view(ctx, false, func(st *memState) error {
		for _, a := range st.agents {
			if a.IsActive() {
				n++
			}
		}
		return nil
	})
	return n, err
}

// ListClients left-joins clients to agents: one row per agent, or a single
// row with a nil BotID for a client without one.
func (s *InMemory) ListClients(ctx context.Context) ([]models.ClientListing, error) {
	var out []models.ClientListing
	err := s.view(ctx, false, func(st *memState) error {
		botsByClient := make(map[string][]string, len(st.agents))
		for id, a := range st.agents {
			botsByClient[a.ClientID] = append(botsByClient[a.ClientID], id)
		}
		out = make([]models.ClientListing, 0, len(st.clients)+len(st.agents))
		for _, c := range st.clients {
			base := models.ClientListing{
				ClientID: c.ClientID,
				Name:     c.Name,
				Email:    c.Email,
				Phone:    c.Phone,
			}
			if !c.CreatedAt.IsZero() {
				created := c.CreatedAt
				base.CreatedAt = &created
			}
			bots := botsByClient[c.ClientID]
			if len(bots) == 0 {
				out = append(out, base)
				continue
			}
			for _, botID := range bots {
				l := base
				l.BotID = &botID
				out = append(out, l)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return listingLess(out[i], out[j])
	})
	return out, err
}

// listingLess orders by created_at, client_id, then bot_id. Null timestamps
// and null bot ids sort last, matching the NULLS LAST ordering in Postgres.
func listingLess(a, b models.ClientListing) bool {
	switch {
	case a.CreatedAt == nil && b.CreatedAt != nil:
		return false
	case a.CreatedAt != nil && b.CreatedAt == nil:
		return true
	case a.CreatedAt != nil && !a.CreatedAt.Equal(*b.CreatedAt):
		return a.CreatedAt.Before(*b.CreatedAt)
	}
	if a.ClientID != b.ClientID {
		return a.ClientID < b.ClientID
	}
	switch {
	case a.BotID == nil:
		return false
	case b.BotID == nil:
		return true
	}
	return *a.BotID < *b.BotID
}
