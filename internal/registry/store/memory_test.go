package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bothub/internal/registry/models"
	"bothub/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) createPair(clientID, botID, email, phone string, at time.Time) {
	s.Require().NoError(s.store.RunInTx(s.ctx, func(txCtx context.Context) error {
		if err := s.store.CreateClient(txCtx, &models.Client{
			ClientID: clientID, Name: "n", Email: email, Phone: phone, CreatedAt: at,
		}); err != nil {
			return err
		}
		return s.store.CreateAgent(txCtx, &models.Agent{
			BotID: botID, ClientID: clientID, Status: models.AgentStatusActive,
		})
	}))
}

func (s *InMemoryStoreSuite) TestAllocateIndex() {
	s.Run("sequences are independent per class", func() {
		for want := 0; want < 3; want++ {
			got, err := s.store.AllocateIndex(s.ctx, models.EntityClient)
			s.Require().NoError(err)
			s.Equal(want, got)
		}
		got, err := s.store.AllocateIndex(s.ctx, models.EntityAgent)
		s.Require().NoError(err)
		s.Equal(0, got)
	})

	s.Run("rolled back allocation is released", func() {
		st := NewInMemory()
		err := st.RunInTx(s.ctx, func(txCtx context.Context) error {
			_, _ = st.AllocateIndex(txCtx, models.EntityClient)
			return errors.New("abort")
		})
		s.Require().Error(err)

		got, err := st.AllocateIndex(s.ctx, models.EntityClient)
		s.Require().NoError(err)
		s.Equal(0, got)
	})

	s.Run("deletion never rewinds the sequence", func() {
		st := NewInMemory()
		s.store = st
		idx, _ := st.AllocateIndex(s.ctx, models.EntityClient)
		s.createPair("AA0001", "BA0001", "a@x.com", "1", time.Now())
		_, err := st.DeleteAgentsByClient(s.ctx, "AA0001")
		s.Require().NoError(err)
		_, err = st.DeleteClient(s.ctx, "AA0001")
		s.Require().NoError(err)

		next, err := st.AllocateIndex(s.ctx, models.EntityClient)
		s.Require().NoError(err)
		s.Equal(idx+1, next)
	})
}

func (s *InMemoryStoreSuite) TestUniqueContacts() {
	s.createPair("AA0001", "BA0001", "ada@x.com", "111", time.Now())

	s.Run("duplicate email is already used", func() {
		err := s.store.CreateClient(s.ctx, &models.Client{ClientID: "AB0002", Email: "ada@x.com", Phone: "222"})
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("duplicate phone is already used", func() {
		err := s.store.CreateClient(s.ctx, &models.Client{ClientID: "AB0002", Email: "bob@x.com", Phone: "111"})
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("duplicate client id is a plain storage error", func() {
		err := s.store.CreateClient(s.ctx, &models.Client{ClientID: "AA0001", Email: "c@x.com", Phone: "333"})
		s.Require().Error(err)
		s.NotErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("deleted contacts can be registered again", func() {
		_, err := s.store.DeleteAgentsByClient(s.ctx, "AA0001")
		s.Require().NoError(err)
		_, err = s.store.DeleteClient(s.ctx, "AA0001")
		s.Require().NoError(err)
		s.NoError(s.store.CreateClient(s.ctx, &models.Client{ClientID: "AB0002", Email: "ada@x.com", Phone: "111"}))
	})
}

func (s *InMemoryStoreSuite) TestTransactionIsolation() {
	s.Run("failed transaction leaves no partial rows", func() {
		err := s.store.RunInTx(s.ctx, func(txCtx context.Context) error {
			if err := s.store.CreateClient(txCtx, &models.Client{ClientID: "AA0001", Email: "a", Phone: "1"}); err != nil {
				return err
			}
			return errors.New("agent insert failed")
		})
		s.Require().Error(err)

		n, err := s.store.CountClients(s.ctx)
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("uncommitted rows are invisible outside the transaction", func() {
		inside := make(chan struct{})
		release := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.store.RunInTx(s.ctx, func(txCtx context.Context) error {
				_ = s.store.CreateClient(txCtx, &models.Client{ClientID: "AB0002", Email: "b", Phone: "2"})
				close(inside)
				<-release
				return nil
			})
		}()

		<-inside
		n, err := s.store.CountClients(s.ctx)
		s.Require().NoError(err)
		s.Zero(n)

		close(release)
		wg.Wait()
		n, err = s.store.CountClients(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, n)
	})

	s.Run("nested transaction joins the outer one", func() {
		s.SetupTest()
		done := make(chan error, 1)
		go func() {
			done <- s.store.RunInTx(s.ctx, func(outer context.Context) error {
				if err := s.store.RunInTx(outer, func(inner context.Context) error {
					return s.store.CreateClient(inner, &models.Client{ClientID: "AA0001", Email: "n@x.com", Phone: "9"})
				}); err != nil {
					return err
				}
				return errors.New("abort outer")
			})
		}()

		select {
		case err := <-done:
			s.EqualError(err, "abort outer")
		case <-time.After(2 * time.Second):
			s.FailNow("nested RunInTx blocked on the outer transaction")
		}
		n, err := s.store.CountClients(s.ctx)
		s.Require().NoError(err)
		s.Zero(n, "inner writes roll back with the outer transaction")
	})

	s.Run("cancelled context never starts", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		called := false
		err := s.store.RunInTx(ctx, func(context.Context) error {
			called = true
			return nil
		})
		s.ErrorIs(err, context.Canceled)
		s.False(called)
	})
}

func (s *InMemoryStoreSuite) TestDeleteOrdering() {
	s.createPair("AA0001", "BA0001", "a@x.com", "1", time.Now())

	s.Run("client with a bot cannot be removed first", func() {
		_, err := s.store.DeleteClient(s.ctx, "AA0001")
		s.Error(err)
	})

	s.Run("bots then client", func() {
		ids, err := s.store.DeleteAgentsByClient(s.ctx, "AA0001")
		s.Require().NoError(err)
		s.Equal([]string{"BA0001"}, ids)

		found, err := s.store.DeleteClient(s.ctx, "AA0001")
		s.Require().NoError(err)
		s.True(found)
	})

	s.Run("unknown client is a no-op", func() {
		ids, err := s.store.DeleteAgentsByClient(s.ctx, "ZZ9999")
		s.Require().NoError(err)
		s.Empty(ids)
		found, err := s.store.DeleteClient(s.ctx, "ZZ9999")
		s.Require().NoError(err)
		s.False(found)
	})
}

func (s *InMemoryStoreSuite) TestReads() {
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.createPair("AA0001", "BA0001", "a@x.com", "1", t0.Add(time.Hour))
	s.createPair("AB0002", "BB0002", "b@x.com", "2", t0)
	s.Require().NoError(s.store.CreateClient(s.ctx, &models.Client{ClientID: "AC0003", Email: "c@x.com", Phone: "3"}))
	s.Require().NoError(s.store.CreateAgent(s.ctx, &models.Agent{BotID: "BC0003", ClientID: "AB0002", Status: "SUSPENDED"}))

	s.Run("active check honours status", func() {
		active, err := s.store.IsAgentActive(s.ctx, "BA0001")
		s.Require().NoError(err)
		s.True(active)

		active, err = s.store.IsAgentActive(s.ctx, "BC0003")
		s.Require().NoError(err)
		s.False(active)

		active, err = s.store.IsAgentActive(s.ctx, "BZ0999")
		s.Require().NoError(err)
		s.False(active)
	})

	s.Run("counts", func() {
		clients, _ := s.store.CountClients(s.ctx)
		bots, _ := s.store.CountAgents(s.ctx)
		active, _ := s.store.CountActiveAgents(s.ctx)
		s.Equal(3, clients)
		s.Equal(3, bots)
		s.Equal(2, active)
	})

	s.Run("listing is ordered and left-joined", func() {
		listings, err := s.store.ListClients(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(listings, 4)

		s.Equal("AB0002", listings[0].ClientID)
		s.Equal("AB0002", listings[1].ClientID)
		s.Require().NotNil(listings[0].BotID)
		s.Require().NotNil(listings[1].BotID)
		s.Equal("BB0002", *listings[0].BotID, "bots of one client are ordered by id")
		s.Equal("BC0003", *listings[1].BotID)
		s.Equal("AA0001", listings[2].ClientID)
		s.Equal("AC0003", listings[3].ClientID)
		s.Nil(listings[3].BotID)
		s.Nil(listings[3].CreatedAt)
		s.Require().NotNil(listings[2].BotID)
		s.Equal("BA0001", *listings[2].BotID)
	})
}
