package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"bothub/internal/registry/handler/mocks"
	"bothub/internal/registry/models"
	dErrors "bothub/pkg/domain-errors"
	"bothub/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	mockService *mocks.MockService
	router      chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.mockService = mocks.NewMockService(ctrl)
	h := New(s.mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterAdmin(s.router)
}

func (s *HandlerSuite) TestHandleRegister() {
	s.Run("created with both identifiers", func() {
		s.mockService.EXPECT().Register(gomock.Any(), "Ada", "ada@x.com", "555").
			Return(&models.Registration{ClientID: "AA0001", BotID: "BA0001"}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register",
			RegisterRequest{Name: "Ada", Email: "ada@x.com", Phone: "555"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		s.JSONEq(`{"success":true,"client_id":"AA0001","bot_id":"BA0001"}`, rr.Body.String())
	})

	s.Run("validation failure is 400", func() {
		s.mockService.EXPECT().Register(gomock.Any(), "", "", "").
			Return(nil, dErrors.New(dErrors.CodeValidation, "missing required fields: name, email, phone"))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/register", `{}`))

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		body := testutil.UnmarshalResponse[FailureResponse](s.T(), rr)
		s.False(body.Success)
		s.Equal("validation_error", body.Error)
		s.Contains(body.ErrorDescription, "name")
	})

	s.Run("duplicate is 409", func() {
		s.mockService.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "email or phone already exists"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register",
			RegisterRequest{Name: "Ada", Email: "ada@x.com", Phone: "555"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		s.JSONEq(`{"success":false,"error":"conflict","error_description":"email or phone already exists"}`, rr.Body.String())
	})

	s.Run("internal failure hides the cause", func() {
		s.mockService.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "failed to register client"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register",
			RegisterRequest{Name: "Ada", Email: "ada@x.com", Phone: "555"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		s.NotContains(rr.Body.String(), "pq:")
		s.JSONEq(`{"success":false,"error":"internal_error","error_description":"failed to register client"}`, rr.Body.String())
	})

	s.Run("malformed body is a validation error without service call", func() {
		for _, body := range []string{
			`{"name":`,
			`{"name":1,"email":"ada@x.com","phone":"111"}`,
			`["ada"]`,
		} {
			rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/register", body))
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		}
	})
}

func (s *HandlerSuite) TestHandleVerify() {
	s.Run("authorized", func() {
		s.mockService.EXPECT().Verify(gomock.Any(), "BA0001").Return(true)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/verify", VerifyRequest{BotID: "BA0001"}))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"authorized":true}`, rr.Body.String())
	})

	s.Run("denied is still 200", func() {
		s.mockService.EXPECT().Verify(gomock.Any(), "").Return(false)
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/verify", `{}`))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"authorized":false}`, rr.Body.String())
	})

	s.Run("unreadable body is denied without service call", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/verify", `not json`))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"authorized":false}`, rr.Body.String())
	})
}

func (s *HandlerSuite) TestHandleDelete() {
	s.Run("success", func() {
		s.mockService.EXPECT().DeleteClient(gomock.Any(), "AA0001").Return(nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/delete/AA0001"))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"success":true}`, rr.Body.String())
	})

	s.Run("storage failure is 500", func() {
		s.mockService.EXPECT().DeleteClient(gomock.Any(), "AA0001").
			Return(dErrors.Wrap(errors.New("deadlock"), dErrors.CodeInternal, "failed to delete client"))
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/delete/AA0001"))
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		s.JSONEq(`{"success":false,"error":"internal_error","error_description":"failed to delete client"}`, rr.Body.String())
	})
}

func (s *HandlerSuite) TestHandleStats() {
	s.mockService.EXPECT().Stats(gomock.Any()).Return(models.Stats{TotalClients: 3, TotalBots: 3, ActiveBots: 2})
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/stats"))
	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq(`{"total_clients":3,"total_bots":3,"active_bots":2}`, rr.Body.String())
}

func (s *HandlerSuite) TestHandleListClients() {
	s.Run("rows with and without bot", func() {
		bot := "BA0001"
		created := time.Date(2025, 3, 7, 23, 59, 0, 0, time.UTC)
		s.mockService.EXPECT().ListClients(gomock.Any()).Return([]models.ClientListing{
			{ClientID: "AA0001", Name: "Ada", Email: "ada@x.com", Phone: "555", BotID: &bot, CreatedAt: &created},
			{ClientID: "AB0002", Name: "Bob", Email: "bob@x.com", Phone: "556"},
		})
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/clients"))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`[
			{"client_id":"AA0001","name":"Ada","email":"ada@x.com","phone":"555","bot_id":"BA0001","created_at":"07-03-2025"},
			{"client_id":"AB0002","name":"Bob","email":"bob@x.com","phone":"556","bot_id":null,"created_at":null}
		]`, rr.Body.String())
	})

	s.Run("empty directory is an empty array", func() {
		s.mockService.EXPECT().ListClients(gomock.Any()).Return(nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/clients"))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`[]`, rr.Body.String())
	})
}

func TestWriteFailure_UncodedError(t *testing.T) {
	rr := testutil.DoRequest(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, errors.New("raw driver text"))
	}), testutil.NewRequest(t, http.MethodGet, "/"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"internal_error","error_description":"internal error"}`, rr.Body.String())
}
