package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bothub/internal/registry/models"
	dErrors "bothub/pkg/domain-errors"
	"bothub/pkg/platform/httputil"
	"bothub/pkg/requestcontext"
)

// Service defines the registry operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, name, email, phone string) (*models.Registration, error)
	Verify(ctx context.Context, botID string) bool
	DeleteClient(ctx context.Context, clientID string) error
	Stats(ctx context.Context) models.Stats
	ListClients(ctx context.Context) []models.ClientListing
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registry handler.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the public endpoints: registration and bot verification.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register", h.HandleRegister)
	r.Post("/verify", h.HandleVerify)
	r.Get("/stats", h.HandleStats)
}

// RegisterAdmin mounts the directory endpoints. Callers wrap r with the admin
// token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Delete("/delete/{client_id}", h.HandleDelete)
	r.Get("/clients", h.HandleListClients)
}

// HandleRegister handles POST /register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid registration body",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		// An unreadable or wrongly typed body is malformed registration input.
		writeFailure(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid registration body"))
		return
	}

	reg, err := h.service.Register(ctx, req.Name, req.Email, req.Phone)
	if err != nil {
		writeFailure(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Success:  true,
		ClientID: reg.ClientID,
		BotID:    reg.BotID,
	})
}

// HandleVerify handles POST /verify. It always answers 200; anything that is
// not a positive check, including an unreadable body, is authorized=false.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req VerifyRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid verify body",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusOK, VerifyResponse{Authorized: false})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{
		Authorized: h.service.Verify(ctx, req.BotID),
	})
}

// HandleDelete handles DELETE /delete/{client_id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "client_id")
	if err := h.service.DeleteClient(r.Context(), clientID); err != nil {
		writeFailure(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DeleteResponse{Success: true})
}

// HandleStats handles GET /stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromStats(h.service.Stats(r.Context())))
}

// HandleListClients handles GET /clients.
func (h *Handler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromListings(h.service.ListClients(r.Context())))
}
