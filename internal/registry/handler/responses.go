package handler

import (
	"errors"
	"net/http"

	"bothub/internal/registry/models"
	dErrors "bothub/pkg/domain-errors"
	"bothub/pkg/platform/httputil"
)

// RegisterResponse is the HTTP response for a successful POST /register.
type RegisterResponse struct {
	Success  bool   `json:"success"`
	ClientID string `json:"client_id"`
	BotID    string `json:"bot_id"`
}

// FailureResponse is written for failed mutations. Error is the stable
// category, ErrorDescription the human-readable detail.
type FailureResponse struct {
	Success          bool   `json:"success"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type VerifyResponse struct {
	Authorized bool `json:"authorized"`
}

type DeleteResponse struct {
	Success bool `json:"success"`
}

type StatsResponse struct {
	TotalClients int `json:"total_clients"`
	TotalBots    int `json:"total_bots"`
	ActiveBots   int `json:"active_bots"`
}

// ClientResponse is one element of GET /clients. BotID and CreatedAt are null
// when the client has no bot or no timestamp.
type ClientResponse struct {
	ClientID  string  `json:"client_id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	BotID     *string `json:"bot_id"`
	CreatedAt *string `json:"created_at"`
}

func FromStats(s models.Stats) StatsResponse {
	return StatsResponse{
		TotalClients: s.TotalClients,
		TotalBots:    s.TotalBots,
		ActiveBots:   s.ActiveBots,
	}
}

// FromListings converts directory rows, always yielding a non-nil slice so the
// body is [] rather than null.
func FromListings(listings []models.ClientListing) []ClientResponse {
	out := make([]ClientResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, ClientResponse{
			ClientID:  l.ClientID,
			Name:      l.Name,
			Email:     l.Email,
			Phone:     l.Phone,
			BotID:     l.BotID,
			CreatedAt: l.CreatedDate(),
		})
	}
	return out
}

// writeFailure maps a coded error onto a FailureResponse. Internal errors
// expose only their message, never the wrapped cause.
func writeFailure(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	desc := err.Error()
	var de *dErrors.Error
	if code == dErrors.CodeInternal {
		desc = "internal error"
		if errors.As(err, &de) && de.Message != "" {
			desc = de.Message
		}
	}
	httputil.WriteJSON(w, httputil.StatusFor(code), FailureResponse{
		Success:          false,
		Error:            string(code),
		ErrorDescription: desc,
	})
}
