package handler

// RegisterRequest is the HTTP request body for POST /register.
// Trimming and required-field checks happen in the service.
type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// VerifyRequest is the HTTP request body for POST /verify.
type VerifyRequest struct {
	BotID string `json:"bot_id"`
}
