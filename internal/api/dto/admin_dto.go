package dto

// TokenResponse is returned on successful admin login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// SendEmailRequest payload.
type SendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	HTML    bool   `json:"html,omitempty"`
}

// SendSMSRequest payload.
type SendSMSRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}
