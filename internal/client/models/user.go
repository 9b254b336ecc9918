// Package models defines client-side data models used by the ocrdesk CLI:
// the authenticated user, processing jobs, history entries and the request
// and response payloads of the OCR service.
package models

// User is the profile returned by the service on sign-up and login.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SignUpRequest is the body of POST /auth/signup.
type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by sign-up and login.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        User   `json:"user"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type ChangeEmailRequest struct {
	NewEmail string `json:"new_email"`
}

type ForgotPasswordRequest struct {
	Username string `json:"username"`
}

// ForgotPasswordResponse carries the partially hidden address the reset code
// was sent to, e.g. "jo***@example.com".
type ForgotPasswordResponse struct {
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
}

type ResetPasswordRequest struct {
	Username    string `json:"username"`
	ResetCode   string `json:"reset_code"`
	NewPassword string `json:"new_password"`
}

// MessageResponse is the generic {"message": "..."} success body.
type MessageResponse struct {
	Message string `json:"message"`
}
