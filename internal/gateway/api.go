package gateway

import (
	"context"
	"net/http"
	"net/url"
)

// Backend endpoints.
const (
	PathSignup             = "/api/auth/signup"
	PathLogin              = "/api/auth/login"
	PathResendVerification = "/api/auth/resend-verification"
	PathVerify             = "/api/auth/verify"
	PathGenerateComment    = "/api/ai/generate-comment"
	PathProfile            = "/api/user/profile"
)

// SignupRequest registers a new account.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials log an existing account in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the token pair handed out by the login endpoint.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Message      string
}

// CommentRequest is the payload of the comment generator.
// Type is "image" or "speech"; Data is base64 without a data: prefix.
type CommentRequest struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// TokenClearer drops the stored token pair.
type TokenClearer interface {
	Clear() error
}

// Signup registers an account. The backend mails a verification link.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (Outcome, error) {
	return c.Send(ctx, PathSignup, http.MethodPost, req, false)
}

// Login exchanges credentials for tokens. It does not store them.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	out, err := c.Send(ctx, PathLogin, http.MethodPost, creds, false)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		AccessToken:  out.String("access_token"),
		RefreshToken: out.String("refresh_token"),
		Message:      out.String("message"),
	}, nil
}

// ResendVerification asks the backend to mail a new verification link.
func (c *Client) ResendVerification(ctx context.Context, email string) (Outcome, error) {
	return c.Send(ctx, PathResendVerification, http.MethodPost, map[string]string{"email": email}, false)
}

// Verify confirms an email address with the token from the verification link.
func (c *Client) Verify(ctx context.Context, token string) (Outcome, error) {
	q := url.Values{"token": {token}}
	return c.Send(ctx, PathVerify+"?"+q.Encode(), http.MethodGet, nil, false)
}

// GenerateComment submits one captured input. Requires auth.
func (c *Client) GenerateComment(ctx context.Context, req CommentRequest) (Outcome, error) {
	return c.Send(ctx, PathGenerateComment, http.MethodPost, req, true)
}

// Profile fetches the logged-in user's profile. Requires auth.
func (c *Client) Profile(ctx context.Context) (Outcome, error) {
	return c.Send(ctx, PathProfile, http.MethodGet, nil, true)
}

// UpdateProfile sends the changed fields and returns the updated profile.
// Requires auth.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]any) (Outcome, error) {
	return c.Send(ctx, PathProfile, http.MethodPut, fields, true)
}

// Logout clears the token pair and returns to the login page. The backend
// has no logout endpoint, so nothing is sent.
func (c *Client) Logout(tokens TokenClearer) error {
	err := tokens.Clear()
	if c.redirect != nil {
		c.redirect.RedirectToLogin()
	}
	return err
}
