package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestLogin_ParsesTokens(t *testing.T) {
	srv := newBackend(t, func(r *gin.Engine) {
		r.POST(PathLogin, func(c *gin.Context) {
			var creds Credentials
			if err := c.ShouldBindJSON(&creds); err != nil || creds.Email != "a@b.com" || creds.Password != "x" {
				c.JSON(http.StatusBadRequest, gin.H{"message": "bad credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"access_token": "T1", "refresh_token": "R1"})
		})
	})
	c := New(srv.URL, staticTokens(""), &fakeRedirector{})

	res, err := c.Login(context.Background(), Credentials{Email: "a@b.com", Password: "x"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken != "T1" || res.RefreshToken != "R1" {
		t.Errorf("Login = %+v, want T1/R1", res)
	}
	if srv.last().Header.Get("Authorization") != "" {
		t.Error("login must not send a bearer token")
	}
}

func TestSignup_SendsAllFields(t *testing.T) {
	srv := newBackend(t, func(r *gin.Engine) {
		r.POST(PathSignup, func(c *gin.Context) {
			c.JSON(http.StatusCreated, gin.H{"message": "Check your inbox"})
		})
	})
	c := New(srv.URL, staticTokens(""), nil)

	out, err := c.Signup(context.Background(), SignupRequest{Username: "al", Email: "a@b.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if out.String("message") != "Check your inbox" {
		t.Errorf("message = %q", out.String("message"))
	}
	var sent map[string]string
	json.Unmarshal(srv.last().Body, &sent)
	if sent["username"] != "al" || sent["email"] != "a@b.com" || sent["password"] != "pw" {
		t.Errorf("sent body = %v", sent)
	}
}

func TestVerify_TokenInQuery(t *testing.T) {
	srv := newBackend(t, func(r *gin.Engine) {
		r.GET(PathVerify, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "verified " + c.Query("token")})
		})
	})
	c := New(srv.URL, staticTokens(""), nil)

	out, err := c.Verify(context.Background(), "a b&c")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if out.String("message") != "verified a b&c" {
		t.Errorf("message = %q", out.String("message"))
	}
	if srv.last().Method != http.MethodGet {
		t.Errorf("method = %s, want GET", srv.last().Method)
	}
}

func TestResendVerification(t *testing.T) {
	srv := newBackend(t, func(r *gin.Engine) {
		r.POST(PathResendVerification, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "sent"})
		})
	})
	c := New(srv.URL, staticTokens(""), nil)

	if _, err := c.ResendVerification(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("ResendVerification: %v", err)
	}
	var sent map[string]string
	json.Unmarshal(srv.last().Body, &sent)
	if sent["email"] != "a@b.com" {
		t.Errorf("sent body = %v", sent)
	}
}

func TestGenerateComment_UnverifiedAccount(t *testing.T) {
	srv := newBackend(t, func(r *gin.Engine) {
		r.POST(PathGenerateComment, func(c *gin.Context) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Account not verified"})
		})
	})
	c := New(srv.URL, staticTokens("T1"), &fakeRedirector{})

	_, err := c.GenerateComment(context.Background(), CommentRequest{Type: "image", Data: "AAAA"})
	if err == nil || err.Error() != "Account not verified" {
		t.Fatalf("err = %v, want exactly %q", err, "Account not verified")
	}
	var sent CommentRequest
	json.Unmarshal(srv.last().Body, &sent)
	if sent.Type != "image" || sent.Data != "AAAA" {
		t.Errorf("sent = %+v", sent)
	}
}

type clearRecorder struct {
	cleared bool
	err     error
}

func (c *clearRecorder) Clear() error {
	c.cleared = true
	return c.err
}

func TestLogout_ClearsAndRedirects(t *testing.T) {
	redirect := &fakeRedirector{}
	c := New("http://unused", staticTokens("T1"), redirect)
	tokens := &clearRecorder{}

	if err := c.Logout(tokens); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !tokens.cleared {
		t.Error("tokens should be cleared")
	}
	if redirect.calls != 1 {
		t.Errorf("redirect calls = %d, want 1", redirect.calls)
	}

	// A storage failure is reported, but the user still lands on login.
	redirect = &fakeRedirector{}
	c = New("http://unused", staticTokens("T1"), redirect)
	failing := &clearRecorder{err: errors.New("disk full")}
	if err := c.Logout(failing); err == nil {
		t.Error("expected clear error to be returned")
	}
	if redirect.calls != 1 {
		t.Errorf("redirect calls = %d, want 1", redirect.calls)
	}
}
