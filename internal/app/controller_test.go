package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/quipcam/quipcam/internal/apperr"
	"github.com/quipcam/quipcam/internal/auth"
	"github.com/quipcam/quipcam/internal/capture"
	"github.com/quipcam/quipcam/internal/gateway"
	"github.com/quipcam/quipcam/internal/nav"
	"github.com/quipcam/quipcam/internal/storage"
)

type statusLine struct {
	msg   string
	isErr bool
}

// recordingUI keeps everything the controller shows.
type recordingUI struct {
	mu       sync.Mutex
	statuses []statusLine
	comment  string
	system   []string
	controls Controls
	pages    []nav.Page
}

func (u *recordingUI) Status(msg string, isErr bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.statuses = append(u.statuses, statusLine{msg, isErr})
}

func (u *recordingUI) Comment(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.comment = text
}

func (u *recordingUI) SystemMessage(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.system = append(u.system, text)
}

func (u *recordingUI) SetControls(c Controls) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.controls = c
}

func (u *recordingUI) SetPage(p nav.Page) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pages = append(u.pages, p)
}

func (u *recordingUI) last() statusLine {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.statuses) == 0 {
		return statusLine{}
	}
	return u.statuses[len(u.statuses)-1]
}

type fakeFrames struct{}

type fakeFrameStream struct{}

func (fakeFrames) Name() string { return "camera" }
func (fakeFrames) Open(context.Context) (capture.FrameStream, error) {
	return fakeFrameStream{}, nil
}
func (fakeFrameStream) Frame(context.Context) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}
func (fakeFrameStream) Close() error { return nil }

type captured struct {
	Path   string
	Auth   string
	Body   map[string]any
	Method string
}

type harness struct {
	t        *testing.T
	ctrl     *Controller
	ui       *recordingUI
	tokens   *auth.Session
	store    storage.Store
	router   *nav.Router
	session  *capture.Session
	mu       sync.Mutex
	requests []captured
}

func (h *harness) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.requests)
}

func (h *harness) lastRequest() captured {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.requests) == 0 {
		h.t.Fatal("no request reached the backend")
	}
	return h.requests[len(h.requests)-1]
}

// newHarness builds a controller against a gin backend. token, when set,
// is stored before the controller starts.
func newHarness(t *testing.T, token string, setup func(h *harness, r *gin.Engine)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{t: t, ui: &recordingUI{}}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		var body map[string]any
		data, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(data))
		if len(data) > 0 {
			_ = json.Unmarshal(data, &body)
		}
		h.mu.Lock()
		h.requests = append(h.requests, captured{
			Path:   c.Request.URL.Path,
			Auth:   c.GetHeader("Authorization"),
			Body:   body,
			Method: c.Request.Method,
		})
		h.mu.Unlock()
		c.Next()
	})
	setup(h, r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	h.store = storage.NewMemoryStore()
	t.Cleanup(func() { h.store.Close() })
	h.tokens = auth.NewSession(h.store)
	if token != "" {
		if err := h.tokens.Save(token, "refresh-1"); err != nil {
			t.Fatal(err)
		}
	}

	h.router = nav.NewRouter(nav.PageMain)
	h.session = capture.NewSession()
	client := gateway.New(srv.URL, h.tokens, h.router)
	h.ctrl = NewController(client, h.tokens, h.router, h.session,
		Devices{Camera: fakeFrames{}}, h.ui, nil)
	h.ctrl.Start()
	return h
}

func noRoutes(*harness, *gin.Engine) {}

func TestStart_GuardsWithoutToken(t *testing.T) {
	h := newHarness(t, "", noRoutes)
	if h.router.Current() != nav.PageLogin {
		t.Errorf("page = %s, want login", h.router.Current())
	}
	if len(h.ui.pages) == 0 || h.ui.pages[len(h.ui.pages)-1] != nav.PageLogin {
		t.Errorf("ui should be shown the login page, got %v", h.ui.pages)
	}
}

func TestGenerate_NothingCaptured(t *testing.T) {
	h := newHarness(t, "tok", noRoutes)
	err := h.ctrl.Dispatch(context.Background(), Generate{})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.count() != 0 {
		t.Errorf("no request should be made, got %d", h.count())
	}
	if got := h.ui.last(); got.msg != capture.MsgNothingCaptured || !got.isErr {
		t.Errorf("status = %+v", got)
	}
}

func TestUpload_NonImageDisablesGenerate(t *testing.T) {
	h := newHarness(t, "tok", noRoutes)
	path := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(path, []byte("plain text"), 0644)

	if err := h.ctrl.Dispatch(context.Background(), UploadFile{Path: path}); err == nil {
		t.Fatal("expected error")
	}
	if h.session.State() != capture.StateEmpty {
		t.Errorf("state = %v, want empty", h.session.State())
	}
	if h.ui.controls.CanGenerate {
		t.Error("generate should be disabled")
	}
	if got := h.ui.last(); got.msg != capture.MsgInvalidImage || !got.isErr {
		t.Errorf("status = %+v", got)
	}
}

func TestGenerate_ImageSuccess(t *testing.T) {
	var during Controls
	h := newHarness(t, "tok-123", func(h *harness, r *gin.Engine) {
		r.POST(gateway.PathGenerateComment, func(c *gin.Context) {
			during = h.ctrl.Controls()
			c.JSON(http.StatusOK, gin.H{"comment": "Nice shot!"})
		})
	})

	ctx := context.Background()
	if err := h.ctrl.Dispatch(ctx, CaptureImage{Source: "camera"}); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if got := h.ui.last(); got.msg != MsgPhotoCaptured {
		t.Errorf("status = %+v", got)
	}
	if !h.ui.controls.CanGenerate {
		t.Error("generate should be enabled after a capture")
	}

	if err := h.ctrl.Dispatch(ctx, Generate{}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	req := h.lastRequest()
	if req.Auth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", req.Auth)
	}
	if req.Body["type"] != "image" {
		t.Errorf("type = %v, want image", req.Body["type"])
	}
	if data, _ := req.Body["data"].(string); data == "" || strings.HasPrefix(data, "data:") {
		t.Errorf("data should be bare base64, got %.20q", data)
	}
	if !during.Generating || during.CanGenerate {
		t.Errorf("controls during submission = %+v", during)
	}
	if h.ui.comment != "Nice shot!" {
		t.Errorf("comment = %q", h.ui.comment)
	}
	if got := h.ui.last(); got.msg != MsgGenerated || got.isErr {
		t.Errorf("status = %+v", got)
	}
	if h.session.State() != capture.StateEmpty {
		t.Errorf("state = %v, want empty", h.session.State())
	}
	if h.ui.controls.CanGenerate || h.ui.controls.Generating {
		t.Errorf("controls after submission = %+v", h.ui.controls)
	}
}

func TestGenerate_MissingComment(t *testing.T) {
	h := newHarness(t, "tok", func(_ *harness, r *gin.Engine) {
		r.POST(gateway.PathGenerateComment, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"result": "ok"})
		})
	})
	h.session.SetSpeech([]byte("voice"), "audio/webm")

	if err := h.ctrl.Dispatch(context.Background(), Generate{}); err == nil {
		t.Fatal("expected error")
	}
	if got := h.ui.last(); got.msg != MsgMissingComment || !got.isErr {
		t.Errorf("status = %+v", got)
	}
	if h.lastRequest().Body["type"] != "speech" {
		t.Errorf("type = %v, want speech", h.lastRequest().Body["type"])
	}
	if h.session.State() != capture.StateEmpty {
		t.Errorf("input must be cleared after a failed submission, state = %v", h.session.State())
	}
}

func TestGenerate_BackendError(t *testing.T) {
	h := newHarness(t, "tok", func(_ *harness, r *gin.Engine) {
		r.POST(gateway.PathGenerateComment, func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "model unavailable"})
		})
	})
	h.session.SetImage([]byte("img"), "image/png", "a.png")

	err := h.ctrl.Dispatch(context.Background(), Generate{})
	var apiErr *gateway.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 500 {
		t.Fatalf("expected APIError 500, got %v", err)
	}
	if got := h.ui.last(); got.msg != "model unavailable" || !got.isErr {
		t.Errorf("status = %+v", got)
	}
	if h.ui.controls.Generating {
		t.Error("generating flag must be reset after a failure")
	}
}

func TestGenerate_TransportErrorShowsCause(t *testing.T) {
	h := newHarness(t, "tok", noRoutes)
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	client := gateway.New(url, h.tokens, h.router)
	ctrl := NewController(client, h.tokens, h.router, h.session, Devices{Camera: fakeFrames{}}, h.ui, nil)
	ctrl.Start()
	if err := ctrl.Dispatch(context.Background(), CaptureImage{Source: "camera"}); err != nil {
		t.Fatalf("capture: %v", err)
	}

	err := ctrl.Dispatch(context.Background(), Generate{})
	var terr *gateway.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v (%T), want *gateway.TransportError", err, err)
	}
	got := h.ui.last()
	if !got.isErr || got.msg != err.Error() {
		t.Errorf("status = %+v, want the transport message %q", got, err.Error())
	}
	if got.msg == MsgGenerateFailed {
		t.Error("the generic fallback hides the network error")
	}
	if h.session.State() != capture.StateEmpty {
		t.Errorf("input must be cleared after a failed submission, state = %v", h.session.State())
	}
}

func TestGenerate_TokenGoneRedirects(t *testing.T) {
	h := newHarness(t, "tok", noRoutes)
	h.session.SetImage([]byte("img"), "image/png", "a.png")
	h.tokens.Clear()

	err := h.ctrl.Dispatch(context.Background(), Generate{})
	if !gateway.IsAuthRequired(err) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if h.count() != 0 {
		t.Errorf("no request should be made, got %d", h.count())
	}
	if h.router.Current() != nav.PageLogin {
		t.Errorf("page = %s, want login", h.router.Current())
	}
	if got := h.ui.last(); got.msg != "Authentication required." || !got.isErr {
		t.Errorf("status = %+v", got)
	}
}

func TestCapture_RequiresMainPage(t *testing.T) {
	h := newHarness(t, "", noRoutes)
	err := h.ctrl.Dispatch(context.Background(), CaptureImage{Source: "camera"})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.session.State() != capture.StateEmpty {
		t.Error("nothing should be captured on the login page")
	}
}

func TestCapture_UnavailableSource(t *testing.T) {
	h := newHarness(t, "tok", noRoutes)
	err := h.ctrl.Dispatch(context.Background(), CaptureImage{Source: "screen"})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t, "", func(_ *harness, r *gin.Engine) {
		r.POST(gateway.PathLogin, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"access_token": "acc", "refresh_token": "ref"})
		})
	})

	err := h.ctrl.Dispatch(context.Background(), Login{Email: " a@b.c ", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if h.lastRequest().Body["email"] != "a@b.c" {
		t.Errorf("email should be trimmed, got %v", h.lastRequest().Body["email"])
	}
	if v, _, _ := h.store.Get(auth.AccessTokenKey); v != "acc" {
		t.Errorf("stored access token = %q", v)
	}
	if v, _, _ := h.store.Get(auth.RefreshTokenKey); v != "ref" {
		t.Errorf("stored refresh token = %q", v)
	}
	if h.router.Current() != nav.PageMain {
		t.Errorf("page = %s, want main", h.router.Current())
	}
	if got := h.ui.last(); got.msg != MsgLoginDone {
		t.Errorf("status = %+v", got)
	}
}

func TestLogin_NoToken(t *testing.T) {
	h := newHarness(t, "", func(_ *harness, r *gin.Engine) {
		r.POST(gateway.PathLogin, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "hello"})
		})
	})
	if err := h.ctrl.Dispatch(context.Background(), Login{Email: "a@b.c", Password: "pw"}); err == nil {
		t.Fatal("expected error")
	}
	if got := h.ui.last(); got.msg != MsgLoginNoToken || !got.isErr {
		t.Errorf("status = %+v", got)
	}
	if h.tokens.HasToken() {
		t.Error("no token should be stored")
	}
	if h.router.Current() != nav.PageLogin {
		t.Errorf("page = %s, want login", h.router.Current())
	}
}

func TestLogin_NotVerified(t *testing.T) {
	h := newHarness(t, "", func(_ *harness, r *gin.Engine) {
		r.POST(gateway.PathLogin, func(c *gin.Context) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Account not verified. Please check your email."})
		})
	})
	h.ctrl.Dispatch(context.Background(), Login{Email: "a@b.c", Password: "pw"})
	if got := h.ui.last(); got.msg != "Account not verified. Please check your email." || !got.isErr {
		t.Errorf("status = %+v", got)
	}
}

func TestLogin_EmptyFields(t *testing.T) {
	h := newHarness(t, "", noRoutes)
	err := h.ctrl.Dispatch(context.Background(), Login{Email: "a@b.c", Password: "   "})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.count() != 0 {
		t.Error("no request should be made")
	}
	if got := h.ui.last(); got.msg != MsgLoginFields {
		t.Errorf("status = %+v", got)
	}
}

func TestSignup(t *testing.T) {
	h := newHarness(t, "", func(_ *harness, r *gin.Engine) {
		r.POST(gateway.PathSignup, func(c *gin.Context) {
			c.JSON(http.StatusCreated, gin.H{})
		})
	})
	h.router.Navigate(nav.PageSignup)

	if err := h.ctrl.Dispatch(context.Background(), Signup{Username: "ann", Email: "a@b.c", Password: "pw"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if got := h.ui.last(); got.msg != MsgSignupDone {
		t.Errorf("status = %+v", got)
	}
	if h.router.Current() != nav.PageLogin {
		t.Errorf("page = %s, want login", h.router.Current())
	}

	err := h.ctrl.Dispatch(context.Background(), Signup{Username: "ann", Email: "a@b.c"})
	if !apperr.IsValidation(err) || h.ui.last().msg != MsgSignupFields {
		t.Errorf("missing password should be rejected, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t, "tok", noRoutes)
	h.session.SetImage([]byte("img"), "image/png", "a.png")

	if err := h.ctrl.Dispatch(context.Background(), Logout{}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if h.count() != 0 {
		t.Error("logout must not call the backend")
	}
	if _, ok, _ := h.store.Get(auth.AccessTokenKey); ok {
		t.Error("access token should be removed from storage")
	}
	if h.router.Current() != nav.PageLogin {
		t.Errorf("page = %s, want login", h.router.Current())
	}
	if h.session.State() != capture.StateEmpty {
		t.Error("pending input should be dropped on logout")
	}
}

func TestVerifyAndResend(t *testing.T) {
	h := newHarness(t, "", func(_ *harness, r *gin.Engine) {
		r.GET(gateway.PathVerify, func(c *gin.Context) {
			if c.Query("token") != "abc" {
				c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or expired token."})
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Email verified."})
		})
		r.POST(gateway.PathResendVerification, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{})
		})
	})

	ctx := context.Background()
	if err := h.ctrl.Dispatch(ctx, Verify{Token: "abc"}); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got := h.ui.last(); got.msg != "Email verified." {
		t.Errorf("status = %+v", got)
	}
	if h.router.Current() != nav.PageLogin {
		t.Errorf("page = %s, want login", h.router.Current())
	}

	if err := h.ctrl.Dispatch(ctx, Verify{Token: "nope"}); err == nil {
		t.Error("expected error for bad token")
	}
	if got := h.ui.last(); got.msg != "Invalid or expired token." || !got.isErr {
		t.Errorf("status = %+v", got)
	}

	if err := h.ctrl.Dispatch(ctx, ResendVerification{Email: "a@b.c"}); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if got := h.ui.last(); got.msg != MsgVerificationSent {
		t.Errorf("status = %+v", got)
	}
	if h.lastRequest().Body["email"] != "a@b.c" {
		t.Errorf("resend body = %v", h.lastRequest().Body)
	}
}

func TestProfile(t *testing.T) {
	h := newHarness(t, "tok", func(_ *harness, r *gin.Engine) {
		r.GET(gateway.PathProfile, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"username": "ann", "email": "a@b.c"})
		})
		r.PUT(gateway.PathProfile, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "Saved."})
		})
	})

	ctx := context.Background()
	if err := h.ctrl.Dispatch(ctx, ShowProfile{}); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if len(h.ui.system) == 0 || !strings.Contains(h.ui.system[len(h.ui.system)-1], "username: ann") {
		t.Errorf("profile not shown: %v", h.ui.system)
	}

	if err := h.ctrl.Dispatch(ctx, UpdateProfile{Fields: map[string]any{"username": "bob"}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	req := h.lastRequest()
	if req.Method != http.MethodPut || req.Body["username"] != "bob" {
		t.Errorf("unexpected request %+v", req)
	}
	if got := h.ui.last(); got.msg != "Saved." {
		t.Errorf("status = %+v", got)
	}
}

func TestStatusReport(t *testing.T) {
	h := newHarness(t, "opaque-token", noRoutes)
	h.session.SetImage([]byte("img"), "image/png", "cat.png")

	h.ctrl.Dispatch(context.Background(), ShowStatus{})
	if len(h.ui.system) == 0 {
		t.Fatal("status not shown")
	}
	out := h.ui.system[len(h.ui.system)-1]
	for _, want := range []string{"login:", "logged in", "input:", "image (image/png, cat.png)", "page:", "main"} {
		if !strings.Contains(out, want) {
			t.Errorf("status report missing %q:\n%s", want, out)
		}
	}
}
