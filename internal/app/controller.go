// Package app maps user commands onto the capture session and the request
// gateway, and reports every outcome as a status line.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quipcam/quipcam/internal/apperr"
	"github.com/quipcam/quipcam/internal/auth"
	"github.com/quipcam/quipcam/internal/capture"
	"github.com/quipcam/quipcam/internal/gateway"
	"github.com/quipcam/quipcam/internal/nav"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Status messages.
const (
	MsgPhotoCaptured     = "Photo captured!"
	MsgScreenCaptured    = "Screenshot captured!"
	MsgClipboardCaptured = "Image pasted from clipboard!"
	MsgImageUploaded     = "Image uploaded!"
	MsgRecordingStarted  = "Recording started."
	MsgRecordingStopped  = "Recording stopped. Ready to generate."
	MsgGenerating        = "Generating comment... Please wait, this might take a moment."
	MsgGenerated         = "Comment generated successfully!"
	MsgMissingComment    = `Failed to get a comment. Backend response missing "comment".`
	MsgGenerateFailed    = "Failed to generate comment. Check the log for details."
	MsgSigningUp         = "Signing up..."
	MsgSignupDone        = "Signup successful! Please check your email to verify your account."
	MsgSignupFailed      = "An error occurred during signup."
	MsgSignupFields      = "Please fill in all fields."
	MsgLoggingIn         = "Logging in..."
	MsgLoginDone         = "Login successful! Redirecting..."
	MsgLoginNoToken      = "Login failed: Invalid credentials or no token received."
	MsgLoginFailed       = "An unknown error occurred during login."
	MsgLoginFields       = "Please enter your email and password."
	MsgLoggedOut         = "Logged out."
	MsgVerified          = "Email verified! You can now log in."
	MsgVerificationSent  = "Verification email sent. Please check your inbox."
	MsgProfileUpdated    = "Profile updated."
	MsgNotLoggedIn       = "Please log in first."
	MsgAlreadyGenerating = "A comment is already being generated."
)

var captureMessages = map[string]string{
	"camera":    MsgPhotoCaptured,
	"screen":    MsgScreenCaptured,
	"clipboard": MsgClipboardCaptured,
}

// Controls is the enabled state of the main page actions.
type Controls struct {
	CanCapture       bool
	CanStopRecording bool
	CanGenerate      bool
	Generating       bool
}

// UI receives everything the controller shows.
type UI interface {
	Status(msg string, isErr bool)
	Comment(text string)
	SystemMessage(text string)
	SetControls(Controls)
	SetPage(nav.Page)
}

// API is the subset of the gateway the controller calls.
type API interface {
	Signup(ctx context.Context, req gateway.SignupRequest) (gateway.Outcome, error)
	Login(ctx context.Context, creds gateway.Credentials) (gateway.LoginResult, error)
	ResendVerification(ctx context.Context, email string) (gateway.Outcome, error)
	Verify(ctx context.Context, token string) (gateway.Outcome, error)
	GenerateComment(ctx context.Context, req gateway.CommentRequest) (gateway.Outcome, error)
	Profile(ctx context.Context) (gateway.Outcome, error)
	UpdateProfile(ctx context.Context, fields map[string]any) (gateway.Outcome, error)
	Logout(tokens gateway.TokenClearer) error
	BaseURL() string
}

// Tokens is the session token pair as the controller uses it.
type Tokens interface {
	HasToken() bool
	Save(access, refresh string) error
	Clear() error
	Claims() (auth.TokenInfo, error)
}

// Devices are the capture producers available to the controller. Nil
// entries are reported as unavailable.
type Devices struct {
	Camera     capture.FrameSource
	Screen     capture.FrameSource
	Clipboard  capture.FrameSource
	Microphone capture.Microphone
}

func (d Devices) frameSource(name string) capture.FrameSource {
	switch name {
	case "camera":
		return d.Camera
	case "screen":
		return d.Screen
	case "clipboard":
		return d.Clipboard
	}
	return nil
}

// Controller applies commands. Dispatch may be called from one goroutine
// at a time; Controls may be read from any.
type Controller struct {
	api      API
	tokens   Tokens
	router   *nav.Router
	session  *capture.Session
	recorder *capture.Recorder
	devices  Devices
	ui       UI
	log      *zap.Logger

	mu         sync.Mutex
	generating bool
}

// NewController wires the controller and subscribes ui to page changes.
func NewController(api API, tokens Tokens, router *nav.Router, session *capture.Session,
	devices Devices, ui UI, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		api:      api,
		tokens:   tokens,
		router:   router,
		session:  session,
		recorder: capture.NewRecorder(),
		devices:  devices,
		ui:       ui,
		log:      log,
	}
	router.OnNavigate(func(from, to nav.Page) {
		c.log.Debug("navigate", zap.String("from", string(from)), zap.String("to", string(to)))
		c.ui.SetPage(to)
		c.publishControls()
	})
	return c
}

// Start applies the startup auth guard and shows the initial page.
func (c *Controller) Start() {
	before := c.router.Current()
	c.router.Guard(c.tokens.HasToken())
	if c.router.Current() == before {
		c.ui.SetPage(before)
		c.publishControls()
	}
}

// Controls returns the current control state.
func (c *Controller) Controls() Controls {
	c.mu.Lock()
	generating := c.generating
	c.mu.Unlock()

	recording := c.recorder.Recording()
	return Controls{
		CanCapture:       !recording,
		CanStopRecording: recording,
		CanGenerate:      !generating && c.session.State() != capture.StateEmpty,
		Generating:       generating,
	}
}

func (c *Controller) publishControls() {
	c.ui.SetControls(c.Controls())
}

// Dispatch applies cmd. Failures are shown as an error status and returned.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) error {
	var err error
	switch cmd := cmd.(type) {
	case CaptureImage:
		err = c.captureImage(ctx, cmd.Source)
	case UploadFile:
		err = c.upload(cmd.Path)
	case StartRecording:
		err = c.startRecording(ctx)
	case StopRecording:
		err = c.stopRecording()
	case RecordFor:
		err = c.recordFor(ctx, cmd.Duration)
	case Generate:
		err = c.generate(ctx)
	case Signup:
		err = c.signup(ctx, cmd)
	case Login:
		err = c.login(ctx, cmd)
	case Logout:
		err = c.logout()
	case Verify:
		err = c.verify(ctx, cmd.Token)
	case ResendVerification:
		err = c.resend(ctx, cmd.Email)
	case ShowProfile:
		err = c.showProfile(ctx)
	case UpdateProfile:
		err = c.updateProfile(ctx, cmd.Fields)
	case ShowStatus:
		c.showStatus()
	default:
		err = fmt.Errorf("unsupported command %T", cmd)
	}
	c.publishControls()
	return err
}

// fail shows err to the user and returns it. fallback is shown only when
// err has no message of its own.
func (c *Controller) fail(err error, fallback string) error {
	var terr *gateway.TransportError
	if errors.As(err, &terr) {
		c.log.Error("request failed", zap.String("endpoint", terr.Endpoint), zap.Error(err))
	}
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	c.ui.Status(msg, true)
	return err
}

func (c *Controller) requireMain() error {
	if c.router.Current() != nav.PageMain {
		return apperr.Validation(MsgNotLoggedIn)
	}
	return nil
}

// ---------- capture ----------

func (c *Controller) captureImage(ctx context.Context, source string) error {
	if err := c.requireMain(); err != nil {
		return c.fail(err, "")
	}
	if c.recorder.Recording() {
		return c.fail(apperr.Validation("Stop the recording before capturing an image."), "")
	}
	src := c.devices.frameSource(source)
	if src == nil {
		return c.fail(apperr.Validationf("No %s source is available.", source), "")
	}
	if err := c.session.CaptureCamera(ctx, src); err != nil {
		c.log.Warn("capture failed", zap.String("source", source), zap.Error(err))
		return c.fail(err, "")
	}
	c.ui.Status(captureMessages[source], false)
	return nil
}

func (c *Controller) upload(path string) error {
	if err := c.requireMain(); err != nil {
		return c.fail(err, "")
	}
	if err := c.session.Upload(path); err != nil {
		return c.fail(err, "Error reading image file.")
	}
	c.ui.Status(MsgImageUploaded, false)
	return nil
}

func (c *Controller) startRecording(ctx context.Context) error {
	if err := c.requireMain(); err != nil {
		return c.fail(err, "")
	}
	if c.devices.Microphone == nil {
		return c.fail(apperr.Validation("No microphone is available."), "")
	}
	// The recording outlives this command, so it must not inherit a
	// per-command deadline.
	if err := c.recorder.Start(context.WithoutCancel(ctx), c.devices.Microphone); err != nil {
		if apperr.IsValidation(err) {
			return c.fail(err, "")
		}
		c.log.Warn("microphone start failed", zap.Error(err))
		c.ui.Status("Error starting microphone. Please check permissions.", true)
		return err
	}
	c.ui.Status(MsgRecordingStarted, false)
	return nil
}

func (c *Controller) stopRecording() error {
	if err := c.session.FinishRecording(c.recorder); err != nil {
		return c.fail(err, "")
	}
	c.ui.Status(MsgRecordingStopped, false)
	return nil
}

func (c *Controller) recordFor(ctx context.Context, d time.Duration) error {
	if err := c.startRecording(ctx); err != nil {
		return err
	}
	c.publishControls()
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	return c.stopRecording()
}

// ---------- generate ----------

var errMissingComment = errors.New(MsgMissingComment)

func (c *Controller) generate(ctx context.Context) error {
	if err := c.requireMain(); err != nil {
		return c.fail(err, "")
	}
	if _, ok := c.session.Pending(); !ok {
		return c.fail(apperr.Validation(capture.MsgNothingCaptured), "")
	}

	c.mu.Lock()
	if c.generating {
		c.mu.Unlock()
		return c.fail(apperr.Validation(MsgAlreadyGenerating), "")
	}
	c.generating = true
	c.mu.Unlock()

	c.ui.Status(MsgGenerating, false)
	c.ui.Comment("")
	c.publishControls()

	var comment string
	err := c.session.Submit(ctx, func(ctx context.Context, in capture.Input) error {
		c.log.Info("submitting input",
			zap.String("type", string(in.Kind)),
			zap.String("media_type", in.MediaType),
			zap.Int("payload_bytes", len(in.Payload)))
		out, err := c.api.GenerateComment(ctx, gateway.CommentRequest{Type: string(in.Kind), Data: in.Payload})
		if err != nil {
			return err
		}
		comment = out.String("comment")
		if comment == "" {
			c.log.Error("unexpected backend response", zap.Any("response", map[string]any(out)))
			return errMissingComment
		}
		return nil
	})

	c.mu.Lock()
	c.generating = false
	c.mu.Unlock()

	if err != nil {
		return c.fail(err, MsgGenerateFailed)
	}
	c.ui.Comment(comment)
	c.ui.Status(MsgGenerated, false)
	return nil
}

// ---------- auth ----------

func (c *Controller) signup(ctx context.Context, cmd Signup) error {
	req := gateway.SignupRequest{
		Username: strings.TrimSpace(cmd.Username),
		Email:    strings.TrimSpace(cmd.Email),
		Password: strings.TrimSpace(cmd.Password),
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.fail(apperr.Validation(MsgSignupFields), "")
	}

	c.ui.Status(MsgSigningUp, false)
	out, err := c.api.Signup(ctx, req)
	if err != nil {
		return c.fail(err, MsgSignupFailed)
	}
	msg := out.String("message")
	if msg == "" {
		msg = MsgSignupDone
	}
	c.ui.Status(msg, false)
	c.router.Navigate(nav.PageLogin)
	return nil
}

func (c *Controller) login(ctx context.Context, cmd Login) error {
	creds := gateway.Credentials{
		Email:    strings.TrimSpace(cmd.Email),
		Password: strings.TrimSpace(cmd.Password),
	}
	if creds.Email == "" || creds.Password == "" {
		return c.fail(apperr.Validation(MsgLoginFields), "")
	}

	c.ui.Status(MsgLoggingIn, false)
	res, err := c.api.Login(ctx, creds)
	if err != nil {
		return c.fail(err, MsgLoginFailed)
	}
	if res.AccessToken == "" {
		return c.fail(errors.New(MsgLoginNoToken), "")
	}
	if err := c.tokens.Save(res.AccessToken, res.RefreshToken); err != nil {
		return c.fail(err, "")
	}
	c.ui.Status(MsgLoginDone, false)
	c.router.Navigate(nav.PageMain)
	return nil
}

func (c *Controller) logout() error {
	if c.recorder.Recording() {
		_, _ = c.recorder.Stop()
	}
	c.session.Clear()
	if err := c.api.Logout(c.tokens); err != nil {
		return c.fail(err, "")
	}
	c.ui.Status(MsgLoggedOut, false)
	return nil
}

func (c *Controller) verify(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return c.fail(apperr.Validation("Please enter the verification token."), "")
	}
	c.router.Navigate(nav.PageVerify)
	out, err := c.api.Verify(ctx, token)
	if err != nil {
		return c.fail(err, "Verification failed.")
	}
	msg := out.String("message")
	if msg == "" {
		msg = MsgVerified
	}
	c.ui.Status(msg, false)
	c.router.Navigate(nav.PageLogin)
	return nil
}

func (c *Controller) resend(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return c.fail(apperr.Validation("Please enter your email."), "")
	}
	out, err := c.api.ResendVerification(ctx, email)
	if err != nil {
		return c.fail(err, "Could not resend the verification email.")
	}
	msg := out.String("message")
	if msg == "" {
		msg = MsgVerificationSent
	}
	c.ui.Status(msg, false)
	return nil
}

// ---------- profile ----------

func (c *Controller) showProfile(ctx context.Context) error {
	out, err := c.api.Profile(ctx)
	if err != nil {
		return c.fail(err, "Could not load the profile.")
	}
	text, err := formatOutcome(out)
	if err != nil {
		return c.fail(err, "")
	}
	c.ui.SystemMessage(text)
	c.ui.Status("Profile loaded.", false)
	return nil
}

func (c *Controller) updateProfile(ctx context.Context, fields map[string]any) error {
	if len(fields) == 0 {
		return c.fail(apperr.Validation("Nothing to update."), "")
	}
	out, err := c.api.UpdateProfile(ctx, fields)
	if err != nil {
		return c.fail(err, "Could not update the profile.")
	}
	msg := out.String("message")
	if msg == "" {
		msg = MsgProfileUpdated
	}
	c.ui.Status(msg, false)
	return nil
}

// formatOutcome renders a response body as YAML with sorted keys.
func formatOutcome(out gateway.Outcome) (string, error) {
	if len(out) == 0 {
		return "(empty)", nil
	}
	data, err := yaml.Marshal(map[string]any(out))
	if err != nil {
		return "", fmt.Errorf("format response: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// ---------- status ----------

func (c *Controller) showStatus() {
	c.ui.SystemMessage(c.StatusReport(time.Now()))
}

// StatusReport describes the server, the login and the pending input.
func (c *Controller) StatusReport(now time.Time) string {
	rows := map[string]string{
		"server": c.api.BaseURL(),
		"page":   string(c.router.Current()),
	}

	switch info, err := c.tokens.Claims(); {
	case !c.tokens.HasToken():
		rows["login"] = "logged out"
	case errors.Is(err, auth.ErrOpaqueToken):
		rows["login"] = "logged in"
	case err != nil:
		rows["login"] = "logged in (" + err.Error() + ")"
	default:
		login := "logged in"
		if info.Subject != "" {
			login += " as " + info.Subject
		}
		if !info.ExpiresAt.IsZero() {
			if info.Expired(now) {
				login += ", token expired " + info.ExpiresAt.Format(time.RFC3339)
			} else {
				login += ", token expires " + info.ExpiresAt.Format(time.RFC3339)
			}
		}
		rows["login"] = login
	}

	pending := "nothing captured"
	if in, ok := c.session.Pending(); ok {
		pending = fmt.Sprintf("%s (%s, %s)", in.Kind, in.MediaType, in.Label)
	}
	if c.recorder.Recording() {
		pending += ", recording"
	}
	rows["input"] = pending

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%-7s %s\n", k+":", rows[k])
	}
	return strings.TrimRight(b.String(), "\n")
}
