package sesam

import (
	"errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// GetRouterSession maps the claims stored by Protect into a SessionObject.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := raw.(*AccessClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	return sessionFromAccessClaims(claims)
}

// RegisterAuthRoutes mounts the full auth surface on the given router group.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegisterPost).
		SetName("auth.register.post")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login.post")

	app.Get(controller.Routes.VerifyEmail, controller.VerifyEmailGet).
		SetName("auth.verify-email.get")

	app.Post(controller.Routes.ResendVerification, controller.ResendVerificationPost).
		SetName("auth.resend-verification.post")

	app.Post(controller.Routes.ForgotPassword, controller.ForgotPasswordPost).
		SetName("auth.forgot-password.post")

	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordPost).
		SetName("auth.reset-password.post")

	app.Post(controller.Routes.RefreshToken, controller.RefreshTokenPost).
		SetName("auth.refresh-token.post")

	app.Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("auth.logout.post")
}

type AuthControllerRoutes struct {
	Register           string
	Login              string
	Logout             string
	VerifyEmail        string
	ResendVerification string
	ForgotPassword     string
	ResetPassword      string
	RefreshToken       string
}

type AuthController struct {
	Debug     bool
	Logger    Logger
	Repo      RepositoryManager
	Config    *Config
	Sender    EmailSender
	Auther    *Auther
	Transport *CookieTransport
	Activity  ActivitySink
	Routes    *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Register:           "/register",
			Login:              "/login",
			Logout:             "/logout",
			VerifyEmail:        "/verify-email",
			ResendVerification: "/resend-verification",
			ForgotPassword:     "/forgot-password",
			ResetPassword:      "/reset-password",
			RefreshToken:       "/refresh-token",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	if c.Sender == nil {
		panic("Missing EmailSender in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	if c.Transport == nil {
		c.Transport = NewCookieTransport(c.Config).WithLogger(c.Logger)
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerConfig(cfg *Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func WithControllerSender(sender EmailSender) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Sender = sender
		return c
	}
}

func WithControllerAuther(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerTransport(transport *CookieTransport) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Transport = transport
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Activity = sink
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// RegistrationPayload is the register request body.
type RegistrationPayload struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegistrationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// EmailPayload carries a bare email address.
type EmailPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r EmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ResetPasswordPayload carries a reset token and the replacement password.
type ResetPasswordPayload struct {
	Token    string `form:"token" json:"token"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// RefreshPayload optionally carries the refresh token for clients that do not
// use cookies.
type RefreshPayload struct {
	RefreshToken string `form:"refreshToken" json:"refreshToken"`
}

func (a *AuthController) RegisterPost(ctx router.Context) error {
	payload := new(RegistrationPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "failed to parse request body", err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	if a.Debug {
		fmt.Println("===== AUTH REGISTER =====")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	var registered *User
	handler := NewRegisterUserHandler(a.Repo, a.Config, a.Sender).
		WithLogger(a.Logger).
		WithActivitySink(a.Activity)

	err := handler.Execute(ctx.Context(), RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(resp *RegisterUserResponse) {
			registered = resp.User
		},
	})

	if err != nil {
		a.Logger.Error("register user error: %v", err)
		return WriteError(ctx, a.Logger, err)
	}

	return WriteSuccess(ctx, http.StatusCreated, map[string]any{
		"email": registered.Email,
	}, "Registration successful. Please check your email to verify your account.")
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "failed to parse request body", err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	pair, identity, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Debug("login rejected for %s: %v", payload.Email, err)
		return WriteError(ctx, a.Logger, err)
	}

	a.Transport.SetAuthCookies(ctx, pair)

	return WriteSuccess(ctx, http.StatusOK, map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user": map[string]any{
			"id":    identity.ID(),
			"name":  identity.Name(),
			"email": identity.Email(),
			"role":  identity.Role(),
		},
	}, "Login successful.")
}

func (a *AuthController) VerifyEmailGet(ctx router.Context) error {
	token := ctx.Query("token", "")

	handler := NewConfirmVerificationHandler(a.Repo).
		WithLogger(a.Logger).
		WithActivitySink(a.Activity)

	err := handler.Execute(ctx.Context(), ConfirmVerificationMessage{Token: token})
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	return WriteSuccess(ctx, http.StatusOK, nil, "Email verified successfully. You can now log in.")
}

func (a *AuthController) ResendVerificationPost(ctx router.Context) error {
	payload := new(EmailPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "failed to parse request body", err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	handler := NewRequestVerificationHandler(a.Repo, a.Config, a.Sender).
		WithLogger(a.Logger).
		WithActivitySink(a.Activity)

	err := handler.Execute(ctx.Context(), RequestVerificationMessage{Email: payload.Email})
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	return WriteSuccess(ctx, http.StatusOK, nil, "Verification email sent.")
}

func (a *AuthController) ForgotPasswordPost(ctx router.Context) error {
	payload := new(EmailPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "failed to parse request body", err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	handler := NewInitializePasswordResetHandler(a.Repo, a.Config, a.Sender).
		WithLogger(a.Logger)

	err := handler.Execute(ctx.Context(), InitializePasswordResetMessage{Email: payload.Email})
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	return WriteSuccess(ctx, http.StatusOK, nil, "Password reset email sent.")
}

func (a *AuthController) ResetPasswordPost(ctx router.Context) error {
	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "failed to parse request body", err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	handler := NewFinalizePasswordResetHandler(a.Repo).
		WithLogger(a.Logger).
		WithActivitySink(a.Activity)

	err := handler.Execute(ctx.Context(), FinalizePasswordResetMessage{
		Token:    payload.Token,
		Password: payload.Password,
	})
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	return WriteSuccess(ctx, http.StatusOK, nil, "Password has been reset successfully.")
}

// RefreshTokenPost rotates the token pair. Any failure clears both cookies,
// so a client holding a dead refresh token falls back to a clean login.
func (a *AuthController) RefreshTokenPost(ctx router.Context) error {
	token := a.Transport.RefreshTokenFromContext(ctx)
	if token == "" {
		payload := new(RefreshPayload)
		if err := ctx.Bind(payload); err == nil {
			token = payload.RefreshToken
		}
	}

	if token == "" {
		a.Transport.ClearAuthCookies(ctx)
		return WriteError(ctx, a.Logger, ErrUnableToFindSession)
	}

	pair, err := a.Auther.Refresh(ctx.Context(), token)
	if err != nil {
		a.Transport.ClearAuthCookies(ctx)
		return WriteError(ctx, a.Logger, err)
	}

	a.Transport.SetAuthCookies(ctx, pair)

	return WriteSuccess(ctx, http.StatusOK, map[string]any{
		"accessToken": pair.AccessToken,
	}, "Token refreshed.")
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	a.Transport.ClearAuthCookies(ctx)
	return WriteSuccess(ctx, http.StatusOK, nil, "Logged out.")
}

func (a *AuthController) badRequest(ctx router.Context, msg string, err error) error {
	a.Logger.Error("%s: %v", msg, err)
	return WriteError(ctx, a.Logger, goerrors.Wrap(err, goerrors.CategoryBadInput, msg).
		WithCode(goerrors.CodeBadRequest))
}

func (a *AuthController) validationError(ctx router.Context, err error) error {
	return WriteError(ctx, a.Logger, goerrors.New("validation failed", goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"fields": FormatValidationErrorToMap(err)}))
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field-to-message map for the error envelope.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	if err != nil {
		out["error"] = err.Error()
	}

	return out
}
