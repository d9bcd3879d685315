package sesam

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Name       string `json:"name" example:"Pepe Rone" doc:"Display name for the new account."`
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Email the verification link is sent to."`
	Password   string `json:"password" doc:"Cleartext password, hashed before storage."`
	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User *User
	// Reissued is true when the email belonged to an unverified account and
	// registration behaved as a retry instead of creating a new row.
	Reissued bool
}

// RegisterUserHandler creates an account in the unverified state and sends
// the first verification email. Registering an email that already exists
// unverified overwrites the pending account's name and password and re-issues
// the ticket, so a typo'd password does not strand the address.
type RegisterUserHandler struct {
	repo     RepositoryManager
	config   *Config
	sender   EmailSender
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

func NewRegisterUserHandler(repo RepositoryManager, config *Config, sender EmailSender) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:   repo,
		config: config,
		sender: sender,
		now:    time.Now,
	}
}

func (h *RegisterUserHandler) WithLogger(l Logger) *RegisterUserHandler {
	h.logger = l
	return h
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = sink
	return h
}

func (h *RegisterUserHandler) WithClock(now func() time.Time) *RegisterUserHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	resp := &RegisterUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	now := h.now()
	var ticket string

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err == nil {
			return h.retryPending(ctx, tx, existing, event, now, resp, &ticket)
		}

		if !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		token, err := GenerateTicket()
		if err != nil {
			return err
		}

		expiresAt := now.Add(h.config.VerificationTTL)
		user := &User{
			Name:                       event.Name,
			Email:                      event.Email,
			PasswordHash:               hash,
			Role:                       RoleUser,
			VerificationToken:          &token,
			VerificationTokenExpiresAt: &expiresAt,
			LastVerificationEmailSent:  &now,
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		resp.User = user
		ticket = token
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	sendEmail(h.getLogger(), h.config.EmailSendTimeout, "verification", func(ctx context.Context) error {
		return h.sender.SendVerificationEmail(ctx, resp.User.Email, resp.User.Name, ticket)
	})

	recordActivity(ctx, h.activity, h.getLogger(), ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor:     ActorRef{ID: resp.User.ID.String(), Type: "user"},
		UserID:    resp.User.ID.String(),
		Metadata:  map[string]any{"reissued": resp.Reissued},
	})

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// retryPending handles registration against an email that already exists. A
// verified account is a hard conflict; an unverified one is treated as the
// same person trying again, subject to the resend cooldown.
func (h *RegisterUserHandler) retryPending(ctx context.Context, tx bun.Tx, existing *User, event RegisterUserMessage, now time.Time, resp *RegisterUserResponse, ticket *string) error {
	if existing.Verified {
		return ErrDuplicateEmail
	}

	if remaining := CooldownRemaining(existing.LastVerificationEmailSent, h.config.EmailResendCooldown, now); remaining > 0 {
		return NewCooldownError(remaining)
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user, err := h.repo.Users().OverwriteUnverifiedTx(ctx, tx, existing.ID, event.Name, hash)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update pending account")
	}

	token, err := GenerateTicket()
	if err != nil {
		return err
	}

	user, err = h.repo.Users().StampVerificationTx(ctx, tx, user.ID, token, now.Add(h.config.VerificationTTL), now)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue verification token")
	}

	resp.User = user
	resp.Reissued = true
	*ticket = token
	return nil
}

func (h *RegisterUserHandler) getLogger() Logger {
	if h.logger != nil {
		return h.logger
	}
	return defLogger{}
}
